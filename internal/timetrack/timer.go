// Package timetrack holds the client side of time tracking: timer state,
// elapsed arithmetic, duration formatting and the display ticker.
package timetrack

import (
	"errors"
	"time"

	"teamboard-cli/internal/model"
)

type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return "stopped"
}

func StateOf(t *model.Timer) State {
	switch {
	case t == nil:
		return Stopped
	case t.IsPaused:
		return Paused
	case t.IsRunning:
		return Running
	}
	return Stopped
}

var (
	ErrNotRunning = errors.New("timer is not running")
	ErrNotPaused  = errors.New("timer is not paused")
	ErrNoTimer    = errors.New("no active timer")
	ErrActive     = errors.New("a timer is already active")
)

func CanStart(t *model.Timer) error {
	if StateOf(t) != Stopped {
		return ErrActive
	}
	return nil
}

func CanPause(t *model.Timer) error {
	if StateOf(t) != Running {
		return ErrNotRunning
	}
	return nil
}

func CanResume(t *model.Timer) error {
	if StateOf(t) != Paused {
		return ErrNotPaused
	}
	return nil
}

func CanStop(t *model.Timer) error {
	if StateOf(t) == Stopped {
		return ErrNoTimer
	}
	return nil
}

// Elapsed is the worked time on t as of now. A paused timer is frozen at its
// pause instant. Never negative.
func Elapsed(t *model.Timer, now time.Time) time.Duration {
	if t == nil {
		return 0
	}
	end := now
	if t.IsPaused && t.PausedAt != nil {
		end = *t.PausedAt
	}
	d := end.Sub(t.StartTime) - time.Duration(t.TotalPauseDuration)*time.Second
	if d < 0 {
		return 0
	}
	return d
}
