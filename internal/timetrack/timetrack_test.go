package timetrack

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"teamboard-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

func TestStateAndTransitions(t *testing.T) {
	assert.Equal(t, Stopped, StateOf(nil))
	running := &model.Timer{StartTime: t0, IsRunning: true}
	paused := &model.Timer{StartTime: t0, IsPaused: true}

	assert.Equal(t, Running, StateOf(running))
	assert.Equal(t, Paused, StateOf(paused))

	assert.NoError(t, CanStart(nil))
	assert.ErrorIs(t, CanStart(running), ErrActive)
	assert.NoError(t, CanPause(running))
	assert.ErrorIs(t, CanPause(paused), ErrNotRunning)
	assert.NoError(t, CanResume(paused))
	assert.ErrorIs(t, CanResume(running), ErrNotPaused)
	assert.NoError(t, CanStop(paused))
	assert.ErrorIs(t, CanStop(nil), ErrNoTimer)
}

func TestElapsed(t *testing.T) {
	now := t0.Add(90 * time.Minute)
	running := &model.Timer{StartTime: t0, IsRunning: true, TotalPauseDuration: 600}
	assert.Equal(t, 80*time.Minute, Elapsed(running, now))

	pausedAt := t0.Add(30 * time.Minute)
	paused := &model.Timer{StartTime: t0, IsPaused: true, PausedAt: &pausedAt, TotalPauseDuration: 60}
	assert.Equal(t, 29*time.Minute, Elapsed(paused, now))
	assert.Equal(t, 29*time.Minute, Elapsed(paused, now.Add(time.Hour)), "paused timers are frozen")

	skewed := &model.Timer{StartTime: now.Add(time.Minute), IsRunning: true}
	assert.Equal(t, time.Duration(0), Elapsed(skewed, now))
	assert.Equal(t, time.Duration(0), Elapsed(nil, now))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatClock(-time.Second))
	assert.Equal(t, "01:02:03", FormatClock(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "100:00:00", FormatClock(100*time.Hour))

	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "12m", FormatDuration(12*time.Minute+30*time.Second))
	assert.Equal(t, "1h 05m", FormatDuration(65*time.Minute))

	assert.Equal(t, "1.50h", FormatHours(5400))
}

func TestParseDuration(t *testing.T) {
	good := map[string]time.Duration{
		"1h30m": 90 * time.Minute,
		"90m":   90 * time.Minute,
		"1.5h":  90 * time.Minute,
		"45 s":  45 * time.Second,
		"2h 5m": 125 * time.Minute,
		"15":    15 * time.Minute,
	}
	for in, want := range good {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "1x", "h", "0m", "-5", "1h junk"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestTicker_StartStop(t *testing.T) {
	var tk Ticker
	var n atomic.Int32
	tk.Start(context.Background(), 5*time.Millisecond, func(context.Context, time.Time) { n.Add(1) })
	assert.True(t, tk.Running())

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	tk.Stop()
	tk.Stop()
	assert.False(t, tk.Running())

	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, n.Load(), "no ticks after Stop")
}

func TestTicker_ContextCancelStops(t *testing.T) {
	var tk Ticker
	ctx, cancel := context.WithCancel(context.Background())
	tk.Start(ctx, time.Millisecond, func(context.Context, time.Time) {})
	cancel()
	require.Eventually(t, func() bool { return !tk.Running() }, time.Second, time.Millisecond)
	tk.Stop()
}

func TestTicker_RestartReplaces(t *testing.T) {
	var tk Ticker
	var a, b atomic.Int32
	tk.Start(context.Background(), time.Millisecond, func(context.Context, time.Time) { a.Add(1) })
	tk.Start(context.Background(), time.Millisecond, func(context.Context, time.Time) { b.Add(1) })
	defer tk.Stop()

	stale := a.Load()
	require.Eventually(t, func() bool { return b.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, stale, a.Load())
}

func TestTicker_StopWhileConsumerIsBusy(t *testing.T) {
	var tk Ticker
	ticks := make(chan time.Time)
	tk.Start(context.Background(), time.Millisecond, func(ctx context.Context, now time.Time) {
		select {
		case ticks <- now:
		case <-ctx.Done():
		}
	})

	// Take one tick, let the next one block on the unbuffered channel, then
	// stop from the consuming side without reading again.
	<-ticks
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		tk.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while the tick callback was waiting on its consumer")
	}
	assert.False(t, tk.Running())
}
