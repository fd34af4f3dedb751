// Package redirect resolves where a notification should take the user.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/logging"
	"teamboard-cli/internal/model"
)

const (
	DashboardTarget = "/dashboard"
	DefaultDelay    = 2 * time.Second

	MsgGone = "This content no longer exists."
)

type Target int

const (
	TargetNone Target = iota
	TargetTask
	TargetBoard
	TargetProject
	TargetTeam
)

func (t Target) noun() string {
	switch t {
	case TargetTask:
		return "task"
	case TargetBoard:
		return "board"
	case TargetProject:
		return "project"
	case TargetTeam:
		return "team"
	}
	return "content"
}

var targets = map[string]Target{
	"task_assigned":         TargetTask,
	"task_updated":          TargetTask,
	"task_commented":        TargetTask,
	"task_mentioned":        TargetTask,
	"task_due_soon":         TargetTask,
	"task_overdue":          TargetTask,
	"task_completed":        TargetTask,
	"board_enrolled":        TargetBoard,
	"board_updated":         TargetBoard,
	"board_shared":          TargetBoard,
	"project_added":         TargetProject,
	"project_updated":       TargetProject,
	"team_invitation":       TargetTeam,
	"team_join_request":     TargetTeam,
	"team_request_approved": TargetTeam,
	"team_request_rejected": TargetTeam,
}

// TargetOf reports what kind of object a notification type points at.
func TargetOf(notificationType string) Target { return targets[notificationType] }

func relatedID(n model.Notification) *int64 {
	switch TargetOf(n.Type) {
	case TargetTask:
		return n.RelatedTaskID
	case TargetBoard:
		return n.RelatedBoardID
	case TargetProject:
		return n.RelatedProjectID
	case TargetTeam:
		return n.RelatedTeamID
	}
	return nil
}

// CanRedirect is true when the id field for the notification's type is set.
func CanRedirect(n model.Notification) bool {
	id := relatedID(n)
	return id != nil && *id != 0
}

var ErrNoTarget = errors.New("notification has no navigable target")

// Lookup is the backend access Resolve needs.
type Lookup interface {
	Task(ctx context.Context, id int64) (model.Task, error)
	Board(ctx context.Context, id int64) (model.Board, error)
	Project(ctx context.Context, id int64) (model.Project, error)
	TaskBoard(ctx context.Context, taskID int64) (model.Board, error)
	Boards(ctx context.Context) ([]model.Board, error)
	Lists(ctx context.Context, boardID int64) ([]model.List, error)
}

type Resolver struct {
	lookup Lookup
	delay  time.Duration
	log    *slog.Logger
}

func NewResolver(lookup Lookup, delay time.Duration, logger *slog.Logger) *Resolver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Resolver{lookup: lookup, delay: delay, log: logging.OrDiscard(logger)}
}

// Resolve builds the in-app URL for n. Boards and projects are fetched first so
// a revoked or deleted target surfaces as an error here rather than after
// navigation.
func (r *Resolver) Resolve(ctx context.Context, n model.Notification) (string, error) {
	if !CanRedirect(n) {
		return "", ErrNoTarget
	}
	id := *relatedID(n)
	switch TargetOf(n.Type) {
	case TargetBoard:
		if _, err := r.lookup.Board(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("/boards/%d", id), nil
	case TargetProject:
		if _, err := r.lookup.Project(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("/projects/%d", id), nil
	case TargetTeam:
		return fmt.Sprintf("/discover?team=%d", id), nil
	}

	task, err := r.lookup.Task(ctx, id)
	if err != nil {
		return "", err
	}
	boardID, err := r.boardOf(ctx, task)
	if err != nil {
		return "", err
	}
	u := fmt.Sprintf("/boards/%d?task=%d", boardID, task.ID)
	if n.Type == "task_commented" || n.Type == "task_mentioned" {
		u += "&comment=latest"
	}
	return u, nil
}

// boardOf asks the backend directly and falls back to scanning the user's
// boards when the lookup endpoint is missing.
func (r *Resolver) boardOf(ctx context.Context, task model.Task) (int64, error) {
	b, err := r.lookup.TaskBoard(ctx, task.ID)
	if err == nil && b.ID != 0 {
		return b.ID, nil
	}
	if err != nil && !api.IsStatus(err, http.StatusNotFound) && !api.IsStatus(err, http.StatusMethodNotAllowed) {
		return 0, err
	}

	boards, err := r.lookup.Boards(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range boards {
		lists, err := r.lookup.Lists(ctx, b.ID)
		if err != nil {
			r.log.Debug("skipping board while locating task", "board_id", b.ID, "err", err)
			continue
		}
		for _, l := range lists {
			if l.ID == task.ListID {
				return b.ID, nil
			}
		}
	}
	return 0, &api.Error{Message: "task is not on any of your boards", Status: http.StatusNotFound, Kind: api.KindHTTP}
}

type Toast struct {
	Message string
	Level   string
}

// Outcome is where to go and what to say first.
type Outcome struct {
	Target string
	Toast  *Toast
	Delay  time.Duration
}

// Redirect never fails: errors become a dashboard outcome, with a toast for
// forbidden and missing content.
func (r *Resolver) Redirect(ctx context.Context, n model.Notification) Outcome {
	target, err := r.Resolve(ctx, n)
	if err == nil {
		return Outcome{Target: target}
	}
	switch api.StatusOf(err) {
	case http.StatusForbidden:
		msg := fmt.Sprintf("You no longer have access to this %s.", TargetOf(n.Type).noun())
		return Outcome{Target: DashboardTarget, Toast: &Toast{Message: msg, Level: "error"}, Delay: r.delay}
	case http.StatusNotFound:
		return Outcome{Target: DashboardTarget, Toast: &Toast{Message: MsgGone, Level: "warning"}, Delay: r.delay}
	}
	r.log.Info("notification redirect failed", "notification_id", n.ID, "type", n.Type, "err", err)
	return Outcome{Target: DashboardTarget}
}

type Navigator interface {
	Toast(t Toast)
	Navigate(target string)
}

// Apply shows the toast, waits out the delay, then navigates. A cancelled
// context skips the navigation.
func Apply(ctx context.Context, o Outcome, nav Navigator) error {
	if o.Toast != nil {
		nav.Toast(*o.Toast)
	}
	if o.Delay > 0 {
		t := time.NewTimer(o.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	nav.Navigate(o.Target)
	return nil
}
