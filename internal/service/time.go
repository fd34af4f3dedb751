package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/model"
)

type Time struct{ c *api.Client }

// Timer returns the caller's active timer, or nil when none is running.
func (s *Time) Timer(ctx context.Context) (*model.Timer, error) {
	var t *model.Timer
	if err := s.c.Get(ctx, "/api/time-tracking/timer", nil, &t); err != nil {
		if api.IsStatus(err, 404) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (s *Time) Start(ctx context.Context, taskID int64, description string) (model.Timer, error) {
	body := map[string]any{"task_id": taskID, "description": description}
	return post[model.Timer](ctx, s.c, "/api/time-tracking/timer/start", body)
}

func (s *Time) Pause(ctx context.Context) (model.Timer, error) {
	return post[model.Timer](ctx, s.c, "/api/time-tracking/timer/pause", map[string]any{})
}

func (s *Time) Resume(ctx context.Context) (model.Timer, error) {
	return post[model.Timer](ctx, s.c, "/api/time-tracking/timer/resume", map[string]any{})
}

// Stop ends the timer and returns the entry the backend recorded for it.
func (s *Time) Stop(ctx context.Context) (model.TimeEntry, error) {
	return post[model.TimeEntry](ctx, s.c, "/api/time-tracking/timer/stop", map[string]any{})
}

func (s *Time) Entries(ctx context.Context, taskID int64) ([]model.TimeEntry, error) {
	var q url.Values
	if taskID != 0 {
		q = url.Values{"task_id": {itoa(taskID)}}
	}
	return get[[]model.TimeEntry](ctx, s.c, "/api/time-tracking/entries", q)
}

type EntryInput struct {
	TaskID          int64     `json:"task_id"`
	Description     string    `json:"description,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Billable        bool      `json:"billable,omitempty"`
}

func (s *Time) LogEntry(ctx context.Context, in EntryInput) (model.TimeEntry, error) {
	return post[model.TimeEntry](ctx, s.c, "/api/time-tracking/entries", in)
}

func (s *Time) DeleteEntry(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/time-tracking/entries/%d", id), nil)
}

func (s *Time) Estimate(ctx context.Context, taskID int64) (model.TaskEstimate, error) {
	return get[model.TaskEstimate](ctx, s.c, idPath("/api/time-tracking/estimates/%d", taskID), nil)
}

func (s *Time) SetEstimate(ctx context.Context, taskID int64, hours float64, storyPoints *int) (model.TaskEstimate, error) {
	body := model.TaskEstimate{TaskID: taskID, EstimatedHours: hours, StoryPoints: storyPoints}
	return put[model.TaskEstimate](ctx, s.c, idPath("/api/time-tracking/estimates/%d", taskID), body)
}

func (s *Time) Progress(ctx context.Context, taskID int64) (model.TaskProgress, error) {
	return get[model.TaskProgress](ctx, s.c, idPath("/api/time-tracking/progress/%d", taskID), nil)
}

// TimeSheet covers start..end inclusive; dates are YYYY-MM-DD.
func (s *Time) TimeSheet(ctx context.Context, start, end string) (model.TimeSheet, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	return get[model.TimeSheet](ctx, s.c, "/api/time-tracking/timesheet", q)
}

func (s *Time) Velocity(ctx context.Context, boardID int64, periods int) ([]model.VelocityPoint, error) {
	q := url.Values{"board_id": {itoa(boardID)}}
	if periods > 0 {
		q.Set("periods", strconv.Itoa(periods))
	}
	return get[[]model.VelocityPoint](ctx, s.c, "/api/time-tracking/velocity", q)
}

type Permissions struct{ c *api.Client }

func (s *Permissions) List(ctx context.Context) ([]model.Permission, error) {
	return get[[]model.Permission](ctx, s.c, "/api/permissions", nil)
}

func (s *Permissions) Roles(ctx context.Context) ([]model.RoleDef, error) {
	return get[[]model.RoleDef](ctx, s.c, "/api/permissions/roles", nil)
}

func (s *Permissions) CreateRole(ctx context.Context, r model.RoleDef) (model.RoleDef, error) {
	return post[model.RoleDef](ctx, s.c, "/api/permissions/roles", r)
}

func (s *Permissions) UpdateRole(ctx context.Context, id int64, r model.RoleDef) (model.RoleDef, error) {
	return put[model.RoleDef](ctx, s.c, idPath("/api/permissions/roles/%d", id), r)
}

func (s *Permissions) DeleteRole(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/permissions/roles/%d", id), nil)
}

func (s *Permissions) Grants(ctx context.Context) ([]model.PermissionGrant, error) {
	return get[[]model.PermissionGrant](ctx, s.c, "/api/permissions/grants", nil)
}

var ErrGrantTarget = errors.New("a grant needs a role or a user")

func (s *Permissions) Grant(ctx context.Context, g model.PermissionGrant) (model.PermissionGrant, error) {
	if g.RoleID == nil && g.UserID == nil {
		return model.PermissionGrant{}, ErrGrantTarget
	}
	return post[model.PermissionGrant](ctx, s.c, "/api/permissions/grants", g)
}

func (s *Permissions) Revoke(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/permissions/grants/%d", id), nil)
}

func (s *Permissions) Assignments(ctx context.Context) ([]model.RoleAssignment, error) {
	return get[[]model.RoleAssignment](ctx, s.c, "/api/permissions/assignments", nil)
}

func (s *Permissions) Assign(ctx context.Context, a model.RoleAssignment) (model.RoleAssignment, error) {
	return post[model.RoleAssignment](ctx, s.c, "/api/permissions/assignments", a)
}

func (s *Permissions) Unassign(ctx context.Context, id int64) error {
	return s.c.Delete(ctx, idPath("/api/permissions/assignments/%d", id), nil)
}

// Check asks whether the current user holds permission, optionally scoped to a
// resource.
func (s *Permissions) Check(ctx context.Context, permission, resourceType string, resourceID int64) (bool, error) {
	q := url.Values{"permission": {permission}}
	if resourceType != "" {
		q.Set("resource_type", resourceType)
	}
	if resourceID != 0 {
		q.Set("resource_id", itoa(resourceID))
	}
	var out struct {
		Allowed bool `json:"allowed"`
	}
	if err := s.c.Get(ctx, "/api/permissions/check", q, &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}
