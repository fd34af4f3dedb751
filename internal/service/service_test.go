package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/apitest"
	"teamboard-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedIn(t *testing.T, uid int64) (*apitest.Server, *Services) {
	t.Helper()
	srv := apitest.New(t)
	c, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	c.SetSessionID(srv.Login(uid))
	c.SetUserID(uid)
	return srv, New(c)
}

func TestTeams_CreateJoinAccept(t *testing.T) {
	srv, svc := loggedIn(t, 1)
	ctx := context.Background()

	team, err := svc.Teams.Create(ctx, TeamInput{Name: "Core", Description: "d", ManagerID: model.Int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Core", team.Name)
	reqs := srv.RequestsTo(http.MethodPost, "/api/teams")
	require.Len(t, reqs, 1)
	assert.Equal(t, float64(1), reqs[0].Body["manager_id"])

	other := srv.AddTeam(model.Team{Name: "Ops", HasPendingInvitation: true})
	found, err := svc.Teams.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, other.ID, found[0].ID)

	joined, err := svc.Teams.RequestJoin(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, joined.HasPendingRequest)
	require.NoError(t, svc.Teams.CancelJoinRequest(ctx, other.ID))

	accepted, err := svc.Teams.AcceptInvitation(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, accepted.IsMember)
	assert.False(t, accepted.HasPendingInvitation)
}

func TestTasks_CreateUpdateAndComment(t *testing.T) {
	srv, svc := loggedIn(t, 2)
	ctx := context.Background()
	b := srv.AddBoard(model.Board{Name: "B"})
	l := srv.AddList(model.List{BoardID: b.ID, Name: "Todo"})

	task, err := svc.Tasks.Create(ctx, l.ID, TaskInput{Title: "Write docs", Priority: model.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, model.TaskTodo, task.Status)

	task, err = svc.Tasks.Update(ctx, task.ID, TaskPatch{"status": model.TaskDone})
	require.NoError(t, err)
	assert.Equal(t, model.TaskDone, task.Status)
	assert.Equal(t, "Write docs", task.Title)

	_, err = svc.Tasks.AddComment(ctx, task.ID, "looks good")
	require.NoError(t, err)
	cs, err := svc.Tasks.Comments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "mia", cs[0].Author.Username)

	onBoard, err := svc.Boards.Tasks(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, onBoard, 1)
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	srv, svc := loggedIn(t, 2)
	srv.FailWith("GET /api/projects", http.StatusForbidden)

	_, err := svc.Projects.List(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	_, err = svc.Boards.Get(context.Background(), 999)
	assert.Equal(t, http.StatusNotFound, api.StatusOf(err))
}

func TestTime_TimerLifecycle(t *testing.T) {
	srv, svc := loggedIn(t, 2)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	srv.Now = func() time.Time { return now }

	tm, err := svc.Time.Timer(ctx)
	require.NoError(t, err)
	assert.Nil(t, tm)

	started, err := svc.Time.Start(ctx, 7, "focus")
	require.NoError(t, err)
	assert.True(t, started.IsRunning)

	now = now.Add(10 * time.Minute)
	_, err = svc.Time.Pause(ctx)
	require.NoError(t, err)
	now = now.Add(5 * time.Minute)
	resumed, err := svc.Time.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), resumed.TotalPauseDuration)

	now = now.Add(20 * time.Minute)
	entry, err := svc.Time.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30*60), entry.DurationSeconds)

	sheet, err := svc.Time.TimeSheet(ctx, "2025-03-01", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1800), sheet.TotalSeconds)
	assert.Equal(t, int64(1800), sheet.ByDay["2025-03-01"])
}

func TestPermissions_GrantNeedsTarget(t *testing.T) {
	srv, svc := loggedIn(t, 1)
	_, err := svc.Permissions.Grant(context.Background(), model.PermissionGrant{Permission: "boards.edit"})
	assert.ErrorIs(t, err, ErrGrantTarget)
	assert.Empty(t, srv.RequestsTo(http.MethodPost, "/api/permissions/grants"))

	ok, err := svc.Permissions.Check(context.Background(), "boards.edit", "board", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	reqs := srv.RequestsTo(http.MethodGet, "/api/permissions/check")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"3"}, reqs[0].Query["resource_id"])
}

func TestNotifications_ReadAll(t *testing.T) {
	srv, svc := loggedIn(t, 2)
	ctx := context.Background()
	srv.AddNotification(model.Notification{Type: "task_assigned"})
	srv.AddNotification(model.Notification{Type: "board_shared"})

	ns, err := svc.Notifications.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, Unread(ns))

	require.NoError(t, svc.Notifications.MarkRead(ctx, ns[0].ID))
	ns, _ = svc.Notifications.List(ctx)
	assert.Equal(t, 1, Unread(ns))

	require.NoError(t, svc.Notifications.MarkAllRead(ctx))
	ns, _ = svc.Notifications.List(ctx)
	assert.Equal(t, 0, Unread(ns))
}

func TestBadges(t *testing.T) {
	assert.Equal(t, "In Progress", StatusBadge(model.TaskInProgress).Text)
	assert.Equal(t, "#ef4444", PriorityBadge(model.PriorityUrgent).Color)
	assert.Equal(t, "Blocked by", DependencyBadge(model.DependencyBlockedBy).Text)

	unknown := WorkflowBadge("on_hold")
	assert.Equal(t, "On hold", unknown.Text)
	assert.Equal(t, neutralColor, unknown.Color)
	assert.Equal(t, "Unknown", RoleBadge("").Text)
}
