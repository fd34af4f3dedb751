package redirect

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/apitest"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, delay time.Duration) (*apitest.Server, *Resolver) {
	t.Helper()
	srv := apitest.New(t)
	c, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	c.SetSessionID(srv.Login(2))
	c.SetUserID(2)
	return srv, NewResolver(ServiceLookup{Svc: service.New(c)}, delay, nil)
}

type recorder struct {
	toasts    []Toast
	navigated []string
	at        time.Time
}

func (r *recorder) Toast(t Toast) { r.toasts = append(r.toasts, t) }
func (r *recorder) Navigate(target string) {
	r.navigated = append(r.navigated, target)
	r.at = time.Now()
}

func TestCanRedirect(t *testing.T) {
	id := model.Int64(5)
	cases := []struct {
		n    model.Notification
		want bool
	}{
		{model.Notification{Type: "task_assigned", RelatedTaskID: id}, true},
		{model.Notification{Type: "task_assigned"}, false},
		{model.Notification{Type: "task_assigned", RelatedBoardID: id}, false},
		{model.Notification{Type: "board_shared", RelatedBoardID: id}, true},
		{model.Notification{Type: "project_added", RelatedProjectID: id}, true},
		{model.Notification{Type: "team_invitation", RelatedTeamID: id}, true},
		{model.Notification{Type: "team_invitation", RelatedTaskID: id}, false},
		{model.Notification{Type: "something_else", RelatedTaskID: id}, false},
		{model.Notification{Type: "task_overdue", RelatedTaskID: model.Int64(0)}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanRedirect(tc.n), "%+v", tc.n)
	}
}

func TestResolve_TaskByScanning(t *testing.T) {
	srv, r := newResolver(t, 0)
	srv.AddBoard(model.Board{Name: "Other"})
	b := srv.AddBoard(model.Board{Name: "Main"})
	l := srv.AddList(model.List{BoardID: b.ID, Name: "Doing"})
	task := srv.AddTask(model.Task{ListID: l.ID, Title: "T"})

	got, err := r.Resolve(context.Background(), model.Notification{Type: "task_assigned", RelatedTaskID: &task.ID})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/boards/%d?task=%d", b.ID, task.ID), got)

	got, err = r.Resolve(context.Background(), model.Notification{Type: "task_commented", RelatedTaskID: &task.ID})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/boards/%d?task=%d&comment=latest", b.ID, task.ID), got)
}

func TestResolve_TaskByDirectLookup(t *testing.T) {
	srv, r := newResolver(t, 0)
	srv.DirectBoardLookup = true
	b := srv.AddBoard(model.Board{Name: "Main"})
	l := srv.AddList(model.List{BoardID: b.ID})
	task := srv.AddTask(model.Task{ListID: l.ID})

	got, err := r.Resolve(context.Background(), model.Notification{Type: "task_mentioned", RelatedTaskID: &task.ID})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/boards/%d?task=%d&comment=latest", b.ID, task.ID), got)
	assert.Empty(t, srv.RequestsTo(http.MethodGet, "/api/boards"), "no scan when the direct lookup answers")
}

func TestResolve_DirectTargets(t *testing.T) {
	srv, r := newResolver(t, 0)
	b := srv.AddBoard(model.Board{Name: "B"})
	ctx := context.Background()

	got, err := r.Resolve(ctx, model.Notification{Type: "board_updated", RelatedBoardID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/boards/%d", b.ID), got)

	got, err = r.Resolve(ctx, model.Notification{Type: "team_request_approved", RelatedTeamID: model.Int64(8)})
	require.NoError(t, err)
	assert.Equal(t, "/discover?team=8", got)

	_, err = r.Resolve(ctx, model.Notification{Type: "task_due_soon"})
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestRedirect_ForbiddenBoardShowsToastThenNavigates(t *testing.T) {
	srv, r := newResolver(t, 30*time.Millisecond)
	srv.FailWith("GET /api/boards/77", http.StatusForbidden)

	n := model.Notification{Type: "board_enrolled", RelatedBoardID: model.Int64(77)}
	o := r.Redirect(context.Background(), n)
	assert.Equal(t, DashboardTarget, o.Target)
	require.NotNil(t, o.Toast)
	assert.Contains(t, o.Toast.Message, "no longer have access to this board")
	assert.Equal(t, 30*time.Millisecond, o.Delay)

	var rec recorder
	start := time.Now()
	require.NoError(t, Apply(context.Background(), o, &rec))
	require.Len(t, rec.toasts, 1)
	assert.Equal(t, []string{DashboardTarget}, rec.navigated)
	assert.GreaterOrEqual(t, rec.at.Sub(start), 30*time.Millisecond)
}

func TestRedirect_MissingTask(t *testing.T) {
	_, r := newResolver(t, 0)
	o := r.Redirect(context.Background(), model.Notification{Type: "task_updated", RelatedTaskID: model.Int64(404)})
	require.NotNil(t, o.Toast)
	assert.Equal(t, MsgGone, o.Toast.Message)
	assert.Equal(t, DefaultDelay, o.Delay)
}

func TestRedirect_OtherFailureIsSilent(t *testing.T) {
	srv, r := newResolver(t, 0)
	srv.FailWith("GET /api/projects/3", http.StatusInternalServerError)
	o := r.Redirect(context.Background(), model.Notification{Type: "project_updated", RelatedProjectID: model.Int64(3)})
	assert.Equal(t, Outcome{Target: DashboardTarget}, o)
}

func TestApply_CancelledSkipsNavigation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var rec recorder
	err := Apply(ctx, Outcome{Target: "/dashboard", Toast: &Toast{Message: "x"}, Delay: time.Second}, &rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.toasts, 1)
	assert.Empty(t, rec.navigated)
}
