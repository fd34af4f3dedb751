package pages

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

func newLoader(t *testing.T, uid int64) (*apitest.Server, *Loader) {
	t.Helper()
	srv := apitest.New(t)
	c, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	c.SetSessionID(srv.Login(uid))
	c.SetUserID(uid)
	return srv, NewLoader(service.New(c), nil)
}

func TestBoard_SwallowsPerTaskFailures(t *testing.T) {
	srv, l := newLoader(t, 2)
	b := srv.AddBoard(model.Board{Name: "B"})
	doing := srv.AddList(model.List{BoardID: b.ID, Name: "Doing", Position: 2})
	todo := srv.AddList(model.List{BoardID: b.ID, Name: "Todo", Position: 1})
	ok := srv.AddTask(model.Task{ListID: todo.ID, Title: "ok"})
	bad := srv.AddTask(model.Task{ListID: doing.ID, Title: "bad"})
	srv.Comments = append(srv.Comments, model.Comment{ID: 1, TaskID: ok.ID, Body: "hi"})
	srv.FailWith(fmt.Sprintf("GET /api/tasks/%d/comments", bad.ID), http.StatusInternalServerError)

	page, err := l.Board(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, page.Columns, 2)
	assert.Equal(t, "Todo", page.Columns[0].List.Name)
	require.Len(t, page.Columns[0].Tasks, 1)
	assert.Len(t, page.Columns[0].Tasks[0].Comments, 1)
	require.Len(t, page.Columns[1].Tasks, 1)
	assert.Empty(t, page.Columns[1].Tasks[0].Comments)
}

func TestBoard_PrimaryFailureFailsPage(t *testing.T) {
	srv, l := newLoader(t, 2)
	b := srv.AddBoard(model.Board{Name: "B"})
	srv.FailWith(fmt.Sprintf("GET /api/boards/%d/lists", b.ID), http.StatusForbidden)

	_, err := l.Board(context.Background(), b.ID)
	assert.True(t, api.IsStatus(err, http.StatusForbidden))
}

func TestMembers_SwallowsPerTeamFailures(t *testing.T) {
	srv, l := newLoader(t, 1)
	a := srv.AddTeam(model.Team{Name: "A"})
	b := srv.AddTeam(model.Team{Name: "B"})
	srv.TeamMembers[a.ID] = []model.TeamMember{{User: model.User{ID: 2, Username: "mia"}, Role: model.RoleMember}}
	srv.FailWith(fmt.Sprintf("GET /api/teams/%d/members", b.ID), http.StatusInternalServerError)

	page, err := l.Members(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Teams, 2)
	assert.Len(t, page.Teams[0].Members, 1)
	assert.Empty(t, page.Teams[0].MembersErr)
	assert.NotEmpty(t, page.Teams[1].MembersErr)
}

func TestDashboard(t *testing.T) {
	srv, l := newLoader(t, 2)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	past, future := now.Add(-24*time.Hour), now.Add(24*time.Hour)
	srv.AddTask(model.Task{Title: "late", AssigneeID: model.Int64(2), DueDate: &past})
	srv.AddTask(model.Task{Title: "soon", AssigneeID: model.Int64(2), DueDate: &future})
	srv.AddTask(model.Task{Title: "late but done", AssigneeID: model.Int64(2), DueDate: &past, Status: model.TaskDone})
	srv.AddTask(model.Task{Title: "someone else", AssigneeID: model.Int64(1), DueDate: &past})
	srv.AddNotification(model.Notification{Type: "task_assigned"})
	srv.FailWith("GET /api/time-tracking/timer", http.StatusInternalServerError)

	d, err := l.Dashboard(context.Background(), model.User{ID: 2})
	require.NoError(t, err)
	assert.Len(t, d.MyTasks, 3)
	require.Len(t, d.Overdue, 1)
	assert.Equal(t, "late", d.Overdue[0].Title)
	assert.Equal(t, 1, d.Unread)
	assert.Nil(t, d.Timer)
}

func TestWeekOf(t *testing.T) {
	start, end := WeekOf(time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)) // Sunday
	assert.Equal(t, "2025-06-09", start)
	assert.Equal(t, "2025-06-15", end)

	start, _ = WeekOf(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)) // Monday
	assert.Equal(t, "2025-06-09", start)
}
