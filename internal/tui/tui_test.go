package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"teamboard-cli/internal/apitest"
	"teamboard-cli/internal/config"
	"teamboard-cli/internal/guard"
	"teamboard-cli/internal/logging"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/redirect"
	"teamboard-cli/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness drives appModel synchronously: commands run inline, and anything
// that is only a timer (spinner frames, cursor blinks, polls, toast expiry)
// is dropped.
type harness struct {
	t    *testing.T
	srv  *apitest.Server
	env  *env
	m    appModel
	sent chan tea.Msg
}

func newHarness(t *testing.T, signedInAs int64) *harness {
	t.Helper()
	srv := apitest.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Dir:           t.TempDir(),
		BaseURL:       srv.URL,
		Timeout:       5 * time.Second,
		PollInterval:  time.Millisecond,
		RedirectDelay: time.Millisecond,
		Glyphs:        "ascii",
	}
	applyGlyphPreference(cfg.Glyphs)
	toastTTL = time.Millisecond
	clockInterval = time.Millisecond

	if signedInAs != 0 {
		store, err := session.Open(ctx, cfg.Dir, nil)
		require.NoError(t, err)
		require.NoError(t, store.SaveSessionID(ctx, srv.Login(signedInAs)))
		require.NoError(t, store.SaveUser(ctx, srv.Users[signedInAs]))
		require.NoError(t, store.Close())
	}

	e, closeEnv, err := openEnv(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(closeEnv)

	h := &harness{t: t, srv: srv, env: e, sent: make(chan tea.Msg, 64)}
	e.send = func(msg tea.Msg) {
		select {
		case h.sent <- msg:
		default:
		}
	}
	h.m = newAppModel(e)
	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

func runCmd(c tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(time.Second):
		return nil, false
	}
}

func timerOnly(msg tea.Msg) bool {
	switch msg.(type) {
	case spinner.TickMsg, pollMsg, toastExpiredMsg, clockMsg:
		return true
	}
	return strings.HasPrefix(fmt.Sprintf("%T", msg), "cursor.")
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(appModel)
	return cmd
}

// run executes cmd and every command it leads to, including messages sent
// from background work.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for {
		for len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]
			if c == nil {
				continue
			}
			msg, ok := runCmd(c)
			if !ok || msg == nil || timerOnly(msg) {
				continue
			}
			if batch, ok := msg.(tea.BatchMsg); ok {
				queue = append(queue, batch...)
				continue
			}
			if _, ok := msg.(tea.QuitMsg); ok {
				continue
			}
			queue = append(queue, h.update(msg))
		}
		select {
		case msg := <-h.sent:
			if !timerOnly(msg) {
				queue = append(queue, h.update(msg))
			}
		default:
			return
		}
	}
}

func (h *harness) start() { h.run(h.m.Init()) }

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		h.run(h.update(msg))
	}
}

func (h *harness) goTo(path string) { h.run(h.m.navigate(path, true)) }

func (h *harness) toastMessages() []string {
	var out []string
	for _, t := range h.m.toasts {
		out = append(out, t.Message)
	}
	return out
}

func TestParseRoute(t *testing.T) {
	cases := []struct {
		in   string
		kind routeKind
		id   int64
		out  string
	}{
		{"/", routeLogin, 0, "/login"},
		{"/register", routeLogin, 0, "/login"},
		{"/dashboard/", routeDashboard, 0, "/dashboard"},
		{"/boards/12?task=5", routeBoard, 12, "/boards/12?task=5"},
		{"/projects/3", routeProject, 3, "/projects/3"},
		{"/discover?team=9", routeDiscover, 0, "/discover?team=9"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			r, err := parseRoute(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.kind, r.kind)
			assert.Equal(t, c.id, r.id)
			assert.Equal(t, c.out, r.String())
		})
	}

	for _, bad := range []string{"/boards/abc", "/boards/0", "/nowhere"} {
		_, err := parseRoute(bad)
		assert.Error(t, err, bad)
	}
}

func TestSignedOut_LandsOnLogin(t *testing.T) {
	h := newHarness(t, 0)
	h.start()

	assert.Equal(t, routeLogin, h.m.route.kind)
	assert.Equal(t, "/dashboard", h.m.afterLogin)
	assert.Contains(t, h.m.View(), "Sign in to")
}

func TestLogin_ContinuesToDashboard(t *testing.T) {
	h := newHarness(t, 0)
	h.start()

	h.press("mia", "enter", "pw", "enter")

	assert.Equal(t, routeDashboard, h.m.route.kind)
	d, ok := h.m.page.(*pages.Dashboard)
	require.True(t, ok)
	assert.Equal(t, "mia", d.User.Username)
	assert.Empty(t, h.m.login.username.Value())
}

func TestLogin_BadPasswordStaysOnLogin(t *testing.T) {
	h := newHarness(t, 0)
	h.start()

	h.press("mia", "enter", "nope", "enter")

	assert.Equal(t, routeLogin, h.m.route.kind)
	assert.Contains(t, h.m.login.err, "submit credentials")
	assert.False(t, h.m.login.submitting)
}

func TestAdmin_DeniedForMembers(t *testing.T) {
	h := newHarness(t, 2)
	h.start()
	require.Equal(t, routeDashboard, h.m.route.kind)

	h.goTo("/admin")

	assert.Equal(t, routeDashboard, h.m.route.kind)
	assert.Contains(t, h.toastMessages(), "The admin area is for administrators.")
}

func TestAdmin_LoadsForAdmins(t *testing.T) {
	h := newHarness(t, 1)
	h.start()

	h.goTo("/admin")

	assert.Equal(t, routeAdmin, h.m.route.kind)
	_, ok := h.m.page.(*pages.Admin)
	assert.True(t, ok)
}

func TestLoadedMsg_StaleResultsDropped(t *testing.T) {
	h := newHarness(t, 2)
	h.start()
	before := h.m.page

	h.update(loadedMsg{seq: h.m.loadSeq - 1, page: &pages.Notifications{}})

	assert.Same(t, before, h.m.page)
}

func TestToasts_ExpireAndCap(t *testing.T) {
	h := newHarness(t, 0)
	for i := range 5 {
		h.m, _ = h.m.addToast(redirect.Toast{Message: fmt.Sprint(i), Level: "info"})
	}
	require.Equal(t, []string{"2", "3", "4"}, h.toastMessages())

	h.update(toastExpiredMsg{id: h.m.toasts[0].id})
	assert.Equal(t, []string{"3", "4"}, h.toastMessages())
}

func TestSessionRemoved_ReturnsToLogin(t *testing.T) {
	h := newHarness(t, 2)
	h.start()
	require.Equal(t, routeDashboard, h.m.route.kind)
	h.env.auth.ClearSession()

	h.run(h.update(watchMsg{decision: guard.Decision{Action: guard.Redirect, Target: guard.LoginRoute}}))

	assert.Equal(t, routeLogin, h.m.route.kind)
	assert.Contains(t, h.toastMessages(), "Your session ended. Please sign in again.")
}

func TestNotificationOpen_ForbiddenBoard(t *testing.T) {
	h := newHarness(t, 2)
	n := h.srv.AddNotification(model.Notification{Type: "board_enrolled", Message: "You were added", RelatedBoardID: model.Int64(77)})
	h.srv.FailWith("GET /api/boards/77", http.StatusForbidden)
	h.start()
	h.goTo("/notifications")
	r, ok := selectedRow(h.m.rows)
	require.True(t, ok)
	require.Equal(t, n.ID, r.id)

	h.press("enter")

	assert.Contains(t, h.toastMessages(), "You no longer have access to this board.")
	assert.Equal(t, routeDashboard, h.m.route.kind)
	assert.Len(t, h.srv.RequestsTo(http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", n.ID)), 1)
}

func TestNotificationOpen_OpensTaskOnBoard(t *testing.T) {
	h := newHarness(t, 2)
	h.srv.DirectBoardLookup = true
	b := h.srv.AddBoard(model.Board{Name: "Roadmap"})
	l := h.srv.AddList(model.List{BoardID: b.ID, Name: "Todo"})
	task := h.srv.AddTask(model.Task{ListID: l.ID, Title: "Ship it", Status: model.TaskTodo})
	h.srv.AddNotification(model.Notification{Type: "task_assigned", Message: "Assigned", RelatedTaskID: &task.ID})
	h.start()
	h.goTo("/notifications")

	h.press("enter")

	require.Equal(t, routeBoard, h.m.route.kind)
	assert.Equal(t, b.ID, h.m.route.id)
	got, ok := h.m.selectedTask()
	require.True(t, ok)
	assert.Equal(t, task.ID, got.Task.ID)
	assert.True(t, h.m.board.detail)
}

func TestModal_InvalidInputIsNotSent(t *testing.T) {
	h := newHarness(t, 2)
	h.start()

	h.press("t", "x", "ctrl+s")

	require.NotNil(t, h.m.modal)
	assert.NotEmpty(t, h.m.modal.errs["name"])
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/api/teams"))
	assert.Contains(t, h.m.View(), "New team")
}

func TestModal_CreatesTeam(t *testing.T) {
	h := newHarness(t, 2)
	h.start()

	h.press("t", "Platform", "ctrl+s")

	assert.Nil(t, h.m.modal)
	reqs := h.srv.RequestsTo(http.MethodPost, "/api/teams")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Platform", reqs[0].Body["name"])
	assert.Contains(t, h.toastMessages(), "Team created.")
}

func TestModal_BadNumberShowsFieldError(t *testing.T) {
	h := newHarness(t, 2)
	h.start()

	h.press("p", "Apollo", "tab", "tab", "abc", "ctrl+s")

	require.NotNil(t, h.m.modal)
	assert.Equal(t, "must be a positive number", h.m.modal.errs["team"])
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/api/projects"))
}

func TestBoard_CycleStatusAndStartTimer(t *testing.T) {
	h := newHarness(t, 2)
	b := h.srv.AddBoard(model.Board{Name: "Roadmap"})
	l := h.srv.AddList(model.List{BoardID: b.ID, Name: "Todo"})
	task := h.srv.AddTask(model.Task{ListID: l.ID, Title: "Ship it", Status: model.TaskTodo})
	h.start()
	h.goTo(fmt.Sprintf("/boards/%d?task=%d", b.ID, task.ID))
	require.True(t, h.m.board.detail)

	h.press("s")
	puts := h.srv.RequestsTo(http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID))
	require.Len(t, puts, 1)
	assert.Equal(t, map[string]any{"status": "in_progress"}, puts[0].Body)

	h.press("t")
	require.NotNil(t, h.m.timer)
	assert.True(t, h.m.timer.IsRunning)
	assert.Equal(t, task.ID, h.m.timer.TaskID)

	// A second start is refused locally.
	starts := len(h.srv.RequestsTo(http.MethodPost, "/api/time-tracking/timer/start"))
	h.press("t")
	assert.Len(t, h.srv.RequestsTo(http.MethodPost, "/api/time-tracking/timer/start"), starts)
}

func TestBoard_CommentFromDetail(t *testing.T) {
	h := newHarness(t, 2)
	b := h.srv.AddBoard(model.Board{Name: "Roadmap"})
	l := h.srv.AddList(model.List{BoardID: b.ID, Name: "Todo"})
	task := h.srv.AddTask(model.Task{ListID: l.ID, Title: "Ship it"})
	h.start()
	h.goTo(fmt.Sprintf("/boards/%d?task=%d", b.ID, task.ID))

	h.press("c", "looks good", "ctrl+s")

	reqs := h.srv.RequestsTo(http.MethodPost, fmt.Sprintf("/api/tasks/%d/comments", task.ID))
	require.Len(t, reqs, 1)
	assert.Equal(t, "looks good", reqs[0].Body["body"])
	assert.False(t, h.m.composing)
}

func TestMessages_ReplyInOpenConversation(t *testing.T) {
	h := newHarness(t, 2)
	h.srv.Conversations = append(h.srv.Conversations, model.Conversation{ID: 5, Title: "Standup", Participants: []model.User{h.srv.Users[1], h.srv.Users[2]}})
	h.start()
	h.goTo("/messages")

	h.press("enter")
	require.Equal(t, int64(5), h.m.route.queryID("open"))
	h.press("c", "morning", "ctrl+s")

	reqs := h.srv.RequestsTo(http.MethodPost, "/api/messages")
	require.Len(t, reqs, 1)
	assert.Equal(t, float64(5), reqs[0].Body["conversation_id"])
	thread := h.m.page.(*pages.Messages).Thread
	require.Len(t, thread, 1)
	assert.Equal(t, "morning", thread[0].Body)
}

func TestTime_PauseWithoutTimerIsRefused(t *testing.T) {
	h := newHarness(t, 2)
	h.start()
	h.goTo("/time")
	require.Equal(t, routeTime, h.m.route.kind)

	h.press("p")

	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/api/time-tracking/timer/pause"))
	assert.NotEmpty(t, h.toastMessages())
}

func TestBack_PopsHistory(t *testing.T) {
	h := newHarness(t, 2)
	h.start()
	h.goTo("/members")
	h.goTo("/discover")

	h.press("esc")
	assert.Equal(t, routeMembers, h.m.route.kind)
	h.press("esc")
	assert.Equal(t, routeDashboard, h.m.route.kind)
}

func TestTimerClock_FollowsTimerThroughUpdate(t *testing.T) {
	h := newHarness(t, 2)
	b := h.srv.AddBoard(model.Board{Name: "Roadmap"})
	l := h.srv.AddList(model.List{BoardID: b.ID, Name: "Todo"})
	task := h.srv.AddTask(model.Task{ListID: l.ID, Title: "Ship it"})

	// Nobody reads this channel: the clock must never depend on send.
	h.env.send = func(msg tea.Msg) { make(chan tea.Msg) <- msg }

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.start()
		h.goTo(fmt.Sprintf("/boards/%d?task=%d", b.ID, task.ID))

		h.press("t")
		assert.True(t, h.m.clockOn, "clock runs with the timer")
		started := h.m.clockGen

		tick := time.Now().Add(time.Minute)
		assert.NotNil(t, h.update(clockMsg{now: tick, gen: started}), "a current tick re-arms")
		assert.True(t, h.m.now.Equal(tick))

		h.goTo("/time")
		h.press("p")
		if assert.NotNil(t, h.m.timer) {
			assert.True(t, h.m.timer.IsPaused)
		}
		assert.False(t, h.m.clockOn, "pausing stops the clock")

		before := h.m.now
		assert.Nil(t, h.update(clockMsg{now: before.Add(time.Hour), gen: started}), "a tick from before the pause is dropped")
		assert.True(t, h.m.now.Equal(before))

		h.press("p")
		assert.True(t, h.m.clockOn, "resuming restarts the clock")
		assert.NotEqual(t, started, h.m.clockGen)

		h.press("x")
		assert.Nil(t, h.m.timer)
		assert.False(t, h.m.clockOn)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timer start, pause and stop did not finish")
	}
}
