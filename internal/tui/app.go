package tui

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/auth"
	"teamboard-cli/internal/config"
	"teamboard-cli/internal/guard"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/redirect"
	"teamboard-cli/internal/service"
	"teamboard-cli/internal/session"
	"teamboard-cli/internal/timetrack"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

var toastTTL = 4 * time.Second

// clockInterval is how often the running timer's clock repaints.
var clockInterval = time.Second

// env is everything the model reaches outside itself. It is shared by every
// copy of appModel.
type env struct {
	ctx      context.Context
	cfg      *config.Config
	log      *slog.Logger
	svc      *service.Services
	auth     *auth.Service
	store    *session.Store
	guard    *guard.Guard
	resolver *redirect.Resolver
	loader   *pages.Loader

	// send delivers messages from background goroutines; Run points it at
	// the program.
	send func(tea.Msg)

	mu      sync.Mutex
	current string
}

func (e *env) setCurrent(path string) {
	e.mu.Lock()
	e.current = path
	e.mu.Unlock()
}

// Current is the route the guard re-checks when the session disappears.
func (e *env) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

type toast struct {
	id int
	redirect.Toast
}

type appModel struct {
	env *env

	width  int
	height int

	route   route
	history []route
	// afterLogin is where a guard redirect to /login interrupted navigation.
	afterLogin string

	loadSeq int
	loading bool
	loadErr string
	page    any
	spinner spinner.Model

	rows      list.Model
	board     boardCursor
	login     loginForm
	modal     *formModal
	composer  textarea.Model
	composing bool

	toasts   []toast
	toastSeq int

	timer *model.Timer
	now   time.Time
	// clockGen changes whenever the clock stops; ticks from an older
	// generation are dropped instead of re-arming.
	clockGen int
	clockOn  bool
}

// Messages.

type navigateMsg struct {
	to   string
	push bool
}

type guardMsg struct {
	to       route
	decision guard.Decision
	push     bool
}

// watchMsg is a guard decision made because the session went away.
type watchMsg struct{ decision guard.Decision }

type loadedMsg struct {
	seq  int
	page any
	err  error
}

type toastMsg struct{ redirect.Toast }

type toastExpiredMsg struct{ id int }

type loginDoneMsg struct{ res auth.LoginResult }

type loggedOutMsg struct{}

type formDoneMsg struct {
	saved string
	err   error
}

// actionDoneMsg reports a one-shot service call; ok is toasted on success.
type actionDoneMsg struct {
	ok     string
	err    error
	reload bool
}

type timerMsg struct {
	timer *model.Timer
	note  string
	err   error
}

type clockMsg struct {
	now time.Time
	gen int
}

type pollMsg struct{}

func newAppModel(e *env) appModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styleMuted()

	ta := textarea.New()
	ta.Placeholder = "Write a message (markdown)…"
	ta.ShowLineNumbers = false
	ta.SetHeight(4)

	return appModel{
		env:      e,
		route:    route{kind: routeLogin},
		spinner:  sp,
		rows:     newRowList(),
		login:    newLoginForm(),
		composer: ta,
		now:      time.Now(),
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.navigate("/dashboard", false), m.pollTick())
}

func (m appModel) pollTick() tea.Cmd {
	return tea.Tick(m.env.cfg.PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case navigateMsg:
		return m, m.navigate(msg.to, msg.push)

	case guardMsg:
		return m.applyDecision(msg)

	case watchMsg:
		if msg.decision.Action != guard.Redirect {
			return m, nil
		}
		var cmd tea.Cmd
		if msg.decision.Target == guard.LoginRoute {
			m.stopClock()
			m, cmd = m.addToast(redirect.Toast{Message: "Your session ended. Please sign in again.", Level: "warning"})
		}
		return m, tea.Batch(cmd, m.navigate(msg.decision.Target, false))

	case loadedMsg:
		if msg.seq != m.loadSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m.loadFailed(msg.err)
		}
		m.loadErr = ""
		m.page = msg.page
		return m, m.applyPage()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastMsg:
		return m.addToast(msg.Toast)

	case toastExpiredMsg:
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.id != msg.id {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return m, nil

	case loginDoneMsg:
		m.login.submitting = false
		if !msg.res.Success {
			m.login.err = msg.res.Error
			return m, nil
		}
		m.login.reset()
		to := m.afterLogin
		m.afterLogin = ""
		if to == "" {
			to = "/dashboard"
		}
		return m, m.navigate(to, false)

	case loggedOutMsg:
		m.stopClock()
		m.history = nil
		m.page = nil
		return m, m.navigate(guard.LoginRoute, false)

	case formDoneMsg:
		if m.modal == nil {
			return m, nil
		}
		if msg.err != nil {
			m.modal.showError(msg.err)
			return m, nil
		}
		m.modal = nil
		m2, cmd := m.addToast(redirect.Toast{Message: msg.saved, Level: "success"})
		return m2, tea.Batch(cmd, m2.load())

	case actionDoneMsg:
		var cmds []tea.Cmd
		if msg.err != nil {
			var cmd tea.Cmd
			m, cmd = m.addToast(redirect.Toast{Message: msg.err.Error(), Level: "error"})
			cmds = append(cmds, cmd)
		} else if msg.ok != "" {
			var cmd tea.Cmd
			m, cmd = m.addToast(redirect.Toast{Message: msg.ok, Level: "success"})
			cmds = append(cmds, cmd)
		}
		if msg.reload {
			cmds = append(cmds, m.load())
		}
		if m.composing && msg.err == nil {
			m.composing = false
			m.composer.Reset()
			m.composer.Blur()
		}
		return m, tea.Batch(cmds...)

	case timerMsg:
		if msg.err != nil {
			return m.addToast(redirect.Toast{Message: msg.err.Error(), Level: "error"})
		}
		clock := m.setTimer(msg.timer)
		if msg.note == "" {
			return m, clock
		}
		m2, cmd := m.addToast(redirect.Toast{Message: msg.note, Level: "success"})
		if m2.route.kind == routeTime || m2.route.kind == routeDashboard {
			return m2, tea.Batch(clock, cmd, m2.load())
		}
		return m2, tea.Batch(clock, cmd)

	case clockMsg:
		if !m.clockOn || msg.gen != m.clockGen {
			return m, nil
		}
		m.now = msg.now
		return m, m.clockTick()

	case pollMsg:
		store := m.env.store
		ctx := m.env.ctx
		poll := func() tea.Msg {
			if _, err := store.Poll(ctx); err != nil {
				m.env.log.Debug("session poll failed", "err", err)
			}
			return nil
		}
		return m, tea.Batch(poll, m.pollTick())
	}

	if m.composing {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}
	if m.route.kind == routeLogin {
		return m, m.login.updateInputs(msg)
	}
	var cmd tea.Cmd
	m.rows, cmd = m.rows.Update(msg)
	return m, cmd
}

// navigate runs the guard for to; the decision arrives as a guardMsg.
func (m appModel) navigate(to string, push bool) tea.Cmd {
	r, err := parseRoute(to)
	if err != nil {
		return func() tea.Msg { return toastMsg{redirect.Toast{Message: err.Error(), Level: "error"}} }
	}
	g, ctx := m.env.guard, m.env.ctx
	return func() tea.Msg {
		return guardMsg{to: r, decision: g.Check(ctx, r.path()), push: push}
	}
}

func (m appModel) applyDecision(msg guardMsg) (tea.Model, tea.Cmd) {
	d := msg.decision
	if d.Action == guard.Redirect && d.Target != msg.to.path() {
		if d.Target == guard.LoginRoute && msg.to.kind != routeLogin {
			m.afterLogin = msg.to.String()
		}
		return m, m.navigate(d.Target, false)
	}
	if msg.to.kind == routeAdmin && !m.env.auth.IsAdmin() {
		m2, cmd := m.addToast(redirect.Toast{Message: "The admin area is for administrators.", Level: "error"})
		if m2.route.kind == routeLogin {
			return m2, tea.Batch(cmd, m2.navigate("/dashboard", false))
		}
		return m2, cmd
	}

	if msg.push && m.route.kind != routeLogin && m.route.String() != msg.to.String() {
		m.history = append(m.history, m.route)
	}
	m.route = msg.to
	m.env.setCurrent(msg.to.path())
	m.page = nil
	m.loadErr = ""
	m.board = boardCursor{}
	m.composing = false
	m.modal = nil
	m.rows.ResetFilter()
	m.rows.SetItems(nil)
	if m.route.kind == routeLogin {
		m.loading = false
		m.stopClock()
		return m, m.login.focus()
	}
	return m, m.load()
}

// load fetches the current route. Results from an older load are dropped.
func (m *appModel) load() tea.Cmd {
	if m.route.kind == routeLogin {
		return nil
	}
	m.loadSeq++
	m.loading = true
	seq, r, e := m.loadSeq, m.route, m.env
	fetch := func() tea.Msg {
		page, err := fetchPage(e, r)
		return loadedMsg{seq: seq, page: page, err: err}
	}
	return tea.Batch(m.spinner.Tick, fetch)
}

// projectPage is the /projects/{id} view.
type projectPage struct {
	Project model.Project
	Boards  []model.Board
}

func fetchPage(e *env, r route) (any, error) {
	ctx := e.ctx
	switch r.kind {
	case routeDashboard:
		me := e.auth.CurrentUser()
		if me == nil {
			return nil, auth.ErrNoIdentity
		}
		return e.loader.Dashboard(ctx, *me)
	case routeAdmin:
		return e.loader.Admin(ctx)
	case routeDiscover:
		return e.loader.Discover(ctx, r.queryID("team"))
	case routeMessages:
		return e.loader.Messages(ctx, r.queryID("open"))
	case routeMembers:
		return e.loader.Members(ctx)
	case routeNotifications:
		return e.loader.Notifications(ctx)
	case routeBoard:
		return e.loader.Board(ctx, r.id)
	case routeProject:
		p, err := e.svc.Projects.Get(ctx, r.id)
		if err != nil {
			return nil, err
		}
		boards, err := e.svc.Projects.Boards(ctx, r.id)
		if err != nil {
			return nil, err
		}
		return &projectPage{Project: p, Boards: boards}, nil
	case routeTime:
		return e.loader.Time(ctx, r.queryID("board"))
	}
	return nil, nil
}

func (m appModel) loadFailed(err error) (tea.Model, tea.Cmd) {
	switch api.StatusOf(err) {
	case http.StatusUnauthorized:
		m.env.auth.ClearSession()
		m2, cmd := m.addToast(redirect.Toast{Message: "Your session expired. Please sign in again.", Level: "warning"})
		return m2, tea.Batch(cmd, m2.navigate(guard.LoginRoute, false))
	case http.StatusForbidden:
		m.loadErr = "You do not have access to this page."
	case http.StatusNotFound:
		m.loadErr = redirect.MsgGone
	default:
		m.loadErr = err.Error()
	}
	m.env.log.Info("page load failed", "route", m.route.String(), "err", err)
	return m, nil
}

func (m appModel) addToast(t redirect.Toast) (appModel, tea.Cmd) {
	m.toastSeq++
	id := m.toastSeq
	m.toasts = append(m.toasts, toast{id: id, Toast: t})
	if len(m.toasts) > 3 {
		m.toasts = m.toasts[len(m.toasts)-3:]
	}
	return m, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

// setTimer records the active timer and keeps the clock ticking only while
// it runs. The returned command arms the first tick when the clock starts.
func (m *appModel) setTimer(t *model.Timer) tea.Cmd {
	m.timer = t
	m.now = time.Now()
	if timetrack.StateOf(t) != timetrack.Running {
		m.stopClock()
		return nil
	}
	if m.clockOn {
		return nil
	}
	m.clockOn = true
	return m.clockTick()
}

func (m *appModel) stopClock() {
	if m.clockOn {
		m.clockOn = false
		m.clockGen++
	}
}

func (m appModel) clockTick() tea.Cmd {
	gen := m.clockGen
	return tea.Tick(clockInterval, func(now time.Time) tea.Msg { return clockMsg{now: now, gen: gen} })
}

func (m *appModel) resize() {
	h := m.bodyHeight()
	m.rows.SetSize(m.width, h)
	m.composer.SetWidth(max(20, m.width-4))
	m.login.setWidth(m.width)
}

func (m appModel) bodyHeight() int {
	// header (2) + footer (toasts + help)
	h := m.height - 4 - len(m.toasts)
	if m.composing {
		h -= m.composer.Height() + 2
	}
	if h < 5 {
		h = 5
	}
	return h
}
