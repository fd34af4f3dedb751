// Package apitest is an in-memory stand-in for the teamboard REST API, used by
// tests across the module. It implements just enough server behavior to drive
// the client end to end.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"teamboard-cli/internal/model"

	"github.com/go-chi/chi/v5"
)

type Recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   map[string]any
	UserID string
}

type Server struct {
	*httptest.Server

	mu sync.Mutex

	Users     map[int64]model.User
	Passwords map[string]string
	// Sessions maps session id -> logged-in user id (0 before login).
	Sessions map[string]int64

	Teams         []model.Team
	TeamMembers   map[int64][]model.TeamMember
	Projects      []model.Project
	Boards        []model.Board
	Lists         []model.List
	Tasks         []model.Task
	Comments      []model.Comment
	Activities    []model.Activity
	Conversations []model.Conversation
	Messages      []model.Message
	Notifications []model.Notification
	Fields        []model.CustomFieldDefinition
	FieldValues   []model.CustomFieldValue
	Deps          []model.Dependency
	Permissions   []model.Permission
	Roles         []model.RoleDef
	Grants        []model.PermissionGrant
	Assignments   []model.RoleAssignment
	Timer         *model.Timer
	Entries       []model.TimeEntry
	Estimates     map[int64]model.TaskEstimate
	Velocity      map[int64][]model.VelocityPoint
	Templates     []model.WorkflowTemplate
	Instances     []model.WorkflowInstance
	Events        []map[string]any
	Requests      []Recorded

	// DirectBoardLookup toggles GET /api/tasks/{id}/board; when false it 404s so
	// clients fall back to scanning.
	DirectBoardLookup bool

	Now func() time.Time

	failures map[string]int
	nextID   int64
}

// New starts a server with one admin ("admin"/"secret") and one member
// ("mia"/"pw"). It is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Users: map[int64]model.User{
			1: {ID: 1, Username: "admin", FullName: "Ada Admin", Email: "admin@example.com", Role: model.RoleAdmin},
			2: {ID: 2, Username: "mia", FullName: "Mia Member", Email: "mia@example.com", Role: model.RoleMember},
		},
		Passwords:   map[string]string{"admin": "secret", "mia": "pw"},
		Sessions:    map[string]int64{},
		TeamMembers: map[int64][]model.TeamMember{},
		Estimates:   map[int64]model.TaskEstimate{},
		Velocity:    map[int64][]model.VelocityPoint{},
		Now:         func() time.Time { return time.Now().UTC() },
		failures:    map[string]int{},
		nextID:      100,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Server.Close)
	return s
}

// FailWith makes "METHOD /path" respond with status until cleared with 0.
func (s *Server) FailWith(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Login creates a logged-in session directly, bypassing the handshake.
func (s *Server) Login(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sid := "sess-" + strconv.FormatInt(s.id(), 10)
	s.Sessions[sid] = userID
	return sid
}

// Revoke drops a session server-side.
func (s *Server) Revoke(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Sessions, sid)
}

func (s *Server) RequestsTo(method, path string) []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Recorded
	for _, r := range s.Requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Seed helpers.

func (s *Server) AddTeam(t model.Team) model.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.Teams = append(s.Teams, t)
	return t
}

func (s *Server) AddBoard(b model.Board) model.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.id()
	}
	s.Boards = append(s.Boards, b)
	return b
}

func (s *Server) AddList(l model.List) model.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.id()
	}
	s.Lists = append(s.Lists, l)
	return l
}

func (s *Server) AddTask(t model.Task) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	if t.Status == "" {
		t.Status = model.TaskTodo
	}
	s.Tasks = append(s.Tasks, t)
	return t
}

func (s *Server) AddNotification(n model.Notification) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == 0 {
		n.ID = s.id()
	}
	s.Notifications = append(s.Notifications, n)
	return n
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.injectFailures)

	r.Post("/_synthetic/new_session", s.handleNewSession)
	r.Post("/_synthetic/log_event", s.handleLogEvent)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/api/login", s.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession, s.requireUser)
		s.userRoutes(r)
		s.teamRoutes(r)
		s.boardRoutes(r)
		s.messageRoutes(r)
		s.fieldRoutes(r)
		s.dependencyRoutes(r)
		s.timeRoutes(r)
		s.permissionRoutes(r)
		s.notificationRoutes(r)
		s.workflowRoutes(r)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  map[string][]string(r.URL.Query()),
			UserID: r.Header.Get("x-user-id"),
		}
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			if len(b) > 0 {
				_ = json.Unmarshal(b, &rec.Body)
			}
			r.Body = io.NopCloser(strings.NewReader(string(b)))
		}
		s.mu.Lock()
		s.Requests = append(s.Requests, rec)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.URL.Query().Get("session_id")
		s.mu.Lock()
		_, ok := s.Sessions[sid]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.URL.Query().Get("session_id")
		s.mu.Lock()
		uid := s.Sessions[sid]
		s.mu.Unlock()
		if uid == 0 || r.Header.Get("x-user-id") != strconv.FormatInt(uid, 10) {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser must be called with s.mu held.
func (s *Server) currentUser(r *http.Request) model.User {
	return s.Users[s.Sessions[r.URL.Query().Get("session_id")]]
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sid := "sess-" + strconv.FormatInt(s.id(), 10)
	s.Sessions[sid] = 0
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sid})
}

func (s *Server) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var ev map[string]any
	if err := readJSON(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	s.mu.Lock()
	s.Events = append(s.Events, ev)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pw, ok := s.Passwords[req.Username]
	if !ok || pw != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	for id, u := range s.Users {
		if u.Username == req.Username {
			s.Sessions[r.URL.Query().Get("session_id")] = id
			writeJSON(w, http.StatusOK, map[string]any{"user": u})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "invalid credentials")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func queryID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return id
}
