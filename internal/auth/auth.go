package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/logging"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/session"
)

type State int

const (
	StateUninitialized State = iota
	StateRestoring
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRestoring:
		return "restoring"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult reports the outcome of Login. Login never returns an error value;
// failures are described by Error.
type LoginResult struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user,omitempty"`
	Error   string      `json:"error,omitempty"`
}

var ErrNoIdentity = errors.New("no authenticated user to configure")

// Service owns the in-memory session and mirrors it into the persistent store.
type Service struct {
	client *api.Client
	store  *session.Store
	log    *slog.Logger

	mu        sync.RWMutex
	state     State
	sessionID string
	user      *model.User
	ready     chan struct{}
}

// New creates the service and starts restoring any persisted session in the
// background. Callers must WaitForInitialization before trusting IsAuthenticated.
func New(client *api.Client, store *session.Store, logger *slog.Logger) *Service {
	s := &Service{
		client: client,
		store:  store,
		log:    logging.OrDiscard(logger),
		ready:  make(chan struct{}),
	}
	go s.restore()
	return s
}

func (s *Service) restore() {
	s.setState(StateRestoring)
	defer func() {
		s.setState(StateReady)
		close(s.ready)
	}()

	st, err := s.store.LoadState(context.Background())
	if err != nil {
		s.log.Warn("could not restore session", "err", err)
		return
	}
	if !st.Complete() {
		return
	}
	s.mu.Lock()
	s.sessionID = st.SessionID
	u := *st.User
	s.user = &u
	s.mu.Unlock()
	s.client.SetSessionID(st.SessionID)
	s.client.SetUserID(u.ID)
	s.log.Debug("session restored", "user_id", u.ID)
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) WaitForInitialization(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Service) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *Service) IsAdmin() bool {
	u := s.CurrentUser()
	return u != nil && u.IsAdmin()
}

// Login runs the handshake: create session, submit credentials, configure
// request identity, verify identity. Any failure rolls back memory, storage
// and client identity.
func (s *Service) Login(ctx context.Context, creds Credentials) LoginResult {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return LoginResult{Error: "username and password are required"}
	}

	fail := func(step string, err error) LoginResult {
		s.log.Warn("login failed", "step", step, "err", err)
		s.rollback()
		return LoginResult{Error: fmt.Sprintf("%s: %s", step, describe(err))}
	}

	// 1) session
	sid, err := s.client.NewSession(ctx)
	if err != nil {
		return fail("create session", err)
	}
	s.client.SetSessionID(sid)
	s.mu.Lock()
	s.sessionID = sid
	s.mu.Unlock()
	if err := s.store.SaveSessionID(ctx, sid); err != nil {
		return fail("create session", err)
	}

	// 2) credentials
	var resp struct {
		User *model.User `json:"user"`
	}
	if err := s.client.Post(ctx, "/api/login", creds, &resp); err != nil {
		return fail("submit credentials", err)
	}
	if resp.User == nil {
		return fail("submit credentials", errors.New("response did not include a user"))
	}
	user := *resp.User

	// 3) request identity
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	if err := s.ConfigureClient(); err != nil {
		return fail("configure identity", err)
	}

	// 4) verify
	var me model.User
	if err := s.client.Get(ctx, "/api/users/me", nil, &me); err != nil {
		return fail("verify identity", err)
	}
	if me.ID != user.ID {
		return fail("verify identity", fmt.Errorf("server identified user %d, expected %d", me.ID, user.ID))
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return fail("persist session", err)
	}

	s.log.Info("logged in", "user_id", user.ID, "username", user.Username)
	return LoginResult{Success: true, User: &user}
}

// ConfigureClient applies the in-memory identity to outgoing requests.
func (s *Service) ConfigureClient() error {
	s.mu.RLock()
	sid, u := s.sessionID, s.user
	s.mu.RUnlock()
	if strings.TrimSpace(sid) == "" || u == nil || u.ID == 0 {
		return ErrNoIdentity
	}
	s.client.SetSessionID(sid)
	s.client.SetUserID(u.ID)
	return nil
}

// Logout reports the event best-effort and then always clears the session.
func (s *Service) Logout(ctx context.Context) {
	if u := s.CurrentUser(); u != nil {
		ev := map[string]any{"event_type": "logout", "user_id": u.ID}
		if err := s.client.Post(ctx, "/_synthetic/log_event", ev, nil); err != nil {
			s.log.Warn("logout event not recorded", "err", err)
		}
	}
	s.rollback()
}

// ValidateSession re-confirms identity with the server and clears the session
// when that fails.
func (s *Service) ValidateSession(ctx context.Context) bool {
	u := s.CurrentUser()
	if u == nil || s.SessionID() == "" {
		return false
	}
	var me model.User
	if err := s.client.Get(ctx, "/api/users/me", nil, &me); err != nil {
		s.log.Info("session validation failed", "err", err)
		s.rollback()
		return false
	}
	if me.ID != u.ID {
		s.log.Info("session validation returned a different user", "want", u.ID, "got", me.ID)
		s.rollback()
		return false
	}
	return true
}

// IsAuthenticated reports whether memory and storage agree on a session. Any
// disagreement clears both and reports false.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	sid, u := s.sessionID, s.user
	s.mu.RUnlock()
	if sid == "" || u == nil {
		return false
	}

	st, err := s.store.LoadState(context.Background())
	if err != nil || st.SessionID != sid || st.User == nil || st.User.ID != u.ID {
		s.log.Info("session out of sync with storage; logging out", "err", err)
		s.rollback()
		return false
	}
	return true
}

// ClearSession drops the session everywhere.
func (s *Service) ClearSession() { s.rollback() }

func (s *Service) rollback() {
	s.mu.Lock()
	s.sessionID = ""
	s.user = nil
	s.mu.Unlock()
	s.client.ClearIdentity()
	if err := s.store.ClearState(context.Background()); err != nil {
		s.log.Warn("could not clear stored session", "err", err)
	}
}

func describe(err error) string {
	var ae *api.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
