// Package guard decides whether a route may render for the current session.
package guard

import (
	"context"
	"log/slog"
	"strings"

	"teamboard-cli/internal/logging"
	"teamboard-cli/internal/session"
)

type Action int

const (
	Render Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "render"
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

const (
	LoginRoute     = "/login"
	DashboardRoute = "/dashboard"
)

type Decision struct {
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
	Reason string `json:"reason"`
}

// Authenticator is the slice of auth.Service the guard depends on.
type Authenticator interface {
	WaitForInitialization(ctx context.Context) error
	IsAuthenticated() bool
	ConfigureClient() error
	ValidateSession(ctx context.Context) bool
	ClearSession()
}

type Guard struct {
	auth  Authenticator
	store *session.Store
	log   *slog.Logger

	// public routes render without a session and send signed-in users to the
	// dashboard.
	public map[string]bool
}

func New(auth Authenticator, store *session.Store, logger *slog.Logger) *Guard {
	return &Guard{
		auth:   auth,
		store:  store,
		log:    logging.OrDiscard(logger),
		public: map[string]bool{"/": true, "/login": true, "/register": true},
	}
}

// Normalize strips query and fragment and any trailing slash.
func Normalize(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return route
}

func (g *Guard) IsPublic(route string) bool { return g.public[Normalize(route)] }

func (g *Guard) Check(ctx context.Context, route string) Decision {
	if err := g.auth.WaitForInitialization(ctx); err != nil {
		return Decision{Action: Redirect, Target: LoginRoute, Reason: "initialization interrupted"}
	}
	path := Normalize(route)
	authed := g.auth.IsAuthenticated()

	switch {
	case authed && g.public[path]:
		return Decision{Action: Redirect, Target: DashboardRoute, Reason: "already signed in"}
	case !authed && g.public[path]:
		return Decision{Action: Render, Reason: "public route"}
	case !authed:
		return Decision{Action: Redirect, Target: LoginRoute, Reason: "sign in required"}
	}

	if err := g.auth.ConfigureClient(); err != nil {
		g.log.Info("identity configuration failed", "route", path, "err", err)
		return Decision{Action: Redirect, Target: LoginRoute, Reason: "identity configuration failed"}
	}
	if !g.auth.ValidateSession(ctx) {
		g.auth.ClearSession()
		return Decision{Action: Redirect, Target: LoginRoute, Reason: "session expired"}
	}
	return Decision{Action: Render, Reason: "session valid"}
}

// Watch re-checks the current route whenever a session key is removed from
// storage, in this process or another. The subscription is live when Watch
// returns and ends when ctx is done.
func (g *Guard) Watch(ctx context.Context, route func() string, onDecision func(Decision)) {
	trigger := make(chan struct{}, 1)
	unsub := g.store.Subscribe(func(c session.Change) {
		if c.Op == session.OpSet {
			return
		}
		if c.Op == session.OpRemove && c.Key != session.KeySessionID && c.Key != session.KeyUser {
			return
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				d := g.Check(ctx, route())
				// Check may clear the session itself; those removals are
				// answered by d.
				select {
				case <-trigger:
				default:
				}
				g.log.Debug("route re-checked after storage removal", "action", d.Action, "target", d.Target)
				if ctx.Err() == nil {
					onDecision(d)
				}
			}
		}
	}()
}
