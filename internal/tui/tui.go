// Package tui is the interactive terminal client: a route-driven bubbletea
// program whose navigation goes through the same guard and loaders as the CLI.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/auth"
	"teamboard-cli/internal/config"
	"teamboard-cli/internal/guard"
	"teamboard-cli/internal/logging"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/redirect"
	"teamboard-cli/internal/service"
	"teamboard-cli/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, cfg *config.Config) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(cfg.Glyphs)

	// The alt screen owns stderr, so logs only go to a file when asked for.
	log := logging.Discard()
	if os.Getenv("TEAMBOARD_LOG") != "" {
		f, err := os.OpenFile(filepath.Join(cfg.Dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open tui log: %w", err)
		}
		defer f.Close()
		if log, err = logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: f}); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e, closeEnv, err := openEnv(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeEnv()

	p := tea.NewProgram(newAppModel(e), tea.WithAltScreen(), tea.WithContext(ctx))
	e.send = p.Send
	e.guard.Watch(ctx, e.Current, func(d guard.Decision) { p.Send(watchMsg{decision: d}) })

	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// openEnv wires the API client, session store and the services on top of them.
func openEnv(ctx context.Context, cfg *config.Config, log *slog.Logger) (*env, func(), error) {
	client, err := api.New(api.Options{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout, Logger: log})
	if err != nil {
		return nil, nil, err
	}
	var em *api.Emitter
	if cfg.AnalyticsEnabled {
		em = api.NewEmitter(api.HTTPEventSink{Doer: client.Raw()}, cfg.QueueSize, log)
		client.Use(api.Analytics(em, client.SessionID))
	}
	store, err := session.Open(ctx, cfg.Dir, log)
	if err != nil {
		return nil, nil, err
	}
	a := auth.New(client, store, log)
	if err := a.WaitForInitialization(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	svc := service.New(client)

	e := &env{
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		svc:      svc,
		auth:     a,
		store:    store,
		guard:    guard.New(a, store, log),
		resolver: redirect.NewResolver(redirect.ServiceLookup{Svc: svc}, cfg.RedirectDelay, log),
		loader:   pages.NewLoader(svc, log),
	}
	closeEnv := func() {
		if em != nil {
			fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := em.Flush(fctx); err != nil {
				log.Debug("analytics flush incomplete", "err", err)
			}
			cancel()
			em.Close()
		}
		if err := store.Close(); err != nil {
			log.Debug("close session store", "err", err)
		}
	}
	return e, closeEnv, nil
}
