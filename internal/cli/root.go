package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"teamboard-cli/internal/api"
	"teamboard-cli/internal/auth"
	"teamboard-cli/internal/config"
	"teamboard-cli/internal/format"
	"teamboard-cli/internal/logging"
	"teamboard-cli/internal/service"
	"teamboard-cli/internal/session"
	"teamboard-cli/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	PrettyJSON bool
	Format     string
	LogLevel   string

	cfg     *config.Config
	log     *slog.Logger
	client  *api.Client
	emitter *api.Emitter
	store   *session.Store
	auth    *auth.Service
	svc     *service.Services
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "teamboard",
		Short:        "teamboard project-management CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  teamboard

  # Sign in once; the session is kept in ~/.teamboard
  teamboard login --username mia --password '...'

  # Scriptable commands
  teamboard tasks list --mine
  teamboard timer start --task 42
  teamboard notifications open 7
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "API base URL (overrides TEAMBOARD_API_URL and config)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|edn|yaml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newSessionCmd(app))
	cmd.AddCommand(newRouteCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newTeamsCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newBoardsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newTimerCmd(app))
	cmd.AddCommand(newTimeCmd(app))
	cmd.AddCommand(newVelocityCmd(app))
	cmd.AddCommand(newFieldsCmd(app))
	cmd.AddCommand(newDepsCmd(app))
	cmd.AddCommand(newPermsCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newMessagesCmd(app))
	cmd.AddCommand(newNotificationsCmd(app))
	cmd.AddCommand(newWorkflowsCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	if err := app.loadConfig(); err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(cmd.Context(), app.cfg)
}

// loadConfig resolves config once and applies flag overrides.
func (a *App) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.APIURL != "" {
		cfg.BaseURL = a.APIURL
	}
	if a.Format != "" {
		cfg.OutputFormat = a.Format
	}
	if a.PrettyJSON {
		cfg.PrettyJSON = true
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, logger
	return nil
}

// connect opens the API client, the session store and the auth service.
func (a *App) connect(ctx context.Context) error {
	if a.auth != nil {
		return nil
	}
	if err := a.loadConfig(); err != nil {
		return err
	}
	client, err := api.New(api.Options{BaseURL: a.cfg.BaseURL, Timeout: a.cfg.Timeout, Logger: a.log})
	if err != nil {
		return err
	}
	if a.cfg.AnalyticsEnabled {
		a.emitter = api.NewEmitter(api.HTTPEventSink{Doer: client.Raw()}, a.cfg.QueueSize, a.log)
		client.Use(api.Analytics(a.emitter, client.SessionID))
	}
	store, err := session.Open(ctx, a.cfg.Dir, a.log)
	if err != nil {
		return err
	}
	a.client, a.store = client, store
	a.auth = auth.New(client, store, a.log)
	a.svc = service.New(client)
	return a.auth.WaitForInitialization(ctx)
}

// Close flushes pending analytics and releases the session store.
func (a *App) Close() {
	if a.emitter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.emitter.Flush(ctx); err != nil {
			a.log.Debug("analytics flush incomplete", "err", err)
		}
		cancel()
		a.emitter.Close()
		a.emitter = nil
	}
	if a.store != nil {
		_ = a.store.Close()
		a.store = nil
	}
	a.auth = nil
}

// connected wraps a command that needs the API but not a signed-in user.
func connected(app *App, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer app.Close()
		if err := app.connect(cmd.Context()); err != nil {
			return writeErr(cmd, err)
		}
		return fn(cmd, args)
	}
}

// authed wraps a command that needs a signed-in user.
func authed(app *App, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return connected(app, func(cmd *cobra.Command, args []string) error {
		if !app.auth.IsAuthenticated() {
			return writeErr(cmd, errNotSignedIn)
		}
		if err := app.auth.ConfigureClient(); err != nil {
			return writeErr(cmd, err)
		}
		return fn(cmd, args)
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	f, pretty := app.Format, app.PrettyJSON
	if app.cfg != nil {
		f, pretty = app.cfg.OutputFormat, app.cfg.PrettyJSON
	}
	return format.Write(cmd.OutOrStdout(), v, f, pretty)
}

// writeErr prints err to stderr; api errors already carry their status.
func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return id, nil
}

// optID returns nil for 0 so optional ids are omitted from request bodies.
func optID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
