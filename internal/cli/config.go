package cli

import (
	"teamboard-cli/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.teamboard/config.yaml",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadConfig(); err != nil {
				return writeErr(cmd, err)
			}
			return writeConfig(cmd, app)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one dotted key (e.g. api.base_url)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFile()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := f.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			dir, err := config.Dir()
			if err != nil {
				return writeErr(cmd, err)
			}
			// Reject values that would leave the file unloadable.
			if _, err := config.Resolve(dir, f); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.SaveFile(f); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.loadConfig(); err != nil {
				return writeErr(cmd, err)
			}
			return writeConfig(cmd, app)
		},
	})
	return cmd
}

func writeConfig(cmd *cobra.Command, app *App) error {
	c := app.cfg
	path, _ := config.Path()
	return writeOut(cmd, app, map[string]any{
		"data": map[string]any{
			"api": map[string]any{
				"base_url": c.BaseURL,
				"timeout":  c.Timeout.String(),
			},
			"analytics": map[string]any{
				"enabled":    c.AnalyticsEnabled,
				"queue_size": c.QueueSize,
			},
			"redirect": map[string]any{"delay": c.RedirectDelay.String()},
			"timer":    map[string]any{"poll_interval": c.PollInterval.String()},
			"output":   map[string]any{"format": c.OutputFormat, "pretty": c.PrettyJSON},
			"log":      map[string]any{"level": c.LogLevel, "format": c.LogFormat},
			"tui":      map[string]any{"glyphs": c.Glyphs},
		},
		"meta": map[string]any{"path": path, "dir": c.Dir},
	})
}
