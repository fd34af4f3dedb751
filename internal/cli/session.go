package cli

import (
	"teamboard-cli/internal/auth"
	"teamboard-cli/internal/guard"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		RunE: connected(app, func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = envOr("TEAMBOARD_PASSWORD", "")
			}
			res := app.auth.Login(cmd.Context(), auth.Credentials{Username: username, Password: password})
			if !res.Success {
				return writeErr(cmd, loginError{msg: res.Error})
			}
			return writeOut(cmd, app, map[string]any{
				"data": res.User,
				"meta": map[string]any{"api_url": app.cfg.BaseURL},
			})
		}),
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (default: $TEAMBOARD_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: connected(app, func(cmd *cobra.Command, args []string) error {
			wasSignedIn := app.auth.IsAuthenticated()
			if wasSignedIn {
				_ = app.auth.ConfigureClient()
			}
			app.auth.Logout(cmd.Context())
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"signed_out": true},
				"meta": map[string]any{"was_signed_in": wasSignedIn},
			})
		}),
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{
				"data": app.auth.CurrentUser(),
				"meta": map[string]any{"admin": app.auth.IsAdmin()},
			})
		}),
	}
}

func newSessionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Re-confirm the stored session with the server (clears it when invalid)",
		RunE: connected(app, func(cmd *cobra.Command, args []string) error {
			valid := app.auth.IsAuthenticated()
			if valid {
				_ = app.auth.ConfigureClient()
				valid = app.auth.ValidateSession(cmd.Context())
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"valid": valid, "user": app.auth.CurrentUser()},
			})
		}),
	})
	return cmd
}

func newRouteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route guard commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Show what the route guard decides for a path",
		Args:  cobra.ExactArgs(1),
		RunE: connected(app, func(cmd *cobra.Command, args []string) error {
			g := guard.New(app.auth, app.store, app.log)
			d := g.Check(cmd.Context(), args[0])
			return writeOut(cmd, app, map[string]any{
				"data": d,
				"meta": map[string]any{"route": guard.Normalize(args[0]), "public": g.IsPublic(args[0])},
			})
		}),
	})
	return cmd
}
