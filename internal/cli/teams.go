package cli

import (
	"teamboard-cli/internal/forms"
	"teamboard-cli/internal/model"

	"github.com/spf13/cobra"
)

// submit runs a form the same way the TUI modals do and prints what it created.
func submit(cmd *cobra.Command, app *App, f forms.Form) error {
	out, err := forms.Run(cmd.Context(), f, app.svc, nil)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, map[string]any{"data": out})
}

func newTeamsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Team commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your teams",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			teams, err := app.svc.Teams.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": teams, "meta": map[string]any{"count": len(teams)}})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "List teams you can ask to join",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			teams, err := app.svc.Teams.Discover(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": teams, "meta": map[string]any{"count": len(teams)}})
		}),
	})
	cmd.AddCommand(idCmd(app, "team", "show <team-id>", "Show a team", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Teams.Get(cmd.Context(), id)
	}))
	cmd.AddCommand(newTeamsCreateCmd(app))
	cmd.AddCommand(newTeamsUpdateCmd(app))
	cmd.AddCommand(idCmd(app, "team", "delete <team-id>", "Delete a team", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Teams.Delete(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "team", "members <team-id>", "List a team's members", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Teams.Members(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "team", "join <team-id>", "Ask to join a team", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Teams.RequestJoin(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "team", "cancel-request <team-id>", "Withdraw a pending join request", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"cancelled": id}, app.svc.Teams.CancelJoinRequest(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "team", "accept-invite <team-id>", "Accept a team invitation", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Teams.AcceptInvitation(cmd.Context(), id)
	}))
	cmd.AddCommand(newTeamsAddMemberCmd(app))
	cmd.AddCommand(newTeamsRemoveMemberCmd(app))
	return cmd
}

func newTeamsCreateCmd(app *App) *cobra.Command {
	var f forms.CreateTeam
	var managerID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			f.ManagerID = optID(managerID)
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "Team name (at least 2 characters)")
	cmd.Flags().StringVar(&f.Description, "description", "", "Description")
	cmd.Flags().Int64Var(&managerID, "manager", 0, "Manager user id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTeamsUpdateCmd(app *App) *cobra.Command {
	var f forms.EditTeam

	cmd := &cobra.Command{
		Use:   "update <team-id>",
		Short: "Rename a team or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("team", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			f.ID = id
			if !cmd.Flags().Changed("name") || !cmd.Flags().Changed("description") {
				cur, err := app.svc.Teams.Get(cmd.Context(), id)
				if err != nil {
					return writeErr(cmd, err)
				}
				if !cmd.Flags().Changed("name") {
					f.Name = cur.Name
				}
				if !cmd.Flags().Changed("description") {
					f.Description = cur.Description
				}
			}
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "New name")
	cmd.Flags().StringVar(&f.Description, "description", "", "New description")
	return cmd
}

func newTeamsAddMemberCmd(app *App) *cobra.Command {
	var userID int64
	var role string

	cmd := &cobra.Command{
		Use:   "add-member <team-id>",
		Short: "Add a user to a team",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("team", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			m, err := app.svc.Teams.AddMember(cmd.Context(), id, userID, model.Role(role))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": m})
		}),
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	cmd.Flags().StringVar(&role, "role", string(model.RoleMember), "Team role (member|manager)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTeamsRemoveMemberCmd(app *App) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "remove-member <team-id>",
		Short: "Remove a user from a team",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("team", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.svc.Teams.RemoveMember(cmd.Context(), id, userID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"team_id": id, "removed": userID}})
		}),
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			ps, err := app.svc.Projects.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ps})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its boards",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.svc.Projects.Get(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			boards, err := app.svc.Projects.Boards(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": p, "meta": map[string]any{"boards": boards}})
		}),
	})
	cmd.AddCommand(newProjectsCreateCmd(app))
	return cmd
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var f forms.CreateProject
	var teamID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			f.TeamID = optID(teamID)
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "Project name")
	cmd.Flags().StringVar(&f.Description, "description", "", "Description")
	cmd.Flags().Int64Var(&teamID, "team", 0, "Owning team id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
