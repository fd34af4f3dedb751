package cli

import (
	"fmt"
	"strings"

	"teamboard-cli/internal/forms"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/publish"
	"teamboard-cli/internal/service"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBoardsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "Board and list commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your boards",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			bs, err := app.svc.Boards.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": bs})
		}),
	})
	cmd.AddCommand(idCmd(app, "board", "show <board-id>", "Show a board with its columns, tasks and task threads", func(cmd *cobra.Command, id int64) (any, error) {
		return pages.NewLoader(app.svc, app.log).Board(cmd.Context(), id)
	}))
	cmd.AddCommand(newBoardsCreateCmd(app))
	cmd.AddCommand(idCmd(app, "board", "delete <board-id>", "Delete a board", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Boards.Delete(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "board", "lists <board-id>", "List a board's lists", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Boards.Lists(cmd.Context(), id)
	}))
	cmd.AddCommand(newBoardsAddListCmd(app))
	cmd.AddCommand(newBoardsExportCmd(app))
	cmd.AddCommand(idCmd(app, "board", "tasks <board-id>", "List every task on a board", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Boards.Tasks(cmd.Context(), id)
	}))
	return cmd
}

func newBoardsCreateCmd(app *App) *cobra.Command {
	var f forms.CreateBoard
	var projectID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a board",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			f.ProjectID = optID(projectID)
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "Board name")
	cmd.Flags().StringVar(&f.Description, "description", "", "Description")
	cmd.Flags().Int64Var(&projectID, "project", 0, "Project id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBoardsAddListCmd(app *App) *cobra.Command {
	var f forms.CreateList

	cmd := &cobra.Command{
		Use:   "add-list <board-id>",
		Short: "Add a list (column) to a board",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			f.BoardID = id
			if !cmd.Flags().Changed("position") {
				ls, err := app.svc.Boards.Lists(cmd.Context(), id)
				if err != nil {
					return writeErr(cmd, err)
				}
				f.Position = nextPosition(ls)
			}
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "List name")
	cmd.Flags().IntVar(&f.Position, "position", 0, "Position (default: after the last list)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBoardsExportCmd(app *App) *cobra.Command {
	var to string
	var opt publish.WriteOptions

	cmd := &cobra.Command{
		Use:   "export <board-id>",
		Short: "Write a board and its task threads as markdown files",
		Example: strings.TrimSpace(`
  teamboard boards export 7 --to ./notes
  teamboard boards export 7 --to ./notes --include-done --overwrite
`),
		Args: cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := pages.NewLoader(app.svc, app.log).Board(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := publish.WriteBoard(b, to, opt)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("board exported", "board_id", id, "files", len(res.Written))
			return writeOut(cmd, app, map[string]any{"data": res})
		}),
	}

	cmd.Flags().StringVar(&to, "to", "", "Destination directory")
	cmd.Flags().BoolVar(&opt.IncludeDone, "include-done", false, "Include tasks in the done state")
	cmd.Flags().BoolVar(&opt.IncludeActivity, "include-activity", false, "Include each task's activity log")
	cmd.Flags().BoolVar(&opt.Overwrite, "overwrite", false, "Replace files that already exist")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func nextPosition(ls []model.List) int {
	next := 0
	for _, l := range ls {
		if l.Position >= next {
			next = l.Position + 1
		}
	}
	return next
}

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(idCmd(app, "task", "delete <task-id>", "Delete a task", func(cmd *cobra.Command, id int64) (any, error) {
		return map[string]any{"deleted": id}, app.svc.Tasks.Delete(cmd.Context(), id)
	}))
	cmd.AddCommand(idCmd(app, "task", "comments <task-id>", "List a task's comments", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Tasks.Comments(cmd.Context(), id)
	}))
	cmd.AddCommand(newTasksCommentCmd(app))
	cmd.AddCommand(idCmd(app, "task", "activities <task-id>", "List a task's activity log", func(cmd *cobra.Command, id int64) (any, error) {
		return app.svc.Tasks.Activities(cmd.Context(), id)
	}))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var mine bool
	var assignee, boardID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			if mine {
				assignee = app.auth.CurrentUser().ID
			}
			var (
				ts  []model.Task
				err error
			)
			if boardID != 0 {
				ts, err = app.svc.Boards.Tasks(cmd.Context(), boardID)
			} else {
				ts, err = app.svc.Tasks.List(cmd.Context(), assignee)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if boardID != 0 && assignee != 0 {
				ts = filterAssignee(ts, assignee)
			}
			return writeOut(cmd, app, map[string]any{"data": ts, "meta": map[string]any{"count": len(ts)}})
		}),
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "Only tasks assigned to you")
	cmd.Flags().Int64Var(&assignee, "assignee", 0, "Only tasks assigned to this user id")
	cmd.Flags().Int64Var(&boardID, "board", 0, "Only tasks on this board")
	return cmd
}

func filterAssignee(ts []model.Task, uid int64) []model.Task {
	out := []model.Task{}
	for _, t := range ts {
		if t.AssigneeID != nil && *t.AssigneeID == uid {
			out = append(out, t)
		}
	}
	return out
}

func newTasksShowCmd(app *App) *cobra.Command {
	var render bool
	var style string

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with comments, activity and dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			d, err := pages.NewLoader(app.svc, app.log).Task(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !render {
				return writeOut(cmd, app, map[string]any{"data": d})
			}
			out, err := renderMarkdown(taskMarkdown(d), style, 80)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		}),
	}

	cmd.Flags().BoolVar(&render, "render", false, "Render as formatted text instead of an envelope")
	cmd.Flags().StringVar(&style, "style", "auto", "Render style (auto|dark|light|notty)")
	return cmd
}

func renderMarkdown(md, style string, width int) (string, error) {
	opt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		opt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// taskMarkdown lays out a task detail as a markdown document.
func taskMarkdown(d *pages.TaskDetail) string {
	t := d.Task
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "**%s** · **%s**", service.StatusBadge(t.Status).Text, service.PriorityBadge(t.Priority).Text)
	if t.Assignee != nil {
		fmt.Fprintf(&b, " · assigned to %s", t.Assignee.DisplayName())
	}
	if t.DueDate != nil {
		fmt.Fprintf(&b, " · due %s", humanize.Time(*t.DueDate))
	}
	b.WriteString("\n\n")
	if strings.TrimSpace(t.Description) != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}
	if len(d.Deps) > 0 {
		b.WriteString("## Dependencies\n\n")
		for _, dep := range d.Deps {
			fmt.Fprintf(&b, "- %s #%d\n", service.DependencyBadge(dep.Type).Text, dep.DependsOnTaskID)
		}
		b.WriteString("\n")
	}
	if len(d.Comments) > 0 {
		b.WriteString("## Comments\n\n")
		for _, c := range d.Comments {
			fmt.Fprintf(&b, "**%s** (%s)\n\n%s\n\n", c.Author.DisplayName(), humanize.Time(c.CreatedAt), c.Body)
		}
	}
	if len(d.Activities) > 0 {
		b.WriteString("## Activity\n\n")
		for _, a := range d.Activities {
			fmt.Fprintf(&b, "- %s %s (%s)\n", a.Actor.DisplayName(), a.Action, humanize.Time(a.CreatedAt))
		}
	}
	return b.String()
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var f forms.CreateTask
	var priority string
	var assignee int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a list",
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			f.Priority = model.TaskPriority(priority)
			f.AssigneeID = optID(assignee)
			return submit(cmd, app, &f)
		}),
	}

	cmd.Flags().Int64Var(&f.ListID, "list", 0, "List id")
	cmd.Flags().StringVar(&f.Title, "title", "", "Title")
	cmd.Flags().StringVar(&f.Description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	cmd.Flags().Int64Var(&assignee, "assignee", 0, "Assignee user id")
	cmd.Flags().StringVar(&f.DueDate, "due", "", "Due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("list")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var title, description, priority, status, due string
	var assignee, listID int64

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change task fields (only the flags you pass are sent)",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			patch := service.TaskPatch{}
			set := func(flag string, v any) {
				if cmd.Flags().Changed(flag) {
					patch[strings.ReplaceAll(flag, "-", "_")] = v
				}
			}
			set("title", strings.TrimSpace(title))
			set("description", description)
			set("priority", priority)
			set("status", status)
			set("due-date", due)
			set("list-id", listID)
			if cmd.Flags().Changed("assignee") {
				patch["assignee_id"] = optID(assignee)
			}
			if len(patch) == 0 {
				return writeErr(cmd, fmt.Errorf("nothing to update"))
			}
			if v, ok := patch["title"]; ok && v == "" {
				return writeErr(cmd, &forms.ValidationError{Fields: map[string]string{"title": "is required"}})
			}
			t, err := app.svc.Tasks.Update(cmd.Context(), id, patch)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&status, "status", "", "Status (todo|in_progress|review|done)")
	cmd.Flags().StringVar(&due, "due-date", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&listID, "list-id", 0, "Move to list")
	cmd.Flags().Int64Var(&assignee, "assignee", 0, "Assignee user id (0 unassigns)")
	return cmd
}

func newTasksCommentCmd(app *App) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "comment <task-id>",
		Short: "Add a comment to a task",
		Args:  cobra.ExactArgs(1),
		RunE: authed(app, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(body) == "" {
				return writeErr(cmd, &forms.ValidationError{Fields: map[string]string{"body": "is required"}})
			}
			c, err := app.svc.Tasks.AddComment(cmd.Context(), id, body)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": c})
		}),
	}

	cmd.Flags().StringVar(&body, "body", "", "Comment text (markdown)")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}
