package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/service"
)

type RenderOptions struct {
	IncludeDone     bool
	IncludeActivity bool
}

// RenderTaskMarkdown renders one task with its thread. users resolves an
// assignee id when the task came back without the embedded user.
func RenderTaskMarkdown(d pages.TaskDetail, board model.Board, list model.List, users []model.User, opt RenderOptions) string {
	t := d.Task
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(t.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn(fmt.Sprintf("- ID: %d", t.ID))
	writeLn(fmt.Sprintf("- Board: %s (%d)", strings.TrimSpace(board.Name), board.ID))
	writeLn("- List: " + strings.TrimSpace(list.Name))
	if t.Status != "" {
		writeLn("- Status: " + service.StatusBadge(t.Status).Text)
	}
	if t.Priority != "" {
		writeLn("- Priority: " + service.PriorityBadge(t.Priority).Text)
	}
	if a := assigneeName(t, users); a != "" {
		writeLn("- Assignee: " + a)
	}
	if t.DueDate != nil {
		writeLn("- Due: " + t.DueDate.Format("2006-01-02"))
	}
	writeLn("- Created: " + t.CreatedAt.UTC().Format(time.RFC3339))
	writeLn("- Updated: " + t.UpdatedAt.UTC().Format(time.RFC3339))

	if desc := strings.TrimSpace(t.Description); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}

	if len(d.Comments) > 0 {
		writeLn("")
		writeLn("## Comments")
		writeLn("")
		for _, c := range d.Comments {
			writeLn(fmt.Sprintf("### %s (%s)", c.Author.DisplayName(), c.CreatedAt.UTC().Format(time.RFC3339)))
			writeLn("")
			body := strings.TrimSpace(c.Body)
			if body == "" {
				body = "(empty)"
			}
			writeLn(body)
			writeLn("")
		}
	}

	if opt.IncludeActivity && len(d.Activities) > 0 {
		writeLn("")
		writeLn("## Activity")
		writeLn("")
		for _, a := range d.Activities {
			writeLn(fmt.Sprintf("- %s %s %s", a.CreatedAt.UTC().Format(time.RFC3339), a.Actor.DisplayName(), a.Action))
		}
	}
	return buf.String()
}

// RenderBoardIndexMarkdown lists every exported task under its column,
// linking to the per-task files WriteBoard produces.
func RenderBoardIndexMarkdown(b *pages.Board, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn(fmt.Sprintf("# %s (%d)", strings.TrimSpace(b.Board.Name), b.Board.ID))
	writeLn("")
	if desc := strings.TrimSpace(b.Board.Description); desc != "" {
		writeLn(desc)
		writeLn("")
	}

	for _, col := range b.Columns {
		tasks := exported(col.Tasks, opt)
		writeLn(fmt.Sprintf("## %s (%d)", strings.TrimSpace(col.List.Name), len(tasks)))
		writeLn("")
		if len(tasks) == 0 {
			writeLn("_empty_")
			writeLn("")
			continue
		}
		for _, d := range tasks {
			line := fmt.Sprintf("- [%s](tasks/%d.md)", strings.TrimSpace(d.Task.Title), d.Task.ID)
			if d.Task.Status != "" {
				line += " (" + service.StatusBadge(d.Task.Status).Text + ")"
			}
			if a := assigneeName(d.Task, b.Users); a != "" {
				line += " @" + a
			}
			writeLn(line)
		}
		writeLn("")
	}
	return buf.String()
}

func exported(ts []pages.TaskDetail, opt RenderOptions) []pages.TaskDetail {
	if opt.IncludeDone {
		return ts
	}
	out := make([]pages.TaskDetail, 0, len(ts))
	for _, d := range ts {
		if d.Task.Status == model.TaskDone {
			continue
		}
		out = append(out, d)
	}
	return out
}

func assigneeName(t model.Task, users []model.User) string {
	if t.Assignee != nil {
		return t.Assignee.DisplayName()
	}
	if t.AssigneeID == nil {
		return ""
	}
	for _, u := range users {
		if u.ID == *t.AssigneeID {
			return u.DisplayName()
		}
	}
	return fmt.Sprintf("user %d", *t.AssigneeID)
}
