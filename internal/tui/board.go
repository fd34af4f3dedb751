package tui

import (
	"fmt"
	"strings"

	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// boardCursor is the selected column and card. detail shows the selected
// task full-width instead of the columns.
type boardCursor struct {
	col    int
	row    int
	detail bool
}

var statusCycle = []model.TaskStatus{model.TaskTodo, model.TaskInProgress, model.TaskReview, model.TaskDone}

func nextStatus(s model.TaskStatus) model.TaskStatus {
	for i, st := range statusCycle {
		if st == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return model.TaskTodo
}

func (m appModel) boardPage() (*pages.Board, bool) {
	b, ok := m.page.(*pages.Board)
	return b, ok && b != nil
}

func (m appModel) selectedTask() (pages.TaskDetail, bool) {
	b, ok := m.boardPage()
	if !ok || m.board.col >= len(b.Columns) {
		return pages.TaskDetail{}, false
	}
	tasks := b.Columns[m.board.col].Tasks
	if m.board.row >= len(tasks) {
		return pages.TaskDetail{}, false
	}
	return tasks[m.board.row], true
}

// focusTask points the cursor at id, opening its detail. Unknown ids leave
// the cursor where it was.
func (c *boardCursor) focusTask(b *pages.Board, id int64) bool {
	for ci, col := range b.Columns {
		for ri, t := range col.Tasks {
			if t.Task.ID == id {
				c.col, c.row, c.detail = ci, ri, true
				return true
			}
		}
	}
	return false
}

// clamp keeps the cursor inside the board after a reload.
func (c *boardCursor) clamp(b *pages.Board) {
	if len(b.Columns) == 0 {
		*c = boardCursor{}
		return
	}
	c.col = min(max(c.col, 0), len(b.Columns)-1)
	n := len(b.Columns[c.col].Tasks)
	c.row = min(max(c.row, 0), max(n-1, 0))
	if n == 0 {
		c.detail = false
	}
}

func (m appModel) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b, ok := m.boardPage()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "h", "left":
		if !m.board.detail {
			m.board.col--
			m.board.row = 0
		}
	case "l", "right":
		if !m.board.detail {
			m.board.col++
			m.board.row = 0
		}
	case "k", "up":
		m.board.row--
	case "j", "down":
		m.board.row++
	case "enter":
		if _, ok := m.selectedTask(); ok {
			m.board.detail = !m.board.detail
		}
	case "n":
		if len(b.Columns) == 0 {
			return m, nil
		}
		return m.openModal(newTaskModal(b.Columns[m.board.col].List))
	case "N":
		return m.openModal(newListModal(b.Board.ID, len(b.Columns)))
	case "s":
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		next := nextStatus(t.Task.Status)
		svc, ctx := m.env.svc, m.env.ctx
		return m, func() tea.Msg {
			_, err := svc.Tasks.Update(ctx, t.Task.ID, service.TaskPatch{"status": next})
			return actionDoneMsg{ok: fmt.Sprintf("%s is now %s.", t.Task.Title, service.StatusBadge(next).Text), err: err, reload: true}
		}
	case "t":
		if t, ok := m.selectedTask(); ok {
			return m, m.startTimer(t.Task)
		}
	case "c":
		if _, ok := m.selectedTask(); ok {
			return m.startComposing()
		}
	case "v":
		return m, m.navigate(fmt.Sprintf("/time?board=%d", b.Board.ID), true)
	}
	m.board.clamp(b)
	return m, nil
}

const columnMinWidth = 26

func (m appModel) viewBoard(height int) string {
	b, ok := m.boardPage()
	if !ok {
		return ""
	}
	title := styleHeading().Render(b.Board.Name)
	if b.Board.Description != "" {
		title += "  " + styleMuted().Render(truncate(b.Board.Description, max(0, m.width-lipgloss.Width(b.Board.Name)-4)))
	}
	if m.board.detail {
		if t, ok := m.selectedTask(); ok {
			return title + "\n" + normalizePane(m.viewTaskDetail(t, b.Users), m.width, height-1)
		}
	}
	if len(b.Columns) == 0 {
		return title + "\n\n" + styleMuted().Render("This board has no lists yet. Press N to add one.")
	}

	// Scroll horizontally so the selected column stays visible.
	perScreen := max(1, m.width/columnMinWidth)
	first := 0
	if m.board.col >= perScreen {
		first = m.board.col - perScreen + 1
	}
	last := min(len(b.Columns), first+perScreen)
	colW := m.width / (last - first)

	cols := make([]string, 0, last-first)
	for ci := first; ci < last; ci++ {
		cols = append(cols, m.viewColumn(b.Columns[ci], ci == m.board.col, colW, height-1))
	}
	return title + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m appModel) viewColumn(c pages.Column, focused bool, width, height int) string {
	head := fmt.Sprintf("%s (%d)", c.List.Name, len(c.Tasks))
	hs := styleHeading()
	if focused {
		hs = hs.Foreground(colorAccent)
	}
	lines := []string{hs.Render(truncate(head, width-2))}

	cardW := max(8, width-2)
	for ri, t := range c.Tasks {
		selected := focused && ri == m.board.row
		lines = append(lines, m.viewCard(t.Task, selected, cardW))
	}
	if len(c.Tasks) == 0 {
		lines = append(lines, styleMuted().Render("  empty"))
	}
	return normalizePane(strings.Join(lines, "\n"), width, height)
}

func (m appModel) viewCard(t model.Task, selected bool, width int) string {
	border := colorCardBorder
	if selected {
		border = colorFocusEdge
	}
	meta := badgeLine(badge(service.PriorityBadge(t.Priority)), badge(service.StatusBadge(t.Status)))
	if t.Assignee != nil {
		meta += " " + styleMuted().Render("@"+t.Assignee.Username)
	}
	if t.DueDate != nil {
		meta += " " + styleMuted().Render(t.DueDate.Format("Jan 2"))
	}
	if m.timer != nil && m.timer.TaskID == t.ID {
		meta += " " + glyphRunning()
	}
	st := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(width - 2)
	if selected {
		st = st.Background(colorSurfaceBg).Foreground(colorSurfaceFg)
	}
	return st.Render(truncate(t.Title, width-2) + "\n" + truncate(meta, width-2))
}

func (m appModel) viewTaskDetail(d pages.TaskDetail, users []model.User) string {
	t := d.Task
	w := max(20, m.width-2)
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(t.Title) + "\n")
	b.WriteString(badgeLine(badge(service.StatusBadge(t.Status)), badge(service.PriorityBadge(t.Priority))))

	assignee := "unassigned"
	if t.Assignee != nil {
		assignee = t.Assignee.DisplayName()
	} else if t.AssigneeID != nil {
		for _, u := range users {
			if u.ID == *t.AssigneeID {
				assignee = u.DisplayName()
			}
		}
	}
	b.WriteString("  " + styleMuted().Render(assignee))
	if t.DueDate != nil {
		b.WriteString("  " + styleMuted().Render("due "+humanize.Time(*t.DueDate)))
	}
	b.WriteString("\n\n")

	if desc := renderMarkdown(t.Description, w); desc != "" {
		b.WriteString(desc + "\n\n")
	} else {
		b.WriteString(styleMuted().Render("No description.") + "\n\n")
	}

	b.WriteString(styleHeading().Render(fmt.Sprintf("Comments (%d)", len(d.Comments))) + "\n")
	for _, c := range d.Comments {
		b.WriteString(fmt.Sprintf("%s %s  %s\n", glyphBullet(), lipgloss.NewStyle().Bold(true).Render(c.Author.DisplayName()), styleMuted().Render(humanize.Time(c.CreatedAt))))
		b.WriteString(renderMarkdown(c.Body, w-2) + "\n")
	}
	if len(d.Activities) > 0 {
		b.WriteString("\n" + styleHeading().Render("Activity") + "\n")
		for _, a := range d.Activities {
			b.WriteString(styleMuted().Render(fmt.Sprintf("%s %s %s  %s", glyphArrow(), a.Actor.DisplayName(), a.Action, humanize.Time(a.CreatedAt))) + "\n")
		}
	}
	return b.String()
}
