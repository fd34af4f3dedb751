package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/service"
	"teamboard-cli/internal/timetrack"
	"teamboard-cli/internal/velocity"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

func conversationPath(id int64) string { return "/messages?open=" + strconv.FormatInt(id, 10) }

func durationOf(e model.TimeEntry) time.Duration { return time.Duration(e.DurationSeconds) * time.Second }

// applyPage rebuilds the list rows from the freshly loaded page. The
// returned command starts the clock when the page shows a running timer.
func (m *appModel) applyPage() tea.Cmd {
	var rows []row
	var clock tea.Cmd
	selected := int64(0)

	switch p := m.page.(type) {
	case *pages.Dashboard:
		clock = m.setTimer(p.Timer)
		rows = dashboardRows(p)
	case *pages.Notifications:
		rows = append(rows, heading(fmt.Sprintf("Notifications (%d unread)", p.Unread)))
		for _, n := range p.Items {
			rows = append(rows, notificationRow(n))
		}
		if len(p.Items) == 0 {
			rows = append(rows, row{kind: rowInfo, title: "You're all caught up."})
		}
	case *pages.Messages:
		rows = append(rows, heading("Conversations"))
		for _, c := range p.Conversations {
			rows = append(rows, row{kind: rowConversation, id: c.ID, title: conversationTitle(c), detail: humanize.Time(c.UpdatedAt)})
		}
		selected = p.Open
	case *pages.Members:
		for _, t := range p.Teams {
			rows = append(rows, row{kind: rowTeam, id: t.Team.ID, title: t.Team.Name, detail: fmt.Sprintf("%d members", len(t.Members))})
			if t.MembersErr != "" {
				rows = append(rows, row{kind: rowInfo, title: "    members unavailable: " + t.MembersErr})
			}
			for _, mem := range t.Members {
				rows = append(rows, row{kind: rowInfo, title: "    " + mem.User.DisplayName(), detail: badge(service.RoleBadge(mem.Role))})
			}
		}
		if len(p.Teams) == 0 {
			rows = append(rows, row{kind: rowInfo, title: "You are not on any team yet. Press 5 to discover teams."})
		}
	case *pages.Discover:
		rows = append(rows, heading("Teams"))
		for _, t := range p.Teams {
			rows = append(rows, row{kind: rowTeam, id: t.ID, title: t.Name, detail: teamState(t)})
		}
		selected = p.Selected
	case *projectPage:
		rows = append(rows, heading("Boards"))
		for _, b := range p.Boards {
			rows = append(rows, row{kind: rowLink, id: b.ID, title: b.Name, detail: b.Description, target: fmt.Sprintf("/boards/%d", b.ID)})
		}
		if len(p.Boards) == 0 {
			rows = append(rows, row{kind: rowInfo, title: "No boards yet. Press n to create one."})
		}
	case *pages.Time:
		clock = m.setTimer(p.Timer)
		rows = append(rows, heading("Entries"))
		for _, e := range p.Entries {
			rows = append(rows, row{kind: rowLink, id: e.ID, title: entryTitle(e), detail: timetrack.FormatDuration(durationOf(e))})
		}
	case *pages.Admin:
		rows = adminRows(p)
	case *pages.Board:
		if t := m.route.queryID("task"); t != 0 && m.board == (boardCursor{}) {
			m.board.focusTask(p, t)
		}
		m.board.clamp(p)
		return nil
	}

	m.rows.SetItems(toItems(rows))
	m.rows.Select(0)
	if selected != 0 {
		for i, r := range rows {
			if r.id == selected && r.kind != rowInfo && r.kind != rowHeading {
				m.rows.Select(i)
				return clock
			}
		}
	}
	firstSelectable(&m.rows)
	return clock
}

func dashboardRows(p *pages.Dashboard) []row {
	var rows []row
	if len(p.Overdue) > 0 {
		rows = append(rows, heading(fmt.Sprintf("Overdue (%d)", len(p.Overdue))))
		for _, t := range p.Overdue {
			rows = append(rows, taskRow(t))
		}
	}
	rows = append(rows, heading("My tasks"))
	for _, t := range p.MyTasks {
		rows = append(rows, taskRow(t))
	}
	if len(p.MyTasks) == 0 {
		rows = append(rows, row{kind: rowInfo, title: "Nothing assigned to you."})
	}
	rows = append(rows, heading("Boards"))
	for _, b := range p.Boards {
		rows = append(rows, row{kind: rowLink, id: b.ID, title: b.Name, detail: b.Description, target: fmt.Sprintf("/boards/%d", b.ID)})
	}
	rows = append(rows, heading("Projects"))
	for _, pr := range p.Projects {
		rows = append(rows, row{kind: rowLink, id: pr.ID, title: pr.Name, detail: pr.Description, target: fmt.Sprintf("/projects/%d", pr.ID)})
	}
	if p.Unread > 0 {
		rows = append(rows, heading("Inbox"))
		rows = append(rows, row{kind: rowLink, title: fmt.Sprintf("%d unread notifications", p.Unread), target: "/notifications"})
	}
	return rows
}

func taskRow(t model.Task) row {
	detail := badgeLine(badge(service.PriorityBadge(t.Priority)), badge(service.StatusBadge(t.Status)))
	if t.DueDate != nil {
		detail += " due " + humanize.Time(*t.DueDate)
	}
	return row{kind: rowTask, id: t.ID, title: t.Title, detail: detail}
}

func notificationRow(n model.Notification) row {
	mark := "  "
	if !n.IsRead {
		mark = glyphUnread() + " "
	}
	return row{
		kind:   rowNotification,
		id:     n.ID,
		title:  mark + n.Message,
		detail: badge(service.NotificationBadge(n.Type)) + " " + humanize.Time(n.CreatedAt),
	}
}

func conversationTitle(c model.Conversation) string {
	if c.Title != "" {
		return c.Title
	}
	names := make([]string, 0, len(c.Participants))
	for _, u := range c.Participants {
		names = append(names, u.DisplayName())
	}
	if len(names) == 0 {
		return fmt.Sprintf("Conversation %d", c.ID)
	}
	return strings.Join(names, ", ")
}

func teamState(t model.Team) string {
	switch {
	case t.IsMember:
		return "member"
	case t.HasPendingInvitation:
		return "invited (i to accept)"
	case t.HasPendingRequest:
		return "requested (x to withdraw)"
	}
	return fmt.Sprintf("%d members (j to join)", t.MemberCount)
}

func entryTitle(e model.TimeEntry) string {
	s := e.StartTime.Local().Format("Mon Jan 2 15:04")
	if e.Description != "" {
		s += "  " + e.Description
	}
	return fmt.Sprintf("#%d  %s", e.TaskID, s)
}

func adminRows(p *pages.Admin) []row {
	var rows []row
	rows = append(rows, heading(fmt.Sprintf("Users (%d)", len(p.Users))))
	for _, u := range p.Users {
		rows = append(rows, row{kind: rowLink, id: u.ID, title: u.DisplayName(), detail: badge(service.RoleBadge(u.Role))})
	}
	rows = append(rows, heading(fmt.Sprintf("Teams (%d)", len(p.Teams))))
	for _, t := range p.Teams {
		rows = append(rows, row{kind: rowLink, id: t.ID, title: t.Name, detail: fmt.Sprintf("%d members", t.MemberCount)})
	}
	rows = append(rows, heading(fmt.Sprintf("Roles (%d)", len(p.Roles))))
	for _, r := range p.Roles {
		detail := strings.Join(r.Permissions, ", ")
		if r.IsSystem {
			detail = "system  " + detail
		}
		rows = append(rows, row{kind: rowLink, id: r.ID, title: r.Name, detail: detail})
	}
	rows = append(rows, heading(fmt.Sprintf("Custom fields (%d)", len(p.Fields))))
	for _, f := range p.Fields {
		detail := badge(service.FieldTypeBadge(f.FieldType)) + " " + f.EntityType
		if f.Required {
			detail += " required"
		}
		rows = append(rows, row{kind: rowLink, id: f.ID, title: f.Name, detail: detail})
	}
	rows = append(rows, heading(fmt.Sprintf("Grants (%d)", len(p.Grants))))
	for _, g := range p.Grants {
		who := "everyone"
		switch {
		case g.RoleID != nil:
			who = fmt.Sprintf("role %d", *g.RoleID)
		case g.UserID != nil:
			who = fmt.Sprintf("user %d", *g.UserID)
		}
		rows = append(rows, row{kind: rowLink, id: g.ID, title: g.Permission, detail: who})
	}
	rows = append(rows, heading(fmt.Sprintf("Workflows (%d)", len(p.Workflows))))
	for _, w := range p.Workflows {
		state := "disabled"
		if w.Enabled {
			state = "enabled"
		}
		rows = append(rows, row{kind: rowLink, id: w.ID, title: w.Name, detail: w.Trigger + " " + state})
	}
	return rows
}

// View.

func (m appModel) View() string {
	if m.width == 0 {
		return ""
	}
	if m.route.kind == routeLogin {
		return m.viewLogin() + "\n" + m.viewToasts()
	}
	if m.modal != nil {
		return centered(m.modal.view(m.width), m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(m.viewHeader() + "\n")
	b.WriteString(hrule(m.width) + "\n")
	b.WriteString(normalizePane(m.viewBody(m.bodyHeight()), m.width, m.bodyHeight()) + "\n")
	if m.composing {
		b.WriteString(styleMuted().Render("ctrl+s: send   esc: cancel") + "\n")
		b.WriteString(m.composer.View() + "\n")
	}
	if t := m.viewToasts(); t != "" {
		b.WriteString(t + "\n")
	}
	b.WriteString(styleMuted().Render(truncate(m.help(), m.width)))
	return b.String()
}

func (m appModel) viewHeader() string {
	tabs := []string{lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("teamboard")}
	for _, n := range navKeys {
		label := n.key + " " + n.label
		if n.path == m.route.path() {
			tabs = append(tabs, styleSelected().Render(label))
		} else {
			tabs = append(tabs, styleMuted().Render(label))
		}
	}
	left := strings.Join(tabs, "  ")

	var right []string
	if s := m.timerClock(); s != "" {
		right = append(right, s)
	}
	if u := m.env.auth.CurrentUser(); u != nil {
		right = append(right, u.Username)
	}
	r := strings.Join(right, "  ")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 1 {
		return fitLine(left, m.width)
	}
	return left + strings.Repeat(" ", gap) + r
}

func (m appModel) timerClock() string {
	switch timetrack.StateOf(m.timer) {
	case timetrack.Running:
		return lipgloss.NewStyle().Foreground(colorSuccess).Render(glyphRunning() + " " + timetrack.FormatClock(timetrack.Elapsed(m.timer, m.now)))
	case timetrack.Paused:
		return lipgloss.NewStyle().Foreground(colorWarning).Render(glyphPaused() + " " + timetrack.FormatClock(timetrack.Elapsed(m.timer, m.now)))
	}
	return ""
}

func (m appModel) viewBody(height int) string {
	if m.loadErr != "" {
		return "\n" + styleError().Render(m.loadErr) + "\n\n" + styleMuted().Render("r: retry   esc: back")
	}
	if m.page == nil {
		if m.loading {
			return m.spinner.View() + " loading…"
		}
		return ""
	}
	switch m.route.kind {
	case routeBoard:
		return m.viewBoard(height)
	case routeMessages:
		return m.viewMessages(height)
	}

	top := m.viewTop()
	l := m.rows
	h := height
	if top != "" {
		h -= lipgloss.Height(top)
	}
	l.SetSize(m.width, max(3, h))
	if top == "" {
		return l.View()
	}
	return top + "\n" + l.View()
}

// viewTop is the non-list part above a view's rows.
func (m appModel) viewTop() string {
	switch p := m.page.(type) {
	case *pages.Dashboard:
		return styleHeading().Render("Welcome, "+p.User.DisplayName()) + "\n"
	case *projectPage:
		s := styleHeading().Render(p.Project.Name)
		if p.Project.Description != "" {
			s += "\n" + renderMarkdown(p.Project.Description, m.width-2)
		}
		return s + "\n"
	case *pages.Time:
		return m.viewTime(p)
	}
	return ""
}

func (m appModel) viewTime(p *pages.Time) string {
	var b strings.Builder
	switch timetrack.StateOf(m.timer) {
	case timetrack.Stopped:
		b.WriteString(styleMuted().Render("No timer running. Start one from a board with t.") + "\n")
	default:
		b.WriteString(fmt.Sprintf("%s  task #%d  %s\n", m.timerClock(), m.timer.TaskID, styleMuted().Render(m.timer.Description)))
	}

	b.WriteString("\n" + styleHeading().Render(fmt.Sprintf("This week %s to %s: %s", p.Sheet.StartDate, p.Sheet.EndDate, timetrack.FormatHours(p.Sheet.TotalSeconds))) + "\n")
	days := make([]string, 0, len(p.Sheet.ByDay))
	for d := range p.Sheet.ByDay {
		days = append(days, d)
	}
	sort.Strings(days)
	var cells []string
	for _, d := range days {
		label := d
		if t, err := time.Parse(time.DateOnly, d); err == nil {
			label = t.Format("Mon")
		}
		cells = append(cells, label+" "+timetrack.FormatHours(p.Sheet.ByDay[d]))
	}
	if len(cells) > 0 {
		b.WriteString(strings.Join(cells, "   ") + "\n")
	}

	if p.BoardID != 0 {
		b.WriteString("\n" + styleHeading().Render(fmt.Sprintf("Velocity, board %d", p.BoardID)) + "\n")
		b.WriteString(velocity.Render(p.Velocity, m.width-2, 8) + "\n")
	}
	return b.String()
}

func (m appModel) viewMessages(height int) string {
	p, ok := m.page.(*pages.Messages)
	if !ok {
		return ""
	}
	leftW := max(24, m.width/3)
	rightW := m.width - leftW - 1
	l := m.rows
	l.SetSize(leftW, height)
	left := normalizePane(l.View(), leftW, height)

	var thread string
	if p.Open == 0 {
		thread = styleMuted().Render("Select a conversation and press enter. n starts a new one.")
	} else {
		var b strings.Builder
		for _, msg := range p.Thread {
			b.WriteString(lipgloss.NewStyle().Bold(true).Render(msg.Sender.DisplayName()) + "  " + styleMuted().Render(humanize.Time(msg.CreatedAt)) + "\n")
			b.WriteString(renderMarkdown(msg.Body, rightW-2) + "\n\n")
		}
		if len(p.Thread) == 0 {
			b.WriteString(styleMuted().Render("No messages yet. Press c to write one."))
		}
		// Keep the newest messages in view.
		lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
		if len(lines) > height {
			lines = lines[len(lines)-height:]
		}
		thread = strings.Join(lines, "\n")
	}
	sep := lipgloss.NewStyle().Foreground(colorCardBorder).Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, normalizePane(thread, rightW, height))
}

func (m appModel) viewToasts() string {
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		st := lipgloss.NewStyle().Foreground(levelColor(t.Level)).Bold(true)
		lines = append(lines, st.Render(glyphBullet()+" "+truncate(t.Message, max(10, m.width-2))))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) help() string {
	common := "1-7: views   r: reload   esc: back   L: log out   q: quit"
	var local string
	switch m.route.kind {
	case routeDashboard:
		local = "enter: open   n: board   p: project   t: team"
	case routeNotifications:
		local = "enter: open   a: mark all read"
	case routeMessages:
		local = "enter: open   c: reply   n: new"
	case routeMembers:
		local = "n: new team   e: edit"
	case routeDiscover:
		local = "j: join   x: withdraw   i: accept invite"
	case routeProject:
		local = "enter: open board   n: new board"
	case routeBoard:
		if m.board.detail {
			local = "c: comment   s: status   t: timer   esc: close"
		} else {
			local = "hjkl: move   enter: details   n: task   N: list   s: status   t: timer   v: velocity"
		}
	case routeTime:
		local = "p: pause/resume   x: stop   d: delete entry"
	case routeAdmin:
		local = "n: role   f: custom field   t: team"
	}
	if local == "" {
		return common
	}
	return local + "   " + common
}
