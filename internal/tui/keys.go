package tui

import (
	"context"
	"errors"

	"teamboard-cli/internal/forms"
	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
	"teamboard-cli/internal/redirect"
	"teamboard-cli/internal/timetrack"

	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch {
	case m.modal != nil:
		return m.handleModalKey(msg)
	case m.route.kind == routeLogin:
		return m.handleLoginKey(msg)
	case m.composing:
		return m.handleComposerKey(msg)
	case m.rows.SettingFilter():
		var cmd tea.Cmd
		m.rows, cmd = m.rows.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		return m, m.load()
	case "esc", "backspace":
		return m.back()
	case "L":
		a, ctx := m.env.auth, m.env.ctx
		return m, func() tea.Msg {
			a.Logout(ctx)
			return loggedOutMsg{}
		}
	}
	for _, n := range navKeys {
		if msg.String() == n.key {
			return m, m.navigate(n.path, true)
		}
	}

	switch m.route.kind {
	case routeBoard:
		return m.handleBoardKey(msg)
	case routeDashboard:
		switch msg.String() {
		case "n":
			return m.openModal(newBoardModal(nil))
		case "p":
			return m.openModal(newProjectModal())
		case "t":
			return m.openModal(newTeamModal())
		}
	case routeProject:
		if msg.String() == "n" {
			id := m.route.id
			return m.openModal(newBoardModal(&id))
		}
	case routeNotifications:
		switch msg.String() {
		case "enter":
			if r, ok := selectedRow(m.rows); ok {
				return m, m.openNotification(r.id)
			}
			return m, nil
		case "a":
			svc, ctx := m.env.svc, m.env.ctx
			return m, func() tea.Msg {
				return actionDoneMsg{ok: "All notifications marked read.", err: svc.Notifications.MarkAllRead(ctx), reload: true}
			}
		}
	case routeMessages:
		switch msg.String() {
		case "enter":
			if r, ok := selectedRow(m.rows); ok && r.kind == rowConversation {
				return m, m.navigate(conversationPath(r.id), false)
			}
			return m, nil
		case "c":
			if m.route.queryID("open") != 0 {
				return m.startComposing()
			}
		case "n":
			return m.openModal(newConversationModal())
		}
	case routeMembers:
		switch msg.String() {
		case "n":
			return m.openModal(newTeamModal())
		case "e":
			if t, ok := m.selectedTeam(); ok {
				return m.openModal(editTeamModal(t))
			}
		}
	case routeDiscover:
		if r, ok := selectedRow(m.rows); ok && r.kind == rowTeam {
			if cmd := m.discoverAction(msg.String(), r.id); cmd != nil {
				return m, cmd
			}
		}
	case routeAdmin:
		switch msg.String() {
		case "n":
			return m.openModal(newRoleModal())
		case "f":
			return m.openModal(newFieldModal())
		case "t":
			return m.openModal(newTeamModal())
		}
	case routeTime:
		switch msg.String() {
		case "p":
			return m, m.toggleTimer()
		case "x":
			return m, m.stopTimer()
		case "d":
			if r, ok := selectedRow(m.rows); ok {
				svc, ctx, id := m.env.svc, m.env.ctx, r.id
				return m, func() tea.Msg {
					return actionDoneMsg{ok: "Time entry deleted.", err: svc.Time.DeleteEntry(ctx, id), reload: true}
				}
			}
		}
	}

	if msg.String() == "enter" {
		r, ok := selectedRow(m.rows)
		switch {
		case !ok:
		case r.target != "":
			return m, m.navigate(r.target, true)
		case r.kind == rowTask:
			return m, m.openTask(r.id)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.rows, cmd = m.rows.Update(msg)
	return m, cmd
}

func (m appModel) back() (tea.Model, tea.Cmd) {
	if m.route.kind == routeBoard && m.board.detail {
		m.board.detail = false
		return m, nil
	}
	if m.rows.IsFiltered() {
		m.rows.ResetFilter()
		return m, nil
	}
	if len(m.history) == 0 {
		return m, nil
	}
	prev := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	return m, m.navigate(prev.String(), false)
}

func (m appModel) openModal(f *formModal) (tea.Model, tea.Cmd) {
	m.modal = f
	return m, f.fields[0].input.Focus()
}

func (m appModel) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	md := m.modal
	if md.submitting {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.modal = nil
		return m, nil
	case "enter":
		if md.focus < len(md.fields)-1 {
			md.setFocus(md.focus + 1)
			return m, nil
		}
		return m, m.submitModal()
	case "ctrl+s":
		return m, m.submitModal()
	}
	return m, md.update(msg)
}

// submitModal validates locally and only sends when the fields pass.
func (m appModel) submitModal() tea.Cmd {
	md := m.modal
	f, err := md.form()
	if err != nil {
		md.showError(err)
		return nil
	}
	md.submitting = true
	md.errs, md.errMsg = nil, ""
	svc, ctx, saved := m.env.svc, m.env.ctx, md.saved
	return func() tea.Msg {
		_, err := forms.Run(ctx, f, svc, nil)
		return formDoneMsg{saved: saved, err: err}
	}
}

func (m appModel) startComposing() (tea.Model, tea.Cmd) {
	m.composing = true
	m.composer.Reset()
	return m, m.composer.Focus()
}

func (m appModel) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.composing = false
		m.composer.Blur()
		return m, nil
	case "ctrl+s":
		f := &forms.Reply{Body: m.composer.Value()}
		if m.route.kind == routeBoard {
			t, ok := m.selectedTask()
			if !ok {
				return m, nil
			}
			f.TaskID = t.Task.ID
		} else {
			f.ConversationID = m.route.queryID("open")
		}
		if err := f.Validate(); err != nil {
			return m.addToast(redirect.Toast{Message: err.Error(), Level: "warning"})
		}
		svc, ctx := m.env.svc, m.env.ctx
		return m, func() tea.Msg {
			_, err := forms.Run(ctx, f, svc, nil)
			return actionDoneMsg{err: err, reload: err == nil}
		}
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// sendNavigator carries a redirect outcome into the program as messages.
type sendNavigator struct{ send func(tea.Msg) }

func (n sendNavigator) Toast(t redirect.Toast) { n.send(toastMsg{t}) }
func (n sendNavigator) Navigate(target string) { n.send(navigateMsg{to: target, push: true}) }

// openNotification marks n read, then shows any toast, waits out the
// redirect delay and navigates.
func (m appModel) openNotification(id int64) tea.Cmd {
	page, ok := m.page.(*pages.Notifications)
	if !ok {
		return nil
	}
	var n *model.Notification
	for i := range page.Items {
		if page.Items[i].ID == id {
			n = &page.Items[i]
		}
	}
	if n == nil {
		return nil
	}
	e, note := m.env, *n
	return func() tea.Msg {
		if !note.IsRead {
			if err := e.svc.Notifications.MarkRead(e.ctx, note.ID); err != nil {
				e.log.Warn("could not mark notification read", "notification_id", note.ID, "err", err)
			}
		}
		if !redirect.CanRedirect(note) {
			return actionDoneMsg{ok: "Marked read.", reload: true}
		}
		o := e.resolver.Redirect(e.ctx, note)
		if e.send == nil {
			return navigateMsg{to: o.Target, push: true}
		}
		if err := redirect.Apply(e.ctx, o, sendNavigator{send: e.send}); err != nil && !errors.Is(err, context.Canceled) {
			e.log.Warn("notification redirect interrupted", "err", err)
		}
		return nil
	}
}

// openTask opens the board holding a task. It goes through the resolver so
// backends without the task-board endpoint still work.
func (m appModel) openTask(taskID int64) tea.Cmd {
	res, ctx := m.env.resolver, m.env.ctx
	return func() tea.Msg {
		target, err := res.Resolve(ctx, model.Notification{Type: "task_assigned", RelatedTaskID: &taskID})
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return navigateMsg{to: target, push: true}
	}
}

func (m appModel) discoverAction(key string, teamID int64) tea.Cmd {
	svc, ctx := m.env.svc, m.env.ctx
	switch key {
	case "j":
		return func() tea.Msg {
			_, err := svc.Teams.RequestJoin(ctx, teamID)
			return actionDoneMsg{ok: "Join request sent.", err: err, reload: true}
		}
	case "x":
		return func() tea.Msg {
			return actionDoneMsg{ok: "Join request withdrawn.", err: svc.Teams.CancelJoinRequest(ctx, teamID), reload: true}
		}
	case "i":
		return func() tea.Msg {
			_, err := svc.Teams.AcceptInvitation(ctx, teamID)
			return actionDoneMsg{ok: "Invitation accepted.", err: err, reload: true}
		}
	}
	return nil
}

func (m appModel) selectedTeam() (model.Team, bool) {
	page, ok := m.page.(*pages.Members)
	r, sel := selectedRow(m.rows)
	if !ok || !sel || r.kind != rowTeam {
		return model.Team{}, false
	}
	for _, t := range page.Teams {
		if t.Team.ID == r.id {
			return t.Team, true
		}
	}
	return model.Team{}, false
}

// toggleTimer pauses a running timer or resumes a paused one. Wrong-state
// requests are refused locally.
func (m appModel) toggleTimer() tea.Cmd {
	svc, ctx, cur := m.env.svc, m.env.ctx, m.timer
	switch timetrack.StateOf(cur) {
	case timetrack.Running:
		return func() tea.Msg {
			t, err := svc.Time.Pause(ctx)
			return timerMsg{timer: &t, note: "Timer paused.", err: err}
		}
	case timetrack.Paused:
		return func() tea.Msg {
			t, err := svc.Time.Resume(ctx)
			return timerMsg{timer: &t, note: "Timer resumed.", err: err}
		}
	}
	return func() tea.Msg { return timerMsg{timer: cur, err: timetrack.ErrNoTimer} }
}

func (m appModel) stopTimer() tea.Cmd {
	svc, ctx, cur := m.env.svc, m.env.ctx, m.timer
	if err := timetrack.CanStop(cur); err != nil {
		return func() tea.Msg { return timerMsg{timer: cur, err: err} }
	}
	return func() tea.Msg {
		e, err := svc.Time.Stop(ctx)
		if err != nil {
			return timerMsg{timer: cur, err: err}
		}
		return timerMsg{note: "Logged " + timetrack.FormatDuration(durationOf(e)) + "."}
	}
}

func (m appModel) startTimer(task model.Task) tea.Cmd {
	svc, ctx, cur := m.env.svc, m.env.ctx, m.timer
	if err := timetrack.CanStart(cur); err != nil {
		return func() tea.Msg { return timerMsg{timer: cur, err: err} }
	}
	return func() tea.Msg {
		t, err := svc.Time.Start(ctx, task.ID, "")
		if err != nil {
			return timerMsg{timer: cur, err: err}
		}
		return timerMsg{timer: &t, note: "Timer started on " + task.Title + "."}
	}
}
