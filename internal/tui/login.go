package tui

import (
	"strings"

	"teamboard-cli/internal/auth"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type loginForm struct {
	username   textinput.Model
	password   textinput.Model
	onPassword bool
	err        string
	submitting bool
}

func newLoginForm() loginForm {
	u := textinput.New()
	u.Prompt = ""
	u.Placeholder = "username"
	u.CharLimit = 100

	p := textinput.New()
	p.Prompt = ""
	p.Placeholder = "password"
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	p.CharLimit = 200

	return loginForm{username: u, password: p}
}

func (f *loginForm) setWidth(width int) {
	w := modalWidth(width) - 6
	f.username.Width = w
	f.password.Width = w
}

func (f *loginForm) focus() tea.Cmd {
	if f.onPassword {
		f.username.Blur()
		return f.password.Focus()
	}
	f.password.Blur()
	return f.username.Focus()
}

func (f *loginForm) reset() {
	f.username.SetValue("")
	f.password.SetValue("")
	f.onPassword = false
	f.err = ""
	f.submitting = false
}

func (f *loginForm) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.onPassword {
		f.password, cmd = f.password.Update(msg)
	} else {
		f.username, cmd = f.username.Update(msg)
	}
	return cmd
}

func (m appModel) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.submitting {
		return m, nil
	}
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.login.onPassword = !m.login.onPassword
		return m, m.login.focus()
	case "enter":
		if !m.login.onPassword {
			m.login.onPassword = true
			return m, m.login.focus()
		}
		creds := auth.Credentials{
			Username: strings.TrimSpace(m.login.username.Value()),
			Password: m.login.password.Value(),
		}
		if creds.Username == "" || creds.Password == "" {
			m.login.err = "Enter your username and password."
			return m, nil
		}
		m.login.err = ""
		m.login.submitting = true
		a, ctx := m.env.auth, m.env.ctx
		return m, func() tea.Msg { return loginDoneMsg{res: a.Login(ctx, creds)} }
	case "esc":
		return m, tea.Quit
	}
	return m, m.login.updateInputs(msg)
}

func (m appModel) viewLogin() string {
	f := m.login
	w := modalWidth(m.width) - 4
	field := func(label string, in textinput.Model, focused bool) string {
		l := label
		if focused {
			l = lipgloss.NewStyle().Bold(true).Render(label)
		}
		return l + "\n" + lipgloss.NewStyle().Background(colorControlBg).Width(w).Render(in.View())
	}
	parts := []string{
		styleMuted().Render("Sign in to " + m.env.cfg.BaseURL),
		"",
		field("Username", f.username, !f.onPassword),
		"",
		field("Password", f.password, f.onPassword),
		"",
	}
	switch {
	case f.submitting:
		parts = append(parts, styleMuted().Render("signing in…"))
	case f.err != "":
		parts = append(parts, styleError().Width(w).Render(f.err))
	}
	parts = append(parts, "", styleMuted().Render("tab: switch field   enter: sign in   esc: quit"))
	return centered(renderModalBox(m.width, "teamboard", strings.Join(parts, "\n")), m.width, m.height-2)
}
