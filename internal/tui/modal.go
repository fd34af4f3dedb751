package tui

import (
	"errors"
	"strings"

	"teamboard-cli/internal/forms"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func modalWidth(width int) int {
	w := width - 8
	if w > 64 {
		w = 64
	}
	if w < 30 {
		w = 30
	}
	return w
}

func renderModalBox(width int, title, content string) string {
	w := modalWidth(width)
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccentFg).
		Background(colorAccent).
		Padding(0, 1).
		Width(w - 2).
		Render(title)
	body := lipgloss.NewStyle().Padding(1, 1).Width(w - 2).Render(content)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorFocusEdge).
		Render(lipgloss.JoinVertical(lipgloss.Left, head, body))
}

type modalField struct {
	key   string
	label string
	input textinput.Model
}

// formModal collects text fields and turns them into a forms.Form on submit.
// Validation errors are shown next to their fields and nothing is sent.
type formModal struct {
	title  string
	fields []modalField
	focus  int
	build  func(vals map[string]string) (forms.Form, error)
	saved  string

	errs       map[string]string
	errMsg     string
	submitting bool
}

type fieldSpec struct {
	key, label, placeholder, value string
}

func newFormModal(title, saved string, specs []fieldSpec, build func(map[string]string) (forms.Form, error)) *formModal {
	m := &formModal{title: title, saved: saved, build: build}
	for _, s := range specs {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = s.placeholder
		in.CharLimit = 500
		in.SetValue(s.value)
		m.fields = append(m.fields, modalField{key: s.key, label: s.label, input: in})
	}
	m.setFocus(0)
	return m
}

func (m *formModal) setFocus(i int) {
	if len(m.fields) == 0 {
		return
	}
	i = (i + len(m.fields)) % len(m.fields)
	for j := range m.fields {
		if j == i {
			m.fields[j].input.Focus()
		} else {
			m.fields[j].input.Blur()
		}
	}
	m.focus = i
}

func (m *formModal) values() map[string]string {
	out := make(map[string]string, len(m.fields))
	for _, f := range m.fields {
		out[f.key] = f.input.Value()
	}
	return out
}

// form builds the form from the current inputs. Parse failures surface as
// field errors like any other validation failure.
func (m *formModal) form() (forms.Form, error) {
	f, err := m.build(m.values())
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// showError routes a validation error to its fields; anything else becomes
// the modal's general error line.
func (m *formModal) showError(err error) {
	m.submitting = false
	m.errs, m.errMsg = nil, ""
	var ve *forms.ValidationError
	if errors.As(err, &ve) {
		m.errs = ve.Fields
		return
	}
	m.errMsg = err.Error()
}

func (m *formModal) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		m.setFocus(m.focus + 1)
		return nil
	case "shift+tab", "up":
		m.setFocus(m.focus - 1)
		return nil
	}
	var cmd tea.Cmd
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	return cmd
}

func (m *formModal) view(width int) string {
	w := modalWidth(width) - 4
	var b strings.Builder
	for i, f := range m.fields {
		label := f.label
		if i == m.focus {
			label = lipgloss.NewStyle().Bold(true).Render(label)
		}
		b.WriteString(label + "\n")
		f.input.Width = w - 2
		b.WriteString(lipgloss.NewStyle().Background(colorControlBg).Width(w).Render(f.input.View()) + "\n")
		if e := m.errs[f.key]; e != "" {
			b.WriteString(styleError().Render(f.label+" "+e) + "\n")
		}
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(styleError().Width(w).Render(m.errMsg) + "\n\n")
	}
	help := "tab: next field   enter: save   esc: cancel"
	if m.submitting {
		help = "saving…"
	}
	b.WriteString(styleMuted().Width(w).Render(help))
	return renderModalBox(width, m.title, b.String())
}

// centered places box in the middle of a width x height screen.
func centered(box string, width, height int) string {
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "))
}
