package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
)

type rowKind int

const (
	rowHeading rowKind = iota
	rowLink
	rowNotification
	rowConversation
	rowTeam
	rowTask
	rowInfo
)

// row is one selectable line in a list-backed view. Enter follows target when
// set; otherwise the view decides from kind and id.
type row struct {
	kind   rowKind
	id     int64
	title  string
	detail string
	target string
}

func (r row) FilterValue() string { return r.title }
func (r row) Title() string       { return r.title }
func (r row) Description() string { return r.detail }

func heading(s string) row { return row{kind: rowHeading, title: s} }

// rowDelegate draws one row per line: title on the left, detail right-aligned.
type rowDelegate struct{}

func (rowDelegate) Height() int                             { return 1 }
func (rowDelegate) Spacing() int                            { return 0 }
func (rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	r, ok := item.(row)
	width := m.Width()
	if !ok || width < 4 {
		return
	}
	if r.kind == rowHeading {
		fmt.Fprint(w, fitLine(styleHeading().Render(r.title), width))
		return
	}

	prefix := "  "
	if index == m.Index() {
		prefix = glyphCursor() + " "
	}
	left := prefix + r.title
	right := r.detail
	if right != "" {
		gap := width - xansi.StringWidth(left) - xansi.StringWidth(right) - 1
		if gap < 1 {
			right = truncate(right, max(0, width/3))
			gap = width - xansi.StringWidth(left) - xansi.StringWidth(right) - 1
		}
		if gap >= 1 {
			left += strings.Repeat(" ", gap) + styleMuted().Render(right)
		}
	}
	line := fitLine(left, width)
	if index == m.Index() {
		line = styleSelected().Render(xansi.Strip(line))
	}
	fmt.Fprint(w, line)
}

func newRowList() list.Model {
	l := list.New(nil, rowDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = styleMuted()
	return l
}

func toItems(rows []row) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = r
	}
	return items
}

// selectedRow returns the highlighted row, skipping headings.
func selectedRow(l list.Model) (row, bool) {
	r, ok := l.SelectedItem().(row)
	if !ok || r.kind == rowHeading || r.kind == rowInfo {
		return row{}, false
	}
	return r, true
}

// firstSelectable moves the cursor off a leading heading.
func firstSelectable(l *list.Model) {
	for i, it := range l.Items() {
		if r, ok := it.(row); ok && r.kind != rowHeading && r.kind != rowInfo {
			l.Select(i)
			return
		}
	}
}

func badgeLine(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
