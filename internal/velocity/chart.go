package velocity

import (
	"fmt"
	"math"
	"strings"

	"teamboard-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Chart colors adapt to light and dark terminals.
var (
	ColorPlanned   lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "250", Dark: "240"}
	ColorCompleted lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "27", Dark: "39"}
	ColorMean      lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "166", Dark: "214"}
	ColorTrend     lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	ColorAxis      lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "244", Dark: "244"}
)

const (
	glyphBar   = "█"
	glyphMean  = "╌"
	glyphTrend = "•"
	axisWidth  = 6
	minHeight  = 4
)

type cell struct {
	glyph string
	color lipgloss.TerminalColor
}

// Render draws grouped planned/completed bars for each period with a dashed
// mean line and, when there are at least two points, trend markers over the
// completed series. width and height bound the plot area, legend excluded.
func Render(points []model.VelocityPoint, width, height int) string {
	if len(points) == 0 {
		return lipgloss.NewStyle().Foreground(ColorAxis).Render("No velocity data yet.")
	}
	if height < minHeight {
		height = minHeight
	}
	a := Analyze(points)

	// Each period is two bars plus a gap.
	slot := 3
	if need := axisWidth + slot*len(points); width < need {
		width = need
	}
	if extra := (width - axisWidth) / len(points); extra > slot {
		slot = extra
		if slot > 8 {
			slot = 8
		}
	}
	barW := (slot - 1) / 2

	top := a.MeanCompleted
	for _, p := range points {
		top = math.Max(top, math.Max(p.PlannedPoints, p.CompletedPoints))
	}
	if a.HasTrend {
		top = math.Max(top, math.Max(a.Trend.At(0), a.Trend.At(len(points)-1)))
	}
	if top <= 0 {
		top = 1
	}
	rowOf := func(v float64) int {
		r := int(math.Round(v / top * float64(height)))
		if r < 0 {
			r = 0
		}
		if r > height {
			r = height
		}
		return r
	}

	plotW := slot * len(points)
	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, plotW)
	}
	set := func(level, x int, c cell) {
		if level < 1 || level > height || x < 0 || x >= plotW {
			return
		}
		grid[height-level][x] = c
	}

	meanRow := rowOf(a.MeanCompleted)
	for x := 0; x < plotW; x++ {
		if x%2 == 0 {
			set(meanRow, x, cell{glyphMean, ColorMean})
		}
	}
	for i, p := range points {
		x0 := i * slot
		for lvl := 1; lvl <= rowOf(p.PlannedPoints); lvl++ {
			for dx := 0; dx < barW; dx++ {
				set(lvl, x0+dx, cell{glyphBar, ColorPlanned})
			}
		}
		for lvl := 1; lvl <= rowOf(p.CompletedPoints); lvl++ {
			for dx := 0; dx < barW; dx++ {
				set(lvl, x0+barW+dx, cell{glyphBar, ColorCompleted})
			}
		}
		if a.HasTrend {
			set(rowOf(a.Trend.At(i)), x0+slot-1, cell{glyphTrend, ColorTrend})
		}
	}

	var b strings.Builder
	axis := lipgloss.NewStyle().Foreground(ColorAxis)
	for r, row := range grid {
		label := ""
		level := height - r
		if level == height || level == meanRow || level == 1 {
			label = fmt.Sprintf("%.0f", float64(level)/float64(height)*top)
		}
		b.WriteString(axis.Render(padLeft(label, axisWidth-1) + "│"))
		for _, c := range row {
			if c.glyph == "" {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(c.color).Render(c.glyph))
		}
		b.WriteByte('\n')
	}
	b.WriteString(axis.Render(strings.Repeat(" ", axisWidth-1) + "└" + strings.Repeat("─", plotW)))
	b.WriteByte('\n')

	labels := strings.Repeat(" ", axisWidth)
	for _, p := range points {
		labels += padRight(ansi.Truncate(p.Period, slot-1, ""), slot)
	}
	b.WriteString(axis.Render(strings.TrimRight(labels, " ")))
	b.WriteByte('\n')
	b.WriteString(Legend(a))
	return b.String()
}

// Legend is the one-line key plus the trend verdict.
func Legend(a Analysis) string {
	sw := func(c lipgloss.TerminalColor, glyph, text string) string {
		return lipgloss.NewStyle().Foreground(c).Render(glyph) + " " + text
	}
	parts := []string{
		sw(ColorPlanned, glyphBar, "planned"),
		sw(ColorCompleted, glyphBar, "completed"),
		sw(ColorMean, glyphMean, fmt.Sprintf("mean %.1f", a.MeanCompleted)),
	}
	if a.HasTrend {
		parts = append(parts, sw(ColorTrend, glyphTrend, fmt.Sprintf("trend %+.2f/period", a.Trend.Slope)))
	}
	parts = append(parts, classificationStyle(a.Classification).Render(string(a.Classification)))
	return strings.Join(parts, "  ")
}

func classificationStyle(c Classification) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	switch c {
	case Improving:
		return st.Foreground(ColorTrend)
	case Declining:
		return st.Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"})
	}
	return st.Foreground(ColorAxis)
}

func padLeft(s string, w int) string {
	if n := ansi.StringWidth(s); n < w {
		return strings.Repeat(" ", w-n) + s
	}
	return s
}

func padRight(s string, w int) string {
	if n := ansi.StringWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
