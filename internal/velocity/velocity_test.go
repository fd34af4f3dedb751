package velocity

import (
	"strings"
	"testing"

	"teamboard-cli/internal/model"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(completed ...float64) []model.VelocityPoint {
	out := make([]model.VelocityPoint, len(completed))
	for i, c := range completed {
		out[i] = model.VelocityPoint{Period: "S" + string(rune('1'+i)), PlannedPoints: c + 2, CompletedPoints: c}
	}
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		want Classification
	}{
		{"improving above threshold", []float64{10, 10, 10, 12, 12, 12}, Improving},
		{"exactly ten percent is stable", []float64{10, 10, 10, 11, 11, 11}, Stable},
		{"declining", []float64{20, 20, 20, 10, 10, 10}, Declining},
		{"only recent window", []float64{1, 5, 9}, Stable},
		{"short prior window", []float64{4, 8, 8, 8}, Improving},
		{"zero prior, recent work", []float64{0, 0, 0, 1, 0, 0}, Improving},
		{"zero prior, no work", []float64{0, 0, 0, 0, 0, 0}, Stable},
		{"uses last six only", []float64{100, 100, 10, 10, 10, 10, 10, 10}, Stable},
		{"empty", nil, Stable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _, _ := Classify(tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLeastSquares(t *testing.T) {
	_, ok := LeastSquares([]float64{5})
	assert.False(t, ok)

	tr, ok := LeastSquares([]float64{1, 3, 5, 7})
	require.True(t, ok)
	assert.InDelta(t, 2.0, tr.Slope, 1e-9)
	assert.InDelta(t, 1.0, tr.Intercept, 1e-9)
	assert.InDelta(t, 7.0, tr.At(3), 1e-9)
}

func TestAnalyze(t *testing.T) {
	a := Analyze(series(8, 10, 12))
	assert.Equal(t, 3, a.Points)
	assert.InDelta(t, 10.0, a.MeanCompleted, 1e-9)
	assert.InDelta(t, 12.0, a.MeanPlanned, 1e-9)
	assert.True(t, a.HasTrend)
	assert.InDelta(t, 2.0, a.Trend.Slope, 1e-9)
	assert.Equal(t, Stable, a.Classification)

	single := Analyze(series(4))
	assert.False(t, single.HasTrend)
}

func TestRender(t *testing.T) {
	out := ansi.Strip(Render(series(3, 6, 9, 12), 40, 8))
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 10)
	assert.Contains(t, out, glyphBar)
	assert.Contains(t, out, glyphMean)
	assert.Contains(t, out, glyphTrend)
	assert.Contains(t, out, "S1")
	assert.Contains(t, out, "improving")
	assert.Contains(t, out, "trend +3.00/period")

	noTrend := ansi.Strip(Render(series(5), 20, 6))
	assert.NotContains(t, noTrend, "trend")

	assert.Equal(t, "No velocity data yet.", ansi.Strip(Render(nil, 40, 8)))
}
