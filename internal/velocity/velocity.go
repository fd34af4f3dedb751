// Package velocity computes sprint velocity statistics and draws them as a
// terminal bar chart.
package velocity

import (
	"teamboard-cli/internal/model"
)

type Classification string

const (
	Improving Classification = "improving"
	Declining Classification = "declining"
	Stable    Classification = "stable"

	// Window is how many periods make up "recent" and "prior".
	Window    = 3
	Threshold = 0.10
)

type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At is the trend value at period index x.
func (t Trend) At(x int) float64 { return t.Intercept + t.Slope*float64(x) }

type Analysis struct {
	Points         int            `json:"points"`
	MeanCompleted  float64        `json:"mean_completed"`
	MeanPlanned    float64        `json:"mean_planned"`
	HasTrend       bool           `json:"has_trend"`
	Trend          Trend          `json:"trend"`
	Classification Classification `json:"classification"`
	RecentMean     float64        `json:"recent_mean"`
	PriorMean      float64        `json:"prior_mean"`
}

func Analyze(points []model.VelocityPoint) Analysis {
	a := Analysis{Points: len(points), Classification: Stable}
	if len(points) == 0 {
		return a
	}
	completed := make([]float64, len(points))
	planned := make([]float64, len(points))
	for i, p := range points {
		completed[i] = p.CompletedPoints
		planned[i] = p.PlannedPoints
	}
	a.MeanCompleted = mean(completed)
	a.MeanPlanned = mean(planned)
	if tr, ok := LeastSquares(completed); ok {
		a.HasTrend, a.Trend = true, tr
	}
	a.Classification, a.RecentMean, a.PriorMean = Classify(completed)
	return a
}

// LeastSquares fits y = intercept + slope*x over x = 0..n-1. It needs at least
// two points.
func LeastSquares(ys []float64) (Trend, bool) {
	n := float64(len(ys))
	if len(ys) < 2 {
		return Trend{}, false
	}
	var sx, sy, sxy, sxx float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return Trend{}, false
	}
	slope := (n*sxy - sx*sy) / den
	return Trend{Slope: slope, Intercept: (sy - slope*sx) / n}, true
}

// Classify compares the mean of the last Window values with the mean of the
// Window before them. With no prior values the series is stable; a zero prior
// mean counts as improving when anything was completed since.
func Classify(completed []float64) (c Classification, recent, prior float64) {
	n := len(completed)
	if n == 0 {
		return Stable, 0, 0
	}
	split := n - Window
	if split < 0 {
		split = 0
	}
	recentVals := completed[split:]
	start := split - Window
	if start < 0 {
		start = 0
	}
	priorVals := completed[start:split]
	recent = mean(recentVals)
	if len(priorVals) == 0 {
		return Stable, recent, 0
	}
	prior = mean(priorVals)
	if prior == 0 {
		if recent > 0 {
			return Improving, recent, prior
		}
		return Stable, recent, prior
	}
	change := (recent - prior) / prior
	switch {
	case change > Threshold:
		return Improving, recent, prior
	case change < -Threshold:
		return Declining, recent, prior
	}
	return Stable, recent, prior
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
