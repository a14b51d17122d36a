package regime

import (
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
)

// DefaultLookback is the moving-average window used when none is configured
const DefaultLookback = 200

// SlopeClassifier labels the market by the sign of the least-squares slope
// fitted to the most recent moving-average values
type SlopeClassifier struct {
	lookback int
}

// NewSlopeClassifier creates a new slope classifier. A non-positive lookback
// falls back to DefaultLookback.
func NewSlopeClassifier(lookback int) *SlopeClassifier {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &SlopeClassifier{lookback: lookback}
}

// GetLookback returns the moving-average window
func (sc *SlopeClassifier) GetLookback() int {
	return sc.lookback
}

// Classify returns bull for a positive slope, bear otherwise, and neutral
// when fewer than two moving-average values are defined
func (sc *SlopeClassifier) Classify(closes []float64) Label {
	ma := indicators.NewSMA(sc.lookback).Series(closes)

	recent := make([]float64, 0, sc.lookback)
	for i := len(ma) - 1; i >= 0 && len(recent) < sc.lookback; i-- {
		if indicators.IsDefined(ma[i]) {
			recent = append(recent, ma[i])
		}
	}
	reverse(recent)

	return labelForWindow(recent)
}

// ClassifyEach labels every prefix of closes. It computes the moving average
// once, which is what makes per-bar evaluation affordable on long histories.
func (sc *SlopeClassifier) ClassifyEach(closes []float64) []Label {
	ma := indicators.NewSMA(sc.lookback).Series(closes)
	labels := make([]Label, len(closes))

	defined := make([]float64, 0, len(ma))
	for i, v := range ma {
		if indicators.IsDefined(v) {
			defined = append(defined, v)
		}
		from := len(defined) - sc.lookback
		if from < 0 {
			from = 0
		}
		labels[i] = labelForWindow(defined[from:])
	}

	return labels
}

func labelForWindow(values []float64) Label {
	if len(values) < 2 {
		return Neutral
	}
	if indicators.LinearSlope(values) > 0 {
		return Bull
	}
	return Bear
}

func reverse(values []float64) {
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
}
