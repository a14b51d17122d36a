package indicators

import "math"

// SeriesIndicator turns an input series into an aligned output series.
// Output[i] depends only on input[0..i]; NaN marks bars where the indicator
// is not yet defined.
type SeriesIndicator interface {
	Series(values []float64) []float64
	GetName() string
	GetRequiredPeriods() int
}

// NaNSeries returns a series of n NaN values
func NaNSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// IsDefined reports whether v is a usable (finite) value
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// windowDefined reports whether every value in window is defined
func windowDefined(window []float64) bool {
	for _, v := range window {
		if !IsDefined(v) {
			return false
		}
	}
	return true
}
