package indicators

import "math"

// LinearSlope fits y = m*x + c by least squares over x = 0..n-1 and returns m.
// Fewer than two points, or any undefined value, yields NaN.
func LinearSlope(ys []float64) float64 {
	n := len(ys)
	if n < 2 || !windowDefined(ys) {
		return math.NaN()
	}

	meanX := float64(n-1) / 2.0
	meanY := 0.0
	for _, y := range ys {
		meanY += y
	}
	meanY /= float64(n)

	num := 0.0
	den := 0.0
	for i, y := range ys {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}

	return num / den
}

// RollingSlope returns the least-squares slope of every trailing window.
// Windows that are incomplete or contain an undefined value yield NaN.
func RollingSlope(values []float64, window int) []float64 {
	out := NaNSeries(len(values))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = LinearSlope(values[i-window+1 : i+1])
	}
	return out
}

// RollingMin returns the trailing minimum over window values
func RollingMin(values []float64, window int) []float64 {
	out := NaNSeries(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if !windowDefined(w) {
			continue
		}
		m := w[0]
		for _, v := range w[1:] {
			if v < m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

// CrossedAbove reports, per bar, whether fast moved from <= slow on the
// previous bar to > slow on this bar
func CrossedAbove(fast, slow []float64) []bool {
	out := make([]bool, len(fast))
	for i := 1; i < len(fast) && i < len(slow); i++ {
		if !IsDefined(fast[i]) || !IsDefined(slow[i]) || !IsDefined(fast[i-1]) || !IsDefined(slow[i-1]) {
			continue
		}
		out[i] = fast[i] > slow[i] && fast[i-1] <= slow[i-1]
	}
	return out
}
