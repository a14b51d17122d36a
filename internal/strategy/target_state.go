package strategy

import (
	"math"

	"github.com/ducminhle1904/regime-backtester/internal/indicators"
)

// targetState is a sparse per-bar desired position: 1 long, 0 flat and NaN
// where no entry or exit condition fired
type targetState []float64

func newTargetState(n int) targetState {
	return targetState(indicators.NaNSeries(n))
}

func (ts targetState) long(i int) {
	ts[i] = 1
}

func (ts targetState) flat(i int) {
	ts[i] = 0
}

// signals forward-fills the sparse state, treats leading undefined bars as
// flat and emits the first difference. The first bar is always a hold.
func (ts targetState) signals() SignalSeries {
	out := make(SignalSeries, len(ts))

	prev := 0.0
	for i, v := range ts {
		state := prev
		if !math.IsNaN(v) {
			state = v
		}
		if i > 0 {
			out[i] = Signal(int(state - prev))
		}
		prev = state
	}

	return out
}
