package strategy

import (
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// SignalGenerator turns a market dataset into a bar-aligned signal series.
// Implementations must not mutate the dataset and must return one signal per bar.
type SignalGenerator interface {
	// Generate computes the signal series for the whole dataset
	Generate(ds *types.Dataset) (SignalSeries, error)

	// Name returns the registry name of the strategy
	Name() string
}

// Signal is a directional state change aligned to a bar
type Signal int

const (
	SignalExit  Signal = -1
	SignalHold  Signal = 0
	SignalEnter Signal = 1
)

func (s Signal) String() string {
	switch s {
	case SignalEnter:
		return "ENTER"
	case SignalExit:
		return "EXIT"
	case SignalHold:
		return "HOLD"
	default:
		return "UNKNOWN"
	}
}

// SignalSeries holds one signal per bar
type SignalSeries []Signal

// Mass returns the total absolute signal value, i.e. the number of state changes
func (s SignalSeries) Mass() int {
	total := 0
	for _, v := range s {
		if v < 0 {
			total -= int(v)
		} else {
			total += int(v)
		}
	}
	return total
}

// Indices returns the bar indices where the signal equals want
func (s SignalSeries) Indices(want Signal) []int {
	var out []int
	for i, v := range s {
		if v == want {
			out = append(out, i)
		}
	}
	return out
}
