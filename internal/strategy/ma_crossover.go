package strategy

import (
	"fmt"

	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// MACrossover is long while the short SMA is above the long SMA
type MACrossover struct {
	shortWindow int
	longWindow  int
}

// NewMACrossover creates a new moving-average crossover strategy
func NewMACrossover(shortWindow, longWindow int) (*MACrossover, error) {
	if err := requirePositive("short_window", shortWindow); err != nil {
		return nil, err
	}
	if err := requirePositive("long_window", longWindow); err != nil {
		return nil, err
	}
	if err := requireOrdered("short_window", shortWindow, "long_window", longWindow); err != nil {
		return nil, err
	}
	return &MACrossover{shortWindow: shortWindow, longWindow: longWindow}, nil
}

func newMACrossoverFromParams(params map[string]any) (SignalGenerator, error) {
	short, err := intParam(params, "short_window", 5)
	if err != nil {
		return nil, err
	}
	long, err := intParam(params, "long_window", 10)
	if err != nil {
		return nil, err
	}
	return NewMACrossover(short, long)
}

// Name returns the registry name
func (s *MACrossover) Name() string {
	return NameMACrossover
}

// String includes the window lengths
func (s *MACrossover) String() string {
	return fmt.Sprintf("%s(%d,%d)", NameMACrossover, s.shortWindow, s.longWindow)
}

// Generate emits +1 when the short SMA moves above the long SMA and -1 when it falls back
func (s *MACrossover) Generate(ds *types.Dataset) (SignalSeries, error) {
	if ds == nil {
		return nil, types.ErrEmptyDataset
	}

	closes := ds.Closes()
	shortMA := indicators.NewSMA(s.shortWindow).Series(closes)
	longMA := indicators.NewSMA(s.longWindow).Series(closes)

	target := newTargetState(len(closes))
	for i := range closes {
		if !indicators.IsDefined(shortMA[i]) || !indicators.IsDefined(longMA[i]) {
			continue
		}
		if shortMA[i] > longMA[i] {
			target.long(i)
		} else {
			target.flat(i)
		}
	}

	return target.signals(), nil
}
