package strategy

import (
	"fmt"

	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// AsymmetricEMA enters on a fast EMA golden cross and only exits once the
// slope of a slow regime moving average turns negative, so trends are held
// longer than a symmetric crossover would hold them
type AsymmetricEMA struct {
	shortEMA    int
	longEMA     int
	regimeMA    int
	slopeWindow int
}

// NewAsymmetricEMA creates a new filtered crossover strategy
func NewAsymmetricEMA(shortEMA, longEMA, regimeMA, slopeWindow int) (*AsymmetricEMA, error) {
	if err := validateTrendParams(shortEMA, longEMA, regimeMA, slopeWindow); err != nil {
		return nil, err
	}
	return &AsymmetricEMA{
		shortEMA:    shortEMA,
		longEMA:     longEMA,
		regimeMA:    regimeMA,
		slopeWindow: slopeWindow,
	}, nil
}

func newAsymmetricEMAFromParams(params map[string]any) (SignalGenerator, error) {
	p, err := parseTrendParams(params)
	if err != nil {
		return nil, err
	}
	return NewAsymmetricEMA(p.shortEMA, p.longEMA, p.regimeMA, p.slopeWindow)
}

// Name returns the registry name
func (s *AsymmetricEMA) Name() string {
	return NameAsymmetricEMA
}

// String includes the parameters
func (s *AsymmetricEMA) String() string {
	return fmt.Sprintf("%s(%d,%d,%d,%d)", NameAsymmetricEMA, s.shortEMA, s.longEMA, s.regimeMA, s.slopeWindow)
}

// Generate computes entry and exit triggers. An exit on the same bar as an
// entry wins.
func (s *AsymmetricEMA) Generate(ds *types.Dataset) (SignalSeries, error) {
	if ds == nil {
		return nil, types.ErrEmptyDataset
	}

	closes := ds.Closes()
	cross := goldenCross(closes, s.shortEMA, s.longEMA)
	slope := regimeSlope(closes, s.regimeMA, s.slopeWindow)

	target := newTargetState(len(closes))
	for i := range closes {
		if cross[i] {
			target.long(i)
		}
		if indicators.IsDefined(slope[i]) && slope[i] < 0 {
			target.flat(i)
		}
	}

	return target.signals(), nil
}

// trendParams are shared by the EMA crossover variants
type trendParams struct {
	shortEMA    int
	longEMA     int
	regimeMA    int
	slopeWindow int
}

func parseTrendParams(params map[string]any) (trendParams, error) {
	var p trendParams
	var err error

	if p.shortEMA, err = intParam(params, "short_ema", 21); err != nil {
		return p, err
	}
	if p.longEMA, err = intParam(params, "long_ema", 55); err != nil {
		return p, err
	}
	if p.regimeMA, err = intParam(params, "regime_ma", 200); err != nil {
		return p, err
	}
	if p.slopeWindow, err = intParam(params, "slope_window", 30); err != nil {
		return p, err
	}
	return p, nil
}

func validateTrendParams(shortEMA, longEMA, regimeMA, slopeWindow int) error {
	if err := requirePositive("short_ema", shortEMA); err != nil {
		return err
	}
	if err := requirePositive("long_ema", longEMA); err != nil {
		return err
	}
	if err := requireOrdered("short_ema", shortEMA, "long_ema", longEMA); err != nil {
		return err
	}
	if err := requirePositive("regime_ma", regimeMA); err != nil {
		return err
	}
	if slopeWindow < 2 {
		return fmt.Errorf("slope_window must be at least 2, got %d", slopeWindow)
	}
	return nil
}

// goldenCross marks bars where the short EMA closes above the long EMA after
// being at or below it on the previous bar
func goldenCross(closes []float64, shortPeriod, longPeriod int) []bool {
	short := indicators.NewEMA(shortPeriod).Series(closes)
	long := indicators.NewEMA(longPeriod).Series(closes)
	return indicators.CrossedAbove(short, long)
}

// regimeSlope is the rolling least-squares slope of SMA(regimeMA)
func regimeSlope(closes []float64, regimeMA, slopeWindow int) []float64 {
	ma := indicators.NewSMA(regimeMA).Series(closes)
	return indicators.RollingSlope(ma, slopeWindow)
}
