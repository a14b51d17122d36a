package strategy

import (
	"fmt"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// DefaultSOPRColumn is the dataset column read by SOPREMA
const DefaultSOPRColumn = "sopr"

// SOPREMA only takes an EMA golden cross after the on-chain SOPR ratio has
// recently dipped below a capitulation threshold, and holds while the slow
// regime moving average keeps rising
type SOPREMA struct {
	trend     trendParams
	threshold float64
	armWindow int
	column    string
}

// SOPREMAOptions configures NewSOPREMA
type SOPREMAOptions struct {
	ShortEMA      int
	LongEMA       int
	RegimeMA      int
	SlopeWindow   int
	SOPRThreshold float64
	ArmWindow     int
	Column        string
}

// DefaultSOPREMAOptions returns the reference parameters
func DefaultSOPREMAOptions() SOPREMAOptions {
	return SOPREMAOptions{
		ShortEMA:      21,
		LongEMA:       55,
		RegimeMA:      200,
		SlopeWindow:   30,
		SOPRThreshold: 1.0,
		ArmWindow:     30,
		Column:        DefaultSOPRColumn,
	}
}

// NewSOPREMA creates a new threshold-gated crossover strategy
func NewSOPREMA(opts SOPREMAOptions) (*SOPREMA, error) {
	if err := validateTrendParams(opts.ShortEMA, opts.LongEMA, opts.RegimeMA, opts.SlopeWindow); err != nil {
		return nil, err
	}
	if err := requirePositive("arm_window", opts.ArmWindow); err != nil {
		return nil, err
	}
	if opts.Column == "" {
		opts.Column = DefaultSOPRColumn
	}

	return &SOPREMA{
		trend: trendParams{
			shortEMA:    opts.ShortEMA,
			longEMA:     opts.LongEMA,
			regimeMA:    opts.RegimeMA,
			slopeWindow: opts.SlopeWindow,
		},
		threshold: opts.SOPRThreshold,
		armWindow: opts.ArmWindow,
		column:    opts.Column,
	}, nil
}

func newSOPREMAFromParams(params map[string]any) (SignalGenerator, error) {
	trend, err := parseTrendParams(params)
	if err != nil {
		return nil, err
	}

	opts := DefaultSOPREMAOptions()
	opts.ShortEMA = trend.shortEMA
	opts.LongEMA = trend.longEMA
	opts.RegimeMA = trend.regimeMA
	opts.SlopeWindow = trend.slopeWindow

	if opts.SOPRThreshold, err = floatParam(params, "sopr_threshold", opts.SOPRThreshold); err != nil {
		return nil, err
	}
	if opts.ArmWindow, err = intParam(params, "arm_window", opts.ArmWindow); err != nil {
		return nil, err
	}
	if opts.Column, err = stringParam(params, "column", opts.Column); err != nil {
		return nil, err
	}

	return NewSOPREMA(opts)
}

// Name returns the registry name
func (s *SOPREMA) Name() string {
	return NameSOPREMA
}

// String includes the parameters
func (s *SOPREMA) String() string {
	return fmt.Sprintf("%s(%d,%d,%d,%.2f)", NameSOPREMA, s.trend.shortEMA, s.trend.longEMA, s.trend.regimeMA, s.threshold)
}

// Column returns the dataset column holding the SOPR series
func (s *SOPREMA) Column() string {
	return s.column
}

// Generate requires the SOPR column. Every bar whose regime slope is not
// positive, including bars where it is not yet defined, forces a flat state.
func (s *SOPREMA) Generate(ds *types.Dataset) (SignalSeries, error) {
	if ds == nil {
		return nil, types.ErrEmptyDataset
	}

	sopr, ok := ds.Column(s.column)
	if !ok {
		return nil, fmt.Errorf("%s: column %q: %w", NameSOPREMA, s.column, errors.ErrMissingColumn)
	}

	closes := ds.Closes()
	cross := goldenCross(closes, s.trend.shortEMA, s.trend.longEMA)
	slope := regimeSlope(closes, s.trend.regimeMA, s.trend.slopeWindow)
	recentMin := indicators.RollingMin(sopr, s.armWindow)

	target := newTargetState(len(closes))
	for i := range closes {
		armed := indicators.IsDefined(recentMin[i]) && recentMin[i] < s.threshold
		if armed && cross[i] {
			target.long(i)
		}
		if !(slope[i] > 0) {
			target.flat(i)
		}
	}

	return target.signals(), nil
}
