package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
)

// ToRunConfig converts the engine, risk and regime sections to a RunConfig
func (c *BacktestConfig) ToRunConfig() (backtest.RunConfig, error) {
	mode, err := regime.ParseMode(c.Regime.Mode)
	if err != nil {
		return backtest.RunConfig{}, err
	}

	return backtest.RunConfig{
		InitialCapital:   c.Engine.InitialCapital,
		CommissionRate:   c.Engine.Commission,
		SlippageRate:     c.Engine.Slippage,
		Risk:             c.Risk,
		VolatilityColumn: c.Engine.VolatilityColumn,
		RegimeMode:       mode,
	}, nil
}

// Classifier returns the slope classifier, or nil when the regime mode is off
func (c *BacktestConfig) Classifier() regime.Classifier {
	if mode, err := regime.ParseMode(c.Regime.Mode); err != nil || mode == regime.ModeOff {
		return nil
	}
	return regime.NewSlopeClassifier(c.Regime.Lookback)
}

// BuildSources creates one signal generator per configured regime label
func (c *BacktestConfig) BuildSources() (map[regime.Label]strategy.SignalGenerator, error) {
	sources := make(map[regime.Label]strategy.SignalGenerator, len(c.Strategies))
	for i, s := range c.Strategies {
		label, err := parseLabel(s.Regime)
		if err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
		gen, err := strategy.New(s.Name, s.Params)
		if err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
		sources[label] = gen
	}
	return sources, nil
}

// ResolveDataFile returns data.file, or locates a file for data.symbol and
// data.interval under data.root
func (c *BacktestConfig) ResolveDataFile() (string, error) {
	if c.Data.File != "" {
		return c.Data.File, nil
	}
	return data.FindDataFile(c.Data.Root, c.Data.Symbol, c.Data.Interval)
}

// PrepareOptions converts the data section to loader options
func (c *BacktestConfig) PrepareOptions() (data.PrepareOptions, error) {
	file, err := c.ResolveDataFile()
	if err != nil {
		return data.PrepareOptions{}, err
	}

	start, err := data.ParseDate(c.Data.Start)
	if err != nil {
		return data.PrepareOptions{}, err
	}
	end, err := data.ParseDate(c.Data.End)
	if err != nil {
		return data.PrepareOptions{}, err
	}

	opts := data.PrepareOptions{
		DataFile:  file,
		Series:    c.Data.Series,
		ATRPeriod: c.Data.ATRPeriod,
		Start:     start,
		End:       end,
	}
	if c.Data.Period != "" {
		period, ok := data.ParseTrailingPeriod(c.Data.Period)
		if !ok {
			return data.PrepareOptions{}, fmt.Errorf("invalid period %q", c.Data.Period)
		}
		opts.Period = period
	}
	return opts, nil
}

// SweepSpec builds the grid for sweep.strategy, falling back to the
// default (or first) configured strategy and its parameters
func (c *BacktestConfig) SweepSpec() backtest.SweepSpec {
	name := c.Sweep.Strategy
	var base map[string]any
	for _, s := range c.Strategies {
		label, _ := parseLabel(s.Regime)
		if name == "" && label == regime.Default {
			name = s.Name
		}
		if strings.EqualFold(s.Name, name) {
			base = s.Params
			break
		}
	}
	if name == "" && len(c.Strategies) > 0 {
		name = c.Strategies[0].Name
		base = c.Strategies[0].Params
	}

	return backtest.SweepSpec{
		Strategy:        name,
		BaseParams:      base,
		Grid:            c.Sweep.Grid,
		RiskFractions:   c.Sweep.RiskFractions,
		StopMultipliers: c.Sweep.StopMultipliers,
	}
}

// Workers returns sweep.workers, or the CPU count when unset
func (c *BacktestConfig) Workers() int {
	if c.Sweep.Workers > 0 {
		return c.Sweep.Workers
	}
	return runtime.NumCPU()
}

// HasFormat reports whether the output section requests format
func (c *BacktestConfig) HasFormat(format string) bool {
	for _, f := range c.Output.Formats {
		f = strings.ToLower(f)
		if f == format || (format == FormatExcel && f == "xlsx") {
			return true
		}
	}
	return false
}
