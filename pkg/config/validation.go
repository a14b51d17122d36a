package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/logger"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
)

// Validate performs validation on every section and reports the first problem
func (c *BacktestConfig) Validate() error {
	checks := []func() error{
		c.validateData,
		c.validateEngine,
		c.validateRisk,
		c.validateRegime,
		c.validateStrategies,
		c.validateSweep,
		c.validateOutput,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(section, format string, args ...interface{}) error {
	return errors.NewValidationError("config", section, fmt.Sprintf(format, args...))
}

func (c *BacktestConfig) validateData() error {
	d := c.Data
	if d.File == "" && d.Symbol == "" {
		return invalid("data", "either data.file or data.symbol must be set")
	}
	if d.ATRPeriod < 0 {
		return invalid("data", "atr_period must be non-negative, got: %d", d.ATRPeriod)
	}
	for i, s := range d.Series {
		if s.Path == "" || s.DateColumn == "" || s.ValueColumn == "" {
			return invalid("data", "series[%d] needs path, date_column and value_column", i)
		}
	}

	start, err := data.ParseDate(d.Start)
	if err != nil {
		return invalid("data", "invalid start date %q", d.Start)
	}
	end, err := data.ParseDate(d.End)
	if err != nil {
		return invalid("data", "invalid end date %q", d.End)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return invalid("data", "end date %s is before start date %s", d.End, d.Start)
	}
	if d.Period != "" {
		if _, ok := data.ParseTrailingPeriod(d.Period); !ok {
			return invalid("data", "invalid period %q (examples: 30d, 168h)", d.Period)
		}
	}
	return nil
}

func (c *BacktestConfig) validateEngine() error {
	e := c.Engine
	if !(e.InitialCapital > 0) || math.IsInf(e.InitialCapital, 0) {
		return invalid("engine", "initial capital must be positive, got: %.2f", e.InitialCapital)
	}
	if !(e.Commission >= 0 && e.Commission < MaxCommission) {
		return invalid("engine", "commission must be within [0, %.2f), got: %.4f", MaxCommission, e.Commission)
	}
	if !(e.Slippage >= 0 && e.Slippage < 1) {
		return invalid("engine", "slippage must be within [0, 1), got: %.4f", e.Slippage)
	}
	return nil
}

func (c *BacktestConfig) validateRisk() error {
	if err := c.Risk.Validate(); err != nil {
		return invalid("risk", "%v", err)
	}
	return nil
}

func (c *BacktestConfig) validateRegime() error {
	if _, err := regime.ParseMode(c.Regime.Mode); err != nil {
		return invalid("regime", "%v", err)
	}
	if c.Regime.Lookback < 0 {
		return invalid("regime", "lookback must be non-negative, got: %d", c.Regime.Lookback)
	}
	return nil
}

func (c *BacktestConfig) validateStrategies() error {
	if len(c.Strategies) == 0 {
		return invalid("strategies", "at least one strategy is required")
	}

	seen := make(map[regime.Label]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		label, err := parseLabel(s.Regime)
		if err != nil {
			return invalid("strategies", "strategies[%d]: %v", i, err)
		}
		if seen[label] {
			return invalid("strategies", "strategies[%d]: regime %q is mapped twice", i, label)
		}
		seen[label] = true

		if _, err := strategy.New(s.Name, s.Params); err != nil {
			return invalid("strategies", "strategies[%d]: %v", i, err)
		}
	}

	mode, _ := regime.ParseMode(c.Regime.Mode)
	if mode == regime.ModeOff && len(c.Strategies) > 1 && !seen[regime.Default] {
		return invalid("strategies", "regime mode off with several strategies requires a %q entry", regime.Default)
	}
	return nil
}

func (c *BacktestConfig) validateSweep() error {
	s := c.Sweep
	if s.Workers < 0 {
		return invalid("sweep", "workers must be non-negative, got: %d", s.Workers)
	}
	if s.Top < 0 {
		return invalid("sweep", "top must be non-negative, got: %d", s.Top)
	}
	for name, values := range s.Grid {
		if len(values) == 0 {
			return invalid("sweep", "grid %q has no values", name)
		}
	}
	for _, f := range s.RiskFractions {
		if !(f > 0 && f <= 1) {
			return invalid("sweep", "risk fraction %.4f outside (0, 1]", f)
		}
	}
	for _, m := range s.StopMultipliers {
		if !(m > 0) {
			return invalid("sweep", "stop multiplier must be positive, got: %.4f", m)
		}
	}
	if s.Strategy != "" {
		if _, err := strategy.New(s.Strategy, nil); err != nil {
			return invalid("sweep", "%v", err)
		}
	}
	return nil
}

func (c *BacktestConfig) validateOutput() error {
	for _, f := range c.Output.Formats {
		switch strings.ToLower(f) {
		case FormatConsole, FormatCSV, FormatJSON, FormatExcel, "xlsx", FormatParquet:
		default:
			return invalid("output", "unknown output format %q (supported: console, csv, json, excel, parquet)", f)
		}
	}
	return nil
}

func (c *BacktestConfig) validateLogging() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging", "%v", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		return invalid("logging", "unknown log format %q", c.Logging.Format)
	}
	return nil
}

// parseLabel accepts bull, bear, neutral and default; empty means default
func parseLabel(s string) (regime.Label, error) {
	switch label := regime.Label(strings.ToLower(strings.TrimSpace(s))); label {
	case "":
		return regime.Default, nil
	case regime.Bull, regime.Bear, regime.Neutral, regime.Default:
		return label, nil
	default:
		return "", fmt.Errorf("unknown regime label %q (want bull, bear, neutral or default)", s)
	}
}
