package backtest

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
)

// DefaultVolatilityColumn is the dataset column handed to the sizer
const DefaultVolatilityColumn = "atr"

// RunConfig holds the per-run simulation settings
type RunConfig struct {
	InitialCapital   float64     `json:"initial_capital"`
	CommissionRate   float64     `json:"commission_rate"`
	SlippageRate     float64     `json:"slippage_rate"`
	Risk             risk.Params `json:"risk"`
	VolatilityColumn string      `json:"volatility_column"`
	RegimeMode       regime.Mode `json:"regime_mode"`
}

// DefaultRunConfig returns the reference settings: 100k capital, 0.1%
// commission, 0.05% slippage, 2% risk with a 2x ATR stop
func DefaultRunConfig() RunConfig {
	return RunConfig{
		InitialCapital:   100000,
		CommissionRate:   0.001,
		SlippageRate:     0.0005,
		Risk:             risk.DefaultParams(),
		VolatilityColumn: DefaultVolatilityColumn,
		RegimeMode:       regime.ModeOnce,
	}
}

// Validate checks the configuration before any simulation happens
func (c RunConfig) Validate() error {
	if !(c.InitialCapital > 0) || math.IsInf(c.InitialCapital, 0) {
		return invalidConfig("initial capital must be positive, got %v", c.InitialCapital)
	}
	if !(c.CommissionRate >= 0) || c.CommissionRate >= 1 {
		return invalidConfig("commission rate must be within [0, 1), got %v", c.CommissionRate)
	}
	if !(c.SlippageRate >= 0) || c.SlippageRate >= 1 {
		return invalidConfig("slippage rate must be within [0, 1), got %v", c.SlippageRate)
	}
	if err := c.Risk.Validate(); err != nil {
		return invalidConfig("%v", err)
	}
	switch c.RegimeMode {
	case "", regime.ModeOff, regime.ModeOnce, regime.ModePerBar:
	default:
		return invalidConfig("unknown regime mode %q", c.RegimeMode)
	}
	return nil
}

func (c RunConfig) volatilityColumn() string {
	if c.VolatilityColumn == "" {
		return DefaultVolatilityColumn
	}
	return c.VolatilityColumn
}

func (c RunConfig) regimeMode() regime.Mode {
	if c.RegimeMode == "" {
		return regime.ModeOnce
	}
	return c.RegimeMode
}

func invalidConfig(format string, args ...interface{}) error {
	return errors.NewValidationError("engine", "validate_config", fmt.Sprintf(format, args...))
}
