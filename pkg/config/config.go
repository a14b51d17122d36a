// Package config loads backtest configuration from YAML or JSON files with
// environment overrides
package config

import (
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
)

// Common configuration constants
const (
	DefaultInitialCapital   = 100000.0
	DefaultCommission       = 0.001
	DefaultSlippage         = 0.0005
	DefaultRegimeLookback   = 200
	DefaultStrategy         = "sopr_ema"
	DefaultVolatilityColumn = "atr"

	// File and directory constants
	DefaultDataRoot  = "data"
	DefaultOutputDir = "results"
	BestConfigFile   = "best.yaml"
	TradesFile       = "trades.xlsx"

	MaxCommission = 1.0
)

// Output formats understood by the reporting layer
const (
	FormatConsole = "console"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatExcel   = "excel"
	FormatParquet = "parquet"
)

// BacktestConfig is the full configuration of a backtest or sweep
type BacktestConfig struct {
	Data       DataConfig       `json:"data" yaml:"data"`
	Engine     EngineConfig     `json:"engine" yaml:"engine"`
	Risk       risk.Params      `json:"risk" yaml:"risk"`
	Regime     RegimeConfig     `json:"regime" yaml:"regime"`
	Strategies []StrategyConfig `json:"strategies" yaml:"strategies"`
	Sweep      SweepConfig      `json:"sweep" yaml:"sweep"`
	Output     OutputConfig     `json:"output" yaml:"output"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// DataConfig describes the input dataset
type DataConfig struct {
	File      string            `json:"file" yaml:"file"`
	Root      string            `json:"root" yaml:"root"`
	Symbol    string            `json:"symbol" yaml:"symbol"`
	Interval  string            `json:"interval" yaml:"interval"`
	Series    []data.SeriesSpec `json:"series,omitempty" yaml:"series,omitempty"`
	ATRPeriod int               `json:"atr_period" yaml:"atr_period"`
	Start     string            `json:"start,omitempty" yaml:"start,omitempty"`
	End       string            `json:"end,omitempty" yaml:"end,omitempty"`
	Period    string            `json:"period,omitempty" yaml:"period,omitempty"` // trailing window such as "365d"
}

// EngineConfig holds the execution cost model
type EngineConfig struct {
	InitialCapital   float64 `json:"initial_capital" yaml:"initial_capital"`
	Commission       float64 `json:"commission" yaml:"commission"`
	Slippage         float64 `json:"slippage" yaml:"slippage"`
	VolatilityColumn string  `json:"volatility_column" yaml:"volatility_column"`
}

// RegimeConfig selects how the classifier is consulted
type RegimeConfig struct {
	Mode     string `json:"mode" yaml:"mode"` // off, once or per_bar
	Lookback int    `json:"lookback" yaml:"lookback"`
}

// StrategyConfig binds a signal generator to a regime label.
// An empty Regime means "default".
type StrategyConfig struct {
	Regime string         `json:"regime,omitempty" yaml:"regime,omitempty"`
	Name   string         `json:"name" yaml:"name"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// SweepConfig describes a parameter grid run
type SweepConfig struct {
	Strategy        string               `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Grid            map[string][]float64 `json:"grid,omitempty" yaml:"grid,omitempty"`
	RiskFractions   []float64            `json:"risk_fractions,omitempty" yaml:"risk_fractions,omitempty"`
	StopMultipliers []float64            `json:"stop_multipliers,omitempty" yaml:"stop_multipliers,omitempty"`
	Workers         int                  `json:"workers" yaml:"workers"`
	Top             int                  `json:"top" yaml:"top"`
	Database        string               `json:"database,omitempty" yaml:"database,omitempty"`
	MetricsAddr     string               `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// OutputConfig selects report formats and their destination
type OutputConfig struct {
	Dir     string   `json:"dir" yaml:"dir"`
	Formats []string `json:"formats" yaml:"formats"`
}

// LoggingConfig configures internal/logger
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// DefaultConfig returns the reference setup: SOPR-gated EMA strategy on
// ATR(14)-augmented data with 2% risk and a 2x ATR stop
func DefaultConfig() *BacktestConfig {
	return &BacktestConfig{
		Data: DataConfig{
			Root:      DefaultDataRoot,
			ATRPeriod: data.DefaultATRPeriod,
		},
		Engine: EngineConfig{
			InitialCapital:   DefaultInitialCapital,
			Commission:       DefaultCommission,
			Slippage:         DefaultSlippage,
			VolatilityColumn: DefaultVolatilityColumn,
		},
		Risk: risk.DefaultParams(),
		Regime: RegimeConfig{
			Mode:     "once",
			Lookback: DefaultRegimeLookback,
		},
		Strategies: []StrategyConfig{
			{Regime: "default", Name: DefaultStrategy},
		},
		Sweep: SweepConfig{
			Top: 10,
		},
		Output: OutputConfig{
			Dir:     DefaultOutputDir,
			Formats: []string{FormatConsole},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
