package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
)

const yamlConfig = `
data:
  file: data/BTC_USDT_1d.csv
  series:
    - path: data/bitcoin_sopr_data.csv
      date_column: date
      value_column: sopr_value
      name: sopr
  atr_period: 21
  start: "2021-01-01"
engine:
  initial_capital: 50000
  commission: 0.002
risk:
  risk_fraction: 0.01
  stop_multiplier: 3
regime:
  mode: per_bar
  lookback: 100
strategies:
  - regime: bull
    name: ma_crossover
    params:
      short_window: 10
      long_window: 30
  - regime: default
    name: asymmetric_ema
sweep:
  grid:
    short_window: [5, 10]
    long_window: [20, 40]
  risk_fractions: [0.01, 0.02]
  workers: 4
output:
  formats: [console, json]
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100000.0, cfg.Engine.InitialCapital)
	assert.Equal(t, 0.001, cfg.Engine.Commission)
	assert.Equal(t, 0.0005, cfg.Engine.Slippage)
	assert.Equal(t, 0.02, cfg.Risk.RiskFraction)
	assert.Equal(t, 2.0, cfg.Risk.StopMultiplier)
	assert.Equal(t, 14, cfg.Data.ATRPeriod)
	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, "sopr_ema", cfg.Strategies[0].Name)

	// defaults are complete except for the data source
	assert.Error(t, cfg.Validate())
	cfg.Data.File = "prices.csv"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "backtest.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "data/BTC_USDT_1d.csv", cfg.Data.File)
	require.Len(t, cfg.Data.Series, 1)
	assert.Equal(t, "sopr", cfg.Data.Series[0].ColumnName())
	assert.Equal(t, 21, cfg.Data.ATRPeriod)
	assert.Equal(t, 50000.0, cfg.Engine.InitialCapital)
	// unspecified values keep their defaults
	assert.Equal(t, 0.0005, cfg.Engine.Slippage)
	assert.Equal(t, 0.01, cfg.Risk.RiskFraction)
	require.Len(t, cfg.Strategies, 2)
	assert.Equal(t, []string{"console", "json"}, cfg.Output.Formats)

	run, err := cfg.ToRunConfig()
	require.NoError(t, err)
	assert.Equal(t, regime.ModePerBar, run.RegimeMode)
	assert.Equal(t, 0.002, run.CommissionRate)
	assert.NoError(t, run.Validate())

	sources, err := cfg.BuildSources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "ma_crossover(10,30)", fmt.Sprint(sources[regime.Bull]))
	assert.Equal(t, strategy.NameAsymmetricEMA, sources[regime.Default].Name())

	classifier, ok := cfg.Classifier().(*regime.SlopeClassifier)
	require.True(t, ok)
	assert.Equal(t, 100, classifier.GetLookback())

	opts, err := cfg.PrepareOptions()
	require.NoError(t, err)
	assert.Equal(t, 21, opts.ATRPeriod)
	assert.Equal(t, 2021, opts.Start.Year())
	assert.True(t, opts.End.IsZero())
}

func TestLoad_JSON(t *testing.T) {
	content := `{
		"data": {"file": "prices.csv"},
		"regime": {"mode": "off"},
		"strategies": [{"name": "ma_crossover", "params": {"short_window": 3, "long_window": 8}}]
	}`
	cfg, err := Load(writeConfig(t, "backtest.json", content))
	require.NoError(t, err)

	assert.Nil(t, cfg.Classifier())
	sources, err := cfg.BuildSources()
	require.NoError(t, err)
	assert.Equal(t, "ma_crossover(3,8)", fmt.Sprint(sources[regime.Default]))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKTEST_DATA_FILE", "env.csv")
	t.Setenv("BACKTEST_INITIAL_CAPITAL", "2500")
	t.Setenv("BACKTEST_RISK_FRACTION", "0.05")
	t.Setenv("BACKTEST_WORKERS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.csv", cfg.Data.File)
	assert.Equal(t, 2500.0, cfg.Engine.InitialCapital)
	assert.Equal(t, 0.05, cfg.Risk.RiskFraction)
	assert.Equal(t, 3, cfg.Workers())
	assert.Equal(t, "debug", cfg.Logging.Level)

	t.Setenv("BACKTEST_COMMISSION", "cheap")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "engine: [1, 2"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *BacktestConfig {
		cfg := DefaultConfig()
		cfg.Data.File = "prices.csv"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *BacktestConfig)
		want   string
	}{
		{"no data source", func(c *BacktestConfig) { c.Data.File = "" }, "data.file"},
		{"negative atr", func(c *BacktestConfig) { c.Data.ATRPeriod = -1 }, "atr_period"},
		{"bad start", func(c *BacktestConfig) { c.Data.Start = "someday" }, "start date"},
		{"end before start", func(c *BacktestConfig) { c.Data.Start, c.Data.End = "2024-02-01", "2024-01-01" }, "before start"},
		{"bad period", func(c *BacktestConfig) { c.Data.Period = "forever" }, "period"},
		{"incomplete series", func(c *BacktestConfig) { c.Data.Series = []data.SeriesSpec{{Path: "x.csv"}} }, "series[0]"},
		{"zero capital", func(c *BacktestConfig) { c.Engine.InitialCapital = 0 }, "initial capital"},
		{"commission", func(c *BacktestConfig) { c.Engine.Commission = 1.5 }, "commission"},
		{"slippage", func(c *BacktestConfig) { c.Engine.Slippage = -0.1 }, "slippage"},
		{"risk", func(c *BacktestConfig) { c.Risk.RiskFraction = 0 }, "risk fraction"},
		{"regime mode", func(c *BacktestConfig) { c.Regime.Mode = "sometimes" }, "regime mode"},
		{"no strategies", func(c *BacktestConfig) { c.Strategies = nil }, "at least one"},
		{"unknown strategy", func(c *BacktestConfig) { c.Strategies[0].Name = "martingale" }, "unknown strategy"},
		{"bad params", func(c *BacktestConfig) {
			c.Strategies[0] = StrategyConfig{Name: "ma_crossover", Params: map[string]any{"short_window": 20, "long_window": 10}}
		}, "strategies[0]"},
		{"unknown label", func(c *BacktestConfig) { c.Strategies[0].Regime = "sideways" }, "regime label"},
		{"duplicate label", func(c *BacktestConfig) {
			c.Strategies = append(c.Strategies, StrategyConfig{Name: "ma_crossover"})
		}, "mapped twice"},
		{"off without default", func(c *BacktestConfig) {
			c.Regime.Mode = "off"
			c.Strategies = []StrategyConfig{{Regime: "bull", Name: "ma_crossover"}, {Regime: "bear", Name: "ma_crossover"}}
		}, "requires"},
		{"sweep fraction", func(c *BacktestConfig) { c.Sweep.RiskFractions = []float64{2} }, "risk fraction"},
		{"sweep empty grid", func(c *BacktestConfig) { c.Sweep.Grid = map[string][]float64{"short_window": nil} }, "no values"},
		{"output format", func(c *BacktestConfig) { c.Output.Formats = []string{"pdf"} }, "output format"},
		{"log level", func(c *BacktestConfig) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var be *errors.BacktestError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, errors.ErrorCategoryValidation, be.Category)
		})
	}
}

func TestSweepSpec(t *testing.T) {
	cfg, err := Load(writeConfig(t, "backtest.yaml", yamlConfig))
	require.NoError(t, err)

	spec := cfg.SweepSpec()
	assert.Equal(t, "asymmetric_ema", spec.Strategy)
	assert.Equal(t, []float64{0.01, 0.02}, spec.RiskFractions)

	cfg.Sweep.Strategy = "ma_crossover"
	spec = cfg.SweepSpec()
	assert.Equal(t, "ma_crossover", spec.Strategy)
	assert.Equal(t, 10, spec.BaseParams["short_window"])
	assert.Len(t, spec.Expand(cfg.Risk), 8)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Data.File = "prices.csv"
	cfg.Strategies = []StrategyConfig{{Regime: "default", Name: "ma_crossover", Params: map[string]any{"short_window": 4, "long_window": 9}}}

	for _, name := range []string{"best.yaml", "best.json"} {
		path := filepath.Join(dir, "nested", name)
		require.NoError(t, Save(cfg, path))

		loaded, err := Load(path)
		require.NoError(t, err)
		sources, err := loaded.BuildSources()
		require.NoError(t, err)
		assert.Equal(t, "ma_crossover(4,9)", fmt.Sprint(sources[regime.Default]))
	}
}

func TestHasFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Formats = []string{"CSV", "xlsx"}
	assert.True(t, cfg.HasFormat(FormatCSV))
	assert.True(t, cfg.HasFormat(FormatExcel))
	assert.False(t, cfg.HasFormat(FormatJSON))
}
