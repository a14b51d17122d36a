package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ducminhle1904/regime-backtester/internal/logger"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
	"github.com/ducminhle1904/regime-backtester/pkg/reporting"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// flagApplier copies explicitly set flags onto a loaded configuration
type flagApplier func(fs *pflag.FlagSet, cfg *config.BacktestConfig) error

// dataFlags override the data section
type dataFlags struct {
	file      string
	root      string
	symbol    string
	interval  string
	series    []string
	atrPeriod int
	start     string
	end       string
	period    string
}

func (f *dataFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.file, "data", "d", "", "Path to the OHLCV CSV file")
	fs.StringVar(&f.root, "data-root", config.DefaultDataRoot, "Data root directory searched with --symbol")
	fs.StringVarP(&f.symbol, "symbol", "s", "", "Symbol to locate under --data-root, e.g. BTCUSDT")
	fs.StringVarP(&f.interval, "interval", "i", "", "Bar interval, e.g. 1d or 4h")
	fs.StringArrayVar(&f.series, "series", nil, "Auxiliary series as path:date_column:value_column[:name] (repeatable)")
	fs.IntVar(&f.atrPeriod, "atr-period", data.DefaultATRPeriod, "ATR period for the volatility column, 0 to disable")
	fs.StringVar(&f.start, "start", "", "First bar date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "Last bar date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.period, "period", "", "Keep only a trailing window, e.g. 365d or 720h")
}

func (f *dataFlags) apply(fs *pflag.FlagSet, cfg *config.BacktestConfig) error {
	if fs.Changed("data") {
		cfg.Data.File = f.file
	}
	if fs.Changed("data-root") {
		cfg.Data.Root = f.root
	}
	if fs.Changed("symbol") {
		cfg.Data.Symbol = f.symbol
	}
	if fs.Changed("interval") {
		cfg.Data.Interval = f.interval
	}
	if fs.Changed("atr-period") {
		cfg.Data.ATRPeriod = f.atrPeriod
	}
	if fs.Changed("start") {
		cfg.Data.Start = f.start
	}
	if fs.Changed("end") {
		cfg.Data.End = f.end
	}
	if fs.Changed("period") {
		cfg.Data.Period = f.period
	}
	if fs.Changed("series") {
		specs, err := parseSeriesFlags(f.series)
		if err != nil {
			return err
		}
		cfg.Data.Series = specs
	}
	return nil
}

// engineFlags override the engine, risk, regime and strategy sections
type engineFlags struct {
	capital          float64
	commission       float64
	slippage         float64
	riskFraction     float64
	stopMultiplier   float64
	regimeMode       string
	lookback         int
	strategy         string
	params           map[string]string
	regimeStrategies []string
}

func (f *engineFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.capital, "capital", config.DefaultInitialCapital, "Initial capital")
	fs.Float64Var(&f.commission, "commission", config.DefaultCommission, "Commission rate per fill")
	fs.Float64Var(&f.slippage, "slippage", config.DefaultSlippage, "Slippage rate applied to the open")
	fs.Float64Var(&f.riskFraction, "risk", 0.02, "Fraction of cash risked per trade")
	fs.Float64Var(&f.stopMultiplier, "stop-mult", 2, "Stop distance in multiples of the volatility column")
	fs.StringVar(&f.regimeMode, "regime-mode", "once", "Regime handling: off, once or per_bar")
	fs.IntVar(&f.lookback, "lookback", config.DefaultRegimeLookback, "Moving-average window of the regime classifier")
	fs.StringVar(&f.strategy, "strategy", "", "Default strategy: ma_crossover, asymmetric_ema or sopr_ema")
	fs.StringToStringVar(&f.params, "param", nil, "Default strategy parameter as key=value (repeatable)")
	fs.StringArrayVar(&f.regimeStrategies, "regime-strategy", nil, "Strategy for a regime as label=name, e.g. bear=ma_crossover (repeatable)")
}

func (f *engineFlags) apply(fs *pflag.FlagSet, cfg *config.BacktestConfig) error {
	if fs.Changed("capital") {
		cfg.Engine.InitialCapital = f.capital
	}
	if fs.Changed("commission") {
		cfg.Engine.Commission = f.commission
	}
	if fs.Changed("slippage") {
		cfg.Engine.Slippage = f.slippage
	}
	if fs.Changed("risk") {
		cfg.Risk.RiskFraction = f.riskFraction
	}
	if fs.Changed("stop-mult") {
		cfg.Risk.StopMultiplier = f.stopMultiplier
	}
	if fs.Changed("regime-mode") {
		cfg.Regime.Mode = f.regimeMode
	}
	if fs.Changed("lookback") {
		cfg.Regime.Lookback = f.lookback
	}

	if fs.Changed("strategy") || fs.Changed("param") {
		entry := strategyEntry(cfg, string(regime.Default))
		if fs.Changed("strategy") && !strings.EqualFold(entry.Name, f.strategy) {
			entry.Name = f.strategy
			entry.Params = nil
		}
		if fs.Changed("param") {
			if entry.Params == nil {
				entry.Params = make(map[string]any, len(f.params))
			}
			for k, v := range parseParamValues(f.params) {
				entry.Params[k] = v
			}
		}
	}

	for _, raw := range f.regimeStrategies {
		label, name, ok := strings.Cut(raw, "=")
		if !ok || label == "" || name == "" {
			return fmt.Errorf("invalid --regime-strategy %q (expected label=name)", raw)
		}
		entry := strategyEntry(cfg, label)
		entry.Name = name
		entry.Params = nil
	}
	return nil
}

// outputFlags override the output section
type outputFlags struct {
	dir      string
	formats  []string
	database string
}

func (f *outputFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.dir, "output-dir", "o", config.DefaultOutputDir, "Root directory for result files")
	fs.StringSliceVarP(&f.formats, "format", "f", []string{config.FormatConsole}, "Outputs: console, csv, json, excel, parquet")
	fs.StringVar(&f.database, "db", "", "SQLite database recording run summaries")
}

func (f *outputFlags) apply(fs *pflag.FlagSet, cfg *config.BacktestConfig) error {
	if fs.Changed("output-dir") {
		cfg.Output.Dir = f.dir
	}
	if fs.Changed("format") {
		cfg.Output.Formats = f.formats
	}
	if fs.Changed("db") {
		cfg.Sweep.Database = f.database
	}
	return nil
}

// loadConfig reads --config, applies environment overrides and the flags the
// user set, then validates the result
func loadConfig(cmd *cobra.Command, appliers ...flagApplier) (*config.BacktestConfig, error) {
	cfg, err := config.LoadUnvalidated(configPath)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if fs.Changed("log-file") {
		cfg.Logging.File = logFile
	}

	for _, apply := range appliers {
		if err := apply(fs, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// setupLogger builds the run logger and installs it as the global zerolog logger
func setupLogger(cfg *config.BacktestConfig) (zerolog.Logger, io.Closer, error) {
	l, closer, err := logger.New(logger.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		File:     cfg.Logging.File,
		NoColor:  noColor || !term.IsTerminal(int(os.Stderr.Fd())),
		Symbol:   cfg.Data.Symbol,
		Interval: cfg.Data.Interval,
	})
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	log.Logger = l
	return l, closer, nil
}

// prepareDataset loads, merges and filters the configured data
func prepareDataset(cfg *config.BacktestConfig, l zerolog.Logger) (*types.Dataset, string, error) {
	opts, err := cfg.PrepareOptions()
	if err != nil {
		return nil, "", err
	}

	ds, err := data.NewLoader(nil).Prepare(opts)
	if err != nil {
		return nil, opts.DataFile, err
	}

	l.Info().
		Str("file", opts.DataFile).
		Int("bars", ds.Len()).
		Time("from", ds.Timestamp(0)).
		Time("to", ds.Timestamp(ds.Len()-1)).
		Strs("columns", ds.ColumnNames()).
		Msg("Dataset loaded")
	return ds, opts.DataFile, nil
}

// runContext returns the symbol and interval of a run, derived from the data
// file name when not configured
func runContext(cfg *config.BacktestConfig, dataFile string) (string, string) {
	symbol, interval := cfg.Data.Symbol, cfg.Data.Interval
	if symbol == "" {
		symbol = reporting.SymbolFromPath(dataFile)
	}
	if interval == "" {
		interval = reporting.ExtractIntervalFromPath(dataFile)
	}
	return symbol, interval
}

// reportingConfig maps the output formats onto a ReportingConfig
func reportingConfig(cfg *config.BacktestConfig, dir string) reporting.ReportingConfig {
	return reporting.ReportingConfig{
		EnableConsole:   cfg.HasFormat(config.FormatConsole),
		OutputDirectory: dir,
		CSVEnabled:      cfg.HasFormat(config.FormatCSV),
		JSONEnabled:     cfg.HasFormat(config.FormatJSON),
		ExcelEnabled:    cfg.HasFormat(config.FormatExcel),
	}
}

// strategyEntry returns the strategy mapped to label, adding one when missing
func strategyEntry(cfg *config.BacktestConfig, label string) *config.StrategyConfig {
	for i := range cfg.Strategies {
		l := cfg.Strategies[i].Regime
		if strings.EqualFold(l, label) || (l == "" && label == string(regime.Default)) {
			return &cfg.Strategies[i]
		}
	}
	cfg.Strategies = append(cfg.Strategies, config.StrategyConfig{Regime: strings.ToLower(label)})
	return &cfg.Strategies[len(cfg.Strategies)-1]
}

// strategyParams returns the configured parameters of the strategy mapped to label
func strategyParams(cfg *config.BacktestConfig, label regime.Label) map[string]any {
	if label == "" {
		label = regime.Default
	}
	for _, s := range cfg.Strategies {
		if strings.EqualFold(s.Regime, string(label)) || (s.Regime == "" && label == regime.Default) {
			return s.Params
		}
	}
	return nil
}

// parseSeriesFlags parses path:date_column:value_column[:name] values
func parseSeriesFlags(values []string) ([]data.SeriesSpec, error) {
	specs := make([]data.SeriesSpec, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid --series %q (expected path:date_column:value_column[:name])", v)
		}
		spec := data.SeriesSpec{Path: parts[0], DateColumn: parts[1], ValueColumn: parts[2]}
		if len(parts) == 4 {
			spec.Name = parts[3]
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// parseParamValues converts numeric strings to float64 and keeps the rest as strings
func parseParamValues(raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = f
			continue
		}
		out[k] = v
	}
	return out
}

// parseGrid parses name=v1,v2,... values into a sweep grid
func parseGrid(values []string) (map[string][]float64, error) {
	grid := make(map[string][]float64, len(values))
	for _, raw := range values {
		name, list, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --grid %q (expected name=v1,v2,...)", raw)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --grid value %q for %s", s, name)
			}
			vals = append(vals, f)
		}
		grid[strings.TrimSpace(name)] = vals
	}
	return grid, nil
}
