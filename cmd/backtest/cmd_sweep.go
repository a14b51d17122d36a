package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/monitoring"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/store"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/reporting"
)

var sweepOpts struct {
	data            dataFlags
	engine          engineFlags
	output          outputFlags
	sweepStrategy   string
	grid            []string
	riskFractions   []float64
	stopMultipliers []float64
	workers         int
	top             int
	metricsAddr     string
}

// sweepCmd evaluates a parameter grid in parallel
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter grid in parallel and rank the results",
	Long: `Expand a grid of strategy parameters and risk settings, backtest every
combination on a worker pool and rank the runs by total return, then by
smaller drawdown. The best combination is saved as a config file.

Examples:
  backtest sweep --data data/BTC_USDT_1d.csv --sweep-strategy ma_crossover \
    --grid short_window=5,10,20 --grid long_window=30,50 --risk-fractions 0.01,0.02
  backtest sweep --config configs/btc.yaml --workers 8 --db results/runs.db --metrics-addr :9090`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	fs := sweepCmd.Flags()
	sweepOpts.data.register(fs)
	sweepOpts.engine.register(fs)
	sweepOpts.output.register(fs)
	fs.StringVar(&sweepOpts.sweepStrategy, "sweep-strategy", "", "Strategy to sweep (default: the default-regime strategy)")
	fs.StringArrayVar(&sweepOpts.grid, "grid", nil, "Parameter values as name=v1,v2,... (repeatable)")
	fs.Float64SliceVar(&sweepOpts.riskFractions, "risk-fractions", nil, "Risk fractions to evaluate")
	fs.Float64SliceVar(&sweepOpts.stopMultipliers, "stop-multipliers", nil, "Stop multipliers to evaluate")
	fs.IntVarP(&sweepOpts.workers, "workers", "w", 0, "Parallel workers (default: number of CPUs)")
	fs.IntVar(&sweepOpts.top, "top", 10, "Number of ranked results to report, 0 for all")
	fs.StringVar(&sweepOpts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address while sweeping")
}

func applySweepFlags(fs *pflag.FlagSet, cfg *config.BacktestConfig) error {
	if fs.Changed("sweep-strategy") {
		cfg.Sweep.Strategy = sweepOpts.sweepStrategy
	}
	if fs.Changed("grid") {
		grid, err := parseGrid(sweepOpts.grid)
		if err != nil {
			return err
		}
		cfg.Sweep.Grid = grid
	}
	if fs.Changed("risk-fractions") {
		cfg.Sweep.RiskFractions = sweepOpts.riskFractions
	}
	if fs.Changed("stop-multipliers") {
		cfg.Sweep.StopMultipliers = sweepOpts.stopMultipliers
	}
	if fs.Changed("workers") {
		cfg.Sweep.Workers = sweepOpts.workers
	}
	if fs.Changed("top") {
		cfg.Sweep.Top = sweepOpts.top
	}
	if fs.Changed("metrics-addr") {
		cfg.Sweep.MetricsAddr = sweepOpts.metricsAddr
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, sweepOpts.data.apply, sweepOpts.engine.apply, sweepOpts.output.apply, applySweepFlags)
	if err != nil {
		return err
	}

	logger, closer, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ds, dataFile, err := prepareDataset(cfg, logger)
	if err != nil {
		return err
	}

	runCfg, err := cfg.ToRunConfig()
	if err != nil {
		return err
	}
	spec := cfg.SweepSpec()
	points := len(spec.Expand(cfg.Risk))

	health := monitoring.NewHealthChecker()
	health.SetExpected(points)
	if cfg.Sweep.MetricsAddr != "" {
		server := monitoring.NewServer(cfg.Sweep.MetricsAddr, health, logger)
		server.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("strategy", spec.Strategy).
		Int("combinations", points).
		Int("workers", cfg.Workers()).
		Msg("Starting parameter sweep")

	started := time.Now()
	report, err := backtest.Sweep(ctx, ds, runCfg, spec, backtest.SweepOptions{
		Workers:  cfg.Workers(),
		Logger:   &logger,
		Recorder: monitoring.NewRecorder(health),
	})
	if err != nil {
		return err
	}

	logger.Info().
		Int("evaluated", len(report.Results)-report.Failed).
		Int("failed", report.Failed).
		Int("invalid", report.Invalid).
		Dur("elapsed", time.Since(started)).
		Msg("Sweep complete")
	for category, count := range report.Errors.ErrorsByCategory {
		logger.Warn().Str("category", string(category)).Int("count", count).Msg("Runs failed")
	}
	if n := len(report.Errors.RecentErrors); n > 0 {
		logger.Warn().Err(report.Errors.RecentErrors[n-1]).Msg("Last run error")
	}

	symbol, interval := runContext(cfg, dataFile)
	dir := reporting.NewDefaultPathManager().GetDefaultOutputDir(cfg.Output.Dir, symbol, interval)

	manager := reporting.NewReportingManager(reportingConfig(cfg, dir))
	written, err := manager.ReportSweep(report, cfg.Sweep.Top)
	if err != nil {
		return fmt.Errorf("failed to write sweep reports: %w", err)
	}

	if cfg.Sweep.Database != "" {
		db, err := store.NewSQLiteStore(cfg.Sweep.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		saved, err := db.SaveSweep(ctx, report)
		if err != nil {
			return fmt.Errorf("failed to save sweep: %w", err)
		}
		logger.Info().Str("db", cfg.Sweep.Database).Int("runs", saved).Msg("Sweep recorded")
	}

	best, ok := report.Best()
	if !ok {
		return fmt.Errorf("no successful runs among %d combinations", points)
	}

	bestCfg := bestConfig(cfg, spec.Strategy, best)
	bestPath := filepath.Join(dir, config.BestConfigFile)
	if err := config.Save(bestCfg, bestPath); err != nil {
		return fmt.Errorf("failed to save best config: %w", err)
	}
	written = append(written, bestPath)

	// file outputs of the winning run, without repeating the console summary
	fileCfg := reportingConfig(cfg, dir)
	fileCfg.EnableConsole = false
	files, err := reporting.NewReportingManager(fileCfg).ReportResults(best.Results, symbol, interval)
	if err != nil {
		return fmt.Errorf("failed to write best run reports: %w", err)
	}
	written = append(written, files...)
	if cfg.HasFormat(config.FormatParquet) {
		if err := store.NewParquetExporter(dir).ExportRun(ctx, best.ID, best.Results); err != nil {
			return fmt.Errorf("failed to export parquet: %w", err)
		}
	}

	for _, path := range written {
		logger.Info().Str("path", path).Msg("Report written")
	}
	logger.Info().
		Str("run_id", best.ID).
		Str("params", best.ParamsKey()).
		Float64("total_return", best.Results.TotalReturn).
		Float64("max_drawdown", best.Results.MaxDrawdown).
		Msg("Best combination")
	return nil
}

// bestConfig returns cfg with the winning strategy parameters and risk
// settings. Sweeps run without regime switching, so the result does too.
func bestConfig(cfg *config.BacktestConfig, strategyName string, best backtest.SweepResult) *config.BacktestConfig {
	out := *cfg
	out.Strategies = []config.StrategyConfig{{
		Regime: string(regime.Default),
		Name:   strategyName,
		Params: best.Params,
	}}
	out.Risk = best.Risk
	out.Regime.Mode = string(regime.ModeOff)
	out.Sweep = config.SweepConfig{}
	return &out
}
