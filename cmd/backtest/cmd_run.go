package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/monitoring"
	"github.com/ducminhle1904/regime-backtester/internal/store"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/reporting"
)

var runOpts struct {
	data   dataFlags
	engine engineFlags
	output outputFlags
}

// runCmd runs a single backtest
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest",
	Long: `Run one backtest over a dataset and report its performance.

Examples:
  backtest run --data data/BTC_USDT_1d.csv --series data/bitcoin_sopr_data.csv:date:sopr_value:sopr
  backtest run --config configs/btc.yaml --format console,excel
  backtest run --symbol BTCUSDT --interval 1d --strategy ma_crossover --param short_window=10 --param long_window=30 --regime-mode off`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	fs := runCmd.Flags()
	runOpts.data.register(fs)
	runOpts.engine.register(fs)
	runOpts.output.register(fs)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, runOpts.data.apply, runOpts.engine.apply, runOpts.output.apply)
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
		monitoring.RecordError(string(errors.CategorizeError(err, "cli", "load_data").Category))
		return err
	}

	runCfg, err := cfg.ToRunConfig()
	if err != nil {
		return err
	}
	sources, err := cfg.BuildSources()
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(runCfg, nil, cfg.Classifier(),
		backtest.WithLogger(logger),
		backtest.WithRecorder(monitoring.NewRecorder(nil)),
	)
	results, err := engine.Run(ds, sources)
	if err != nil {
		monitoring.RecordError(string(errors.CategorizeError(err, "cli", "run").Category))
		return err
	}

	runID := backtest.NewJobID()
	symbol, interval := runContext(cfg, dataFile)
	dir := reporting.NewDefaultPathManager().GetDefaultOutputDir(cfg.Output.Dir, symbol, interval)

	written, err := reporting.NewReportingManager(reportingConfig(cfg, dir)).ReportResults(results, symbol, interval)
	if err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	for _, path := range written {
		logger.Info().Str("path", path).Msg("Report written")
	}

	if err := persistRun(cmd.Context(), cfg, dir, runID, results, logger); err != nil {
		return err
	}

	logger.Info().
		Str("run_id", runID).
		Str("strategy", results.Strategy).
		Float64("final_equity", results.EndBalance).
		Float64("total_return", results.TotalReturn).
		Int("round_trips", results.TotalTrades).
		Msg("Backtest complete")
	return nil
}

// persistRun exports the equity curve and trades as Parquet and records the
// run summary in SQLite, when configured
func persistRun(ctx context.Context, cfg *config.BacktestConfig, dir, runID string, results *backtest.BacktestResults, logger zerolog.Logger) error {
	if cfg.HasFormat(config.FormatParquet) {
		exporter := store.NewParquetExporter(dir)
		if err := exporter.ExportRun(ctx, runID, results); err != nil {
			return fmt.Errorf("failed to export parquet: %w", err)
		}
		logger.Info().Str("equity", exporter.EquityPath(runID)).Str("trades", exporter.TradesPath(runID)).Msg("Parquet export written")
	}

	if cfg.Sweep.Database == "" {
		return nil
	}
	db, err := store.NewSQLiteStore(cfg.Sweep.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rec := store.NewRunRecord(runID, results, strategyParams(cfg, results.Regime), cfg.Risk)
	if err := db.SaveRun(ctx, rec); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info().Str("db", cfg.Sweep.Database).Str("run_id", runID).Msg("Run recorded")
	return nil
}
