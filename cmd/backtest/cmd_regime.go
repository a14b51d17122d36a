package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/reporting"
)

var regimeOpts struct {
	data        dataFlags
	lookback    int
	showChanges bool
	jsonOutput  bool
}

// regimeCmd classifies the market regime of a dataset
var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Classify the market regime of a dataset",
	Long: `Classify the dataset as bull, bear or neutral from the slope of its
long moving average, both over the whole history and bar by bar using only
data available at each bar.

Examples:
  backtest regime --data data/BTC_USDT_1d.csv
  backtest regime --symbol BTCUSDT --interval 1d --lookback 100 --json`,
	RunE: runRegime,
}

func init() {
	rootCmd.AddCommand(regimeCmd)

	fs := regimeCmd.Flags()
	regimeOpts.data.register(fs)
	fs.IntVar(&regimeOpts.lookback, "lookback", config.DefaultRegimeLookback, "Moving-average window of the classifier")
	fs.BoolVar(&regimeOpts.showChanges, "changes", true, "List every regime change")
	fs.BoolVar(&regimeOpts.jsonOutput, "json", false, "Print the classification as JSON")
}

// RegimeReport is the JSON output of the regime command
type RegimeReport struct {
	Regime    regime.Label           `json:"regime"`
	Lookback  int                    `json:"lookback"`
	Bars      int                    `json:"bars"`
	From      time.Time              `json:"from"`
	To        time.Time              `json:"to"`
	Analytics regime.RegimeAnalytics `json:"analytics"`
	Changes   []regime.RegimeChange  `json:"changes,omitempty"`
}

func applyRegimeFlags(fs *pflag.FlagSet, cfg *config.BacktestConfig) error {
	if fs.Changed("lookback") {
		cfg.Regime.Lookback = regimeOpts.lookback
	}
	return nil
}

func runRegime(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, regimeOpts.data.apply, applyRegimeFlags)
	if err != nil {
		return err
	}

	logger, closer, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ds, _, err := prepareDataset(cfg, logger)
	if err != nil {
		return err
	}

	classifier := regime.NewSlopeClassifier(cfg.Regime.Lookback)
	closes := ds.Closes()
	labels := classifier.ClassifyEach(closes)

	timestamps := make([]time.Time, ds.Len())
	for i := range timestamps {
		timestamps[i] = ds.Timestamp(i)
	}

	report := RegimeReport{
		Regime:    classifier.Classify(closes),
		Lookback:  classifier.GetLookback(),
		Bars:      ds.Len(),
		From:      timestamps[0],
		To:        timestamps[len(timestamps)-1],
		Analytics: regime.Analyze(labels),
	}
	if regimeOpts.showChanges {
		report.Changes = regime.Changes(labels, timestamps, closes)
	}

	out := cmd.OutOrStdout()
	if regimeOpts.jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprintf(out, "Regime over %d bars (%s to %s, lookback %d): %s\n\n",
		report.Bars, report.From.Format("2006-01-02"), report.To.Format("2006-01-02"), report.Lookback, report.Regime)
	reporting.NewDefaultConsoleReporter(out).OutputRegimes(report.Analytics, report.Changes)
	return nil
}
