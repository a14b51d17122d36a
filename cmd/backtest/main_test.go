package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
)

func writePriceCSV(t *testing.T, dir, name string, bars int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 100.0
	for i := 0; i < bars; i++ {
		close := 100 + 10*math.Sin(float64(i)/5)
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,1000\n",
			start.AddDate(0, 0, i).Format("2006-01-02"), prev, math.Max(prev, close)+1, math.Min(prev, close)-1, close)
		prev = close
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	dataFile := writePriceCSV(t, dir, "TEST_1d.csv", 80)
	outDir := filepath.Join(dir, "results")
	dbPath := filepath.Join(dir, "runs.db")

	rootCmd.SetArgs([]string{
		"run",
		"--data", dataFile,
		"--strategy", "ma_crossover",
		"--param", "short_window=3",
		"--param", "long_window=8",
		"--regime-mode", "off",
		"--format", "json,csv",
		"--output-dir", outDir,
		"--db", dbPath,
		"--log-level", "warn",
	})
	require.NoError(t, rootCmd.Execute())

	runDir := filepath.Join(outDir, "TEST_1d")
	content, err := os.ReadFile(filepath.Join(runDir, "results.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "off", doc["regime_mode"])
	assert.Contains(t, doc, "metrics")

	assert.FileExists(t, filepath.Join(runDir, "trades.csv"))
	assert.FileExists(t, filepath.Join(runDir, "equity.csv"))
	assert.FileExists(t, dbPath)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"runs", "--db", dbPath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "ma_crossover")
}

func TestStrategiesCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{"strategies"})
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	for _, name := range []string{"ma_crossover", "asymmetric_ema", "sopr_ema"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "short_window=5")
}

func TestParseSeriesFlags(t *testing.T) {
	specs, err := parseSeriesFlags([]string{"data/sopr.csv:date:sopr_value:sopr", "data/mvrv.csv:date:mvrv"})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, data.SeriesSpec{Path: "data/sopr.csv", DateColumn: "date", ValueColumn: "sopr_value", Name: "sopr"}, specs[0])
	assert.Equal(t, "mvrv", specs[1].ColumnName())

	_, err = parseSeriesFlags([]string{"data/sopr.csv"})
	assert.Error(t, err)
}

func TestParseGrid(t *testing.T) {
	grid, err := parseGrid([]string{"short_window=5,10, 20", "long_window=50"})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10, 20}, grid["short_window"])
	assert.Equal(t, []float64{50}, grid["long_window"])

	_, err = parseGrid([]string{"short_window"})
	assert.Error(t, err)
	_, err = parseGrid([]string{"short_window=five"})
	assert.Error(t, err)
}

func TestParseParamValues(t *testing.T) {
	params := parseParamValues(map[string]string{"short_window": "10", "column": "sopr"})
	assert.Equal(t, 10.0, params["short_window"])
	assert.Equal(t, "sopr", params["column"])
}

func TestEngineFlags_Apply(t *testing.T) {
	var f engineFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{
		"--strategy", "ma_crossover",
		"--param", "short_window=4",
		"--regime-strategy", "bear=asymmetric_ema",
		"--risk", "0.01",
	}))

	cfg := config.DefaultConfig()
	require.NoError(t, f.apply(cmd.Flags(), cfg))

	assert.Equal(t, 0.01, cfg.Risk.RiskFraction)
	assert.Equal(t, config.DefaultCommission, cfg.Engine.Commission)
	require.Len(t, cfg.Strategies, 2)
	assert.Equal(t, "ma_crossover", cfg.Strategies[0].Name)
	assert.Equal(t, 4.0, cfg.Strategies[0].Params["short_window"])
	assert.Equal(t, config.StrategyConfig{Regime: "bear", Name: "asymmetric_ema"}, cfg.Strategies[1])

	require.Error(t, (&engineFlags{regimeStrategies: []string{"bear"}}).apply(cmd.Flags(), cfg))
}

func TestBestConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Data.File = "prices.csv"
	cfg.Sweep.Grid = map[string][]float64{"short_window": {3, 5}}

	best := bestConfig(cfg, "ma_crossover", backtest.SweepResult{
		Params: map[string]any{"short_window": 3.0, "long_window": 9.0},
		Risk:   risk.Params{RiskFraction: 0.01, StopMultiplier: 1.5},
	})
	require.NoError(t, best.Validate())
	assert.Equal(t, "off", best.Regime.Mode)
	assert.Empty(t, best.Sweep.Grid)
	assert.Equal(t, 0.01, best.Risk.RiskFraction)
	assert.Equal(t, 3.0, best.Strategies[0].Params["short_window"])
	// the original is untouched
	assert.Equal(t, config.DefaultStrategy, cfg.Strategies[0].Name)
}
