package reporting

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
)

// DefaultConsoleReporter renders results as rounded tables
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to out, or stdout when nil
func NewDefaultConsoleReporter(out io.Writer) *DefaultConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &DefaultConsoleReporter{out: out}
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputResults prints the performance summary of one run
func (r *DefaultConsoleReporter) OutputResults(results *backtest.BacktestResults) {
	r.outputResults("BACKTEST RESULTS", results)
}

// OutputResultsWithContext prints results with symbol and interval in the title
func (r *DefaultConsoleReporter) OutputResultsWithContext(results *backtest.BacktestResults, symbol, interval string) {
	title := "BACKTEST RESULTS"
	if symbol != "" {
		title = fmt.Sprintf("BACKTEST RESULTS %s %s", strings.ToUpper(symbol), interval)
	}
	r.outputResults(strings.TrimSpace(title), results)
}

func (r *DefaultConsoleReporter) outputResults(title string, results *backtest.BacktestResults) {
	t := r.newTable(title)

	strategyName := results.Strategy
	if results.Regime != "" {
		strategyName = fmt.Sprintf("%s (%s)", results.Strategy, results.Regime)
	}

	t.AppendRows([]table.Row{
		{"Strategy", strategyName},
		{"Regime Mode", string(results.RegimeMode)},
		{"Initial Balance", fmt.Sprintf("$%.2f", results.StartBalance)},
		{"Final Equity", fmt.Sprintf("$%.2f", results.EndBalance)},
		{"Total Return", formatPercent(results.TotalReturn)},
		{"Annualized Return", formatPercent(results.AnnualizedReturn)},
		{"Max Drawdown", formatPercent(results.MaxDrawdown)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Sharpe Ratio", fmt.Sprintf("%s (Ann: %s)", formatRatio(results.SharpeRatio), formatRatio(results.AnnualizedSharpe))},
		{"Sortino Ratio", formatRatio(results.SortinoRatio)},
		{"Calmar Ratio", formatRatio(results.CalmarRatio)},
		{"Profit Factor", formatRatio(results.ProfitFactor)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total Trades", results.TotalTrades},
		{"Winning Trades", fmt.Sprintf("%d (%.1f%%)", results.WinningTrades, results.WinRate)},
		{"Losing Trades", results.LosingTrades},
		{"Skipped Entries", fmt.Sprintf("%d (size %d, funds %d)", results.Skipped.Total(), results.Skipped.DegenerateSize, results.Skipped.InsufficientFunds)},
		{"Max Exposure", formatPercent(results.MaxExposure)},
		{"Avg Exposure", formatPercent(results.AvgExposure)},
		{"Total Turnover", fmt.Sprintf("%.2fx", results.TotalTurnover)},
	})
	if results.RegimeMode == regime.ModePerBar {
		t.AppendRow(table.Row{"Regime Changes", len(results.RegimeChanges)})
	}
	if pos := results.OpenPosition; pos != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Open Position", fmt.Sprintf("%.6f @ %.2f (unrealized $%.2f)", pos.Entry.Size, pos.Entry.ExecutedPrice, pos.UnrealizedPnL)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 45, Align: text.AlignLeft},
	})
	t.Render()
}

// OutputSweep prints the top ranked grid points of a sweep; top <= 0 prints all
func (r *DefaultConsoleReporter) OutputSweep(report *backtest.SweepReport, top int) {
	t := r.newTable("PARAMETER SWEEP")
	t.AppendHeader(table.Row{"#", "Parameters", "Risk", "Stop", "Return", "Max DD", "Sharpe", "Trades", "Win %"})

	rank := 0
	for _, res := range report.Results {
		if res.Error != nil || res.Results == nil {
			continue
		}
		rank++
		if top > 0 && rank > top {
			break
		}
		t.AppendRow(table.Row{
			rank,
			formatParams(res.Params),
			fmt.Sprintf("%.2f%%", res.Risk.RiskFraction*100),
			fmt.Sprintf("%.2fx", res.Risk.StopMultiplier),
			formatPercent(res.Results.TotalReturn),
			formatPercent(res.Results.MaxDrawdown),
			formatRatio(res.Results.SharpeRatio),
			res.Results.TotalTrades,
			fmt.Sprintf("%.1f", res.Results.WinRate),
		})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d evaluated, %d failed, %d invalid", len(report.Results)-report.Failed, report.Failed, report.Invalid)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: 50, Align: text.AlignLeft},
	})
	t.Render()
}

// OutputRegimes prints a regime distribution and its transitions
func (r *DefaultConsoleReporter) OutputRegimes(analytics regime.RegimeAnalytics, changes []regime.RegimeChange) {
	t := r.newTable("MARKET REGIMES")
	t.AppendHeader(table.Row{"Regime", "Share"})
	for _, label := range regime.SortedLabels(analytics.RegimeDistribution) {
		t.AppendRow(table.Row{string(label), formatPercent(analytics.RegimeDistribution[label])})
	}
	t.AppendFooter(table.Row{"Current", string(analytics.Current)})
	t.Render()

	if len(changes) == 0 {
		return
	}

	c := r.newTable(fmt.Sprintf("REGIME CHANGES (%d, avg run %.1f bars)", analytics.TotalRegimeChanges, analytics.AverageRunLength))
	c.AppendHeader(table.Row{"Bar", "Timestamp", "From", "To", "Close"})
	for _, ch := range changes {
		ts := ""
		if !ch.Timestamp.IsZero() {
			ts = ch.Timestamp.Format("2006-01-02 15:04")
		}
		c.AppendRow(table.Row{ch.BarIndex, ts, string(ch.Old), string(ch.New), fmt.Sprintf("%.2f", ch.Close)})
	}
	c.Render()
}

// OutputConsole prints results with the default reporter
func OutputConsole(results *backtest.BacktestResults) {
	NewDefaultConsoleReporter(nil).OutputResults(results)
}

// OutputConsoleWithContext prints results with symbol and interval context
func OutputConsoleWithContext(results *backtest.BacktestResults, symbol, interval string) {
	NewDefaultConsoleReporter(nil).OutputResultsWithContext(results, symbol, interval)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatRatio(v)
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatRatio(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// formatParams renders parameters as sorted key=value pairs
func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, " ")
}
