package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

const timeLayout = "2006-01-02 15:04:05"

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes the fill log followed by a summary row. A path
// ending in .xlsx is delegated to the Excel writer.
func (r *DefaultCSVReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX(results, path)
	}

	header := []string{
		"Kind", "Bar", "Timestamp", "Market_Price", "Executed_Price", "Size",
		"Value", "Commission", "Stop_Price", "Strategy", "Regime",
	}

	rows := make([][]string, 0, len(results.Trades)+1)
	var totalCommission float64
	for _, t := range results.Trades {
		totalCommission += t.Commission
		stop := ""
		if t.Kind == backtest.TradeBuy {
			stop = strconv.FormatFloat(t.StopPrice, 'f', 8, 64)
		}
		rows = append(rows, []string{
			string(t.Kind),
			strconv.Itoa(t.BarIndex),
			t.Timestamp.Format(timeLayout),
			strconv.FormatFloat(t.MarketPrice, 'f', 8, 64),
			strconv.FormatFloat(t.ExecutedPrice, 'f', 8, 64),
			strconv.FormatFloat(t.Size, 'f', 8, 64),
			fmt.Sprintf("%.2f", t.Value),
			fmt.Sprintf("%.4f", t.Commission),
			stop,
			t.Strategy,
			string(t.Regime),
		})
	}

	summary := make([]string, len(header))
	summary[len(header)-1] = fmt.Sprintf("SUMMARY: fills=%d; round_trips=%d; total_commission=$%.2f; final_equity=$%.2f; total_return=%s",
		len(results.Trades), results.TotalTrades, totalCommission, results.EndBalance, formatPercent(results.TotalReturn))
	rows = append(rows, summary)

	return writeCSV(path, header, rows)
}

// WriteRoundTripsCSV writes one row per closed buy/sell pair
func (r *DefaultCSVReporter) WriteRoundTripsCSV(results *backtest.BacktestResults, path string) error {
	header := []string{
		"Entry_Time", "Exit_Time", "Entry_Price", "Exit_Price", "Size",
		"Trade_PnL_$", "Return_%", "Bars_Held", "Win_Loss",
	}

	rows := make([][]string, 0, len(results.RoundTrips))
	for _, rt := range results.RoundTrips {
		winLoss := "W"
		if rt.PnL < 0 {
			winLoss = "L"
		}
		rows = append(rows, []string{
			rt.Entry.Timestamp.Format(timeLayout),
			rt.Exit.Timestamp.Format(timeLayout),
			strconv.FormatFloat(rt.Entry.ExecutedPrice, 'f', 8, 64),
			strconv.FormatFloat(rt.Exit.ExecutedPrice, 'f', 8, 64),
			strconv.FormatFloat(rt.Entry.Size, 'f', 8, 64),
			fmt.Sprintf("%.2f", rt.PnL),
			fmt.Sprintf("%.2f", rt.Return*100),
			strconv.Itoa(rt.BarsHeld),
			winLoss,
		})
	}
	return writeCSV(path, header, rows)
}

// WriteEquityCSV writes the per-bar equity curve
func (r *DefaultCSVReporter) WriteEquityCSV(results *backtest.BacktestResults, path string) error {
	header := []string{"Timestamp", "Close", "Cash", "Position_Size", "Equity", "Exposure"}

	rows := make([][]string, 0, len(results.EquityCurve))
	for _, p := range results.EquityCurve {
		rows = append(rows, []string{
			p.Timestamp.Format(timeLayout),
			strconv.FormatFloat(p.Close, 'f', -1, 64),
			fmt.Sprintf("%.2f", p.Cash),
			strconv.FormatFloat(p.PositionSize, 'f', 8, 64),
			fmt.Sprintf("%.2f", p.Equity),
			fmt.Sprintf("%.4f", p.Exposure),
		})
	}
	return writeCSV(path, header, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

// WriteTradesCSV writes the fill log with the default reporter
func WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(results, path)
}
