package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

// Workbook sheet names
const (
	TradesSheet     = "Trades"
	RoundTripsSheet = "Round Trips"
	EquitySheet     = "Equity"
	SummarySheet    = "Summary"
	SweepSheet      = "Sweep"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes a workbook with the fill log, round trips, the
// equity curve and a metrics summary
func (r *DefaultExcelReporter) WriteTradesXLSX(results *backtest.BacktestResults, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), TradesSheet); err != nil {
		return err
	}
	for _, sheet := range []string{RoundTripsSheet, EquitySheet, SummarySheet} {
		if _, err := fx.NewSheet(sheet); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, TradesSheet, results, styles); err != nil {
		return err
	}
	if err := r.writeRoundTripsSheet(fx, RoundTripsSheet, results, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, EquitySheet, results, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, SummarySheet, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// WriteSweepXLSX writes one row per successful grid point, best first
func (r *DefaultExcelReporter) WriteSweepXLSX(report *backtest.SweepReport, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), SweepSheet); err != nil {
		return err
	}
	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	headers := []string{"Rank", "Run ID", "Parameters", "Risk Fraction", "Stop Multiplier",
		"Total Return", "Max Drawdown", "Sharpe", "Profit Factor", "Trades", "Win Rate", "Final Equity"}
	if err := writeHeader(fx, SweepSheet, headers, styles); err != nil {
		return err
	}
	fx.SetColWidth(SweepSheet, "B", "B", 38)
	fx.SetColWidth(SweepSheet, "C", "C", 40)
	fx.SetColWidth(SweepSheet, "D", "L", 14)

	row := 2
	for _, res := range report.Results {
		if res.Error != nil || res.Results == nil {
			continue
		}
		m := res.Results
		values := []interface{}{
			row - 1, res.ID, formatParams(res.Params), res.Risk.RiskFraction, res.Risk.StopMultiplier,
			m.TotalReturn, m.MaxDrawdown, cellFloat(m.SharpeRatio), cellFloat(m.ProfitFactor),
			m.TotalTrades, m.WinRate / 100, m.EndBalance,
		}
		cellStyles := []int{
			styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.PercentStyle, styles.BaseStyle,
			signedPercentStyle(m.TotalReturn, styles), styles.RedPercentStyle, styles.BaseStyle, styles.BaseStyle,
			styles.BaseStyle, styles.PercentStyle, styles.CurrencyStyle,
		}
		if err := writeRow(fx, SweepSheet, row, values, cellStyles); err != nil {
			return err
		}
		row++
	}

	return fx.SaveAs(path)
}

// createExcelStyles creates the workbook styles
func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles

	lightBorder := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}
	darkBorder := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	right := &excelize.Alignment{Horizontal: "right"}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}
	priceFormat := "#,##0.00######"

	defs := []struct {
		target *int
		style  *excelize.Style
	}{
		{&styles.HeaderStyle, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
			Fill:      fill("2F4F4F"),
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    darkBorder,
		}},
		{&styles.CurrencyStyle, &excelize.Style{NumFmt: 7, Alignment: right, Border: lightBorder}},
		{&styles.PriceStyle, &excelize.Style{CustomNumFmt: &priceFormat, Alignment: right, Border: lightBorder}},
		{&styles.PercentStyle, &excelize.Style{NumFmt: 10, Alignment: right, Border: lightBorder}},
		{&styles.BaseStyle, &excelize.Style{Border: lightBorder}},
		{&styles.RedPercentStyle, &excelize.Style{NumFmt: 10, Font: &excelize.Font{Color: "FF0000"}, Alignment: right, Border: lightBorder}},
		{&styles.GreenPercentStyle, &excelize.Style{NumFmt: 10, Font: &excelize.Font{Color: "008000"}, Alignment: right, Border: lightBorder}},
		{&styles.BuyStyle, &excelize.Style{Fill: fill("E6F3FF"), Border: lightBorder}},
		{&styles.SellStyle, &excelize.Style{Fill: fill("E6FFE6"), Border: lightBorder}},
		{&styles.SummaryStyle, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
			Fill:      fill("4472C4"),
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
			Border:    darkBorder,
		}},
	}

	for _, d := range defs {
		id, err := fx.NewStyle(d.style)
		if err != nil {
			return styles, err
		}
		*d.target = id
	}
	return styles, nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	headers := []string{"Kind", "Bar", "Timestamp", "Market Price", "Executed Price", "Size",
		"Value", "Commission", "Stop Price", "Strategy", "Regime"}
	if err := writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}
	fx.SetColWidth(sheet, "A", "B", 8)
	fx.SetColWidth(sheet, "C", "C", 18)
	fx.SetColWidth(sheet, "D", "I", 14)
	fx.SetColWidth(sheet, "J", "J", 28)

	for i, t := range results.Trades {
		kindStyle := styles.BuyStyle
		var stop interface{} = ""
		if t.Kind == backtest.TradeSell {
			kindStyle = styles.SellStyle
		} else {
			stop = t.StopPrice
		}

		values := []interface{}{
			string(t.Kind), t.BarIndex, t.Timestamp.Format(timeLayout), t.MarketPrice, t.ExecutedPrice,
			t.Size, t.Value, t.Commission, stop, t.Strategy, string(t.Regime),
		}
		cellStyles := []int{
			kindStyle, styles.BaseStyle, styles.BaseStyle, styles.PriceStyle, styles.PriceStyle,
			styles.PriceStyle, styles.CurrencyStyle, styles.CurrencyStyle, styles.PriceStyle, styles.BaseStyle, styles.BaseStyle,
		}
		if err := writeRow(fx, sheet, i+2, values, cellStyles); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeRoundTripsSheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	headers := []string{"#", "Entry Time", "Exit Time", "Entry Price", "Exit Price", "Size",
		"PnL", "Return", "Bars Held", "Hold Period"}
	if err := writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}
	fx.SetColWidth(sheet, "B", "C", 18)
	fx.SetColWidth(sheet, "D", "J", 14)

	row := 2
	for i, rt := range results.RoundTrips {
		values := []interface{}{
			i + 1, rt.Entry.Timestamp.Format(timeLayout), rt.Exit.Timestamp.Format(timeLayout),
			rt.Entry.ExecutedPrice, rt.Exit.ExecutedPrice, rt.Entry.Size, rt.PnL, rt.Return,
			rt.BarsHeld, rt.HoldPeriod.String(),
		}
		cellStyles := []int{
			styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.PriceStyle, styles.PriceStyle,
			styles.PriceStyle, styles.CurrencyStyle, signedPercentStyle(rt.Return, styles), styles.BaseStyle, styles.BaseStyle,
		}
		if err := writeRow(fx, sheet, row, values, cellStyles); err != nil {
			return err
		}
		row++
	}

	if pos := results.OpenPosition; pos != nil {
		values := []interface{}{
			"open", pos.Entry.Timestamp.Format(timeLayout), "", pos.Entry.ExecutedPrice, pos.MarkPrice,
			pos.Entry.Size, pos.UnrealizedPnL, "", "", "",
		}
		cellStyles := []int{
			styles.SummaryStyle, styles.BaseStyle, styles.BaseStyle, styles.PriceStyle, styles.PriceStyle,
			styles.PriceStyle, styles.CurrencyStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle,
		}
		if err := writeRow(fx, sheet, row, values, cellStyles); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	headers := []string{"Timestamp", "Close", "Cash", "Position Size", "Equity", "Exposure"}
	if err := writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}
	fx.SetColWidth(sheet, "A", "A", 18)
	fx.SetColWidth(sheet, "B", "F", 14)

	cellStyles := []int{styles.BaseStyle, styles.PriceStyle, styles.CurrencyStyle, styles.PriceStyle, styles.CurrencyStyle, styles.PercentStyle}
	for i, p := range results.EquityCurve {
		values := []interface{}{p.Timestamp.Format(timeLayout), p.Close, p.Cash, p.PositionSize, p.Equity, cellFloat(p.Exposure)}
		if err := writeRow(fx, sheet, i+2, values, cellStyles); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 18)

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Strategy", results.Strategy, styles.BaseStyle},
		{"Regime", string(results.Regime), styles.BaseStyle},
		{"Regime Mode", string(results.RegimeMode), styles.BaseStyle},
		{"Initial Balance", results.StartBalance, styles.CurrencyStyle},
		{"Final Equity", results.EndBalance, styles.CurrencyStyle},
		{"Final Cash", results.FinalCash, styles.CurrencyStyle},
		{"Total Return", results.TotalReturn, signedPercentStyle(results.TotalReturn, styles)},
		{"Annualized Return", cellFloat(results.AnnualizedReturn), styles.PercentStyle},
		{"Max Drawdown", results.MaxDrawdown, styles.RedPercentStyle},
		{"Sharpe Ratio", cellFloat(results.SharpeRatio), styles.BaseStyle},
		{"Annualized Sharpe", cellFloat(results.AnnualizedSharpe), styles.BaseStyle},
		{"Sortino Ratio", cellFloat(results.SortinoRatio), styles.BaseStyle},
		{"Calmar Ratio", cellFloat(results.CalmarRatio), styles.BaseStyle},
		{"Profit Factor", cellFloat(results.ProfitFactor), styles.BaseStyle},
		{"Round Trips", results.TotalTrades, styles.BaseStyle},
		{"Winning Trades", results.WinningTrades, styles.BaseStyle},
		{"Losing Trades", results.LosingTrades, styles.BaseStyle},
		{"Win Rate", results.WinRate / 100, styles.PercentStyle},
		{"Skipped (degenerate size)", results.Skipped.DegenerateSize, styles.BaseStyle},
		{"Skipped (insufficient funds)", results.Skipped.InsufficientFunds, styles.BaseStyle},
		{"Max Exposure", results.MaxExposure, styles.PercentStyle},
		{"Avg Exposure", results.AvgExposure, styles.PercentStyle},
		{"Total Turnover", results.TotalTurnover, styles.BaseStyle},
		{"Regime Changes", len(results.RegimeChanges), styles.BaseStyle},
	}

	for i, row := range rows {
		if err := writeRow(fx, sheet, i+1, []interface{}{row.label, row.value}, []int{styles.SummaryStyle, row.style}); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle); err != nil {
			return err
		}
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRow(fx *excelize.File, sheet string, row int, values []interface{}, cellStyles []int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if i < len(cellStyles) {
			if err := fx.SetCellStyle(sheet, cell, cell, cellStyles[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func signedPercentStyle(v float64, styles ExcelStyles) int {
	if v < 0 {
		return styles.RedPercentStyle
	}
	return styles.GreenPercentStyle
}

// cellFloat replaces values a spreadsheet cannot hold with text
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatRatio(v)
	}
	return v
}

// WriteTradesXLSX writes the workbook with the default reporter
func WriteTradesXLSX(results *backtest.BacktestResults, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(results, path)
}
