package reporting

import (
	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
)

// Package reporting renders backtest and sweep results for people and spreadsheets

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(results *backtest.BacktestResults)
	OutputResultsWithContext(results *backtest.BacktestResults, symbol, interval string)
	OutputSweep(report *backtest.SweepReport, top int)
	OutputRegimes(analytics regime.RegimeAnalytics, changes []regime.RegimeChange)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(results *backtest.BacktestResults, path string) error
	WriteTradesXLSX(results *backtest.BacktestResults, path string) error
	WriteResultsJSON(results *backtest.BacktestResults, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(root, symbol, interval string) string
	EnsureDirectoryExists(path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle       int
	CurrencyStyle     int
	PriceStyle        int
	PercentStyle      int
	BaseStyle         int
	RedPercentStyle   int
	GreenPercentStyle int
	BuyStyle          int
	SellStyle         int
	SummaryStyle      int
}

// ReportingConfig selects the outputs ReportingManager produces
type ReportingConfig struct {
	EnableConsole   bool
	OutputDirectory string
	CSVEnabled      bool
	JSONEnabled     bool
	ExcelEnabled    bool
}
