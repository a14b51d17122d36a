package reporting

import (
	"path/filepath"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
)

// Output file names inside a run directory
const (
	TradesCSVFile     = "trades.csv"
	RoundTripsCSVFile = "round_trips.csv"
	EquityCSVFile     = "equity.csv"
	TradesXLSXFile    = "trades.xlsx"
	ResultsJSONFile   = "results.json"
	SweepJSONFile     = "sweep.json"
	SweepXLSXFile     = "sweep.xlsx"
)

// DefaultReporter implements the complete reporting surface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONFormatter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(nil),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		json:    NewDefaultJSONFormatter(),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(results *backtest.BacktestResults) {
	r.console.OutputResults(results)
}

func (r *DefaultReporter) OutputResultsWithContext(results *backtest.BacktestResults, symbol, interval string) {
	r.console.OutputResultsWithContext(results, symbol, interval)
}

func (r *DefaultReporter) OutputSweep(report *backtest.SweepReport, top int) {
	r.console.OutputSweep(report, top)
}

func (r *DefaultReporter) OutputRegimes(analytics regime.RegimeAnalytics, changes []regime.RegimeChange) {
	r.console.OutputRegimes(analytics, changes)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return r.csv.WriteTradesCSV(results, path)
}

func (r *DefaultReporter) WriteTradesXLSX(results *backtest.BacktestResults, path string) error {
	return r.excel.WriteTradesXLSX(results, path)
}

func (r *DefaultReporter) WriteResultsJSON(results *backtest.BacktestResults, path string) error {
	return r.json.WriteResultsJSON(results, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(root, symbol, interval string) string {
	return r.paths.GetDefaultOutputDir(root, symbol, interval)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager writes every enabled output for a run or sweep
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(),
		config:   config,
	}
}

// WithConsole replaces the console reporter, e.g. to capture output in tests
func (m *ReportingManager) WithConsole(console *DefaultConsoleReporter) *ReportingManager {
	m.reporter.console = console
	return m
}

// ReportResults outputs results according to configuration and returns the
// files written
func (m *ReportingManager) ReportResults(results *backtest.BacktestResults, symbol, interval string) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputResultsWithContext(results, symbol, interval)
	}

	var written []string
	dir := m.config.OutputDirectory
	if m.config.CSVEnabled {
		files := []struct {
			name  string
			write func(*backtest.BacktestResults, string) error
		}{
			{TradesCSVFile, m.reporter.csv.WriteTradesCSV},
			{RoundTripsCSVFile, m.reporter.csv.WriteRoundTripsCSV},
			{EquityCSVFile, m.reporter.csv.WriteEquityCSV},
		}
		for _, f := range files {
			path := filepath.Join(dir, f.name)
			if err := f.write(results, path); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}

	if m.config.ExcelEnabled {
		path := filepath.Join(dir, TradesXLSXFile)
		if err := m.reporter.WriteTradesXLSX(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if m.config.JSONEnabled {
		path := filepath.Join(dir, ResultsJSONFile)
		if err := m.reporter.WriteResultsJSON(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

// ReportSweep outputs the ranked sweep according to configuration
func (m *ReportingManager) ReportSweep(report *backtest.SweepReport, top int) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputSweep(report, top)
	}

	var written []string
	if m.config.JSONEnabled {
		path := filepath.Join(m.config.OutputDirectory, SweepJSONFile)
		if err := m.reporter.json.WriteSweepJSON(report, top, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.ExcelEnabled {
		path := filepath.Join(m.config.OutputDirectory, SweepXLSXFile)
		if err := m.reporter.excel.WriteSweepXLSX(report, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
