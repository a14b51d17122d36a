package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
)

// jsonFloat encodes NaN as null and infinities as "Infinity"/"-Infinity",
// which encoding/json rejects for plain float64 values
type jsonFloat float64

// MarshalJSON implements json.Marshaler
func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte("null"), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	default:
		return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
	}
}

// MetricsSummary is the JSON form of the scalar performance figures
type MetricsSummary struct {
	StartBalance     jsonFloat `json:"start_balance"`
	EndBalance       jsonFloat `json:"end_balance"`
	TotalReturn      jsonFloat `json:"total_return"`
	AnnualizedReturn jsonFloat `json:"annualized_return"`
	MaxDrawdown      jsonFloat `json:"max_drawdown"`
	SharpeRatio      jsonFloat `json:"sharpe_ratio"`
	AnnualizedSharpe jsonFloat `json:"annualized_sharpe"`
	SortinoRatio     jsonFloat `json:"sortino_ratio"`
	CalmarRatio      jsonFloat `json:"calmar_ratio"`
	ProfitFactor     jsonFloat `json:"profit_factor"`
	WinRate          jsonFloat `json:"win_rate"`
	MaxExposure      jsonFloat `json:"max_exposure"`
	AvgExposure      jsonFloat `json:"avg_exposure"`
	TotalTurnover    jsonFloat `json:"total_turnover"`
	TotalTrades      int       `json:"total_trades"`
	WinningTrades    int       `json:"winning_trades"`
	LosingTrades     int       `json:"losing_trades"`
}

// ResultsDocument is the JSON export of one run
type ResultsDocument struct {
	Strategy      string                 `json:"strategy"`
	Regime        regime.Label           `json:"regime,omitempty"`
	RegimeMode    regime.Mode            `json:"regime_mode"`
	Metrics       MetricsSummary         `json:"metrics"`
	Skipped       backtest.SkipCounts    `json:"skipped"`
	Trades        []backtest.Trade       `json:"trades"`
	RoundTrips    []backtest.RoundTrip   `json:"round_trips"`
	OpenPosition  *backtest.OpenPosition `json:"open_position,omitempty"`
	RegimeChanges []regime.RegimeChange  `json:"regime_changes,omitempty"`
	EquityCurve   []backtest.EquityPoint `json:"equity_curve,omitempty"`
}

// SweepEntry is one ranked grid point in a sweep export
type SweepEntry struct {
	Rank     int            `json:"rank"`
	ID       string         `json:"id"`
	Strategy string         `json:"strategy"`
	Params   map[string]any `json:"params"`
	Risk     risk.Params    `json:"risk"`
	Metrics  MetricsSummary `json:"metrics"`
}

// NewMetricsSummary extracts the scalar metrics of a run
func NewMetricsSummary(r *backtest.BacktestResults) MetricsSummary {
	return MetricsSummary{
		StartBalance:     jsonFloat(r.StartBalance),
		EndBalance:       jsonFloat(r.EndBalance),
		TotalReturn:      jsonFloat(r.TotalReturn),
		AnnualizedReturn: jsonFloat(r.AnnualizedReturn),
		MaxDrawdown:      jsonFloat(r.MaxDrawdown),
		SharpeRatio:      jsonFloat(r.SharpeRatio),
		AnnualizedSharpe: jsonFloat(r.AnnualizedSharpe),
		SortinoRatio:     jsonFloat(r.SortinoRatio),
		CalmarRatio:      jsonFloat(r.CalmarRatio),
		ProfitFactor:     jsonFloat(r.ProfitFactor),
		WinRate:          jsonFloat(r.WinRate),
		MaxExposure:      jsonFloat(r.MaxExposure),
		AvgExposure:      jsonFloat(r.AvgExposure),
		TotalTurnover:    jsonFloat(r.TotalTurnover),
		TotalTrades:      r.TotalTrades,
		WinningTrades:    r.WinningTrades,
		LosingTrades:     r.LosingTrades,
	}
}

// NewResultsDocument builds the JSON export of a run. The equity curve is
// only included when withEquity is set.
func NewResultsDocument(r *backtest.BacktestResults, withEquity bool) ResultsDocument {
	doc := ResultsDocument{
		Strategy:      r.Strategy,
		Regime:        r.Regime,
		RegimeMode:    r.RegimeMode,
		Metrics:       NewMetricsSummary(r),
		Skipped:       r.Skipped,
		Trades:        r.Trades,
		RoundTrips:    r.RoundTrips,
		OpenPosition:  r.OpenPosition,
		RegimeChanges: r.RegimeChanges,
	}
	if withEquity {
		doc.EquityCurve = r.EquityCurve
	}
	return doc
}

// DefaultJSONFormatter implements JSON output functionality
type DefaultJSONFormatter struct {
	IncludeEquity bool
}

// NewDefaultJSONFormatter creates a new JSON formatter
func NewDefaultJSONFormatter() *DefaultJSONFormatter {
	return &DefaultJSONFormatter{}
}

// FormatResults encodes a run as indented JSON
func (f *DefaultJSONFormatter) FormatResults(results *backtest.BacktestResults) ([]byte, error) {
	return json.MarshalIndent(NewResultsDocument(results, f.IncludeEquity), "", "  ")
}

// FormatSweep encodes the top successful grid points; top <= 0 keeps all
func (f *DefaultJSONFormatter) FormatSweep(report *backtest.SweepReport, top int) ([]byte, error) {
	entries := make([]SweepEntry, 0, len(report.Results))
	for _, res := range report.Results {
		if res.Error != nil || res.Results == nil {
			continue
		}
		if top > 0 && len(entries) == top {
			break
		}
		entries = append(entries, SweepEntry{
			Rank:     len(entries) + 1,
			ID:       res.ID,
			Strategy: res.Strategy,
			Params:   res.Params,
			Risk:     res.Risk,
			Metrics:  NewMetricsSummary(res.Results),
		})
	}
	return json.MarshalIndent(entries, "", "  ")
}

// WriteResultsJSON writes a run to path
func (f *DefaultJSONFormatter) WriteResultsJSON(results *backtest.BacktestResults, path string) error {
	data, err := f.FormatResults(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return writeFile(path, data)
}

// WriteSweepJSON writes the ranked sweep to path
func (f *DefaultJSONFormatter) WriteSweepJSON(report *backtest.SweepReport, top int, path string) error {
	data, err := f.FormatSweep(report, top)
	if err != nil {
		return fmt.Errorf("failed to encode sweep: %w", err)
	}
	return writeFile(path, data)
}

// PrintResults prints a run as JSON to stdout
func (f *DefaultJSONFormatter) PrintResults(results *backtest.BacktestResults) error {
	data, err := f.FormatResults(results)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// ExtractIntervalFromPath finds an interval segment such as "5m", "4h" or "1d"
// in a data file path. "data/BTCUSDT/5m/candles.csv" yields "5m" and
// "data/BTC_USDT_1d.csv" yields "1d".
func ExtractIntervalFromPath(dataPath string) string {
	if dataPath == "" {
		return ""
	}

	dataPath = strings.TrimSuffix(filepath.ToSlash(dataPath), filepath.Ext(dataPath))
	parts := strings.FieldsFunc(dataPath, func(r rune) bool { return r == '/' || r == '_' || r == '-' })

	for i := len(parts) - 1; i >= 0; i-- {
		part := strings.ToLower(parts[i])
		if len(part) < 2 {
			continue
		}
		switch part[len(part)-1] {
		case 'm', 'h', 'd', 'w':
			if _, err := strconv.Atoi(part[:len(part)-1]); err == nil {
				return part
			}
		}
	}
	return ""
}
