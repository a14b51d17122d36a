package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

// Compile-time interface check.
var _ ResultExporter = (*ParquetExporter)(nil)

// ParquetExporter writes run detail as Parquet files under a directory:
//
//	<Dir>/<runID>/equity.parquet
//	<Dir>/<runID>/trades.parquet
type ParquetExporter struct {
	Dir string
}

// NewParquetExporter creates a new ParquetExporter rooted at dir.
func NewParquetExporter(dir string) *ParquetExporter {
	return &ParquetExporter{Dir: dir}
}

// EquityRecord is the Parquet schema for one equity curve point.
type EquityRecord struct {
	Timestamp    int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Equity       float64 `parquet:"equity"`
	Cash         float64 `parquet:"cash"`
	PositionSize float64 `parquet:"position_size"`
	Close        float64 `parquet:"close"`
	Exposure     float64 `parquet:"exposure"`
}

// TradeRecord is the Parquet schema for one executed fill.
type TradeRecord struct {
	Kind          string  `parquet:"kind"`
	BarIndex      int64   `parquet:"bar_index"`
	Timestamp     int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	MarketPrice   float64 `parquet:"market_price"`
	ExecutedPrice float64 `parquet:"executed_price"`
	Size          float64 `parquet:"size"`
	Value         float64 `parquet:"value"`
	Commission    float64 `parquet:"commission"`
	StopPrice     float64 `parquet:"stop_price"`
	Strategy      string  `parquet:"strategy"`
	Regime        string  `parquet:"regime"`
}

// ExportRun writes the equity curve and trade log of a run.
func (e *ParquetExporter) ExportRun(_ context.Context, runID string, res *backtest.BacktestResults) error {
	if err := writeParquetFile(e.EquityPath(runID), EquityRecords(res.EquityCurve)); err != nil {
		return fmt.Errorf("writing equity curve for %s: %w", runID, err)
	}
	if err := writeParquetFile(e.TradesPath(runID), TradeRecords(res.Trades)); err != nil {
		return fmt.Errorf("writing trades for %s: %w", runID, err)
	}
	return nil
}

// ReadEquity reads back an exported equity curve.
func (e *ParquetExporter) ReadEquity(runID string) ([]backtest.EquityPoint, error) {
	records, err := readParquetFile[EquityRecord](e.EquityPath(runID))
	if err != nil {
		return nil, err
	}
	out := make([]backtest.EquityPoint, len(records))
	for i, r := range records {
		out[i] = backtest.EquityPoint{
			Timestamp:    time.UnixMilli(r.Timestamp).UTC(),
			Equity:       r.Equity,
			Cash:         r.Cash,
			PositionSize: r.PositionSize,
			Close:        r.Close,
			Exposure:     r.Exposure,
		}
	}
	return out, nil
}

// ReadTrades reads back an exported trade log.
func (e *ParquetExporter) ReadTrades(runID string) ([]TradeRecord, error) {
	return readParquetFile[TradeRecord](e.TradesPath(runID))
}

// EquityPath returns the equity file of a run
func (e *ParquetExporter) EquityPath(runID string) string {
	return filepath.Join(e.Dir, runID, "equity.parquet")
}

// TradesPath returns the trade log file of a run
func (e *ParquetExporter) TradesPath(runID string) string {
	return filepath.Join(e.Dir, runID, "trades.parquet")
}

// EquityRecords converts an equity curve to its on-disk schema
func EquityRecords(points []backtest.EquityPoint) []EquityRecord {
	out := make([]EquityRecord, len(points))
	for i, p := range points {
		out[i] = EquityRecord{
			Timestamp:    p.Timestamp.UnixMilli(),
			Equity:       p.Equity,
			Cash:         p.Cash,
			PositionSize: p.PositionSize,
			Close:        p.Close,
			Exposure:     p.Exposure,
		}
	}
	return out
}

// TradeRecords converts a trade log to its on-disk schema
func TradeRecords(trades []backtest.Trade) []TradeRecord {
	out := make([]TradeRecord, len(trades))
	for i, t := range trades {
		out[i] = TradeRecord{
			Kind:          string(t.Kind),
			BarIndex:      int64(t.BarIndex),
			Timestamp:     t.Timestamp.UnixMilli(),
			MarketPrice:   t.MarketPrice,
			ExecutedPrice: t.ExecutedPrice,
			Size:          t.Size,
			Value:         t.Value,
			Commission:    t.Commission,
			StopPrice:     t.StopPrice,
			Strategy:      t.Strategy,
			Regime:        string(t.Regime),
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
