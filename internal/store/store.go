// Package store persists backtest outcomes: run summaries in SQLite and
// equity curves and trade logs as Parquet files.
package store

import (
	"context"
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
)

// RunRecord is the summary of one backtest run
type RunRecord struct {
	ID             string
	CreatedAt      time.Time
	Strategy       string
	Regime         string
	RegimeMode     string
	Params         map[string]any
	Risk           risk.Params
	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64
	MaxDrawdown    float64
	SharpeRatio    float64
	WinRate        float64
	ProfitFactor   float64 // may be +Inf, stored as NULL
	TotalTrades    int
	Skipped        int
}

// NewRunRecord summarizes res under id
func NewRunRecord(id string, res *backtest.BacktestResults, params map[string]any, riskParams risk.Params) RunRecord {
	return RunRecord{
		ID:             id,
		CreatedAt:      time.Now().UTC(),
		Strategy:       res.Strategy,
		Regime:         string(res.Regime),
		RegimeMode:     string(res.RegimeMode),
		Params:         params,
		Risk:           riskParams,
		InitialCapital: res.StartBalance,
		FinalEquity:    res.EndBalance,
		TotalReturn:    res.TotalReturn,
		MaxDrawdown:    res.MaxDrawdown,
		SharpeRatio:    res.SharpeRatio,
		WinRate:        res.WinRate,
		ProfitFactor:   res.ProfitFactor,
		TotalTrades:    res.TotalTrades,
		Skipped:        res.Skipped.Total(),
	}
}

// RunFilter narrows ListRuns; zero values match everything
type RunFilter struct {
	Strategy string
	Limit    int
}

// RunStore persists and retrieves run summaries.
type RunStore interface {
	// SaveRun inserts or replaces a run summary.
	SaveRun(ctx context.Context, rec RunRecord) error

	// GetRun returns the run with the given ID.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns runs ordered by total return, best first.
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)
}

// ResultExporter writes the per-bar detail of a run.
type ResultExporter interface {
	// ExportRun writes the equity curve and trade log of a run.
	ExportRun(ctx context.Context, runID string, res *backtest.BacktestResults) error
}
