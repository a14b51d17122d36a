package backtest

import (
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/regime"
)

// TradeKind is the side of an executed fill
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// Trade is an executed fill. It is never mutated after it is appended to the log.
type Trade struct {
	Kind          TradeKind    `json:"kind"`
	BarIndex      int          `json:"bar_index"`
	Timestamp     time.Time    `json:"timestamp"`
	MarketPrice   float64      `json:"market_price"`   // unslipped open
	ExecutedPrice float64      `json:"executed_price"` // open after slippage
	Size          float64      `json:"size"`
	Value         float64      `json:"value"`
	Commission    float64      `json:"commission"`
	StopPrice     float64      `json:"stop_price,omitempty"` // recorded on buys, not enforced
	Strategy      string       `json:"strategy"`
	Regime        regime.Label `json:"regime,omitempty"`
}

// RoundTrip pairs a buy with the sell that closed it
type RoundTrip struct {
	Entry      Trade         `json:"entry"`
	Exit       Trade         `json:"exit"`
	PnL        float64       `json:"pnl"`    // net of both commissions
	Return     float64       `json:"return"` // PnL over entry cost
	BarsHeld   int           `json:"bars_held"`
	HoldPeriod time.Duration `json:"hold_period"`
}

// OpenPosition is a position still held when the data ran out. It is marked
// to market at the last close, never force-closed.
type OpenPosition struct {
	Entry         Trade   `json:"entry"`
	MarkPrice     float64 `json:"mark_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// EquityPoint is the account state at the close of one bar
type EquityPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Equity       float64   `json:"equity"`
	Cash         float64   `json:"cash"`
	PositionSize float64   `json:"position_size"`
	Close        float64   `json:"close"`
	Exposure     float64   `json:"exposure"` // position value over equity
}

// SkipCounts tallies entries that were signalled but not executed
type SkipCounts struct {
	DegenerateSize    int `json:"degenerate_size"`
	InsufficientFunds int `json:"insufficient_funds"`
}

// Total returns the number of skipped entries
func (s SkipCounts) Total() int {
	return s.DegenerateSize + s.InsufficientFunds
}

// BacktestResults is the output of one engine run
type BacktestResults struct {
	StartBalance float64 `json:"start_balance"`
	EndBalance   float64 `json:"end_balance"`
	FinalCash    float64 `json:"final_cash"`

	EquityCurve  []EquityPoint `json:"equity_curve"`
	Trades       []Trade       `json:"trades"`
	RoundTrips   []RoundTrip   `json:"round_trips"`
	OpenPosition *OpenPosition `json:"open_position,omitempty"`
	Skipped      SkipCounts    `json:"skipped"`

	// Strategy and Regime describe the active source for off/once runs
	Strategy      string                `json:"strategy"`
	Regime        regime.Label          `json:"regime,omitempty"`
	RegimeMode    regime.Mode           `json:"regime_mode"`
	RegimeChanges []regime.RegimeChange `json:"regime_changes,omitempty"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	AnnualizedSharpe float64 `json:"annualized_sharpe"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	MaxExposure      float64 `json:"max_exposure"`
	AvgExposure      float64 `json:"avg_exposure"`
	TotalTurnover    float64 `json:"total_turnover"`
	TotalTrades      int     `json:"total_trades"` // completed round trips
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	WinRate          float64 `json:"win_rate"` // percent
	ProfitFactor     float64 `json:"profit_factor"`
}

// Equities returns the equity values of the curve
func (b *BacktestResults) Equities() []float64 {
	out := make([]float64, len(b.EquityCurve))
	for i, p := range b.EquityCurve {
		out[i] = p.Equity
	}
	return out
}
