package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func curve(equities ...float64) []EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]EquityPoint, len(equities))
	for i, e := range equities {
		points[i] = EquityPoint{Timestamp: start.AddDate(0, 0, i), Equity: e, Cash: e}
	}
	return points
}

// TestCalculateSharpeRatio_Empty tests Sharpe ratio calculation with no curve
func TestCalculateSharpeRatio_Empty(t *testing.T) {
	results := &BacktestResults{}
	assert.Equal(t, 0.0, results.CalculateSharpeRatio())
}

// TestCalculateSharpeRatio_Flat tests that a flat curve has no Sharpe ratio
func TestCalculateSharpeRatio_Flat(t *testing.T) {
	results := &BacktestResults{EquityCurve: curve(100, 100, 100, 100)}
	assert.Equal(t, 0.0, results.CalculateSharpeRatio())
}

func TestCalculateSharpeRatio_Sign(t *testing.T) {
	up := &BacktestResults{EquityCurve: curve(100, 101, 103, 102, 105)}
	down := &BacktestResults{EquityCurve: curve(100, 99, 97, 98, 95)}

	assert.Greater(t, up.CalculateSharpeRatio(), 0.0)
	assert.Less(t, down.CalculateSharpeRatio(), 0.0)
}

func TestCalculateMaxDrawdown(t *testing.T) {
	results := &BacktestResults{EquityCurve: curve(100, 120, 90, 110, 60, 130)}
	assert.InDelta(t, 0.5, results.CalculateMaxDrawdown(), 1e-12)

	assert.Equal(t, 0.0, (&BacktestResults{EquityCurve: curve(1, 2, 3)}).CalculateMaxDrawdown())
}

func TestCalculateProfitFactorAndWinRate(t *testing.T) {
	results := &BacktestResults{RoundTrips: []RoundTrip{{PnL: 30}, {PnL: -10}, {PnL: 20}, {PnL: -15}}}

	assert.InDelta(t, 2.0, results.CalculateProfitFactor(), 1e-12)
	assert.InDelta(t, 50.0, results.CalculateWinRate(), 1e-12)
}

func TestCalculateProfitFactor_Edges(t *testing.T) {
	assert.Equal(t, 0.0, (&BacktestResults{}).CalculateProfitFactor())
	assert.True(t, math.IsInf((&BacktestResults{RoundTrips: []RoundTrip{{PnL: 5}}}).CalculateProfitFactor(), 1))
	assert.Equal(t, 0.0, (&BacktestResults{RoundTrips: []RoundTrip{{PnL: 0}}}).CalculateProfitFactor())
	assert.Equal(t, 0.0, (&BacktestResults{}).CalculateWinRate())
}

func TestUpdateMetrics(t *testing.T) {
	results := &BacktestResults{
		StartBalance: 100,
		EndBalance:   110,
		EquityCurve:  curve(100, 105, 95, 110),
		Trades: []Trade{
			{Kind: TradeBuy, Value: 50},
			{Kind: TradeSell, Value: 60},
		},
		RoundTrips: []RoundTrip{{PnL: 10}},
	}
	results.EquityCurve[1].Exposure = 0.5
	results.EquityCurve[2].Exposure = 0.3

	results.UpdateMetrics()

	assert.InDelta(t, 0.1, results.TotalReturn, 1e-12)
	assert.InDelta(t, 10.0/105.0, results.MaxDrawdown, 1e-12)
	assert.Equal(t, 1, results.TotalTrades)
	assert.Equal(t, 1, results.WinningTrades)
	assert.Equal(t, 0, results.LosingTrades)
	assert.InDelta(t, 0.5, results.MaxExposure, 1e-12)
	assert.InDelta(t, 0.2, results.AvgExposure, 1e-12)
	assert.InDelta(t, 110.0/102.5, results.TotalTurnover, 1e-12)
	assert.Greater(t, results.AnnualizedReturn, 0.0)
	assert.NotZero(t, results.AnnualizedSharpe)
	assert.Greater(t, results.SortinoRatio, 0.0)
	assert.InDelta(t, results.AnnualizedReturn/results.MaxDrawdown, results.CalmarRatio, 1e-9)
}

func TestSortinoAndCalmar_NoDownside(t *testing.T) {
	results := &BacktestResults{StartBalance: 100, EndBalance: 103, EquityCurve: curve(100, 101, 102, 103)}
	results.UpdateMetrics()

	assert.True(t, math.IsInf(results.SortinoRatio, 1))
	assert.True(t, math.IsInf(results.CalmarRatio, 1))

	flat := &BacktestResults{StartBalance: 100, EndBalance: 100, EquityCurve: curve(100, 100)}
	flat.UpdateMetrics()
	assert.Equal(t, 0.0, flat.SortinoRatio)
	assert.Equal(t, 0.0, flat.CalmarRatio)
}
