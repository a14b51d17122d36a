package indicators

import (
	"errors"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// ATR represents the Average True Range technical indicator.
// ATR measures market volatility as the trailing mean of the true range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
	}
}

// TrueRanges returns the true range of every bar. The first bar uses high-low.
func TrueRanges(data []types.OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, candle := range data {
		if i == 0 {
			out[i] = candle.TrueRange(0, false)
			continue
		}
		out[i] = candle.TrueRange(data[i-1].Close, true)
	}
	return out
}

// SeriesFromBars returns the ATR aligned to data; the first period-1 values are NaN
func (a *ATR) SeriesFromBars(data []types.OHLCV) []float64 {
	return NewSMA(a.period).Series(TrueRanges(data))
}

// Calculate returns the ATR at the last bar
func (a *ATR) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < a.period || a.period <= 0 {
		return 0, errors.New("insufficient data points for ATR calculation")
	}
	series := a.SeriesFromBars(data)
	return series[len(series)-1], nil
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period
}

// GetPeriod returns the period used for ATR calculation
func (a *ATR) GetPeriod() int {
	return a.period
}
