package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMA(t *testing.T) {
	sma := NewSMA(20)

	assert.NotNil(t, sma)
	assert.Equal(t, 20, sma.period)
	assert.Equal(t, 0.0, sma.lastValue)
	assert.Equal(t, 20, sma.GetRequiredPeriods())
}

func TestSMA_Series(t *testing.T) {
	out := NewSMA(3).Series([]float64{1, 2, 3, 4, 5})

	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 3.0, out[3], 1e-12)
	assert.InDelta(t, 4.0, out[4], 1e-12)
}

func TestSMA_Series_UndefinedInWindow(t *testing.T) {
	out := NewSMA(2).Series([]float64{1, math.NaN(), 3, 5})

	assert.True(t, math.IsNaN(out[1]))
	assert.True(t, math.IsNaN(out[2]))
	assert.InDelta(t, 4.0, out[3], 1e-12)
}

func TestSMA_Calculate_InsufficientData(t *testing.T) {
	sma := NewSMA(20)
	data := generateTestData(10)

	_, err := sma.Calculate(data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient data")
}

func TestSMA_Calculate_MoreThanPeriod(t *testing.T) {
	sma := NewSMA(5)
	data := generateTestData(10)

	value, err := sma.Calculate(data)
	require.NoError(t, err)

	// Should use only the last 5 values
	expectedSum := 0.0
	for i := 5; i < 10; i++ {
		expectedSum += data[i].Close
	}

	assert.InDelta(t, expectedSum/5.0, value, 0.01)
	assert.Equal(t, value, sma.GetLastValue())
}

func TestEMA_Series_MatchesRecursiveDefinition(t *testing.T) {
	values := []float64{10, 11, 12, 11, 13}
	out := NewEMA(3).Series(values)

	alpha := 2.0 / 4.0
	expected := values[0]
	assert.Equal(t, expected, out[0])
	for i := 1; i < len(values); i++ {
		expected = values[i]*alpha + expected*(1-alpha)
		assert.InDelta(t, expected, out[i], 1e-12)
	}
}

func TestEMA_Series_LeadingNaN(t *testing.T) {
	out := NewEMA(3).Series([]float64{math.NaN(), 4, math.NaN(), 8})

	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 4.0, out[1])
	assert.Equal(t, 4.0, out[2])
	assert.InDelta(t, 6.0, out[3], 1e-12)
}

func TestEMA_SeriesResetsBetweenCalls(t *testing.T) {
	ema := NewEMA(5)
	first := ema.Series([]float64{1, 2, 3})
	second := ema.Series([]float64{1, 2, 3})

	assert.Equal(t, first, second)
}

func TestATR_SeriesFromBars(t *testing.T) {
	data := []types.OHLCV{
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 15, Low: 11, Close: 14},
	}

	trs := TrueRanges(data)
	assert.Equal(t, []float64{2, 2, 4}, trs)

	out := NewATR(2).SeriesFromBars(data)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 2.0, out[1], 1e-12)
	assert.InDelta(t, 3.0, out[2], 1e-12)

	last, err := NewATR(2).Calculate(data)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, last, 1e-12)
}

func TestLinearSlope(t *testing.T) {
	assert.InDelta(t, 2.0, LinearSlope([]float64{1, 3, 5, 7}), 1e-12)
	assert.InDelta(t, -0.5, LinearSlope([]float64{10, 9.5, 9}), 1e-12)
	assert.InDelta(t, 0.0, LinearSlope([]float64{4, 4, 4}), 1e-12)
	assert.True(t, math.IsNaN(LinearSlope([]float64{1})))
	assert.True(t, math.IsNaN(LinearSlope([]float64{1, math.NaN()})))
}

func TestRollingSlopeAndMin(t *testing.T) {
	values := []float64{5, 4, 6, 8, 1}

	slopes := RollingSlope(values, 3)
	assert.True(t, math.IsNaN(slopes[1]))
	assert.InDelta(t, 0.5, slopes[2], 1e-12)
	assert.InDelta(t, 2.0, slopes[3], 1e-12)

	mins := RollingMin(values, 2)
	assert.True(t, math.IsNaN(mins[0]))
	assert.Equal(t, []float64{4, 4, 6, 1}, mins[1:])
}

func TestCrossedAbove(t *testing.T) {
	fast := []float64{1, 2, 4, 5, 3}
	slow := []float64{3, 3, 3, 3, 3}

	assert.Equal(t, []bool{false, false, true, false, false}, CrossedAbove(fast, slow))
}

// generateTestData creates test data with gentle oscillating price movements
func generateTestData(count int) []types.OHLCV {
	data := make([]types.OHLCV, count)
	basePrice := 100.0

	for i := 0; i < count; i++ {
		change := (float64(i%3) - 1) * 2.0 // -2, 0, or 2
		price := basePrice + change

		data[i] = types.OHLCV{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1.0,
			Low:       price - 1.0,
			Close:     price,
			Volume:    1000.0,
		}
		basePrice = price
	}

	return data
}
