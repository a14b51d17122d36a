package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestATRSizer_SizeAndStop(t *testing.T) {
	sizer := NewATRSizer()

	balance := 100000.0
	entry := 50000.0
	atr := 1500.0
	params := DefaultParams()

	expectedStop := entry - atr*params.StopMultiplier
	expectedSize := balance * params.RiskFraction / (entry - expectedStop)

	size, stop := sizer.SizeAndStop(balance, params.RiskFraction, entry, atr, params.StopMultiplier)

	assert.InDelta(t, expectedSize, size, 1e-7)
	assert.InDelta(t, expectedStop, stop, 1e-7)
}

func TestATRSizer_WorkedExample(t *testing.T) {
	size, stop := NewATRSizer().SizeAndStop(100000, 0.02, 107, 2, 2)

	assert.InDelta(t, 500.0, size, 1e-9)
	assert.InDelta(t, 103.0, stop, 1e-9)
}

func TestATRSizer_Degenerate(t *testing.T) {
	tests := []struct {
		name       string
		balance    float64
		volatility float64
		multiplier float64
	}{
		{name: "zero volatility", balance: 1000, volatility: 0, multiplier: 2},
		{name: "negative volatility", balance: 1000, volatility: -1, multiplier: 2},
		{name: "undefined volatility", balance: 1000, volatility: math.NaN(), multiplier: 2},
		{name: "zero multiplier", balance: 1000, volatility: 5, multiplier: 0},
		{name: "zero balance", balance: 0, volatility: 5, multiplier: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, stop := NewATRSizer().SizeAndStop(tt.balance, 0.02, 100, tt.volatility, tt.multiplier)
			assert.Equal(t, 0.0, size)
			assert.Equal(t, 0.0, stop)
		})
	}
}

func TestSizerFunc(t *testing.T) {
	var called bool
	var s Sizer = SizerFunc(func(balance, riskFraction, entryPrice, volatility, stopMultiplier float64) (float64, float64) {
		called = true
		return 1, entryPrice - 1
	})

	size, stop := s.SizeAndStop(1, 1, 10, 1, 1)
	assert.True(t, called)
	assert.Equal(t, 1.0, size)
	assert.Equal(t, 9.0, stop)
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.NoError(t, Params{RiskFraction: 1, StopMultiplier: 0.5}.Validate())
	assert.Error(t, Params{RiskFraction: 0, StopMultiplier: 2}.Validate())
	assert.Error(t, Params{RiskFraction: 1.5, StopMultiplier: 2}.Validate())
	assert.Error(t, Params{RiskFraction: 0.02, StopMultiplier: 0}.Validate())
	assert.Error(t, Params{RiskFraction: math.NaN(), StopMultiplier: 2}.Validate())
}
