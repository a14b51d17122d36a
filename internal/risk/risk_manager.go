package risk

import "math"

// ATRSizer sizes positions so that a stop placed volatility*stopMultiplier
// below the entry loses riskFraction of the balance
type ATRSizer struct{}

// NewATRSizer creates the default volatility-stop sizer
func NewATRSizer() *ATRSizer {
	return &ATRSizer{}
}

// SizeAndStop calculates the position size and stop-loss price for a trade.
// It returns (0, 0) when the risk per unit is not positive or not finite.
func (s *ATRSizer) SizeAndStop(balance, riskFraction, entryPrice, volatility, stopMultiplier float64) (float64, float64) {
	riskAmount := balance * riskFraction
	stopPrice := entryPrice - volatility*stopMultiplier
	riskPerUnit := entryPrice - stopPrice

	// catches NaN volatility as well as zero/negative distances
	if !(riskPerUnit > 0) || math.IsInf(riskPerUnit, 0) {
		return 0, 0
	}

	size := riskAmount / riskPerUnit
	if !(size > 0) || math.IsInf(size, 0) {
		return 0, 0
	}

	return size, stopPrice
}
