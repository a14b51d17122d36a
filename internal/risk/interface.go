package risk

import "fmt"

// Sizer computes a position size and stop-loss price for a prospective entry.
//
// A (0, 0) result means no safe size could be computed; callers must treat it
// as "do not enter", not as an error.
type Sizer interface {
	SizeAndStop(balance, riskFraction, entryPrice, volatility, stopMultiplier float64) (size, stopPrice float64)
}

// SizerFunc adapts a plain function to the Sizer interface
type SizerFunc func(balance, riskFraction, entryPrice, volatility, stopMultiplier float64) (float64, float64)

// SizeAndStop calls f
func (f SizerFunc) SizeAndStop(balance, riskFraction, entryPrice, volatility, stopMultiplier float64) (float64, float64) {
	return f(balance, riskFraction, entryPrice, volatility, stopMultiplier)
}

// Params holds the per-run risk settings handed to the Sizer
type Params struct {
	RiskFraction   float64 `json:"risk_fraction" yaml:"risk_fraction"`
	StopMultiplier float64 `json:"stop_multiplier" yaml:"stop_multiplier"`
}

// DefaultParams returns 2% risk per trade with a 2x volatility stop
func DefaultParams() Params {
	return Params{
		RiskFraction:   0.02,
		StopMultiplier: 2.0,
	}
}

// Validate checks RiskFraction in (0, 1] and StopMultiplier > 0
func (p Params) Validate() error {
	if !(p.RiskFraction > 0 && p.RiskFraction <= 1) {
		return fmt.Errorf("risk fraction must be within (0, 1], got %.4f", p.RiskFraction)
	}
	if !(p.StopMultiplier > 0) {
		return fmt.Errorf("stop multiplier must be positive, got %.4f", p.StopMultiplier)
	}
	return nil
}
