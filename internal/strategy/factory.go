package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// Registry names of the built-in strategies
const (
	NameMACrossover   = "ma_crossover"
	NameAsymmetricEMA = "asymmetric_ema"
	NameSOPREMA       = "sopr_ema"
)

type constructor func(params map[string]any) (SignalGenerator, error)

var constructors = map[string]constructor{
	NameMACrossover:   newMACrossoverFromParams,
	NameAsymmetricEMA: newAsymmetricEMAFromParams,
	NameSOPREMA:       newSOPREMAFromParams,
}

// normalizeName maps aliases onto registry names
func normalizeName(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "ma", "sma", "ma_cross", "moving_average_crossover":
		return NameMACrossover
	case "asymmetrical_ema", "asym_ema", "filtered_crossover":
		return NameAsymmetricEMA
	case "sopr", "sopr_ema_strategy", "threshold_crossover":
		return NameSOPREMA
	default:
		return n
	}
}

// New creates a signal generator by name. Missing parameters take the
// values from DefaultParameters.
func New(name string, params map[string]any) (SignalGenerator, error) {
	ctor, ok := constructors[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s (supported: %s)", name, strings.Join(Available(), ", "))
	}

	gen, err := ctor(params)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", normalizeName(name), err)
	}
	return gen, nil
}

// Available returns the registry names of all strategies
func Available() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a description of the specified strategy
func Describe(name string) string {
	switch normalizeName(name) {
	case NameMACrossover:
		return "SMA crossover - long while the short average is above the long average"
	case NameAsymmetricEMA:
		return "Filtered EMA crossover - enter on golden cross, exit when the regime MA slope turns negative"
	case NameSOPREMA:
		return "SOPR-gated EMA crossover - enter on golden cross after SOPR capitulation, hold while the regime MA rises"
	default:
		return "Unknown strategy"
	}
}

// DefaultParameters returns default parameters for a strategy
func DefaultParameters(name string) map[string]any {
	switch normalizeName(name) {
	case NameMACrossover:
		return map[string]any{
			"short_window": 5,
			"long_window":  10,
		}
	case NameAsymmetricEMA:
		return map[string]any{
			"short_ema":    21,
			"long_ema":     55,
			"regime_ma":    200,
			"slope_window": 30,
		}
	case NameSOPREMA:
		return map[string]any{
			"short_ema":      21,
			"long_ema":       55,
			"regime_ma":      200,
			"slope_window":   30,
			"sopr_threshold": 1.0,
			"arm_window":     30,
			"column":         DefaultSOPRColumn,
		}
	default:
		return map[string]any{}
	}
}
