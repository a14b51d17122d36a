package regime

import (
	"fmt"
	"strings"
	"time"
)

// Label is a discrete market-regime classification
type Label string

const (
	Bull    Label = "bull"
	Bear    Label = "bear"
	Neutral Label = "neutral"

	// Default is the fallback key in a strategy mapping, never a classifier output
	Default Label = "default"
)

func (l Label) String() string {
	return string(l)
}

// Classifier turns a close-price history into a regime label.
// Implementations must be pure: the same history always yields the same label.
type Classifier interface {
	Classify(closes []float64) Label
}

// SeriesClassifier is an optional capability for classifiers that can label
// every prefix of a history in one pass. Element i must equal
// Classify(closes[:i+1]).
type SeriesClassifier interface {
	Classifier
	ClassifyEach(closes []float64) []Label
}

// ClassifierFunc adapts a plain function to the Classifier interface
type ClassifierFunc func(closes []float64) Label

// Classify calls f
func (f ClassifierFunc) Classify(closes []float64) Label {
	return f(closes)
}

// Mode controls how often the regime is evaluated during a run
type Mode string

const (
	// ModeOff runs a single strategy and never consults the classifier
	ModeOff Mode = "off"
	// ModeOnce classifies the full history once and uses that label for the whole run
	ModeOnce Mode = "once"
	// ModePerBar classifies closes[0..i] for the signal of bar i
	ModePerBar Mode = "per_bar"
)

// ParseMode converts a configuration string into a Mode. Empty means ModeOnce.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeOnce):
		return ModeOnce, nil
	case string(ModeOff), "none":
		return ModeOff, nil
	case string(ModePerBar), "per-bar", "perbar":
		return ModePerBar, nil
	default:
		return "", fmt.Errorf("unknown regime mode %q (want off, once or per_bar)", s)
	}
}

// RegimeChange represents a regime transition observed during a per-bar run
type RegimeChange struct {
	BarIndex  int       `json:"bar_index"`
	Timestamp time.Time `json:"timestamp"`
	Old       Label     `json:"old_regime"`
	New       Label     `json:"new_regime"`
	Close     float64   `json:"trigger_price"`
}
