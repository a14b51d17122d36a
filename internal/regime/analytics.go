package regime

import (
	"sort"
	"time"
)

// RegimeAnalytics summarizes how a history splits across regimes
type RegimeAnalytics struct {
	TotalRegimeChanges int               `json:"total_regime_changes"`
	RegimeDistribution map[Label]float64 `json:"regime_distribution"` // fraction of bars in each regime
	AverageRunLength   float64           `json:"average_run_length"`  // bars per contiguous regime
	Current            Label             `json:"current"`
}

// Changes extracts the transitions from a per-bar label series. Timestamps and
// closes may be nil; when present they must align with labels.
func Changes(labels []Label, timestamps []time.Time, closes []float64) []RegimeChange {
	var changes []RegimeChange
	for i := 1; i < len(labels); i++ {
		if labels[i] == labels[i-1] {
			continue
		}
		change := RegimeChange{BarIndex: i, Old: labels[i-1], New: labels[i]}
		if i < len(timestamps) {
			change.Timestamp = timestamps[i]
		}
		if i < len(closes) {
			change.Close = closes[i]
		}
		changes = append(changes, change)
	}
	return changes
}

// Analyze computes distribution statistics for a per-bar label series
func Analyze(labels []Label) RegimeAnalytics {
	analytics := RegimeAnalytics{RegimeDistribution: make(map[Label]float64)}
	if len(labels) == 0 {
		return analytics
	}

	for _, l := range labels {
		analytics.RegimeDistribution[l]++
	}
	for l, count := range analytics.RegimeDistribution {
		analytics.RegimeDistribution[l] = count / float64(len(labels))
	}

	analytics.TotalRegimeChanges = len(Changes(labels, nil, nil))
	analytics.AverageRunLength = float64(len(labels)) / float64(analytics.TotalRegimeChanges+1)
	analytics.Current = labels[len(labels)-1]

	return analytics
}

// SortedLabels returns the labels present in a distribution in a stable order
func SortedLabels(distribution map[Label]float64) []Label {
	labels := make([]Label, 0, len(distribution))
	for l := range distribution {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
