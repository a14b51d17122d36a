package data

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// FilterByDateRange returns the bars with start <= timestamp <= end.
// A zero start or end leaves that side unbounded.
func FilterByDateRange(ds *types.Dataset, start, end time.Time) *types.Dataset {
	n := ds.Len()
	from := 0
	if !start.IsZero() {
		for from < n && ds.Timestamp(from).Before(start) {
			from++
		}
	}

	to := n
	if !end.IsZero() {
		for to > from && ds.Timestamp(to-1).After(end) {
			to--
		}
	}

	return ds.Slice(from, to)
}

// FilterByPeriod keeps the trailing period measured back from the last bar
func FilterByPeriod(ds *types.Dataset, period time.Duration) *types.Dataset {
	if period <= 0 || ds.Len() == 0 {
		return ds
	}

	cutoff := ds.Timestamp(ds.Len() - 1).Add(-period)
	return FilterByDateRange(ds, cutoff, time.Time{})
}

// ValidateTimeSequence ensures bars are in strictly increasing time order
func ValidateTimeSequence(data []types.OHLCV) error {
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, data[i].Timestamp.Format(time.RFC3339), data[i-1].Timestamp.Format(time.RFC3339))
		}

		if data[i].Timestamp.Equal(data[i-1].Timestamp) {
			return fmt.Errorf("duplicate timestamp at index %d: %s",
				i, data[i].Timestamp.Format(time.RFC3339))
		}
	}

	return nil
}

// ParseTrailingPeriod parses period strings like "7d", "30days" or "168h"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}

// ParseDate parses a CLI/config date bound; an empty string yields the zero time
func ParseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(s, DefaultTimestampLayouts)
}
