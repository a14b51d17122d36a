package types

import "time"

// OHLCV is a single market bar
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar of a series has no previous close and uses high-low only.
func (c OHLCV) TrueRange(prevClose float64, hasPrev bool) float64 {
	hl := c.High - c.Low
	if !hasPrev {
		return hl
	}
	hc := c.High - prevClose
	if hc < 0 {
		hc = -hc
	}
	lc := c.Low - prevClose
	if lc < 0 {
		lc = -lc
	}
	tr := hl
	if hc > tr {
		tr = hc
	}
	if lc > tr {
		tr = lc
	}
	return tr
}
