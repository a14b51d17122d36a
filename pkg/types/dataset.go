package types

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrEmptyDataset is returned when a dataset carries no bars
var ErrEmptyDataset = errors.New("dataset has no bars")

// Dataset is an ordered, time-indexed sequence of bars with optional
// indicator columns aligned to the bars. NaN marks an undefined value.
//
// A Dataset is immutable once built: accessors hand out copies and
// WithColumn returns a new Dataset.
type Dataset struct {
	bars    []OHLCV
	columns map[string][]float64
}

// NewDataset builds a dataset from bars and optional columns. Inputs are copied.
func NewDataset(bars []OHLCV, columns map[string][]float64) (*Dataset, error) {
	ds := &Dataset{
		bars:    make([]OHLCV, len(bars)),
		columns: make(map[string][]float64, len(columns)),
	}
	copy(ds.bars, bars)

	for name, values := range columns {
		if len(values) != len(bars) {
			return nil, fmt.Errorf("column %q has %d values, dataset has %d bars", name, len(values), len(bars))
		}
		ds.columns[name] = cloneFloats(values)
	}

	return ds, nil
}

// MustDataset is NewDataset for callers with known-good inputs (tests, fixtures)
func MustDataset(bars []OHLCV, columns map[string][]float64) *Dataset {
	ds, err := NewDataset(bars, columns)
	if err != nil {
		panic(err)
	}
	return ds
}

// Len returns the number of bars
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.bars)
}

// Bar returns the i-th bar
func (d *Dataset) Bar(i int) OHLCV {
	return d.bars[i]
}

// Bars returns a copy of all bars
func (d *Dataset) Bars() []OHLCV {
	out := make([]OHLCV, len(d.bars))
	copy(out, d.bars)
	return out
}

// Timestamp returns the timestamp of the i-th bar
func (d *Dataset) Timestamp(i int) time.Time {
	return d.bars[i].Timestamp
}

// Opens returns the open prices
func (d *Dataset) Opens() []float64 {
	out := make([]float64, len(d.bars))
	for i, b := range d.bars {
		out[i] = b.Open
	}
	return out
}

// Closes returns the close prices
func (d *Dataset) Closes() []float64 {
	out := make([]float64, len(d.bars))
	for i, b := range d.bars {
		out[i] = b.Close
	}
	return out
}

// Column returns a copy of the named indicator column
func (d *Dataset) Column(name string) ([]float64, bool) {
	values, ok := d.columns[name]
	if !ok {
		return nil, false
	}
	return cloneFloats(values), true
}

// HasColumn reports whether the named indicator column exists
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// ColumnNames returns the indicator column names in sorted order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, 0, len(d.columns))
	for name := range d.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithColumn returns a new dataset with the named column added or replaced.
// The receiver is left untouched.
func (d *Dataset) WithColumn(name string, values []float64) (*Dataset, error) {
	if len(values) != len(d.bars) {
		return nil, fmt.Errorf("column %q has %d values, dataset has %d bars", name, len(values), len(d.bars))
	}

	columns := make(map[string][]float64, len(d.columns)+1)
	for k, v := range d.columns {
		columns[k] = v
	}
	columns[name] = values

	return NewDataset(d.bars, columns)
}

// Slice returns the bars in [from, to) together with their column values
func (d *Dataset) Slice(from, to int) *Dataset {
	if from < 0 {
		from = 0
	}
	if to > len(d.bars) {
		to = len(d.bars)
	}
	if from > to {
		from = to
	}

	columns := make(map[string][]float64, len(d.columns))
	for k, v := range d.columns {
		columns[k] = v[from:to]
	}
	// lengths are consistent by construction
	ds, _ := NewDataset(d.bars[from:to], columns)
	return ds
}

// Validate checks the invariants the engine relies on: at least one bar,
// strictly increasing timestamps and finite, positive prices.
func (d *Dataset) Validate() error {
	if d.Len() == 0 {
		return ErrEmptyDataset
	}

	for i, b := range d.bars {
		for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				return fmt.Errorf("invalid price data at index %d: prices must be finite and positive", i)
			}
		}
		if b.High < b.Low {
			return fmt.Errorf("invalid price data at index %d: high (%.4f) cannot be less than low (%.4f)", i, b.High, b.Low)
		}
		if i > 0 && !b.Timestamp.After(d.bars[i-1].Timestamp) {
			return fmt.Errorf("invalid timestamp sequence at index %d: timestamps must be strictly increasing", i)
		}
	}

	return nil
}

func cloneFloats(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
