package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// DefaultATRPeriod is the true-range window used when none is configured
const DefaultATRPeriod = 14

// ATRColumn is the column name WithATR writes
const ATRColumn = "atr"

// Series is an auxiliary date/value series, ordered by time
type Series struct {
	Timestamps []time.Time
	Values     []float64
}

// Len returns the number of points
func (s Series) Len() int {
	return len(s.Timestamps)
}

// LoadSeries reads dateCol and valueCol from a CSV file such as a
// date,sopr_value export. Column names match case-insensitively.
func LoadSeries(path, dateCol, valueCol string) (Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return Series{}, errors.NewIOError("series", "open", err).WithContext("path", path)
	}
	defer file.Close()

	s, err := ReadSeries(file, dateCol, valueCol)
	if err != nil {
		if be, ok := err.(*errors.BacktestError); ok {
			return Series{}, be.WithContext("path", path)
		}
		return Series{}, err
	}
	return s, nil
}

// ReadSeries parses a date/value series from CSV content
func ReadSeries(r io.Reader, dateCol, valueCol string) (Series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return Series{}, errors.NewDataError("series", "read_header", types.ErrEmptyDataset)
		}
		return Series{}, errors.NewDataError("series", "read_header", err)
	}

	dateIdx, valueIdx := -1, -1
	for i, name := range header {
		key := strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if strings.EqualFold(key, dateCol) {
			dateIdx = i
		}
		if strings.EqualFold(key, valueCol) {
			valueIdx = i
		}
	}
	if dateIdx < 0 {
		return Series{}, errors.NewDataError("series", "resolve_columns", fmt.Errorf("column %q: %w", dateCol, errors.ErrMissingColumn))
	}
	if valueIdx < 0 {
		return Series{}, errors.NewDataError("series", "resolve_columns", fmt.Errorf("column %q: %w", valueCol, errors.ErrMissingColumn))
	}

	var s Series
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Series{}, errors.NewDataError("series", "read_row", fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err))
		}
		lineNum++

		ts, err := ParseTimestamp(field(record, dateIdx), DefaultTimestampLayouts)
		if err != nil {
			return Series{}, errors.NewDataError("series", "parse_row", fmt.Errorf("line %d: %w", lineNum, err))
		}
		value, err := strconv.ParseFloat(field(record, valueIdx), 64)
		if err != nil {
			return Series{}, errors.NewDataError("series", "parse_row", fmt.Errorf("line %d: invalid value %q", lineNum, field(record, valueIdx)))
		}
		if n := len(s.Timestamps); n > 0 && !ts.After(s.Timestamps[n-1]) {
			return Series{}, errors.NewDataError("series", "validate", fmt.Errorf("line %d: timestamps must be strictly increasing", lineNum))
		}

		s.Timestamps = append(s.Timestamps, ts)
		s.Values = append(s.Values, value)
	}

	if s.Len() == 0 {
		return Series{}, errors.NewDataError("series", "read_rows", types.ErrEmptyDataset)
	}
	return s, nil
}

// MergeSeries inner-joins series onto ds by timestamp and stores it as column
// name. Bars without a matching point are dropped. ds is left untouched.
func MergeSeries(ds *types.Dataset, name string, series Series) (*types.Dataset, error) {
	if ds.Len() == 0 {
		return nil, errors.NewDataError("series", "merge", types.ErrEmptyDataset)
	}

	byTime := make(map[int64]float64, series.Len())
	for i, ts := range series.Timestamps {
		byTime[ts.UnixNano()] = series.Values[i]
	}

	// a column already named name is replaced by the merged series
	var names []string
	existing := make(map[string][]float64)
	for _, col := range ds.ColumnNames() {
		if col == name {
			continue
		}
		names = append(names, col)
		existing[col], _ = ds.Column(col)
	}

	var bars []types.OHLCV
	columns := make(map[string][]float64, len(names)+1)
	for i := 0; i < ds.Len(); i++ {
		bar := ds.Bar(i)
		value, ok := byTime[bar.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		bars = append(bars, bar)
		for _, col := range names {
			columns[col] = append(columns[col], existing[col][i])
		}
		columns[name] = append(columns[name], value)
	}

	if len(bars) == 0 {
		return nil, errors.NewDataError("series", "merge", fmt.Errorf("no overlapping timestamps for %q: %w", name, types.ErrEmptyDataset))
	}

	merged, err := types.NewDataset(bars, columns)
	if err != nil {
		return nil, errors.NewDataError("series", "merge", err)
	}
	return merged, nil
}

// WithATR adds the rolling mean of the true range as the "atr" column and
// drops the leading rows where any column is still undefined
func WithATR(ds *types.Dataset, period int) (*types.Dataset, error) {
	if period <= 0 {
		return nil, errors.NewValidationError("series", "with_atr", fmt.Sprintf("ATR period must be positive, got %d", period))
	}
	if ds.Len() == 0 {
		return nil, errors.NewDataError("series", "with_atr", types.ErrEmptyDataset)
	}

	atr := indicators.NewATR(period).SeriesFromBars(ds.Bars())
	out, err := ds.WithColumn(ATRColumn, atr)
	if err != nil {
		return nil, errors.NewDataError("series", "with_atr", err)
	}

	trimmed := TrimLeadingUndefined(out)
	if trimmed.Len() == 0 {
		return nil, errors.NewDataError("series", "with_atr", fmt.Errorf("%d bars do not cover ATR period %d: %w", ds.Len(), period, types.ErrEmptyDataset))
	}
	return trimmed, nil
}

// TrimLeadingUndefined drops rows from the start until every column is defined
func TrimLeadingUndefined(ds *types.Dataset) *types.Dataset {
	names := ds.ColumnNames()
	columns := make([][]float64, len(names))
	for i, name := range names {
		columns[i], _ = ds.Column(name)
	}

	start := 0
	for ; start < ds.Len(); start++ {
		defined := true
		for _, values := range columns {
			if !indicators.IsDefined(values[start]) {
				defined = false
				break
			}
		}
		if defined {
			break
		}
	}
	return ds.Slice(start, ds.Len())
}
