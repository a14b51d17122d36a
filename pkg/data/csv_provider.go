package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// DefaultTimestampLayouts are tried in order when a value is not a unix epoch
var DefaultTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

var timestampHeaders = []string{"timestamp", "date", "time", "datetime", "open_time"}

// CSVProvider implements DataProvider for header-driven CSV files.
// Besides timestamp and OHLCV, every numeric column becomes an indicator column.
type CSVProvider struct {
	layouts []string
}

// NewCSVProvider creates a new CSV data provider with the default timestamp layouts
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{
		layouts: DefaultTimestampLayouts,
	}
}

// NewCSVProviderWithLayouts creates a new CSV data provider with custom timestamp layouts
func NewCSVProviderWithLayouts(layouts ...string) *CSVProvider {
	if len(layouts) == 0 {
		layouts = DefaultTimestampLayouts
	}
	return &CSVProvider{
		layouts: layouts,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads a dataset from a CSV file
func (p *CSVProvider) LoadData(source string) (*types.Dataset, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, errors.NewIOError("csv_provider", "open", err).WithContext("path", source)
	}
	defer file.Close()

	ds, err := p.Read(file)
	if err != nil {
		if be, ok := err.(*errors.BacktestError); ok {
			return nil, be.WithContext("path", source)
		}
		return nil, err
	}
	return ds, nil
}

// Read parses CSV content into a validated dataset
func (p *CSVProvider) Read(r io.Reader) (*types.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewDataError("csv_provider", "read_header", types.ErrEmptyDataset)
		}
		return nil, errors.NewDataError("csv_provider", "read_header", err)
	}

	mapping, err := ResolveColumns(header)
	if err != nil {
		return nil, errors.NewDataError("csv_provider", "resolve_columns", err)
	}

	var bars []types.OHLCV
	raw := make(map[string][]string, len(mapping.Extra))

	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.NewDataError("csv_provider", "read_row", fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err))
		}
		lineNum++

		bar, err := p.parseBar(record, mapping)
		if err != nil {
			return nil, errors.NewDataError("csv_provider", "parse_row", fmt.Errorf("line %d: %w", lineNum, err))
		}
		bars = append(bars, bar)

		for name, col := range mapping.Extra {
			raw[name] = append(raw[name], field(record, col))
		}
	}

	if len(bars) == 0 {
		return nil, errors.NewDataError("csv_provider", "read_rows", types.ErrEmptyDataset)
	}

	if err := ValidateTimeSequence(bars); err != nil {
		return nil, errors.NewDataError("csv_provider", "validate", err)
	}

	columns := make(map[string][]float64, len(raw))
	for name, values := range raw {
		parsed, ok := parseColumn(values)
		if !ok {
			log.Debug().Str("column", name).Msg("Skipping non-numeric CSV column")
			continue
		}
		columns[name] = parsed
	}

	ds, err := types.NewDataset(bars, columns)
	if err != nil {
		return nil, errors.NewDataError("csv_provider", "build_dataset", err)
	}
	if err := p.ValidateData(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// ValidateData validates the integrity of a loaded dataset
func (p *CSVProvider) ValidateData(ds *types.Dataset) error {
	if err := ds.Validate(); err != nil {
		return errors.NewDataError("csv_provider", "validate", err)
	}
	return nil
}

// ResolveColumns maps header names to column positions. Names are matched
// case-insensitively; open, high, low and close are required.
func ResolveColumns(header []string) (CSVColumnMapping, error) {
	mapping := CSVColumnMapping{
		TimestampCol: -1,
		OpenCol:      -1,
		HighCol:      -1,
		LowCol:       -1,
		CloseCol:     -1,
		VolumeCol:    -1,
		Extra:        make(map[string]int),
	}

	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch {
		case key == "":
			continue
		case mapping.TimestampCol < 0 && isTimestampHeader(key):
			mapping.TimestampCol = i
		case key == "open":
			mapping.OpenCol = i
		case key == "high":
			mapping.HighCol = i
		case key == "low":
			mapping.LowCol = i
		case key == "close":
			mapping.CloseCol = i
		case key == "volume":
			mapping.VolumeCol = i
		default:
			if _, dup := mapping.Extra[key]; dup {
				return mapping, fmt.Errorf("duplicate column %q", key)
			}
			mapping.Extra[key] = i
		}
	}

	required := map[string]int{
		"timestamp": mapping.TimestampCol,
		"open":      mapping.OpenCol,
		"high":      mapping.HighCol,
		"low":       mapping.LowCol,
		"close":     mapping.CloseCol,
	}
	for _, name := range []string{"timestamp", "open", "high", "low", "close"} {
		if required[name] < 0 {
			return mapping, fmt.Errorf("column %q: %w", name, errors.ErrMissingColumn)
		}
	}

	return mapping, nil
}

func isTimestampHeader(key string) bool {
	for _, h := range timestampHeaders {
		if key == h {
			return true
		}
	}
	return false
}

func (p *CSVProvider) parseBar(record []string, m CSVColumnMapping) (types.OHLCV, error) {
	ts, err := ParseTimestamp(field(record, m.TimestampCol), p.layouts)
	if err != nil {
		return types.OHLCV{}, err
	}

	prices := make([]float64, 4)
	for i, col := range []int{m.OpenCol, m.HighCol, m.LowCol, m.CloseCol} {
		v, err := strconv.ParseFloat(field(record, col), 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid price %q: %w", field(record, col), err)
		}
		prices[i] = v
	}

	volume := 0.0
	if m.VolumeCol >= 0 {
		if s := field(record, m.VolumeCol); s != "" {
			volume, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return types.OHLCV{}, fmt.Errorf("invalid volume %q: %w", s, err)
			}
		}
	}

	return types.OHLCV{
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}, nil
}

// ParseTimestamp parses a unix epoch (seconds, or milliseconds when the value
// exceeds 1e11) or any of the given layouts. Results are in UTC.
func ParseTimestamp(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 || n < -1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// parseColumn parses an indicator column; blanks and "nan" become NaN.
// ok is false when any value is not numeric.
func parseColumn(values []string) ([]float64, bool) {
	out := make([]float64, len(values))
	for i, s := range values {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func field(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}
