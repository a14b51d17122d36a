package data

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// PrepareOptions describes how a backtest dataset is assembled
type PrepareOptions struct {
	DataFile  string
	Series    []SeriesSpec
	ATRPeriod int
	Start     time.Time
	End       time.Time
	Period    time.Duration
}

// Loader assembles backtest datasets: price file, auxiliary series merge,
// ATR augmentation and date filtering
type Loader struct {
	provider DataProvider
}

// NewLoader creates a loader; a nil provider means a cached CSV provider
func NewLoader(provider DataProvider) *Loader {
	if provider == nil {
		provider = NewCachedProvider(NewCSVProvider())
	}
	return &Loader{provider: provider}
}

// Provider returns the underlying data provider
func (l *Loader) Provider() DataProvider {
	return l.provider
}

// Prepare loads opts.DataFile, inner-joins every auxiliary series, adds the
// ATR column when ATRPeriod > 0 and finally applies the date filters.
// Filtering runs last so indicators warm up on the full history.
func (l *Loader) Prepare(opts PrepareOptions) (*types.Dataset, error) {
	if opts.DataFile == "" {
		return nil, errors.NewConfigurationError("loader", "prepare", "data file is required")
	}

	ds, err := l.provider.LoadData(opts.DataFile)
	if err != nil {
		return nil, err
	}

	for _, spec := range opts.Series {
		series, err := LoadSeries(spec.Path, spec.DateColumn, spec.ValueColumn)
		if err != nil {
			return nil, err
		}
		before := ds.Len()
		ds, err = MergeSeries(ds, spec.ColumnName(), series)
		if err != nil {
			return nil, err
		}
		log.Debug().
			Str("series", spec.ColumnName()).
			Int("bars_before", before).
			Int("bars_after", ds.Len()).
			Msg("Merged auxiliary series")
	}

	if opts.ATRPeriod > 0 {
		ds, err = WithATR(ds, opts.ATRPeriod)
		if err != nil {
			return nil, err
		}
	}

	ds = FilterByDateRange(ds, opts.Start, opts.End)
	ds = FilterByPeriod(ds, opts.Period)
	if ds.Len() == 0 {
		return nil, errors.NewDataError("loader", "filter", types.ErrEmptyDataset)
	}

	return ds, nil
}
