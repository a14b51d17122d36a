package data

import (
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// DataProvider loads a dataset from a source such as a file path
type DataProvider interface {
	// LoadData loads and validates the dataset behind source
	LoadData(source string) (*types.Dataset, error)

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache caches loaded datasets by key.
// Datasets are immutable, so entries are shared rather than copied.
type DataCache interface {
	Get(key string) (*types.Dataset, bool)
	Set(key string, ds *types.Dataset)
	Clear()
	Size() int
}

// CSVColumnMapping holds the column positions resolved from a CSV header.
// VolumeCol is -1 when the file has no volume column.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	Extra        map[string]int
}

// SeriesSpec describes an auxiliary date/value file merged into the price data
type SeriesSpec struct {
	Path        string `json:"path" yaml:"path"`
	DateColumn  string `json:"date_column" yaml:"date_column"`
	ValueColumn string `json:"value_column" yaml:"value_column"`
	Name        string `json:"name" yaml:"name"`
}

// ColumnName returns the dataset column the series is stored under
func (s SeriesSpec) ColumnName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ValueColumn
}
