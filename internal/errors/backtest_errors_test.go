package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacktestError_WrapAndUnwrap(t *testing.T) {
	err := WrapError(ErrNoDefaultStrategy, ErrorCategoryConfiguration, "engine", "resolve_sources").
		WithContext("regime", "bull")

	assert.True(t, stderrors.Is(err, ErrNoDefaultStrategy))
	assert.True(t, err.IsFatal())
	assert.Equal(t, "bull", err.Context["regime"])
	assert.Contains(t, err.Error(), "[CONFIG:engine]")
}

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorCategoryIO, "store", "save"))
	assert.Nil(t, CategorizeError(nil, "store", "save"))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{name: "no default", err: fmt.Errorf("run: %w", ErrNoDefaultStrategy), want: ErrorCategoryConfiguration},
		{name: "signal length", err: ErrSignalLength, want: ErrorCategoryStrategy},
		{name: "empty dataset", err: ErrEmptyDataset, want: ErrorCategoryData},
		{name: "missing column", err: fmt.Errorf("sopr: %w", ErrMissingColumn), want: ErrorCategoryData},
		{name: "missing file", err: fmt.Errorf("open: %w", os.ErrNotExist), want: ErrorCategoryIO},
		{name: "invalid value", err: stderrors.New("invalid commission rate"), want: ErrorCategoryValidation},
		{name: "bad timestamp", err: stderrors.New("cannot parse timestamp"), want: ErrorCategoryData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err, "test", "op")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Category)
		})
	}
}

func TestCategorizeError_KeepsExisting(t *testing.T) {
	original := NewValidationError("config", "validate", "bad capital")
	wrapped := fmt.Errorf("load: %w", original)

	assert.Same(t, original, CategorizeError(wrapped, "cli", "run"))
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewValidationError("a", "b", "c"))
	stats.RecordError(NewDataError("a", "b", ErrEmptyDataset))
	stats.RecordError(NewDataError("a", "b", ErrMissingColumn))
	stats.RecordError(nil)

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 2)
	assert.InDelta(t, 2.0/3.0, stats.GetErrorRate(ErrorCategoryData), 1e-12)
	assert.Equal(t, 0.0, NewErrorStats(1).GetErrorRate(ErrorCategoryIO))
}
