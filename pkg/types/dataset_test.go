package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBars(closes ...float64) []OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = OHLCV{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestNewDataset_ColumnLengthMismatch(t *testing.T) {
	_, err := NewDataset(makeBars(1, 2, 3), map[string][]float64{"atr": {1, 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atr")
}

func TestDataset_WithColumnDoesNotMutateReceiver(t *testing.T) {
	ds := MustDataset(makeBars(10, 11, 12), nil)

	next, err := ds.WithColumn("atr", []float64{1, 1, 1})
	require.NoError(t, err)

	assert.False(t, ds.HasColumn("atr"))
	assert.True(t, next.HasColumn("atr"))
	assert.Equal(t, []string{"atr"}, next.ColumnNames())
}

func TestDataset_ColumnReturnsCopy(t *testing.T) {
	ds := MustDataset(makeBars(10, 11), map[string][]float64{"atr": {2, 2}})

	col, ok := ds.Column("atr")
	require.True(t, ok)
	col[0] = 99

	again, _ := ds.Column("atr")
	assert.Equal(t, 2.0, again[0])
}

func TestDataset_Slice(t *testing.T) {
	ds := MustDataset(makeBars(10, 11, 12, 13), map[string][]float64{"atr": {1, 2, 3, 4}})

	sub := ds.Slice(1, 3)
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []float64{11, 12}, sub.Closes())
	col, _ := sub.Column("atr")
	assert.Equal(t, []float64{2, 3}, col)
}

func TestDataset_Validate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		ds := MustDataset(nil, nil)
		assert.ErrorIs(t, ds.Validate(), ErrEmptyDataset)
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, MustDataset(makeBars(1, 2, 3), nil).Validate())
	})

	t.Run("duplicate timestamp", func(t *testing.T) {
		bars := makeBars(1, 2, 3)
		bars[2].Timestamp = bars[1].Timestamp
		err := MustDataset(bars, nil).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strictly increasing")
	})

	t.Run("nan price", func(t *testing.T) {
		bars := makeBars(1, 2, 3)
		bars[1].Close = math.NaN()
		assert.Error(t, MustDataset(bars, nil).Validate())
	})
}

func TestOHLCV_TrueRange(t *testing.T) {
	bar := OHLCV{High: 110, Low: 100, Close: 105}

	assert.Equal(t, 10.0, bar.TrueRange(0, false))
	assert.Equal(t, 20.0, bar.TrueRange(90, true))
	assert.Equal(t, 15.0, bar.TrueRange(115, true))
}
