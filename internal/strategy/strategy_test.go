package strategy

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetState_Signals(t *testing.T) {
	target := newTargetState(7)
	target.long(2)
	target.flat(4)
	target.long(6)

	assert.Equal(t, SignalSeries{0, 0, 1, 0, -1, 0, 1}, target.signals())
}

func TestTargetState_FirstBarIsHold(t *testing.T) {
	target := newTargetState(3)
	target.long(0)

	assert.Equal(t, SignalSeries{0, 0, 0}, target.signals())
}

func TestMACrossover_GoldenAndDeathCross(t *testing.T) {
	ds := datasetFromCloses(t, []float64{
		100, 102, 104, 106, 108,
		115, 120, 125, 130, 135,
		130, 125, 120, 115, 110,
		108, 106, 104, 102, 100,
	}, nil)

	gen, err := NewMACrossover(5, 10)
	require.NoError(t, err)

	signals, err := gen.Generate(ds)
	require.NoError(t, err)
	require.Len(t, signals, ds.Len())

	// the long average is first defined at index 9
	assert.Equal(t, SignalEnter, signals[9])
	assert.Equal(t, SignalExit, signals[14])
	assert.Equal(t, 2, signals.Mass())
}

func TestMACrossover_ShortSeries(t *testing.T) {
	ds := datasetFromCloses(t, []float64{101, 102, 103, 106, 107, 108, 109, 110}, nil)

	gen, err := NewMACrossover(2, 4)
	require.NoError(t, err)

	signals, err := gen.Generate(ds)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, signals.Indices(SignalEnter))
	assert.Empty(t, signals.Indices(SignalExit))
}

func TestMACrossover_MonotonicUpThenDown(t *testing.T) {
	up := make([]float64, 0, 40)
	for i := 0; i < 20; i++ {
		up = append(up, 100+float64(i))
	}
	gen, err := NewMACrossover(3, 6)
	require.NoError(t, err)

	signals, err := gen.Generate(datasetFromCloses(t, up, nil))
	require.NoError(t, err)
	assert.Len(t, signals.Indices(SignalEnter), 1)
	assert.Equal(t, 1, signals.Mass())

	both := append([]float64{}, up...)
	for i := 0; i < 20; i++ {
		both = append(both, 119-float64(i))
	}
	signals, err = gen.Generate(datasetFromCloses(t, both, nil))
	require.NoError(t, err)
	assert.Len(t, signals.Indices(SignalEnter), 1)
	assert.Len(t, signals.Indices(SignalExit), 1)
	assert.Equal(t, 2, signals.Mass())
}

func TestMACrossover_InvalidWindows(t *testing.T) {
	_, err := NewMACrossover(0, 10)
	assert.Error(t, err)

	_, err = NewMACrossover(10, 10)
	assert.Error(t, err)

	_, err = NewMACrossover(20, 10)
	assert.Error(t, err)
}

func TestAsymmetricEMA_HoldsUntilRegimeSlopeTurns(t *testing.T) {
	ds := datasetFromCloses(t, []float64{
		20, 19, 18, 17, 16, 15, 14, 13, 14, 15, 16, 17, 18,
		19, 20, 21, 22, 21, 20, 19, 18, 17, 16, 15, 14,
	}, nil)

	gen, err := NewAsymmetricEMA(2, 4, 3, 2)
	require.NoError(t, err)

	signals, err := gen.Generate(ds)
	require.NoError(t, err)

	assert.Equal(t, []int{9}, signals.Indices(SignalEnter))
	assert.Equal(t, []int{18}, signals.Indices(SignalExit))
}

func TestAsymmetricEMA_ExitOverridesEntry(t *testing.T) {
	// a one-bar bounce produces a golden cross while the regime slope is still negative
	ds := datasetFromCloses(t, []float64{30, 29, 28, 27, 26, 25, 24, 23, 22, 25, 21, 20, 19, 18}, nil)

	gen, err := NewAsymmetricEMA(2, 4, 5, 2)
	require.NoError(t, err)

	signals, err := gen.Generate(ds)
	require.NoError(t, err)

	assert.Equal(t, 0, signals.Mass())
}

func TestSOPREMA_RequiresArming(t *testing.T) {
	closes := []float64{
		20, 19, 18, 17, 16, 15, 14, 13, 14, 15, 16, 17, 18,
		19, 20, 21, 22, 21, 20, 19, 18, 17, 16, 15, 14,
	}
	calm := make([]float64, len(closes))
	capitulation := make([]float64, len(closes))
	for i := range closes {
		calm[i] = 1.1
		capitulation[i] = 1.1
	}
	capitulation[5] = 0.9

	newGen := func(armWindow int) *SOPREMA {
		gen, err := NewSOPREMA(SOPREMAOptions{
			ShortEMA: 2, LongEMA: 4, RegimeMA: 3, SlopeWindow: 2,
			SOPRThreshold: 1.0, ArmWindow: armWindow,
		})
		require.NoError(t, err)
		return gen
	}

	signals, err := newGen(5).Generate(datasetFromCloses(t, closes, map[string][]float64{"sopr": calm}))
	require.NoError(t, err)
	assert.Equal(t, 0, signals.Mass())

	signals, err = newGen(5).Generate(datasetFromCloses(t, closes, map[string][]float64{"sopr": capitulation}))
	require.NoError(t, err)
	assert.Equal(t, []int{9}, signals.Indices(SignalEnter))
	assert.Equal(t, []int{18}, signals.Indices(SignalExit))

	// capitulation at bar 5 has left a 3-bar window by bar 9
	signals, err = newGen(3).Generate(datasetFromCloses(t, closes, map[string][]float64{"sopr": capitulation}))
	require.NoError(t, err)
	assert.Equal(t, 0, signals.Mass())
}

func TestSOPREMA_MissingColumn(t *testing.T) {
	gen, err := NewSOPREMA(DefaultSOPREMAOptions())
	require.NoError(t, err)

	_, err = gen.Generate(datasetFromCloses(t, []float64{1, 2, 3}, nil))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMissingColumn))
}

func TestGenerators_DoNotMutateDataset(t *testing.T) {
	closes := make([]float64, 60)
	sopr := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
		sopr[i] = 0.95
	}
	ds := datasetFromCloses(t, closes, map[string][]float64{"sopr": sopr})
	before := ds.ColumnNames()

	for _, name := range Available() {
		gen, err := New(name, map[string]any{
			"short_window": 2, "long_window": 4,
			"short_ema": 2, "long_ema": 4, "regime_ma": 5, "slope_window": 3, "arm_window": 5,
		})
		require.NoError(t, err)

		signals, err := gen.Generate(ds)
		require.NoError(t, err, name)
		assert.Len(t, signals, ds.Len(), name)
	}

	assert.Equal(t, before, ds.ColumnNames())
	assert.Equal(t, closes, ds.Closes())
}

func TestGenerators_NilDataset(t *testing.T) {
	for _, name := range Available() {
		gen, err := New(name, nil)
		require.NoError(t, err)

		_, err = gen.Generate(nil)
		assert.ErrorIs(t, err, types.ErrEmptyDataset)
	}
}

func TestSignalString(t *testing.T) {
	assert.Equal(t, "ENTER", SignalEnter.String())
	assert.Equal(t, "EXIT", SignalExit.String())
	assert.Equal(t, "HOLD", SignalHold.String())
	assert.Equal(t, "UNKNOWN", Signal(5).String())
}

// datasetFromCloses creates daily bars whose open equals the close
func datasetFromCloses(t *testing.T, closes []float64, columns map[string][]float64) *types.Dataset {
	t.Helper()

	bars := make([]types.OHLCV, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = types.OHLCV{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}

	ds, err := types.NewDataset(bars, columns)
	require.NoError(t, err)
	return ds
}
