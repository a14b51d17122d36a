package backtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
)

func TestWorkerPool_RunsIndependentJobs(t *testing.T) {
	ds := buildDataset(t, exampleOpens, exampleCloses, constant(len(exampleCloses), 2))
	recorder := &countingRecorder{}

	pool := NewWorkerPool(context.Background(), 3, 10, WithPoolRecorder(recorder))
	pool.Start()

	fractions := []float64{0.005, 0.01, 0.015, 0.02, 0.025}
	for _, f := range fractions {
		cfg := exampleConfig()
		cfg.Risk.RiskFraction = f
		gen, err := strategy.NewMACrossover(2, 4)
		require.NoError(t, err)

		require.NoError(t, pool.SubmitJob(BacktestJob{
			Config:  cfg,
			Data:    ds,
			Sources: map[regime.Label]strategy.SignalGenerator{regime.Default: gen},
			Params:  map[string]any{"risk_fraction": f},
		}))
	}
	pool.Close()

	seen := make(map[string]bool)
	for res := range pool.GetResults() {
		require.NoError(t, res.Error)
		_, err := uuid.Parse(res.ID)
		assert.NoError(t, err)
		assert.False(t, seen[res.ID])
		seen[res.ID] = true

		f := res.Params["risk_fraction"].(float64)
		require.Len(t, res.Results.Trades, 1)
		// size scales with the risk fraction: balance*f / (2*atr)
		assert.InDelta(t, 100000*f/4, res.Results.Trades[0].Size, 1e-9)
	}

	assert.Len(t, seen, len(fractions))
	assert.Equal(t, len(fractions), recorder.runs)
}

func TestWorkerPool_ReportsJobErrors(t *testing.T) {
	ds := buildDataset(t, exampleOpens, exampleCloses, constant(len(exampleCloses), 2))

	pool := NewWorkerPool(context.Background(), 1, 1)
	pool.Start()
	require.NoError(t, pool.SubmitJob(BacktestJob{ID: "bad", Config: exampleConfig(), Data: ds}))
	pool.Close()

	res := <-pool.GetResults()
	assert.Equal(t, "bad", res.ID)
	assert.Error(t, res.Error)
	assert.Nil(t, res.Results)
}

func TestWorkerPool_SubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 1, 0)
	cancel()

	err := pool.SubmitJob(BacktestJob{})
	assert.ErrorIs(t, err, context.Canceled)
	pool.Stop()
}

func TestProgressTracker(t *testing.T) {
	pt := NewProgressTracker(4)
	assert.Zero(t, pt.Snapshot().Remaining)

	p := pt.Done()
	assert.Equal(t, 1, p.Completed)
	assert.Equal(t, 4, p.Total)
	assert.InDelta(t, 25.0, p.Percent, 1e-12)

	for i := 0; i < 3; i++ {
		p = pt.Done()
	}
	assert.InDelta(t, 100.0, p.Percent, 1e-12)
	assert.Zero(t, p.Remaining)
}
