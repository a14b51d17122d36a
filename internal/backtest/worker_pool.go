package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// WorkerPool manages parallel backtest execution. Every job builds its own
// engine, so runs never share mutable state.
type WorkerPool struct {
	workerCount int
	jobQueue    chan BacktestJob
	resultQueue chan BacktestResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      zerolog.Logger
	recorder    Recorder
	stopOnce    sync.Once
}

// BacktestJob represents a single backtest task
type BacktestJob struct {
	ID         string
	Config     RunConfig
	Data       *types.Dataset
	Sources    map[regime.Label]strategy.SignalGenerator
	Sizer      risk.Sizer
	Classifier regime.Classifier
	Params     map[string]any // free-form description of the job, e.g. sweep parameters
}

// BacktestResult represents the result of a backtest job
type BacktestResult struct {
	ID       string
	Results  *BacktestResults
	Config   RunConfig
	Params   map[string]any
	Duration time.Duration
	Error    error
}

// NewJobID returns a random job identifier
func NewJobID() string {
	return uuid.NewString()
}

// PoolOption configures a WorkerPool
type PoolOption func(*WorkerPool)

// WithPoolLogger sets the logger handed to every job's engine
func WithPoolLogger(logger zerolog.Logger) PoolOption {
	return func(wp *WorkerPool) {
		wp.logger = logger
	}
}

// WithPoolRecorder sets the recorder handed to every job's engine. It must be
// safe for concurrent use.
func WithPoolRecorder(recorder Recorder) PoolOption {
	return func(wp *WorkerPool) {
		wp.recorder = recorder
	}
}

// NewWorkerPool creates a new worker pool for parallel backtesting.
// Cancelling ctx stops the workers after their current job.
func NewWorkerPool(ctx context.Context, workerCount int, jobBufferSize int, opts ...PoolOption) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobBufferSize < 0 {
		jobBufferSize = 0
	}

	ctx, cancel := context.WithCancel(ctx)

	wp := &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan BacktestJob, jobBufferSize),
		resultQueue: make(chan BacktestResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(wp)
	}
	return wp
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close signals that no more jobs will be submitted. Workers drain the queue
// and the result channel is closed once they are done.
func (wp *WorkerPool) Close() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		go func() {
			wp.wg.Wait()
			close(wp.resultQueue)
			wp.cancel()
		}()
	})
}

// Stop stops the worker pool gracefully and waits for the workers to exit
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
	})
}

// SubmitJob submits a backtest job to the pool. Jobs without an ID get one.
func (wp *WorkerPool) SubmitJob(job BacktestJob) error {
	if job.ID == "" {
		job.ID = NewJobID()
	}
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan BacktestResult {
	return wp.resultQueue
}

// worker processes backtest jobs
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(workerID, job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob processes a single backtest job
func (wp *WorkerPool) processJob(workerID int, job BacktestJob) BacktestResult {
	startTime := time.Now()

	result := BacktestResult{
		ID:     job.ID,
		Config: job.Config,
		Params: job.Params,
	}

	opts := []Option{WithLogger(wp.logger.With().Str("job", job.ID).Int("worker", workerID).Logger())}
	if wp.recorder != nil {
		opts = append(opts, WithRecorder(wp.recorder))
	}
	engine := NewEngine(job.Config, job.Sizer, job.Classifier, opts...)

	result.Results, result.Error = engine.Run(job.Data, job.Sources)
	result.Duration = time.Since(startTime)

	return result
}

// Progress is a snapshot of a batch of jobs
type Progress struct {
	Completed int
	Total     int
	Percent   float64
	Elapsed   time.Duration
	Remaining time.Duration
}

// ProgressTracker counts completed jobs and extrapolates the time left
type ProgressTracker struct {
	mu        sync.Mutex
	total     int
	completed int
	started   time.Time
}

// NewProgressTracker starts tracking total jobs from now
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total, started: time.Now()}
}

// Done marks one job as finished and returns the updated snapshot
func (pt *ProgressTracker) Done() Progress {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.completed++
	return pt.snapshot()
}

// Snapshot returns the current progress without changing it
func (pt *ProgressTracker) Snapshot() Progress {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.snapshot()
}

func (pt *ProgressTracker) snapshot() Progress {
	p := Progress{
		Completed: pt.completed,
		Total:     pt.total,
		Elapsed:   time.Since(pt.started),
	}
	if pt.total > 0 {
		p.Percent = float64(pt.completed) / float64(pt.total) * 100
	}
	if pt.completed > 0 && pt.completed < pt.total {
		p.Remaining = p.Elapsed / time.Duration(pt.completed) * time.Duration(pt.total-pt.completed)
	}
	return p
}
