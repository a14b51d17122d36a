package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// SweepSpec describes a parameter grid for one strategy
type SweepSpec struct {
	Strategy        string
	BaseParams      map[string]any
	Grid            map[string][]float64 // strategy parameter -> candidate values
	RiskFractions   []float64
	StopMultipliers []float64
}

// SweepOptions controls how a sweep is executed
type SweepOptions struct {
	Workers  int
	Logger   *zerolog.Logger // nil discards logs
	Recorder Recorder
}

// SweepResult is one evaluated grid point
type SweepResult struct {
	ID       string           `json:"id"`
	Strategy string           `json:"strategy"`
	Params   map[string]any   `json:"params"`
	Risk     risk.Params      `json:"risk"`
	Results  *BacktestResults `json:"-"`
	Error    error            `json:"-"`
}

// SweepReport holds every evaluated grid point, best first
type SweepReport struct {
	Results []SweepResult
	Invalid int // grid points rejected by the strategy constructor
	Failed  int // runs that returned an error
	Errors  *errors.ErrorStats
}

// Best returns the top ranked successful result
func (r *SweepReport) Best() (SweepResult, bool) {
	for _, res := range r.Results {
		if res.Error == nil && res.Results != nil {
			return res, true
		}
	}
	return SweepResult{}, false
}

// SweepPoint is one expanded grid combination
type SweepPoint struct {
	Params map[string]any
	Risk   risk.Params
}

// Expand returns every combination of the grid in a deterministic order
func (s SweepSpec) Expand(base risk.Params) []SweepPoint {
	keys := make([]string, 0, len(s.Grid))
	for k := range s.Grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fractions := s.RiskFractions
	if len(fractions) == 0 {
		fractions = []float64{base.RiskFraction}
	}
	multipliers := s.StopMultipliers
	if len(multipliers) == 0 {
		multipliers = []float64{base.StopMultiplier}
	}

	combos := []map[string]any{cloneParams(s.BaseParams)}
	for _, k := range keys {
		next := make([]map[string]any, 0, len(combos)*len(s.Grid[k]))
		for _, combo := range combos {
			for _, v := range s.Grid[k] {
				c := cloneParams(combo)
				c[k] = v
				next = append(next, c)
			}
		}
		combos = next
	}

	points := make([]SweepPoint, 0, len(combos)*len(fractions)*len(multipliers))
	for _, combo := range combos {
		for _, f := range fractions {
			for _, m := range multipliers {
				points = append(points, SweepPoint{
					Params: combo,
					Risk:   risk.Params{RiskFraction: f, StopMultiplier: m},
				})
			}
		}
	}
	return points
}

// Sweep runs every grid point of spec on the worker pool and ranks the
// results by total return, then by smaller drawdown
func Sweep(ctx context.Context, ds *types.Dataset, base RunConfig, spec SweepSpec, opts SweepOptions) (*SweepReport, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	report := &SweepReport{Errors: errors.NewErrorStats(20)}

	var jobs []BacktestJob
	for _, point := range spec.Expand(base.Risk) {
		gen, err := strategy.New(spec.Strategy, point.Params)
		if err != nil {
			report.Invalid++
			logger.Debug().Err(err).Interface("params", point.Params).Msg("skipping invalid grid point")
			continue
		}

		cfg := base
		cfg.Risk = point.Risk
		cfg.RegimeMode = regime.ModeOff
		jobs = append(jobs, BacktestJob{
			ID:      NewJobID(),
			Config:  cfg,
			Data:    ds,
			Sources: map[regime.Label]strategy.SignalGenerator{regime.Default: gen},
			Params:  point.Params,
		})
	}
	if len(jobs) == 0 {
		return nil, errors.NewConfigurationError("sweep", "expand_grid",
			fmt.Sprintf("no valid parameter combinations for %s", spec.Strategy))
	}

	poolOpts := []PoolOption{WithPoolLogger(logger)}
	if opts.Recorder != nil {
		poolOpts = append(poolOpts, WithPoolRecorder(opts.Recorder))
	}
	pool := NewWorkerPool(ctx, opts.Workers, len(jobs), poolOpts...)
	pool.Start()

	submitErr := make(chan error, 1)
	go func() {
		defer pool.Close()
		for _, job := range jobs {
			if err := pool.SubmitJob(job); err != nil {
				submitErr <- err
				return
			}
		}
		submitErr <- nil
	}()

	tracker := NewProgressTracker(len(jobs))
	for res := range pool.GetResults() {
		p := tracker.Done()
		logger.Debug().
			Int("done", p.Completed).
			Int("total", p.Total).
			Float64("pct", p.Percent).
			Dur("eta", p.Remaining).
			Msg("sweep progress")

		sr := SweepResult{
			ID:       res.ID,
			Strategy: spec.Strategy,
			Params:   res.Params,
			Risk:     res.Config.Risk,
			Results:  res.Results,
			Error:    res.Error,
		}
		if res.Error != nil {
			report.Failed++
			report.Errors.RecordError(errors.CategorizeError(res.Error, "sweep", "run_job"))
		}
		report.Results = append(report.Results, sr)
	}

	if err := <-submitErr; err != nil {
		return nil, fmt.Errorf("sweep interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep interrupted: %w", err)
	}

	RankSweepResults(report.Results)
	return report, nil
}

// RankSweepResults orders results best first: successful runs by descending
// total return, ties broken by smaller max drawdown, failures last
func RankSweepResults(results []SweepResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		aok := a.Error == nil && a.Results != nil
		bok := b.Error == nil && b.Results != nil
		if aok != bok {
			return aok
		}
		if !aok {
			return a.ID < b.ID
		}
		if a.Results.TotalReturn != b.Results.TotalReturn {
			return a.Results.TotalReturn > b.Results.TotalReturn
		}
		if a.Results.MaxDrawdown != b.Results.MaxDrawdown {
			return a.Results.MaxDrawdown < b.Results.MaxDrawdown
		}
		return paramsKey(a.Params, a.Risk) < paramsKey(b.Params, b.Risk)
	})
}

// paramsKey renders parameters in a stable order
func paramsKey(params map[string]any, r risk.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	parts = append(parts, fmt.Sprintf("risk=%v", r.RiskFraction), fmt.Sprintf("stop=%v", r.StopMultiplier))
	return strings.Join(parts, " ")
}

// ParamsKey renders a sweep result's parameters in a stable order
func (r SweepResult) ParamsKey() string {
	return paramsKey(r.Params, r.Risk)
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
