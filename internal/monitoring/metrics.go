package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Total number of backtest runs",
		},
		[]string{"strategy", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Distribution of backtest run durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	finalEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backtest_final_equity",
			Help: "Final equity of the latest completed run",
		},
		[]string{"strategy"},
	)

	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Total number of simulated trades executed",
		},
		[]string{"strategy", "side"},
	)

	skippedEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_skipped_entries_total",
			Help: "Entry signals that did not produce a trade",
		},
		[]string{"reason"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(finalEquity)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(skippedEntriesTotal)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Recorder exports engine events as Prometheus metrics.
// It satisfies backtest.Recorder and is safe for concurrent use.
type Recorder struct {
	health *HealthChecker
}

// NewRecorder creates a recorder; health may be nil
func NewRecorder(health *HealthChecker) *Recorder {
	return &Recorder{health: health}
}

// RecordTrade records a trade metric
func (r *Recorder) RecordTrade(kind, strategy string) {
	tradesTotal.WithLabelValues(strategy, kind).Inc()
}

// RecordSkip records an entry that was not executed
func (r *Recorder) RecordSkip(reason string) {
	skippedEntriesTotal.WithLabelValues(reason).Inc()
}

// RecordRun records the outcome of one engine run
func (r *Recorder) RecordRun(strategy string, duration time.Duration, equity float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
		RecordError("run")
	} else {
		finalEquity.WithLabelValues(strategy).Set(equity)
	}
	runsTotal.WithLabelValues(strategy, status).Inc()
	runDuration.WithLabelValues(strategy).Observe(duration.Seconds())

	if r.health != nil {
		r.health.RecordRun(err)
	}
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
