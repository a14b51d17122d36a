package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const maxHealthErrors = 10

// HealthChecker reports progress of a batch of runs, such as a sweep
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	expected  int
	completed int
	failed    int
	lastRun   time.Time
	errors    []string
}

// HealthStatus is the JSON body served by HealthChecker
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LastRun   time.Time `json:"last_run"`
	Expected  int       `json:"expected_runs"`
	Completed int       `json:"completed_runs"`
	Failed    int       `json:"failed_runs"`
	Uptime    string    `json:"uptime"`
	Errors    []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		errors:    make([]string, 0),
	}
}

// SetExpected sets how many runs the batch will perform
func (h *HealthChecker) SetExpected(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expected = n
}

// RecordRun records a finished run, keeping the latest error messages
func (h *HealthChecker) RecordRun(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.completed++
	h.lastRun = time.Now()
	if err != nil {
		h.failed++
		h.errors = append(h.errors, err.Error())
		if len(h.errors) > maxHealthErrors {
			h.errors = h.errors[len(h.errors)-maxHealthErrors:]
		}
	}
}

// Status returns the current health snapshot.
// A batch where every run failed is unhealthy, partial failures are degraded.
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	switch {
	case h.failed > 0 && h.failed == h.completed:
		status = "unhealthy"
	case h.failed > 0:
		status = "degraded"
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		LastRun:   h.lastRun,
		Expected:  h.expected,
		Completed: h.completed,
		Failed:    h.failed,
		Uptime:    time.Since(h.startTime).String(),
		Errors:    errs,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	switch health.Status {
	case "degraded":
		w.WriteHeader(http.StatusServiceUnavailable)
	case "unhealthy":
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(health)
}
