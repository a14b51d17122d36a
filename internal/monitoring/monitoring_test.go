package monitoring

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Metrics(t *testing.T) {
	r := NewRecorder(nil)

	beforeBuy := testutil.ToFloat64(tradesTotal.WithLabelValues("metrics_test", "buy"))
	beforeSkip := testutil.ToFloat64(skippedEntriesTotal.WithLabelValues("degenerate_size"))
	beforeErr := testutil.ToFloat64(runsTotal.WithLabelValues("metrics_test", "error"))

	r.RecordTrade("buy", "metrics_test")
	r.RecordTrade("buy", "metrics_test")
	r.RecordSkip("degenerate_size")
	r.RecordRun("metrics_test", 50*time.Millisecond, 101000, nil)
	r.RecordRun("metrics_test", 10*time.Millisecond, 0, fmt.Errorf("boom"))

	assert.Equal(t, beforeBuy+2, testutil.ToFloat64(tradesTotal.WithLabelValues("metrics_test", "buy")))
	assert.Equal(t, beforeSkip+1, testutil.ToFloat64(skippedEntriesTotal.WithLabelValues("degenerate_size")))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(runsTotal.WithLabelValues("metrics_test", "error")))
	assert.Equal(t, 101000.0, testutil.ToFloat64(finalEquity.WithLabelValues("metrics_test")))
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.SetExpected(3)
	assert.Equal(t, "healthy", h.Status().Status)

	r := NewRecorder(h)
	r.RecordRun("health_test", time.Millisecond, 1, nil)
	assert.Equal(t, "healthy", h.Status().Status)

	r.RecordRun("health_test", time.Millisecond, 0, fmt.Errorf("bad params"))
	status := h.Status()
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, 2, status.Completed)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, []string{"bad params"}, status.Errors)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Expected)
}

func TestHealthChecker_AllFailed(t *testing.T) {
	h := NewHealthChecker()
	for i := 0; i < maxHealthErrors+5; i++ {
		h.RecordRun(fmt.Errorf("err %d", i))
	}

	status := h.Status()
	assert.Equal(t, "unhealthy", status.Status)
	assert.Len(t, status.Errors, maxHealthErrors)
	assert.Equal(t, fmt.Sprintf("err %d", maxHealthErrors+4), status.Errors[maxHealthErrors-1])
}

func TestRouter(t *testing.T) {
	NewRecorder(nil).RecordTrade("sell", "mux_test")
	server := httptest.NewServer(NewRouter(NewHealthChecker()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "backtest_trades_total")

	health, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	NewRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
