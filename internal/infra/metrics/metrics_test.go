package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusUnauthorized, 5*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.requestCount.WithLabelValues(http.MethodPost, "/api/auth/login", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestCount.WithLabelValues(http.MethodPost, "/api/auth/login", "401")), 0)
}

func TestMetrics_RecordAuthOutcome(t *testing.T) {
	m := New()

	m.RecordAuthOutcome("register", "success")
	m.RecordAuthOutcome("register", "DUPLICATE_ACCOUNT")
	m.RecordAuthOutcome("register", "DUPLICATE_ACCOUNT")

	assert.InDelta(t, 1, testutil.ToFloat64(m.authOutcomes.WithLabelValues("register", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.authOutcomes.WithLabelValues("register", "DUPLICATE_ACCOUNT")), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordAuthOutcome("login", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "identity_auth_outcomes_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
