package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecorders(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/staff", "anonymous", http.StatusOK, 5*time.Millisecond)
	m.RecordLogin(LoginRejected, "")
	m.RecordRateLimited("login")
	m.RecordSessionsGenerated(3)
	m.RecordSessionsGenerated(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodGet, "/api/staff", "anonymous", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginRejected, "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("login")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionsCreated))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "laportal_login_attempts_total")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", "staff", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveCacheWrite(time.Millisecond)
	m.RecordLogin(LoginSucceeded, "staff")
	m.RecordRateLimited("login")
	m.RecordSessionsGenerated(1)
}
