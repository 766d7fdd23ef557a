package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	srv := newTestServer(t, Services{}, Options{Clock: clock})
	clock.Advance(90 * time.Second)

	rec := get(t, srv, "/health/live")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 90.0, body["uptime"], 0.001)
}

func TestReadiness(t *testing.T) {
	ok := HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	failing := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	t.Run("all checks pass", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{HealthChecks: []HealthCheck{ok}})
		rec := get(t, srv, "/health/ready")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready","checks":{"postgres":"ok"}}`, rec.Body.String())
	})

	t.Run("no checks configured", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{})
		rec := get(t, srv, "/health/ready")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
	})

	t.Run("every result is reported", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{HealthChecks: []HealthCheck{ok, failing}})
		rec := get(t, srv, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body readinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "connection refused"}, body.Checks)
	})

	t.Run("checks get a deadline", func(t *testing.T) {
		var hadDeadline atomic.Bool
		probe := HealthCheck{Name: "probe", Check: func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			hadDeadline.Store(ok)
			return nil
		}}
		srv := newTestServer(t, Services{}, Options{HealthChecks: []HealthCheck{probe}})
		get(t, srv, "/health/ready")
		assert.True(t, hadDeadline.Load())
	})
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})
	rec := get(t, srv, "/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "commit")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("served when configured", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# HELP up\n"))
		})
		srv := newTestServer(t, Services{}, Options{MetricsHandler: handler})
		rec := get(t, srv, "/metrics")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "# HELP up")
	})

	t.Run("absent otherwise", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{})
		rec := get(t, srv, "/metrics")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSecurityAndCorrelationHeaders(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})
	rec := get(t, srv, "/health/live")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
