package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radiusdt/prediction-monitor/internal/config"
	"github.com/radiusdt/prediction-monitor/internal/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger, err := NewLogger(level, "json")
		require.NoError(t, err)
		require.NotNil(t, logger)
	}

	logger, err := NewLogger("warn", "console")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, MasterKey: "secret", SkipPaths: []string{"/health"}}
	h := NewAuthMiddleware(cfg, zap.NewNop()).Handler(okHandler)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"missing key", "/predictions/status", "", http.StatusUnauthorized},
		{"wrong key", "/predictions/status", "nope", http.StatusUnauthorized},
		{"header key", "/predictions/status", "secret", http.StatusOK},
		{"query key", "/predictions/status?api_key=secret", "", http.StatusOK},
		{"skipped path", "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	h := NewAuthMiddleware(config.AuthConfig{}, zap.NewNop()).Handler(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predictions/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := NewRecoveryMiddleware(zap.New(core)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predictions/summary/channels", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "panic recovered", logs.All()[0].Message)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := NewLoggingMiddleware(zap.New(core)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predictions/trend?metric=x", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, int64(http.StatusBadRequest), fields["status"])
	assert.Equal(t, int64(3), fields["size"])
	assert.Equal(t, "metric=x", fields["query"])
}

func TestRateLimitMiddleware(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	cfg := config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 4}
	h := NewRateLimitMiddleware(cfg, zap.NewNop(), m).Handler(okHandler)

	do := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// The per-IP bucket holds a single token.
	assert.Equal(t, http.StatusOK, do("/predictions/status", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("/predictions/status", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("/predictions/status", "10.0.0.2"))
	assert.Equal(t, http.StatusOK, do("/health", "10.0.0.1"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/predictions/status")))
}

func TestRateLimitCleanup(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 100}
	rl := NewRateLimitMiddleware(cfg, zap.NewNop(), nil)
	h := rl.Handler(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/mappings", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rl.ipLimiters, 1)
	_, ok := rl.ipLimiters["192.0.2.1"]
	assert.True(t, ok)

	rl.CleanupIPLimiters()
	assert.Empty(t, rl.ipLimiters)
}

type tagMiddleware string

func (m tagMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-Order", string(m))
		next.ServeHTTP(w, r)
	})
}

func TestChain(t *testing.T) {
	h := Chain(okHandler, tagMiddleware("outer"), tagMiddleware("inner"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, rec.Header().Values("X-Order"))
}
