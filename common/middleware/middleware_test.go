package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimitMiddleware_RejectsAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2, time.Minute)
	defer limiter.Stop()

	r := gin.New()
	r.Use(RateLimitMiddleware(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_EvictsIdleEntries(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Second), 1, time.Minute)
	defer limiter.Stop()

	limiter.GetLimiter("10.0.0.2")
	limiter.evict(time.Now().Add(2 * time.Minute))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.ips)
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestID(), RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}

	entries := logs.FilterMessage("http_request").All()
	assert.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string][]map[string]string
	timed  int
	err    error
}

func (f *fakeMetrics) IsEnabled() bool { return true }

func (f *fakeMetrics) RecordCount(_ context.Context, name string, dims map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string][]map[string]string)
	}
	f.counts[name] = append(f.counts[name], dims)
	return f.err
}

func (f *fakeMetrics) RecordLatency(_ context.Context, _ string, _ time.Duration, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timed++
	return f.err
}

func (f *fakeMetrics) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.counts[name])
}

func TestMetricsMiddleware_DisabledPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware(nil, "cart-recovery", zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMetricsMiddleware_RecordsByRouteTemplate(t *testing.T) {
	metrics := &fakeMetrics{}
	r := gin.New()
	r.Use(MetricsMiddleware(metrics, "cart-recovery", zap.NewNop()))
	r.DELETE("/recovery/checks/:cart_id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/recovery/checks/C1", nil)
	r.ServeHTTP(w, req)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Eventually(t, func() bool {
		return metrics.count(awspkg.MetricHTTPErrors) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, metrics.count(awspkg.MetricHTTPRequests))
	metrics.mu.Lock()
	dims := metrics.counts[awspkg.MetricHTTPRequests][0]
	metrics.mu.Unlock()
	assert.Equal(t, "/recovery/checks/:cart_id", dims["Route"])
	assert.Equal(t, "4xx", dims["StatusClass"])
}

func TestMetricsMiddleware_LogsFailedWritesAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	metrics := &fakeMetrics{err: errors.New("throttled")}
	r := gin.New()
	r.Use(MetricsMiddleware(metrics, "cart-recovery", zap.New(core)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Failed to record metric").Len() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "unknown", statusClass(0))
}
