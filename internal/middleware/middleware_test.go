package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"board-ai-go/internal/config"
	"board-ai-go/internal/metrics"
	"board-ai-go/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOrgRateLimiter(t *testing.T) {
	l := NewOrgRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, Burst: 2})

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2), "buckets are per organization")

	unlimited := NewOrgRateLimiter(config.RateLimitConfig{})
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow(1))
	}
}

func TestOrgRateLimiterEvictsIdleBuckets(t *testing.T) {
	l := NewOrgRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, Burst: 2})
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	now := start
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2))

	now = start.Add(5 * time.Minute)
	assert.True(t, l.Allow(2))
	assert.Equal(t, 2, l.Len())

	now = start.Add(11 * time.Minute)
	assert.True(t, l.Allow(3))
	assert.Equal(t, 2, l.Len(), "organization 1 was idle and is dropped")

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1), "a recreated bucket starts at burst")
}

func TestOrgRateLimiterIdleTTLCoversRefill(t *testing.T) {
	l := NewOrgRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, Burst: 30})
	assert.InDelta(t, float64(30*time.Minute), float64(l.idleTTL), float64(time.Millisecond))

	fast := NewOrgRateLimiter(config.RateLimitConfig{RequestsPerMinute: 600, Burst: 10})
	assert.Equal(t, bucketIdleTTL, fast.idleTTL)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewOrgRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, Burst: 1})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &model.User{OrganizationID: 7})
		c.Next()
	}, RateLimit(l))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestLoggingRedaction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(path, contentType string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader("password=secret"))
		c.Request.Header.Set("Content-Type", contentType)
		return c
	}

	assert.True(t, skipRequestBody(newCtx("/api/v1/auth/token", "application/x-www-form-urlencoded")))
	assert.True(t, skipRequestBody(newCtx("/api/v1/documents/upload", "multipart/form-data; boundary=x")))
	assert.False(t, skipRequestBody(newCtx("/api/v1/advisors/analyze", "application/json")))

	c := newCtx("/api/v1/advisors/analyze", "application/json")
	c.Writer.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	assert.True(t, skipResponseBody(c))

	c = newCtx("/api/v1/documents/download/1", "")
	c.Writer.Header().Set("Content-Disposition", "attachment; filename=a.txt")
	assert.True(t, skipResponseBody(c))
}

func TestRequestLoggerKeepsBodyReadable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		body, _ := c.GetRawData()
		c.String(http.StatusOK, string(body))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"topic":"x"}`)))
	assert.Equal(t, `{"topic":"x"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	matched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/documents/:id", "200")
	unmatched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	beforeMatched, beforeUnmatched := testutil.ToFloat64(matched), testutil.ToFloat64(unmatched)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, beforeMatched+1, testutil.ToFloat64(matched))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
