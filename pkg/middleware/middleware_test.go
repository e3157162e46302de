package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *memCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) Expire(_ context.Context, key string, d time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = d
	return true, nil
}

func newLimitedEcho(counter Counter, limit int) *echo.Echo {
	e := echo.New()
	e.POST("/bookings", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, RateLimit(counter, RateLimitConfig{Scope: "intake", Limit: limit, Window: time.Minute}, zap.NewNop()))
	return e
}

func doPost(e *echo.Echo) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	counter := newMemCounter()
	e := newLimitedEcho(counter, 2)

	assert.Equal(t, http.StatusCreated, doPost(e).Code)
	assert.Equal(t, http.StatusCreated, doPost(e).Code)

	rec := doPost(e)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, time.Minute, counter.expires["ratelimit:intake:203.0.113.7"])
}

func postFrom(e *echo.Echo, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		req.Header.Set(echo.HeaderXRealIP, forwardedFor)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_IgnoresSpoofedForwardedFor(t *testing.T) {
	counter := newMemCounter()
	e := newLimitedEcho(counter, 2)
	extractor, err := IPExtractor(nil)
	require.NoError(t, err)
	e.IPExtractor = extractor

	assert.Equal(t, http.StatusCreated, postFrom(e, "203.0.113.7:5000", "198.51.100.1").Code)
	assert.Equal(t, http.StatusCreated, postFrom(e, "203.0.113.7:5000", "198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, postFrom(e, "203.0.113.7:5000", "198.51.100.3").Code)

	assert.Len(t, counter.counts, 1)
	assert.Equal(t, int64(3), counter.counts["ratelimit:intake:203.0.113.7"])
}

func TestRateLimit_TrustedProxyForwardsClientIP(t *testing.T) {
	counter := newMemCounter()
	e := newLimitedEcho(counter, 1)
	extractor, err := IPExtractor([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	e.IPExtractor = extractor

	assert.Equal(t, http.StatusCreated, postFrom(e, "10.0.0.5:443", "198.51.100.1").Code)
	assert.Equal(t, http.StatusCreated, postFrom(e, "10.0.0.5:443", "198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, postFrom(e, "10.0.0.5:443", "198.51.100.1").Code)

	// an untrusted peer cannot borrow someone else's bucket
	assert.Equal(t, http.StatusCreated, postFrom(e, "203.0.113.7:5000", "198.51.100.2").Code)
	assert.Equal(t, int64(1), counter.counts["ratelimit:intake:203.0.113.7"])
}

func TestIPExtractor_RejectsBadCIDR(t *testing.T) {
	_, err := IPExtractor([]string{"10.0.0.0/33"})
	assert.Error(t, err)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	counter := newMemCounter()
	counter.err = errors.New("redis down")
	e := newLimitedEcho(counter, 1)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, doPost(e).Code)
	}
}

func TestRateLimit_NilCounterPassesThrough(t *testing.T) {
	e := newLimitedEcho(nil, 1)
	assert.Equal(t, http.StatusCreated, doPost(e).Code)
	assert.Equal(t, http.StatusCreated, doPost(e).Code)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var seen string
	e.GET("/x", func(c echo.Context) error {
		seen, _ = c.Get(RequestIDKey).(string)
		return c.NoContent(http.StatusOK)
	}, RequestID())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
