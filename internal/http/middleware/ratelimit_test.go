package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if got := KeyByClient()(c); got != "ip:203.0.113.9" {
		t.Fatalf("expected ip key, got %q", got)
	}

	req.Header.Set(HeaderClientID, " tab-7 ")
	if got := KeyByClient()(c); got != "client:tab-7" {
		t.Fatalf("expected client key, got %q", got)
	}
}

func TestNewRateLimiter_BurstCoercionAndReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d", rl.burst)
	}
	lim := rl.limiter("k1")
	if rl.limiter("k1") != lim {
		t.Fatalf("expected the same limiter for the same key")
	}
	if rl.limiter("k2") == lim {
		t.Fatalf("expected distinct limiters per key")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1.0, 1, nil)
	rl.now = func() time.Time { return now }
	rl.gcEvery = 2

	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Hour)}
	rl.visitors["fresh"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Minute)}

	_ = rl.limiter("a")
	if _, ok := rl.visitors["old"]; !ok {
		t.Fatalf("eviction ran before gcEvery lookups")
	}
	_ = rl.limiter("b")

	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("expected idle bucket to be evicted")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Fatalf("recent bucket must survive")
	}
	if _, ok := rl.visitors["b"]; !ok {
		t.Fatalf("expected new bucket to be created")
	}
}

func TestRateLimiter_Handler_AllowDenyPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1.0, 1, KeyByClient())

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	do := func(client string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(HeaderClientID, client)
		r.ServeHTTP(w, req)
		return w
	}

	if w := do("a"); w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	w := do("a")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After=1, got %q", w.Header().Get("Retry-After"))
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "rate_limited" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected body: %v", body)
	}

	if w := do("b"); w.Code != http.StatusOK {
		t.Fatalf("other client must have its own bucket, got %d", w.Code)
	}
}
