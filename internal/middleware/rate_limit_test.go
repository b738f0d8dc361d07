package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterQuota(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("k") {
			t.Fatalf("request %d rejected under quota", i+1)
		}
	}
	if rl.Allow("k") {
		t.Error("request over quota allowed")
	}
	// Other keys are unaffected.
	if !rl.Allow("other") {
		t.Error("unrelated key rejected")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("k") || !rl.Allow("k") {
		t.Fatal("initial requests rejected")
	}
	if rl.Allow("k") {
		t.Fatal("third request inside the window allowed")
	}

	// Once the first hits age out, capacity returns.
	clock = clock.Add(61 * time.Second)
	if !rl.Allow("k") {
		t.Error("request after window rejected")
	}
}

func TestRateLimiterCleanupDropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	clock := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("idle")
	clock = clock.Add(2 * time.Minute)
	rl.Allow("active")
	rl.cleanup()

	rl.mu.Lock()
	_, idleKept := rl.hits["idle"]
	_, activeKept := rl.hits["active"]
	rl.mu.Unlock()
	if idleKept {
		t.Error("idle key survived cleanup")
	}
	if !activeKept {
		t.Error("active key dropped by cleanup")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RateLimitMiddleware(rl)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/notion-webhook", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rr.Code)
	}

	// A different caller still gets through.
	other := httptest.NewRequest(http.MethodPost, "/api/notion-webhook", nil)
	other.Header.Set("X-Forwarded-For", "8.8.8.8")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Fatalf("other caller: status = %d", rr.Code)
	}
}
