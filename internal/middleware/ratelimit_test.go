package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(2)
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request for a key must pass")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("a different key must have its own bucket")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("second request for an exhausted key must be blocked")
	}
}

// A zero from the environment must not panic the constructor.
func TestNewRateLimiterClampsNonPositive(t *testing.T) {
	rl := NewRateLimiter(0)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("clamped limiter must still allow the first request")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("clamped limiter must block the second immediate request")
	}
}

func TestRateLimiterCleanupDropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Allow("10.0.0.1")
	rl.Cleanup(0)

	time.Sleep(time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Error("cleaned key must start with a fresh bucket")
	}
}
