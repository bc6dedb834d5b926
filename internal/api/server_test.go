package api

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("/api/transactions") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("/api/transactions") {
		t.Error("request over the limit was allowed")
	}
}

func TestRateLimiterIsPerKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("/api/transactions") {
		t.Fatal("first request should be allowed")
	}
	if !rl.Allow("/api/platforms") {
		t.Error("different endpoint should have its own budget")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("/api/recalculate") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("/api/recalculate") {
		t.Fatal("second immediate request should be blocked")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("/api/recalculate") {
		t.Error("request after window expiry should be allowed")
	}
}
