package server

import (
	"net/http"
	"testing"
	"time"
)

func fixedClock(rl *RateLimiter) *time.Time {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return &now
}

func TestRateLimiterRefillsContinuously(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := fixedClock(rl)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Take("generate", "10.0.0.1"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, wait := rl.Take("generate", "10.0.0.1")
	if ok {
		t.Fatal("expected the third request to be limited")
	}
	if wait != 30*time.Second {
		t.Fatalf("wait=%s, want 30s", wait)
	}

	*now = now.Add(30 * time.Second)
	if ok, _ := rl.Take("generate", "10.0.0.1"); !ok {
		t.Fatal("expected one token back after half the window")
	}
	if ok, _ := rl.Take("generate", "10.0.0.1"); ok {
		t.Fatal("only one token should have refilled")
	}
}

func TestRateLimiterSeparatesClientsAndRoutes(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	fixedClock(rl)

	if ok, _ := rl.Take("generate", "10.0.0.1"); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _ := rl.Take("generate", "10.0.0.1"); ok {
		t.Fatal("second generate should be limited")
	}
	if ok, _ := rl.Take("generate", "10.0.0.2"); !ok {
		t.Fatal("clients must not share a bucket")
	}
	if ok, _ := rl.Take("export", "10.0.0.1"); !ok {
		t.Fatal("routes must not share a bucket")
	}
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := fixedClock(rl)

	rl.Take("generate", "10.0.0.1")
	*now = now.Add(2 * time.Hour)
	rl.Take("export", "10.0.0.2")
	if len(rl.buckets) != 1 {
		t.Fatalf("expected the idle bucket to be dropped, got %d buckets", len(rl.buckets))
	}
}

func TestRateLimitOnGenerate(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	runner := &fakeRunner{bundle: testBundle()}
	h, _ := setupServer(t, runner, WithRateLimiter(rl))

	if rr := postJSON(t, h, "/api/generate", map[string]any{}); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr := postJSON(t, h, "/api/generate", map[string]any{})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if resp := decodeBody(t, rr); resp["code"] != "rate_limited" {
		t.Fatalf("code=%v", resp["code"])
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if runner.calls != 1 {
		t.Fatalf("limited request reached the runner: calls=%d", runner.calls)
	}

	export := postJSON(t, h, "/api/export-pdf", map[string]any{"bundle": testBundle()})
	if export.Code != http.StatusOK {
		t.Fatalf("export has its own budget, got %d", export.Code)
	}
}
