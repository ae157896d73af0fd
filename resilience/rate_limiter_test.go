package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 3})
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	if rl.Allow() {
		t.Error("expected request beyond burst to be rejected")
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 1})
	if !rl.Allow() {
		t.Fatal("expected first request to be allowed")
	}
	if rl.Allow() {
		t.Fatal("expected second request to be rejected")
	}
	time.Sleep(30 * time.Millisecond)
	if !rl.Allow() {
		t.Error("expected request to be allowed after refill")
	}
}

func TestRateLimiter_Execute(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	calls := 0
	fn := func() error { calls++; return nil }

	if err := rl.Execute(fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rl.Execute(fn); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestKeyedRateLimiter_SeparatesKeys(t *testing.T) {
	k := NewKeyedRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1}, time.Minute)
	if !k.Allow("10.0.0.1") {
		t.Fatal("expected first request from 10.0.0.1 to be allowed")
	}
	if k.Allow("10.0.0.1") {
		t.Error("expected second request from 10.0.0.1 to be rejected")
	}
	if !k.Allow("10.0.0.2") {
		t.Error("expected 10.0.0.2 to have its own bucket")
	}
	if k.Len() != 2 {
		t.Errorf("expected 2 buckets, got %d", k.Len())
	}
}

func TestKeyedRateLimiter_EvictsIdle(t *testing.T) {
	k := NewKeyedRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1}, 10*time.Millisecond)
	k.Allow("a")
	time.Sleep(30 * time.Millisecond)
	k.Allow("b")
	if k.Len() != 1 {
		t.Errorf("expected idle bucket to be evicted, got %d buckets", k.Len())
	}
}
