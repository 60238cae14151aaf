package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "10.0.0.1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.WaitURL(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.WaitURL(ctx, "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	key := "192.0.2.10"

	if !limiter.Allow(key) {
		t.Errorf("first request should pass")
	}
	// burst 1: the token is consumed
	if limiter.Allow(key) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("192.0.2.11") {
		t.Errorf("expected allow for another client")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	key := "slow-client"

	limiter.SetRate(key, 0.1, 1)

	if !limiter.Allow(key) {
		t.Errorf("first request should pass")
	}
	if limiter.Allow(key) {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("fast-client") {
		t.Errorf("other client should pass")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	limiter.Allow("k")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "k"); err == nil {
		t.Error("expected wait to fail once the bucket is empty and ctx expires")
	}
}

func TestLimiter_Prune(t *testing.T) {
	limiter := NewLimiter(10, 1)
	limiter.Allow("a")
	limiter.Allow("b")

	if n := limiter.Prune(time.Hour); n != 0 {
		t.Errorf("expected nothing pruned, got %d", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := limiter.Prune(time.Millisecond); n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
	if limiter.Len() != 0 {
		t.Errorf("expected empty limiter, got %d", limiter.Len())
	}
}

func TestHostKey(t *testing.T) {
	host, err := HostKey("http://example.com/foo")
	if err != nil {
		t.Fatalf("HostKey failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}

	if _, err := HostKey("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
