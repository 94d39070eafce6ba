package scraper

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiterEnforcesDelay(t *testing.T) {
	ctx := context.Background()
	limiter := NewDomainLimiter(50 * time.Millisecond)

	start := time.Now()
	if err := limiter.Acquire(ctx, "x.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := limiter.Acquire(ctx, "x.com"); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("same-domain acquires %v apart, want at least 50ms", elapsed)
	}
}

func TestDomainLimiterIndependentDomains(t *testing.T) {
	ctx := context.Background()
	limiter := NewDomainLimiter(500 * time.Millisecond)

	if err := limiter.Acquire(ctx, "x.com"); err != nil {
		t.Fatalf("acquire x.com: %v", err)
	}

	// A different domain must not wait out x.com's delay.
	start := time.Now()
	if err := limiter.Acquire(ctx, "y.com"); err != nil {
		t.Fatalf("acquire y.com: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("cross-domain acquire took %v, domains must not block each other", elapsed)
	}
}

func TestDomainLimiterPerDomainOverride(t *testing.T) {
	ctx := context.Background()
	limiter := NewDomainLimiter(time.Hour)
	limiter.SetDelay("fast.com", time.Millisecond)

	if err := limiter.Acquire(ctx, "fast.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- limiter.Acquire(ctx, "fast.com") }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second acquire: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("override delay not applied")
	}
}

func TestDomainLimiterContextCancellation(t *testing.T) {
	limiter := NewDomainLimiter(time.Hour)

	if err := limiter.Acquire(context.Background(), "slow.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx, "slow.com")
	if err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}
