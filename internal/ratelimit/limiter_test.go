package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

func TestAcquireEnforcesMinimumGap(t *testing.T) {
	l := NewLimiter("arxiv", 50)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)
	// 3 follow-up slots at 50 rps need at least 60ms, minus scheduler slack.
	if elapsed < 45*time.Millisecond {
		t.Fatalf("3 acquires at 50 rps finished in %v", elapsed)
	}
}

func TestTryAcquireThrottlesOverBudget(t *testing.T) {
	l := NewLimiter("github", 1)
	ctx := context.Background()

	if err := l.TryAcquire(ctx, time.Second); err != nil {
		t.Fatalf("first try: %v", err)
	}
	err := l.TryAcquire(ctx, 10*time.Millisecond)
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
}

func TestTryAcquirePropagatesCallerCancellation(t *testing.T) {
	l := NewLimiter("pubmed", 1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("seed acquire: %v", err)
	}
	cancel()
	err := l.TryAcquire(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRegistryReturnsSameLimiterPerSource(t *testing.T) {
	r := NewRegistry(logger.NewNop(), map[string]float64{"Crossref": 10})

	a := r.For("crossref")
	b := r.For("CrossRef")
	if a != b {
		t.Fatal("expected one limiter per source regardless of case")
	}
	if a.Source() != "crossref" {
		t.Fatalf("source %q", a.Source())
	}

	other := r.For("unknown-source")
	if other == a {
		t.Fatal("distinct sources should get distinct limiters")
	}
	if err := other.Acquire(context.Background()); err != nil {
		t.Fatalf("default-rate limiter should serve requests: %v", err)
	}
}
