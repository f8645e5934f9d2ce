package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

// ErrThrottled is returned when a bounded acquire would exceed its wait
// budget. Unbounded acquires never return it.
var ErrThrottled = errors.New("ratelimit: throttled")

// Limiter is a per-source request gate. Burst is fixed at 1 so the
// (N+1)-th request cannot start until 1/rate seconds after the N-th;
// concurrent callers serialize and are served in FIFO order.
type Limiter struct {
	source  string
	limiter *rate.Limiter
}

func NewLimiter(source string, requestsPerSecond float64) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Limiter{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Acquire blocks until a request slot is available or ctx is done. The
// caller holds the slot for the duration of one outbound request; there
// is nothing to release.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// TryAcquire waits at most maxWait for a slot and returns ErrThrottled
// when the budget would be exceeded.
func (l *Limiter) TryAcquire(ctx context.Context, maxWait time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	if err := l.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || waitCtx.Err() != nil {
			return ErrThrottled
		}
		return err
	}
	return nil
}

// Source returns the name this limiter gates.
func (l *Limiter) Source() string { return l.source }

// Registry hands out one limiter per source, created lazily from the
// configured rates.
type Registry struct {
	log   *logger.Logger
	rates map[string]float64

	mu       sync.Mutex
	limiters map[string]*Limiter
}

func NewRegistry(log *logger.Logger, rates map[string]float64) *Registry {
	copied := make(map[string]float64, len(rates))
	for k, v := range rates {
		copied[strings.ToLower(k)] = v
	}
	return &Registry{
		log:      log.With("service", "RateLimitRegistry"),
		rates:    copied,
		limiters: map[string]*Limiter{},
	}
}

// For returns the limiter for a source, creating it on first use.
func (r *Registry) For(source string) *Limiter {
	key := strings.ToLower(source)
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[key]; ok {
		return l
	}
	rps, ok := r.rates[key]
	if !ok || rps <= 0 {
		rps = 1
		r.log.Warn("No rate configured for source, defaulting to 1 rps", "source", source)
	}
	l := NewLimiter(key, rps)
	r.limiters[key] = l
	return l
}
