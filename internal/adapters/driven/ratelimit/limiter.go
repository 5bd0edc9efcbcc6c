// Package ratelimit paces ingestion batches with a token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Limiter implements the interface.
var _ driven.Pacer = (*Limiter)(nil)

// DefaultCooldown is the pause after a provider reports rate limiting.
const DefaultCooldown = 10 * time.Second

// Limiter is a token bucket with an optional cooldown after a provider
// rejects calls for throughput.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	retryAt  time.Time
	cooldown time.Duration
}

// New creates a limiter refilling requestsPerSecond tokens per second up
// to burst. A non-positive rate disables pacing.
func New(requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter:  rate.NewLimiter(limit, burst),
		cooldown: DefaultCooldown,
	}
}

// FromSettings creates a limiter from ingestion settings.
func FromSettings(s domain.IngestionSettings) *Limiter {
	return New(s.RequestsPerSecond, s.Burst)
}

// Wait blocks until the next batch may start. It also respects any
// cooldown set by RecordRateLimit.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// RecordRateLimit delays the next Wait by after, or by the default
// cooldown when after is not positive.
func (l *Limiter) RecordRateLimit(after time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if after <= 0 {
		after = l.cooldown
	}
	l.retryAt = time.Now().Add(after)
}
