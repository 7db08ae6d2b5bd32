package clients

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/helixtrade/helix/internal/domain"
)

// RateLimiter is a token-bucket limiter shared by every goroutine hitting
// one external source. Acquire blocks until a token refills; TryAcquire
// never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows maxCalls per period of periodSeconds.
func NewRateLimiter(maxCalls int, periodSeconds float64) *RateLimiter {
	perSecond := float64(maxCalls) / periodSeconds
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), maxCalls),
	}
}

// Acquire blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return nil
}

// TryAcquire consumes a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}
