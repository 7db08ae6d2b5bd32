package clients

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/domain"
)

// Fetch timeout and retry policy for external sources.
const (
	FetchTimeout = 10 * time.Second
	maxAttempts  = 3
	baseBackoff  = 500 * time.Millisecond
)

// WithRetry runs fn with a per-attempt timeout, retrying transient errors
// with exponential backoff. After the last attempt the error is demoted to
// ErrNoData so callers fall back to a neutral factor. Bad input and rate
// limit errors are not retried.
func WithRetry(ctx context.Context, log zerolog.Logger, name string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrBadInput) || errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		if attempt < maxAttempts {
			backoff := baseBackoff * time.Duration(1<<(attempt-1))
			log.Debug().
				Err(err).
				Str("source", name).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Fetch failed, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log.Warn().Err(lastErr).Str("source", name).Msg("Fetch failed after retries")
	return domain.ErrNoData
}
