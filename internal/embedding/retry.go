package embedding

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryEmbedder retries failed generations with exponential backoff. Context errors are
// never retried.
type RetryEmbedder struct {
	inner     Embedder
	attempts  int
	baseDelay time.Duration
	logger    *zap.Logger
}

// NewRetryEmbedder wraps inner so each Embed makes up to attempts calls, sleeping
// baseDelay, 2*baseDelay, 4*baseDelay... between them.
func NewRetryEmbedder(inner Embedder, attempts int, baseDelay time.Duration, logger *zap.Logger) (*RetryEmbedder, error) {
	if attempts < 1 {
		return nil, ErrInvalidAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryEmbedder{inner: inner, attempts: attempts, baseDelay: baseDelay, logger: logger}, nil
}

// Embed calls the wrapped embedder until it succeeds, attempts run out or ctx ends.
// The last generation error is returned unchanged.
func (r *RetryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := r.baseDelay
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := r.inner.Embed(ctx, text)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("embedding succeeded after retry", zap.Int("attempt", attempt))
			}
			return v, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == r.attempts {
			break
		}

		r.logger.Debug("embedding failed, will retry",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.attempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return nil, lastErr
}

// Dimensions returns the wrapped embedder's dimension.
func (r *RetryEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (r *RetryEmbedder) Close() error {
	return r.inner.Close()
}
