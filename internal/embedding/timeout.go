package embedding

import (
	"context"
	"time"
)

// TimeoutEmbedder bounds each Embed call to a fixed duration.
type TimeoutEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

// NewTimeoutEmbedder wraps inner. A non-positive timeout disables the bound.
func NewTimeoutEmbedder(inner Embedder, timeout time.Duration) *TimeoutEmbedder {
	return &TimeoutEmbedder{inner: inner, timeout: timeout}
}

// Embed calls the wrapped embedder with a deadline derived from ctx.
func (t *TimeoutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if t.timeout <= 0 {
		return t.inner.Embed(ctx, text)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Embed(ctx, text)
}

func (t *TimeoutEmbedder) Dimensions() int {
	return t.inner.Dimensions()
}

func (t *TimeoutEmbedder) Close() error {
	return t.inner.Close()
}
