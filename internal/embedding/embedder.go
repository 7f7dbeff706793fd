// Package embedding produces vector embeddings for text. It provides a deterministic mock,
// a local ONNX model, an OpenAI-compatible remote client and decorators for retry and timeout.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text. Implementations must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector length, or 0 if unknown until the first call.
	Dimensions() int
	Close() error
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

func (f EmbedderFunc) Dimensions() int { return 0 }

func (f EmbedderFunc) Close() error { return nil }

// GenerationError reports that no vector could be produced for Text.
type GenerationError struct {
	Text string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("embedding generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
