package embedding

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/hyperjump/imi/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and the "mock" provider. The same
// text always gets the same unit-length vector.
//
// Vectors and Fail are read without locking; set them before the embedder is shared.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64

	// Vectors pins exact vectors for specific texts. Other texts get a hash-derived vector.
	Vectors map[string][]float32
	// Fail, if set, is consulted first; a non-nil result is returned as the error.
	Fail func(text string) error
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the pinned vector for text if there is one, otherwise a vector derived
// from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Fail != nil {
		if err := e.Fail(text); err != nil {
			return nil, err
		}
	}
	if v, ok := e.Vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}

	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Calls returns how many times Embed has been invoked.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
