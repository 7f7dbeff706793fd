package embedding

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/imi/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestMockEmbedder_deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	a, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	c, err := e.Embed(context.Background(), "goodbye")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.EqualValues(t, 3, e.Calls())
}

func TestMockEmbedder_defaultDimensions(t *testing.T) {
	assert.Equal(t, 384, NewMockEmbedder(0).Dimensions())
}

func TestMockEmbedder_pinnedVectorsAreCopied(t *testing.T) {
	e := NewMockEmbedder(2)
	e.Vectors = map[string][]float32{"east": {1, 0}}

	v, err := e.Embed(context.Background(), "east")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)

	v[0] = 42
	again, err := e.Embed(context.Background(), "east")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, again)
}

func TestMockEmbedder_failure(t *testing.T) {
	boom := errors.New("boom")
	e := NewMockEmbedder(4)
	e.Fail = func(text string) error {
		if text == "bad" {
			return boom
		}
		return nil
	}
	_, err := e.Embed(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
	_, err = e.Embed(context.Background(), "good")
	assert.NoError(t, err)
}

func TestMockEmbedder_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockEmbedder(4).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("model offline")
	var err error = &GenerationError{Text: "q", Err: cause}

	assert.ErrorIs(t, err, cause)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "q", ge.Text)
	assert.Contains(t, err.Error(), "model offline")
}

func TestEmbedderFunc(t *testing.T) {
	f := EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
		return []float32{float32(len(text))}, nil
	})
	v, err := f.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)
	assert.Equal(t, 0, f.Dimensions())
	assert.NoError(t, f.Close())
}

func TestRetryEmbedder_eventualSuccess(t *testing.T) {
	var calls atomic.Int32
	inner := EmbedderFunc(func(context.Context, string) ([]float32, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("temporary")
		}
		return []float32{1}, nil
	})
	r, err := NewRetryEmbedder(inner, 5, time.Millisecond, nil)
	require.NoError(t, err)

	v, err := r.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetryEmbedder_allAttemptsFail(t *testing.T) {
	var calls atomic.Int32
	persistent := errors.New("persistent")
	inner := EmbedderFunc(func(context.Context, string) ([]float32, error) {
		calls.Add(1)
		return nil, persistent
	})
	r, err := NewRetryEmbedder(inner, 3, time.Millisecond, nil)
	require.NoError(t, err)

	_, err = r.Embed(context.Background(), "x")
	assert.Equal(t, persistent, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetryEmbedder_contextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	inner := EmbedderFunc(func(context.Context, string) ([]float32, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return nil, errors.New("error")
	})
	r, err := NewRetryEmbedder(inner, 10, time.Millisecond, nil)
	require.NoError(t, err)

	_, err = r.Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestRetryEmbedder_invalidAttempts(t *testing.T) {
	_, err := NewRetryEmbedder(NewMockEmbedder(4), 0, time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrInvalidAttempts)
}

func TestTimeoutEmbedder(t *testing.T) {
	slow := EmbedderFunc(func(ctx context.Context, _ string) ([]float32, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return []float32{1}, nil
		}
	})
	_, err := NewTimeoutEmbedder(slow, 10*time.Millisecond).Embed(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	v, err := NewTimeoutEmbedder(NewMockEmbedder(4), 0).Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, v, 4)
}

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{
		Provider:   config.ProviderMock,
		Dimensions: 8,
		Timeout:    time.Second,
		Retry:      config.RetryConfig{Attempts: 3, BaseDelay: time.Millisecond},
	}, nil)
	require.NoError(t, err)
	defer e.Close()

	assert.IsType(t, &RetryEmbedder{}, e)
	assert.Equal(t, 8, e.Dimensions())
	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, 8)
}

func TestNew_unknownProvider(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Provider: "magic"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
