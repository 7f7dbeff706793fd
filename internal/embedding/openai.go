package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIConfig points at an OpenAI-compatible embeddings endpoint (OpenAI, Ollama, vLLM...).
type OpenAIConfig struct {
	Host  string
	Model string
	// Token may be empty for local services that do not authenticate.
	Token string
	// Dimensions, when positive, is enforced on every returned vector.
	Dimensions int
}

// OpenAIEmbedder embeds text through an OpenAI-compatible API via langchaingo.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates a remote embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &OpenAIEmbedder{
		embedder:   embedder,
		dimensions: cfg.Dimensions,
		logger:     logger.With(zap.String("component", "openai-embedder"), zap.String("model", cfg.Model)),
	}, nil
}

// Embed requests one embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", zap.Int("length", len(text)))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Warn("embedding request failed", zap.Error(err))
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	v := vectors[0]
	if e.dimensions > 0 && len(v) != e.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedDimensions, len(v), e.dimensions)
	}
	return v, nil
}

// Dimensions returns the configured dimension, or 0 when not enforced.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
