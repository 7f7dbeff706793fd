package embedding

import (
	"fmt"

	"github.com/hyperjump/imi/internal/config"
	"go.uber.org/zap"
)

// New builds the embedder selected by cfg.Provider, wrapped with a per-attempt timeout and
// then retries when configured.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var base Embedder
	switch cfg.Provider {
	case config.ProviderMock:
		base = NewMockEmbedder(cfg.Dimensions)
	case config.ProviderONNX:
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to load onnx model: %w", err)
		}
		base = e
	case config.ProviderOpenAI:
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Token:      cfg.Token,
			Dimensions: cfg.Dimensions,
		}, logger)
		if err != nil {
			return nil, err
		}
		base = e
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}

	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", base.Dimensions()))

	e := base
	if cfg.Timeout > 0 {
		e = NewTimeoutEmbedder(e, cfg.Timeout)
	}
	if cfg.Retry.Attempts > 1 {
		r, err := NewRetryEmbedder(e, cfg.Retry.Attempts, cfg.Retry.BaseDelay, logger)
		if err != nil {
			base.Close()
			return nil, err
		}
		e = r
	}
	return e, nil
}
