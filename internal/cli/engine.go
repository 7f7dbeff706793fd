package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/imi/internal/config"
	"github.com/hyperjump/imi/internal/corpus"
	"github.com/hyperjump/imi/internal/embedcache"
	"github.com/hyperjump/imi/internal/embedding"
	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/internal/search"
	"go.uber.org/zap"
)

// engine is the corpus, embedder and orchestrator wired together from config.
type engine struct {
	corpus   *corpus.Corpus
	embedder embedding.Embedder
	orch     *search.Orchestrator[models.Item, string]
	logger   *zap.Logger
}

// newEngine loads the corpus and builds an orchestrator over it. The orchestrator is not
// yet initialized.
func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*engine, error) {
	emb, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	c, err := corpus.Open(cfg.Corpus, logger)
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("corpus: %w", err)
	}
	if _, err := c.Reload(ctx); err != nil {
		c.Close()
		emb.Close()
		return nil, fmt.Errorf("corpus: %w", err)
	}

	orch, err := search.New[models.Item, string](emb, c, searchConfig(cfg), search.WithLogger(logger))
	if err != nil {
		c.Close()
		emb.Close()
		return nil, err
	}
	return &engine{corpus: c, embedder: emb, orch: orch, logger: logger}, nil
}

func searchConfig(cfg *config.Config) search.Config[models.Item, string] {
	return search.Config[models.Item, string]{
		Key:           models.ItemKey,
		Text:          models.ItemText,
		ItemFlightKey: func(id string) string { return id },
		Threshold:     cfg.Search.Threshold,
		MaxResults:    cfg.Search.MaxResults,
		Items:         cacheConfig(cfg.Cache.Items),
		Queries:       cacheConfig(cfg.Cache.Queries),
		Workers:       cfg.Search.Workers,
		DedupQueries:  cfg.Search.DedupQueriesOrDefault(),
	}
}

func cacheConfig(b config.CacheBounds) embedcache.Config {
	ttl, capacity := b.Resolve()
	return embedcache.Config{TTL: ttl, Capacity: capacity}
}

// reload re-reads the corpus and drops cached item vectors, since an unchanged ID may now
// carry different text.
func (e *engine) reload(ctx context.Context) (int, error) {
	n, err := e.corpus.Reload(ctx)
	if err != nil {
		return 0, err
	}
	e.orch.InvalidateItems()
	e.logger.Info("corpus reloaded", zap.Int("items", n))
	return n, nil
}

func (e *engine) Close() error {
	e.orch.Close()
	return errors.Join(e.corpus.Close(), e.embedder.Close())
}
