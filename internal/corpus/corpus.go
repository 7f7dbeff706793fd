// Package corpus loads the searchable items and keeps an atomically swappable snapshot
// of them for the search orchestrator.
package corpus

import (
	"context"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/imi/internal/models"
	"go.uber.org/zap"
)

// Loader produces the full item list from some backing source.
type Loader interface {
	Load(ctx context.Context) ([]models.Item, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]models.Item, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) ([]models.Item, error) { return f(ctx) }

// Corpus holds the current item snapshot. Readers never block on Reload.
type Corpus struct {
	loader Loader
	closer io.Closer
	items  atomic.Pointer[[]models.Item]
	reload sync.Mutex
	logger *zap.Logger
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Corpus) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCloser registers a resource released by Close, such as the item store.
func WithCloser(cl io.Closer) Option {
	return func(c *Corpus) { c.closer = cl }
}

// New creates an empty corpus backed by loader. Call Reload to populate it.
func New(loader Loader, opts ...Option) *Corpus {
	c := &Corpus{loader: loader, logger: zap.NewNop()}
	empty := []models.Item{}
	c.items.Store(&empty)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reload replaces the snapshot with a fresh load. Items sharing an ID keep the first
// occurrence. On error the previous snapshot stays in place.
func (c *Corpus) Reload(ctx context.Context) (int, error) {
	c.reload.Lock()
	defer c.reload.Unlock()

	items, err := c.loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load corpus: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	kept := make([]models.Item, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			c.logger.Warn("duplicate item id ignored", zap.String("id", it.ID), zap.String("title", it.Title))
			continue
		}
		seen[it.ID] = struct{}{}
		kept = append(kept, it)
	}
	c.items.Store(&kept)
	c.logger.Info("corpus loaded", zap.Int("items", len(kept)))
	return len(kept), nil
}

// Items yields the snapshot current at the time of the call.
func (c *Corpus) Items() iter.Seq[models.Item] {
	return slices.Values(*c.items.Load())
}

// Snapshot returns a copy of the current items.
func (c *Corpus) Snapshot() []models.Item {
	return slices.Clone(*c.items.Load())
}

// Len returns the number of items in the current snapshot.
func (c *Corpus) Len() int {
	return len(*c.items.Load())
}

// Close releases the backing resource, if any.
func (c *Corpus) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
