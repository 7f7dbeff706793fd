// Package search composes the embedding caches, an Embedder and the ranking engine into
// a query-to-results pipeline.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/imi/internal/embedcache"
	"github.com/hyperjump/imi/internal/embedding"
	"github.com/hyperjump/imi/internal/vector"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Config configures an Orchestrator over items of type T cached under keys of type K.
type Config[T any, K comparable] struct {
	// Key identifies an item in the item cache. Items with equal keys share a vector.
	Key func(T) K
	// Text extracts the text that is embedded for an item.
	Text func(T) string
	// ItemFlightKey, when set, makes concurrent misses for the same item share one
	// generation. It must map distinct keys to distinct strings.
	ItemFlightKey func(K) string

	// Threshold drops results scoring strictly below it.
	Threshold float64
	// MaxResults caps the ranked list; vector.NoLimit keeps everything.
	MaxResults int

	Items   embedcache.Config
	Queries embedcache.Config

	// Workers bounds concurrent item generations per pass. Zero uses runtime.NumCPU().
	Workers int
	// DedupQueries makes concurrent identical queries share one generation.
	DedupQueries bool
}

// Option configures the non-generic parts of an Orchestrator.
type Option func(*options)

type options struct {
	logger *zap.Logger
	clock  func() time.Time
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now in both caches and the notifier.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// Orchestrator turns query text into ranked items. It owns one cache for item vectors and
// one for query vectors.
type Orchestrator[T any, K comparable] struct {
	cfg      Config[T, K]
	embedder embedding.Embedder
	source   ItemSource[T]

	items   *embedcache.Cache[K]
	queries *embedcache.Cache[string]

	pool     *ants.Pool
	workers  int
	notifier *Notifier
	logger   *zap.Logger

	state atomic.Int32
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State   State            `json:"state"`
	Items   embedcache.Stats `json:"item_cache"`
	Queries embedcache.Stats `json:"query_cache"`
	Notice  *Notice          `json:"last_notice,omitempty"`
}

// New creates an orchestrator. It returns embedcache.ErrInvalidCapacity if either cache
// is configured with capacity zero.
func New[T any, K comparable](embedder embedding.Embedder, source ItemSource[T], cfg Config[T, K], opts ...Option) (*Orchestrator[T, K], error) {
	if cfg.Key == nil {
		return nil, ErrMissingKeyFunc
	}
	if cfg.Text == nil {
		return nil, ErrMissingTextFunc
	}

	o := options{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	itemOpts := []embedcache.Option[K]{embedcache.WithClock[K](o.clock)}
	if cfg.ItemFlightKey != nil {
		itemOpts = append(itemOpts, embedcache.WithSingleflight(cfg.ItemFlightKey))
	}
	items, err := embedcache.New(cfg.Items, itemOpts...)
	if err != nil {
		return nil, fmt.Errorf("item cache: %w", err)
	}

	queryOpts := []embedcache.Option[string]{embedcache.WithClock[string](o.clock)}
	if cfg.DedupQueries {
		queryOpts = append(queryOpts, embedcache.WithSingleflight(func(q string) string { return q }))
	}
	queries, err := embedcache.New(cfg.Queries, queryOpts...)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	notifier := NewNotifier()
	notifier.now = o.clock

	return &Orchestrator[T, K]{
		cfg:      cfg,
		embedder: embedder,
		source:   source,
		items:    items,
		queries:  queries,
		pool:     pool,
		workers:  workers,
		notifier: notifier,
		logger:   o.logger,
	}, nil
}

// Initialize makes the orchestrator ready. With prewarm, every item is embedded first;
// individual failures are reported but do not fail initialization. Only ctx ending
// during pre-warming returns an error, and the orchestrator then stays uninitialized.
func (o *Orchestrator[T, K]) Initialize(ctx context.Context, prewarm bool) error {
	if !prewarm {
		o.state.Store(int32(StateReady))
		o.logger.Info("search ready, item embeddings generated lazily")
		return nil
	}

	start := time.Now()
	cands, failed, err := o.embedItems(ctx)
	if err != nil {
		return err
	}
	o.state.Store(int32(StateReady))
	o.finishPass(failed, len(cands)+failed)
	o.logger.Info("search ready, corpus pre-warmed",
		zap.Int("items", len(cands)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Search embeds query, embeds any items not already cached, and ranks them. It returns
// ErrSearchUnavailable if the query cannot be embedded; items that cannot be embedded are
// left out of the ranking.
func (o *Orchestrator[T, K]) Search(ctx context.Context, query string) ([]vector.Scored[T], error) {
	if o.State() == StateUninitialized {
		return nil, ErrNotInitialized
	}
	q := NormalizeQuery(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	qv, err := o.queries.GetOrCreate(ctx, q, o.factory(q))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		o.logger.Warn("query embedding failed", zap.Int("query_length", len(q)), zap.Error(err))
		o.notifier.Publish(NoticeQueryFailed, "Search is unavailable: the query could not be embedded. Try again shortly.")
		o.setState(StateDegraded)
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}

	cands, failed, err := o.embedItems(ctx)
	if err != nil {
		return nil, err
	}

	ranked, err := vector.RankTopK(qv, cands, o.cfg.Threshold, o.cfg.MaxResults)
	if err != nil {
		o.logger.Error("ranking failed", zap.Error(err))
		o.notifier.Publish(NoticeRankingFailed, "Search failed: query and item embeddings have different sizes. Check the embedding model configuration.")
		o.setState(StateDegraded)
		return nil, err
	}
	o.finishPass(failed, len(cands)+failed)
	return ranked, nil
}

// factory generates the vector for text, wrapping failures in *embedding.GenerationError.
func (o *Orchestrator[T, K]) factory(text string) embedcache.Factory {
	return func(ctx context.Context) ([]float32, error) {
		v, err := o.embedder.Embed(ctx, text)
		if err != nil {
			var ge *embedding.GenerationError
			if errors.As(err, &ge) {
				return nil, err
			}
			return nil, &embedding.GenerationError{Text: text, Err: err}
		}
		return v, nil
	}
}

// embedItems resolves a vector for every item through the item cache, fanning out over the
// worker pool. Candidates keep source order; failed items are counted and left out.
func (o *Orchestrator[T, K]) embedItems(ctx context.Context) ([]vector.Candidate[T], int, error) {
	items := slices.Collect(o.source.Items())
	if len(items) == 0 {
		return nil, 0, ctx.Err()
	}

	vectors := make([][]float32, len(items))
	var failed atomic.Int64
	var wg sync.WaitGroup

	chunk := (len(items) + o.workers - 1) / o.workers
	for lo := 0; lo < len(items); lo += chunk {
		hi := min(lo+chunk, len(items))
		task := func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					return
				}
				v, err := o.embedItem(ctx, items[i])
				if err != nil {
					if ctx.Err() == nil {
						failed.Add(1)
					}
					continue
				}
				vectors[i] = v
			}
		}
		wg.Add(1)
		if err := o.pool.Submit(task); err != nil {
			// Pool released or overloaded; run inline rather than drop the chunk.
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	cands := make([]vector.Candidate[T], 0, len(items))
	for i, it := range items {
		if vectors[i] == nil {
			continue
		}
		cands = append(cands, vector.Candidate[T]{Item: it, Vector: vectors[i]})
	}
	return cands, int(failed.Load()), nil
}

func (o *Orchestrator[T, K]) embedItem(ctx context.Context, it T) ([]float32, error) {
	key := o.cfg.Key(it)
	v, err := o.items.GetOrCreate(ctx, key, o.factory(o.cfg.Text(it)))
	if err != nil && ctx.Err() == nil {
		o.logger.Warn("item embedding failed", zap.Any("key", key), zap.Error(err))
	}
	return v, err
}

// finishPass publishes one notice summarising item failures, or clears a degraded state
// after a clean pass.
func (o *Orchestrator[T, K]) finishPass(failed, total int) {
	if failed == 0 {
		o.setState(StateReady)
		return
	}
	o.notifier.Publish(NoticeItemsFailed, fmt.Sprintf("Embedding failed for %d of %d items; they are left out of results.", failed, total))
	o.setState(StateDegraded)
}

// setState moves between Ready and Degraded. It never leaves StateUninitialized.
func (o *Orchestrator[T, K]) setState(s State) {
	for {
		cur := o.state.Load()
		if State(cur) == StateUninitialized || State(cur) == s {
			return
		}
		if o.state.CompareAndSwap(cur, int32(s)) {
			if s == StateDegraded {
				o.logger.Warn("search degraded")
			} else {
				o.logger.Info("search recovered")
			}
			return
		}
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator[T, K]) State() State {
	return State(o.state.Load())
}

// Notifier exposes failure notices for a host to display.
func (o *Orchestrator[T, K]) Notifier() *Notifier {
	return o.notifier
}

// Status reports the state, both caches' statistics and the last notice.
func (o *Orchestrator[T, K]) Status() Status {
	st := Status{
		State:   o.State(),
		Items:   o.items.Stats(),
		Queries: o.queries.Stats(),
	}
	if n, ok := o.notifier.Last(); ok {
		st.Notice = &n
	}
	return st
}

// CleanupExpired sweeps stale entries from both caches and returns how many were removed
// from each. Hosts call it on a timer.
func (o *Orchestrator[T, K]) CleanupExpired() (items, queries int) {
	items = o.items.CleanupExpired()
	queries = o.queries.CleanupExpired()
	if items+queries > 0 {
		o.logger.Debug("expired embeddings removed", zap.Int("items", items), zap.Int("queries", queries))
	}
	return items, queries
}

// ClearCaches empties both caches, optionally zeroing their statistics.
func (o *Orchestrator[T, K]) ClearCaches(resetStats bool) {
	o.items.Clear()
	o.queries.Clear()
	if resetStats {
		o.items.ResetStatistics()
		o.queries.ResetStatistics()
	}
	o.logger.Info("embedding caches cleared", zap.Bool("reset_stats", resetStats))
}

// InvalidateItems drops every cached item vector. Call it when item text may have changed
// under an unchanged key.
func (o *Orchestrator[T, K]) InvalidateItems() {
	o.items.Clear()
}

// Close releases the worker pool. The orchestrator must not be used afterwards.
func (o *Orchestrator[T, K]) Close() {
	o.pool.Release()
}
