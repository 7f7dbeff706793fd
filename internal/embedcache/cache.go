// Package embedcache provides a concurrency-safe embedding cache with TTL expiry
// and capacity-bounded LRU eviction.
package embedcache

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Unbounded disables capacity-based eviction. Any negative capacity is treated as unbounded.
const Unbounded = -1

// Factory produces the vector for a key on a cache miss.
type Factory func(ctx context.Context) ([]float32, error)

// Config holds the immutable bounds of a cache instance.
type Config struct {
	// TTL is the age after which an entry is stale. Zero or negative makes every lookup a miss.
	TTL time.Duration
	// Capacity is the maximum number of resident entries, or Unbounded.
	Capacity int
}

type entry[K comparable] struct {
	key       K
	vector    []float32
	createdAt time.Time
	// elem is the entry's node in the recency list; nil once the entry has been removed.
	// Guarded by Cache.mu.
	elem *list.Element
}

// Cache maps keys to embedding vectors. Lookups that hit go through a sync.Map and never
// wait on the recency list; only list mutation (touch, insert, evict) is serialized.
type Cache[K comparable] struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	entries sync.Map // K -> *entry[K]

	mu  sync.Mutex
	lru *list.List // front is most recently used
	// gen advances on Clear. Vectors produced by a factory that started in an earlier
	// generation are returned to their caller but never stored.
	gen atomic.Uint64

	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64

	flight  *singleflight.Group
	flightK func(K) string
}

// Option configures a Cache.
type Option[K comparable] func(*Cache[K])

// WithClock replaces time.Now, mainly for tests.
func WithClock[K comparable](now func() time.Time) Option[K] {
	return func(c *Cache[K]) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSingleflight makes concurrent misses for the same key share one factory call.
// keyFunc must map distinct keys to distinct strings.
func WithSingleflight[K comparable](keyFunc func(K) string) Option[K] {
	return func(c *Cache[K]) {
		if keyFunc == nil {
			return
		}
		c.flight = &singleflight.Group{}
		c.flightK = keyFunc
	}
}

// New creates a cache. A capacity of exactly zero is rejected with ErrInvalidCapacity.
func New[K comparable](cfg Config, opts ...Option[K]) (*Cache[K], error) {
	if cfg.Capacity == 0 {
		return nil, ErrInvalidCapacity
	}
	capacity := cfg.Capacity
	if capacity < 0 {
		capacity = Unbounded
	}
	c := &Cache[K]{
		ttl:      cfg.TTL,
		capacity: capacity,
		now:      time.Now,
		lru:      list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the bounds the cache was built with.
func (c *Cache[K]) Config() Config {
	return Config{TTL: c.ttl, Capacity: c.capacity}
}

// GetOrCreate returns the live vector for key, or calls factory on a miss and caches its
// result. Factory errors are returned unchanged and nothing is cached. If ctx is done when
// the factory returns, the result is discarded and ctx.Err() is returned.
func (c *Cache[K]) GetOrCreate(ctx context.Context, key K, factory Factory) ([]float32, error) {
	gen := c.gen.Load()
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	if c.flight != nil {
		return c.createShared(ctx, key, gen, factory)
	}
	return c.create(ctx, key, gen, factory)
}

func (c *Cache[K]) create(ctx context.Context, key K, gen uint64, factory Factory) ([]float32, error) {
	v, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.insert(key, v, gen)
	return v, nil
}

func (c *Cache[K]) createShared(ctx context.Context, key K, gen uint64, factory Factory) ([]float32, error) {
	// The shared call must outlive any single caller; each caller still stops waiting
	// when its own context ends. Callers only join calls of their own generation.
	shared := context.WithoutCancel(ctx)
	fk := c.flightK(key) + "\x00" + strconv.FormatUint(gen, 10)
	ch := c.flight.DoChan(fk, func() (interface{}, error) {
		v, err := factory(shared)
		if err != nil {
			return nil, err
		}
		c.insert(key, v, gen)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

// lookup returns the vector for a live entry and marks it most recently used.
// A stale entry is removed.
func (c *Cache[K]) lookup(key K) ([]float32, bool) {
	raw, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := raw.(*entry[K])
	if !c.live(e) {
		c.mu.Lock()
		if c.removeLocked(e) {
			c.expirations.Add(1)
		}
		c.mu.Unlock()
		return nil, false
	}
	c.mu.Lock()
	if e.elem != nil {
		c.lru.MoveToFront(e.elem)
	}
	c.mu.Unlock()
	return e.vector, true
}

func (c *Cache[K]) live(e *entry[K]) bool {
	return c.now().Sub(e.createdAt) < c.ttl
}

// insert stores v unless the cache was cleared after generation gen began.
func (c *Cache[K]) insert(key K, v []float32, gen uint64) {
	e := &entry[K]{key: key, vector: v, createdAt: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen.Load() != gen {
		return
	}

	if raw, ok := c.entries.Load(key); ok {
		c.removeLocked(raw.(*entry[K]))
	}
	e.elem = c.lru.PushFront(e)
	c.entries.Store(key, e)

	if c.capacity == Unbounded {
		return
	}
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil || oldest == e.elem {
			break
		}
		c.removeLocked(oldest.Value.(*entry[K]))
		c.evictions.Add(1)
	}
}

// removeLocked drops e from both the list and the map. It reports false if e was
// already removed. c.mu must be held.
func (c *Cache[K]) removeLocked(e *entry[K]) bool {
	if e.elem == nil {
		return false
	}
	c.lru.Remove(e.elem)
	e.elem = nil
	c.entries.CompareAndDelete(e.key, e)
	return true
}

// CleanupExpired removes every stale entry and returns how many were removed.
func (c *Cache[K]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry[K])
		if !c.live(e) && c.removeLocked(e) {
			removed++
		}
		el = prev
	}
	c.expirations.Add(uint64(removed))
	return removed
}

// Remove drops the entry for key if present.
func (c *Cache[K]) Remove(key K) bool {
	raw, ok := c.entries.Load(key)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(raw.(*entry[K]))
}

// Clear removes all entries. Factory calls already in flight still answer their callers
// but their vectors are not stored. Statistics are kept; see ResetStatistics.
func (c *Cache[K]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)
	for el := c.lru.Front(); el != nil; el = el.Next() {
		el.Value.(*entry[K]).elem = nil
	}
	c.lru.Init()
	c.entries.Clear()
}

// Count returns the number of resident entries, including stale ones not yet swept.
func (c *Cache[K]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
