package embedcache

// Stats is a point-in-time snapshot of a cache's counters.
type Stats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	Entries     int     `json:"entries"`
	HitRate     float64 `json:"hit_rate"`
}

// Hits returns the cumulative hit count.
func (c *Cache[K]) Hits() uint64 { return c.hits.Load() }

// Misses returns the cumulative miss count.
func (c *Cache[K]) Misses() uint64 { return c.misses.Load() }

// HitRate returns hits / (hits + misses), or 0 before the first request.
func (c *Cache[K]) HitRate() float64 {
	return hitRate(c.hits.Load(), c.misses.Load())
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Stats returns a snapshot of all counters and the resident entry count.
func (c *Cache[K]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Hits:        hits,
		Misses:      misses,
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
		Entries:     c.Count(),
		HitRate:     hitRate(hits, misses),
	}
}

// ResetStatistics zeroes the counters without touching entries.
func (c *Cache[K]) ResetStatistics() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.expirations.Store(0)
}
