package feed

import (
	"time"

	"github.com/maypok86/otter/v2"
)

// StatsCache holds the most recent FetchStats per feed id, bounded in size
// and evicted by age so a feed that is deleted eventually drops out without
// explicit cleanup.
type StatsCache struct {
	cache *otter.Cache[uint64, FetchStats]
}

// NewStatsCache builds a StatsCache that retains at most maxEntries records,
// each expiring ttl after it was last written.
func NewStatsCache(maxEntries int, ttl time.Duration) *StatsCache {
	cache := otter.Must(&otter.Options[uint64, FetchStats]{
		MaximumSize:      maxEntries,
		ExpiryCalculator: otter.ExpiryWriting[uint64, FetchStats](ttl),
	})
	return &StatsCache{cache: cache}
}

// Record stores stats for a feed, overwriting whatever was cached before.
func (c *StatsCache) Record(stats FetchStats) {
	c.cache.Set(stats.FeedID, stats)
}

// Get returns the cached stats for feedID, if present and not expired.
func (c *StatsCache) Get(feedID uint64) (FetchStats, bool) {
	return c.cache.GetIfPresent(feedID)
}

// Delete drops any cached stats for feedID, used when a feed is removed.
func (c *StatsCache) Delete(feedID uint64) {
	c.cache.Invalidate(feedID)
}
