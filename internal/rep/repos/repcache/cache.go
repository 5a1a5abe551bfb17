// Package repcache is the short-lived cache of fully expanded lookup
// results. Eviction follows insertion order, not access order: reads go
// through Peek so recency is never promoted, and the backing LRU therefore
// degrades to FIFO. Entries also expire on a TTL checked at read time.
package repcache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/domrep/internal/rep/common/clock"
	"github.com/haukened/domrep/internal/rep/domain"
)

// entry pairs a cached reputation with its insertion time.
type entry struct {
	rep        domain.Reputation
	insertedAt time.Time
}

// resultCache tracks basic metrics: hits, misses, and evictions.
type resultCache struct {
	lru       *lru.Cache[string, entry]
	ttl       time.Duration
	clk       clock.Clock
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op cache used when size <= 0.
type disabledCache struct{}

// Cache is the result-cache contract consumed by the facade and purged by
// the update manager.
type Cache interface {
	Get(key string) (domain.Reputation, bool)
	Set(key string, rep domain.Reputation)
	Purge()
	Len() int
	Stats() (hits, misses, evictions uint64)
}

// New creates a result cache with the given capacity and TTL. If size <= 0,
// a disabled no-op cache is returned that always misses.
func New(size int, ttl time.Duration, clk clock.Clock) (Cache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var rc resultCache
	// NewWithEvict observes evictions, including Purge-induced ones.
	cache, err := lru.NewWithEvict(size, func(_ string, _ entry) {
		atomic.AddUint64(&rc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	rc.lru = cache
	rc.ttl = ttl
	rc.clk = clk
	return &rc, nil
}

// Get returns the cached reputation when present and younger than the TTL.
// Expired entries are removed on the spot. Peek keeps recency untouched so
// capacity eviction stays in insertion order.
func (c *resultCache) Get(key string) (domain.Reputation, bool) {
	if e, ok := c.lru.Peek(key); ok {
		if c.clk.Now().Sub(e.insertedAt) < c.ttl {
			atomic.AddUint64(&c.hits, 1)
			return e.rep, true
		}
		c.lru.Remove(key)
	}
	atomic.AddUint64(&c.misses, 1)
	var zero domain.Reputation
	return zero, false
}

// Set stores a reputation, evicting the oldest-inserted entry at capacity.
func (c *resultCache) Set(key string, rep domain.Reputation) {
	c.lru.Add(key, entry{rep: rep, insertedAt: c.clk.Now()})
}

// Purge clears all entries. Called after a successful database update so
// cached results never reference replaced records.
func (c *resultCache) Purge() { c.lru.Purge() }

// Len returns the number of entries currently cached.
func (c *resultCache) Len() int { return c.lru.Len() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *resultCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

// disabledCache implementation

func (d *disabledCache) Get(string) (domain.Reputation, bool) {
	var zero domain.Reputation
	return zero, false
}

func (d *disabledCache) Set(string, domain.Reputation) {}

func (d *disabledCache) Purge() {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ Cache = (*resultCache)(nil)
var _ Cache = (*disabledCache)(nil)
