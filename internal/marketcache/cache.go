package marketcache

import (
	"sync"
	"time"
)

// Kind identifies a class of cached provider response. Each kind carries its
// own TTL: a 30-day OHLC series stays valid much longer than a spot price.
type Kind string

const (
	KindOHLC    Kind = "ohlc"
	KindMetrics Kind = "metrics"
	KindPrice   Kind = "price"
	KindVolume  Kind = "volume"
)

// TTLs configures per-kind retention.
type TTLs struct {
	OHLC    time.Duration
	Metrics time.Duration
	Price   time.Duration
	Volume  time.Duration
}

// DefaultTTLs mirror the provider's update cadence.
func DefaultTTLs() TTLs {
	return TTLs{
		OHLC:    10 * time.Minute,
		Metrics: 5 * time.Minute,
		Price:   1 * time.Minute,
		Volume:  5 * time.Minute,
	}
}

type cacheKey struct {
	asset string
	kind  Kind
}

type entry struct {
	value      any
	insertedAt time.Time
}

// Cache memoizes provider responses keyed by (asset, kind). Expired entries
// are evicted lazily on lookup; there is no size bound because the asset
// universe is fixed for the process lifetime.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]entry
	ttls    TTLs
	now     func() time.Time
}

// New constructs a Cache with the given TTL table.
func New(ttls TTLs) *Cache {
	return &Cache{
		entries: make(map[cacheKey]entry),
		ttls:    ttls,
		now:     time.Now,
	}
}

// Get returns the cached value for (asset, kind), or false when the entry is
// missing or expired. Expired entries are removed.
func (c *Cache) Get(asset string, kind Kind) (any, bool) {
	key := cacheKey{asset: asset, kind: kind}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.insertedAt) > c.ttl(kind) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher value may have landed.
		if cur, still := c.entries[key]; still && cur.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Put stores value for (asset, kind), replacing any previous entry.
func (c *Cache) Put(asset string, kind Kind, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey{asset: asset, kind: kind}] = entry{value: value, insertedAt: c.now()}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) ttl(kind Kind) time.Duration {
	switch kind {
	case KindOHLC:
		return c.ttls.OHLC
	case KindMetrics:
		return c.ttls.Metrics
	case KindPrice:
		return c.ttls.Price
	case KindVolume:
		return c.ttls.Volume
	default:
		return time.Minute
	}
}
