package embeddings

import (
	"sort"
	"sync"
	"time"

	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

const (
	// defaultCacheTTL bounds how long a cached vector is trusted. Model
	// upgrades roll through within a day without a manual flush.
	defaultCacheTTL = 24 * time.Hour

	// defaultCacheCapacity caps cache memory. At 384 float32 dims this is
	// roughly 1.5MB of vectors.
	defaultCacheCapacity = 1000

	// evictFraction is the share of oldest entries dropped when the cache
	// is full. Evicting in batches avoids evicting on every insert once
	// the cache reaches capacity.
	evictFraction = 10 // one tenth
)

// CacheKey identifies one cached embedding. The content hash is part of the
// key, so an edited record naturally misses and the stale entry ages out.
type CacheKey struct {
	Class    vectorstore.Class
	SourceID string
	Hash     string
}

type cacheEntry struct {
	vector   []float32
	storedAt time.Time
}

// Cache is an in-memory embedding cache with TTL expiry (checked lazily on
// read) and batch eviction of the oldest entries at capacity.
type Cache struct {
	mu       sync.Mutex
	entries  map[CacheKey]cacheEntry
	ttl      time.Duration
	capacity int

	// now is swappable for tests.
	now func() time.Time
}

// NewCache creates a cache with the given TTL and capacity. Zero values
// select the defaults.
func NewCache(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &Cache{
		entries:  make(map[CacheKey]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached vector for key, or nil if absent or expired.
// Expired entries are removed on access.
func (c *Cache) Get(key CacheKey) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		CacheMissesTotal.Inc()
		return nil
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		CacheSize.Set(float64(len(c.entries)))
		CacheMissesTotal.Inc()
		return nil
	}
	CacheHitsTotal.Inc()
	return entry.vector
}

// Put stores a vector. When the cache is at capacity the oldest tenth of
// entries is evicted first.
func (c *Cache) Put(key CacheKey, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{vector: vector, storedAt: c.now()}
	CacheSize.Set(float64(len(c.entries)))
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestLocked drops the oldest entries by insertion time. Caller
// holds the mutex.
func (c *Cache) evictOldestLocked() {
	n := c.capacity / evictFraction
	if n < 1 {
		n = 1
	}

	type aged struct {
		key      CacheKey
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, storedAt: e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].storedAt.Before(all[j].storedAt) })

	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
	CacheEvictionsTotal.Add(float64(n))
}
