package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/kontak/core"
)

// Memory is an in-process cache with a fixed TTL and a size cap.
// When full, the oldest entry is evicted.
type Memory[V any] struct {
	cache   map[string]*cachedRecord[V]
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

var _ core.CacheWithStats[*core.Session] = (*Memory[*core.Session])(nil)

type cachedRecord[V any] struct {
	value    V
	cachedAt time.Time
}

func NewMemory[V any](c core.CacheConfig) *Memory[V] {
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxSize == 0 {
		c.MaxSize = 500
	}

	return &Memory[V]{
		cache:   make(map[string]*cachedRecord[V]),
		ttl:     c.TTL,
		maxSize: c.MaxSize,
		now:     time.Now,
	}
}

// NewSessionCache is the cache used for verified auth sessions.
func NewSessionCache(c core.CacheConfig) *Memory[*core.Session] {
	return NewMemory[*core.Session](c)
}

func (c *Memory[V]) Get(key string) (V, error) {
	var zero V

	c.mu.RLock()
	record, exists := c.cache[key]
	c.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return zero, core.ErrCacheNotFound
	}

	if c.now().Sub(record.cachedAt) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		c.mu.Lock()
		// Only drop it if nobody refreshed the entry in between.
		if current, ok := c.cache[key]; ok && current == record {
			delete(c.cache, key)
			atomic.AddInt64(&c.evictions, 1)
		}
		c.mu.Unlock()
		return zero, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	return record.value, nil
}

func (c *Memory[V]) Set(key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, replacing := c.cache[key]; !replacing && len(c.cache) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.cache[key] = &cachedRecord[V]{
		value:    value,
		cachedAt: c.now(),
	}

	atomic.AddInt64(&c.sets, 1)
	return nil
}

func (c *Memory[V]) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, r := range c.cache {
		if oldestKey == "" || r.cachedAt.Before(oldest) {
			oldestKey, oldest = k, r.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.cache, oldestKey)
		atomic.AddInt64(&c.evictions, 1)
	}
}

func (c *Memory[V]) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, existed := c.cache[key]; existed {
		delete(c.cache, key)
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

func (c *Memory[V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cachedRecord[V])
	return nil
}

func (c *Memory[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Memory[V]) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
