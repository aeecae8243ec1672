package utils

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire after ttl. With
// sliding set, every hit pushes the expiry out again, which gives an idle
// timeout instead of an absolute one.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	lru     *lru.Cache[K, cacheItem[V]]
	ttl     time.Duration
	sliding bool
	now     func() time.Time
}

func NewCache[K comparable, V any](size int, ttl time.Duration, sliding bool) (*Cache[K, V], error) {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Cache[K, V]{lru: l, ttl: ttl, sliding: sliding, now: time.Now}, nil
}

func (c *Cache[K, V]) Set(key K, data V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, data)
}

func (c *Cache[K, V]) set(key K, data V) {
	c.lru.Add(key, cacheItem[V]{data: data, expiresAt: c.now().Add(c.ttl)})
}

// Get returns the entry for key, dropping it first when it has expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

func (c *Cache[K, V]) get(key K) (V, bool) {
	var zero V
	item, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	if c.sliding {
		item.expiresAt = c.now().Add(c.ttl)
		c.lru.Add(key, item)
	}
	return item.data, true
}

// GetOrCreate returns the live entry for key or stores the result of create.
// Concurrent callers for the same key get the same value.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.get(key); ok {
		return v
	}
	v := create()
	c.set(key, v)
	return v
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}
