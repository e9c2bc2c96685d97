package cache

import (
	"sync"
	"time"
)

type cacheItem struct {
	value      []byte
	expiration time.Time
}

// MemoryCache is a thread-safe in-process CacheService used when no memcache server is configured
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
	now   func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]cacheItem),
		now:  time.Now,
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, ErrCacheMiss
	}
	if !item.expiration.IsZero() && c.now().After(item.expiration) {
		c.mutex.Lock()
		delete(c.data, key)
		c.mutex.Unlock()
		return nil, ErrCacheMiss
	}

	return item.value, nil
}

// Set stores a value in the cache; a zero expiration never expires
func (c *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	item := cacheItem{value: append([]byte(nil), value...)}
	if expiration > 0 {
		item.expiration = c.now().Add(expiration)
	}

	c.mutex.Lock()
	c.data[key] = item
	c.mutex.Unlock()
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.mutex.Lock()
	delete(c.data, key)
	c.mutex.Unlock()
	return nil
}
