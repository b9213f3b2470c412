// Package cache provides the time-boxed memoization used by the dashboard
// fetchers: a fetch result is reused for a fixed wall-clock window, and the
// manual refresh action invalidates everything at once.
package cache

import (
	"sync"
	"time"
)

// Cache is an in-memory TTL cache. The working set is one entry per
// dashboard page plus a handful of drill-down keys, so there is no
// eviction beyond expiry.
type Cache struct {
	mu          sync.RWMutex
	items       map[string]*item
	inflight    map[string]*call
	stats       Stats
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type item struct {
	value     interface{}
	createdAt time.Time
	ttl       time.Duration
}

type call struct {
	wg    sync.WaitGroup
	value interface{}
	err   error
}

// Stats tracks cache behavior for the metrics endpoint
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Expired int64 `json:"expired"`
	Items   int64 `json:"items"`
}

// New creates a cache with a background expiry sweep
func New(cleanupInterval time.Duration) *Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &Cache{
		items:       make(map[string]*item),
		inflight:    make(map[string]*call),
		stopCleanup: make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get retrieves a live entry
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		return nil, false
	}

	if it.expired() {
		delete(c.items, key)
		c.stats.Expired++
		c.stats.Misses++
		c.stats.Items = int64(len(c.items))
		return nil, false
	}

	c.stats.Hits++
	return it.value, true
}

// Set stores a value with its memoization window
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{
		value:     value,
		createdAt: time.Now(),
		ttl:       ttl,
	}
	c.stats.Items = int64(len(c.items))
}

// Do returns the cached value for key, or runs fill once and caches its
// result. Concurrent callers for the same key share a single fill.
func (c *Cache) Do(key string, ttl time.Duration, fill func() (interface{}, error)) (interface{}, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	c.mu.Lock()
	if existing, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		existing.wg.Wait()
		return existing.value, existing.err
	}
	cl := &call{}
	cl.wg.Add(1)
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.value, cl.err = fill()
	if cl.err == nil {
		c.Set(key, cl.value, ttl)
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	cl.wg.Done()

	return cl.value, cl.err
}

// Delete removes one entry
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		delete(c.items, key)
		c.stats.Items = int64(len(c.items))
		return true
	}
	return false
}

// Clear drops every entry. This backs the manual refresh action: the next
// fetch for each page re-runs synchronously.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*item)
	c.stats.Items = 0
}

// GetStats returns a snapshot of cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Stop terminates the expiry sweep
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Cache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, it := range c.items {
		if it.expired() {
			delete(c.items, key)
			c.stats.Expired++
		}
	}
	c.stats.Items = int64(len(c.items))
}

func (it *item) expired() bool {
	if it.ttl == 0 {
		return false
	}
	return time.Since(it.createdAt) > it.ttl
}
