package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value      V
	expiration int64
}

func (it item[V]) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}

// Options configures a Cache
type Options struct {
	// TTL is the default expiration; zero keeps items until evicted
	TTL time.Duration
	// CleanupInterval runs the expiry sweep; zero disables the janitor
	CleanupInterval time.Duration
	// MaxItems bounds the cache; zero is unbounded
	MaxItems int
}

// Cache is a thread-safe in-memory cache with expiration
type Cache[K comparable, V any] struct {
	mu        sync.RWMutex
	items     map[K]item[V]
	opts      Options
	onEvicted func(K, V)
	stop      chan struct{}
	stopOnce  sync.Once
}

// New creates a cache. Call Close to stop the janitor.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]item[V]),
		opts:  opts,
		stop:  make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.janitor(opts.CleanupInterval)
	}
	return c
}

// Set stores value with the default TTL
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithExpiration(key, value, c.opts.TTL)
}

// SetWithExpiration stores value for d; d <= 0 never expires
func (c *Cache[K, V]) SetWithExpiration(key K, value V, d time.Duration) {
	var exp int64
	if d > 0 {
		exp = time.Now().Add(d).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists && c.opts.MaxItems > 0 && len(c.items) >= c.opts.MaxItems {
		c.evictOldest()
	}
	c.items[key] = item[V]{value: value, expiration: exp}
}

// Get returns a live item
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	if !ok || it.expired(time.Now().UnixNano()) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// GetOrLoad returns the cached value or stores the result of load. Concurrent
// misses may call load more than once.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok {
		delete(c.items, key)
		if c.onEvicted != nil {
			c.onEvicted(key, it.value)
		}
	}
}

// Flush removes everything
func (c *Cache[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onEvicted != nil {
		for k, it := range c.items {
			c.onEvicted(k, it.value)
		}
	}
	c.items = make(map[K]item[V])
}

// Count returns the number of items, expired ones included
func (c *Cache[K, V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// SetOnEvicted sets the eviction callback. It runs under the cache lock.
func (c *Cache[K, V]) SetOnEvicted(f func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvicted = f
}

// Close stops the janitor
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[K, V]) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UnixNano()
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			if c.onEvicted != nil {
				c.onEvicted(k, it.value)
			}
		}
	}
}

// evictOldest drops the item closest to expiry; items without expiry go last
func (c *Cache[K, V]) evictOldest() {
	var (
		victim K
		best   int64
		found  bool
	)
	for k, it := range c.items {
		exp := it.expiration
		if exp == 0 {
			exp = 1<<63 - 1
		}
		if !found || exp < best {
			victim, best, found = k, exp, true
		}
	}
	if !found {
		return
	}
	it := c.items[victim]
	delete(c.items, victim)
	if c.onEvicted != nil {
		c.onEvicted(victim, it.value)
	}
}
