package cache

import (
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Eyozy/tootpic/app/post"
)

type entry struct {
	post     *post.Post
	storedAt time.Time
}

// Cache keeps successfully fetched posts keyed by their input URL. Entries
// live for a fixed TTL on top of LRU capacity eviction; a background sweeper
// drops expired entries that are never read again.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, entry]
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	done  chan struct{}
	stats Stats
}

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}

// New creates a cache with the given capacity and TTL and starts the sweep
// loop. Close must be called to stop it.
func New(size int, ttl, sweepInterval time.Duration) (*Cache, error) {
	c := &Cache{
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.stats.Capacity = size

	l, err := lru.NewWithEvict[string, entry](size, func(string, entry) {
		c.stats.Evictions++
	})
	if err != nil {
		return nil, err
	}
	c.lru = l

	go c.sweepLoop(sweepInterval)

	return c, nil
}

// Get returns the cached post for url if present and not expired. A hit
// promotes the entry to most recently used.
func (c *Cache) Get(url string) (*post.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(url)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.lru.Remove(url)
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	return e.post, true
}

// Set stores a post under url, evicting the least recently used entry when
// the cache is at capacity.
func (c *Cache) Set(url string, p *post.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(url, entry{post: p, storedAt: c.now()})
}

// Purge drops every entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lru.Len()
	c.lru.Purge()
	return n
}

// Len reports the current number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.lru.Len()
	return s
}

// Close stops the sweep loop and waits for it to exit. Safe to call once.
func (c *Cache) Close() {
	close(c.stop)
	<-c.done
}

func (c *Cache) sweepLoop(interval time.Duration) {
	defer close(c.done)

	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.sweep(); n > 0 {
				slog.Debug("Swept expired cache entries", "count", n)
			}
		case <-c.stop:
			return
		}
	}
}

// sweep removes every expired entry without touching recency order.
func (c *Cache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(e.storedAt) >= c.ttl {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}
