package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/Eyozy/tootpic/app/post"
)

func newTestCache(t *testing.T, size int, ttl time.Duration) (*Cache, *time.Time) {
	t.Helper()

	c, err := New(size, ttl, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	return c, &clock
}

func TestCacheGetSet(t *testing.T) {
	c, _ := newTestCache(t, 10, 30*time.Minute)

	if _, ok := c.Get("https://example.org/@a/1"); ok {
		t.Error("Expected miss on empty cache")
	}

	want := &post.Post{ID: "1", Platform: "mastodon"}
	c.Set("https://example.org/@a/1", want)

	got, ok := c.Get("https://example.org/@a/1")
	if !ok {
		t.Fatal("Expected hit after set")
	}
	if got != want {
		t.Error("Expected the stored post back")
	}
}

func TestCacheExpiry(t *testing.T) {
	c, clock := newTestCache(t, 10, 30*time.Minute)

	c.Set("url", &post.Post{ID: "1"})

	*clock = clock.Add(29 * time.Minute)
	if _, ok := c.Get("url"); !ok {
		t.Error("Expected hit before TTL")
	}

	*clock = clock.Add(2 * time.Minute)
	if _, ok := c.Get("url"); ok {
		t.Error("Expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be removed, len=%d", c.Len())
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 3, time.Hour)

	for i := 1; i <= 3; i++ {
		c.Set(fmt.Sprintf("url-%d", i), &post.Post{ID: fmt.Sprint(i)})
	}

	// Touch url-1 so url-2 becomes the eviction candidate.
	if _, ok := c.Get("url-1"); !ok {
		t.Fatal("Expected hit for url-1")
	}

	c.Set("url-4", &post.Post{ID: "4"})

	if _, ok := c.Get("url-2"); ok {
		t.Error("Expected url-2 to be evicted")
	}
	if _, ok := c.Get("url-1"); !ok {
		t.Error("Expected url-1 to survive after promotion")
	}
	if _, ok := c.Get("url-3"); !ok {
		t.Error("Expected url-3 to survive")
	}
	if _, ok := c.Get("url-4"); !ok {
		t.Error("Expected url-4 to be present")
	}
}

func TestCacheSweep(t *testing.T) {
	c, clock := newTestCache(t, 10, 30*time.Minute)

	c.Set("old", &post.Post{ID: "1"})
	*clock = clock.Add(20 * time.Minute)
	c.Set("fresh", &post.Post{ID: "2"})
	*clock = clock.Add(15 * time.Minute)

	if n := c.sweep(); n != 1 {
		t.Errorf("Expected 1 swept entry, got %d", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("Expected fresh entry to survive the sweep")
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry after sweep, len=%d", c.Len())
	}
}

func TestCachePurgeAndStats(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	c.Set("a", &post.Post{ID: "1"})
	c.Set("b", &post.Post{ID: "2"})
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Unexpected counters: hits=%d misses=%d", s.Hits, s.Misses)
	}
	if s.Size != 2 || s.Capacity != 10 {
		t.Errorf("Unexpected size/capacity: %d/%d", s.Size, s.Capacity)
	}

	if n := c.Purge(); n != 2 {
		t.Errorf("Expected 2 purged entries, got %d", n)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after purge, len=%d", c.Len())
	}
}
