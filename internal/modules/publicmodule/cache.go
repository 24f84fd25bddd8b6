package publicmodule

import (
	"sync"
	"time"

	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

// ShelfCache holds recently served public shelves keyed by owner id.
// Entries expire after a TTL and the cache holds at most maxEntries
// owners, evicting the oldest entry when full. It is owned by the public
// module and passed explicitly wherever needed.
type ShelfCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	hits   int64
	misses int64
}

type cacheEntry struct {
	albums   []shelfmodule.Album
	cachedAt time.Time
}

// NewShelfCache creates a cache with the given TTL and owner capacity.
func NewShelfCache(ttl time.Duration, maxEntries int) *ShelfCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &ShelfCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached shelf for the owner, or nil and false when the
// entry is absent or expired.
func (c *ShelfCache) Get(ownerID string) ([]shelfmodule.Album, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ownerID]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(entry.cachedAt) > c.ttl {
		delete(c.entries, ownerID)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.albums, true
}

// Put stores the owner's shelf, evicting the oldest cached owner when the
// cache is at capacity.
func (c *ShelfCache) Put(ownerID string, albums []shelfmodule.Album) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[ownerID]; !ok && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[ownerID] = &cacheEntry{albums: albums, cachedAt: c.now()}
}

// Invalidate drops the owner's cached shelf. Called whenever a shelf
// event for the owner fires.
func (c *ShelfCache) Invalidate(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ownerID)
}

// Len returns the number of live cache entries.
func (c *ShelfCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *ShelfCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *ShelfCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
