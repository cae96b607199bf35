package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
)

type memoryEntry struct {
	expiry time.Time
	match  model.CachedMatch
}

// MemoryStore is a thread-safe in-process Store with optional expiry.
type MemoryStore struct {
	entries map[string]memoryEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// NewMemoryStore creates a cache. A non-positive ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	c := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	if ttl > 0 {
		go c.cleanup(cleanupInterval(ttl))
	}

	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// Get returns the live entry under key.
func (c *MemoryStore) Get(_ context.Context, key string) (model.CachedMatch, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.expired(entry, time.Now()) {
		return model.CachedMatch{}, false
	}

	return entry.match, true
}

// Put stores entry under key.
func (c *MemoryStore) Put(_ context.Context, key string, entry model.CachedMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{match: entry}
	if c.ttl > 0 {
		e.expiry = time.Now().Add(c.ttl)
	}
	c.entries[key] = e
}

// Snapshot returns a copy of all live entries.
func (c *MemoryStore) Snapshot(_ context.Context) map[string]model.CachedMatch {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	out := make(map[string]model.CachedMatch, len(c.entries))
	for key, entry := range c.entries {
		if !c.expired(entry, now) {
			out[key] = entry.match
		}
	}
	return out
}

// Len returns the number of stored entries, including ones awaiting cleanup.
func (c *MemoryStore) Len(_ context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load merges previously persisted entries into the cache.
func (c *MemoryStore) Load(entries map[string]model.CachedMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, match := range entries {
		e := memoryEntry{match: match}
		if c.ttl > 0 {
			e.expiry = time.Now().Add(c.ttl)
		}
		c.entries[key] = e
	}
}

// Clear removes all entries.
func (c *MemoryStore) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Close stops the cleanup goroutine.
func (c *MemoryStore) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

func (c *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expiry.IsZero() && now.After(e.expiry)
}

func (c *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if c.expired(entry, now) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
