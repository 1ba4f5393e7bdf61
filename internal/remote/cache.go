package remote

import (
	"sync"
	"time"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

// cacheEntry is one cached candidate with its expiry.
type cacheEntry struct {
	expiry    time.Time
	candidate model.ClassificationCandidate
}

// candidateCache provides thread-safe TTL caching for remote suggestions,
// keyed by transaction hash.
type candidateCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newCandidateCache creates a cache with the specified TTL.
func newCandidateCache(ttl time.Duration) *candidateCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &candidateCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves a candidate if it exists and has not expired.
func (c *candidateCache) get(key string) (model.ClassificationCandidate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return model.ClassificationCandidate{}, false
	}

	return entry.candidate, true
}

// set stores a candidate.
func (c *candidateCache) set(key string, candidate model.ClassificationCandidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		candidate: candidate,
		expiry:    time.Now().Add(c.ttl),
	}
}

// size returns the number of entries in the cache.
func (c *candidateCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cleanup periodically removes expired entries.
func (c *candidateCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *candidateCache) Close() {
	close(c.stopCh)
}
