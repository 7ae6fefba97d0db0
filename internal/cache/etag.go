// Package cache provides an in-memory cache for derived object metadata.
// Entity tags are MD5 digests of full object bodies; caching them avoids
// re-reading objects on metadata requests and bucket listings.
package cache

import (
	"sync"
	"time"
)

// ETagCache caches computed entity tags keyed by object location and
// modification time. An entry is only returned while the stored
// modification time matches, so overwritten objects miss and get
// rehashed.
type ETagCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	items   map[string]*etagItem
	stopCh  chan struct{}
	stopped bool
}

// etagItem represents a single cached entity tag.
type etagItem struct {
	tag       string
	modTime   time.Time
	expiresAt time.Time
}

// isExpired checks if the item has expired.
func (i *etagItem) isExpired() bool {
	return time.Now().After(i.expiresAt)
}

// NewETagCache creates a new entity tag cache. Entries live for ttl
// after their last update.
func NewETagCache(ttl time.Duration) *ETagCache {
	c := &ETagCache{
		ttl:    ttl,
		items:  make(map[string]*etagItem),
		stopCh: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// cleanupLoop periodically removes expired items.
func (c *ETagCache) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired items.
func (c *ETagCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.isExpired() {
			delete(c.items, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *ETagCache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
}

// Get returns the cached tag for the object if it matches modTime.
func (c *ETagCache) Get(bucket, key string, modTime time.Time) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[cacheKey(bucket, key)]
	if !exists || item.isExpired() {
		return "", false
	}
	if !item.modTime.Equal(modTime) {
		return "", false
	}
	return item.tag, true
}

// Set stores the tag for an object at the given modification time.
func (c *ETagCache) Set(bucket, key string, modTime time.Time, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[cacheKey(bucket, key)] = &etagItem{
		tag:       tag,
		modTime:   modTime,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes the cached tag for an object.
func (c *ETagCache) Delete(bucket, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, cacheKey(bucket, key))
}

// Len returns the number of cached entries, counting expired ones not
// yet swept.
func (c *ETagCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

func cacheKey(bucket, key string) string {
	return bucket + "/" + key
}
