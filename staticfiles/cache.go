// File: staticfiles/cache.go
// Package staticfiles serves files from a document root through the
// server core, with a byte-cost-bounded content cache.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package staticfiles

import (
	"sync"
	"time"
)

type cacheEntry struct {
	document []byte
	filename string
	created  time.Time
}

// contentCache keys cached file contents by request path. Eviction is
// driven by the running total of resident bytes, oldest insertion
// first. Staleness is checked at read time; stale entries count as
// misses but are not actively swept.
type contentCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	total   int64
	maxCost int64
	ttl     time.Duration
}

func newContentCache(maxCost int64, ttl time.Duration) *contentCache {
	return &contentCache{
		entries: make(map[string]*cacheEntry),
		maxCost: maxCost,
		ttl:     ttl,
	}
}

// Get returns a copy of the cached document so the caller can release
// the lock before any blocking socket write.
func (c *contentCache) Get(path string, now time.Time) (document []byte, filename string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, found := c.entries[path]
	if !found {
		return nil, "", false
	}
	if c.ttl != 0 && !entry.created.After(now.Add(-c.ttl)) {
		return nil, "", false
	}
	document = make([]byte, len(entry.document))
	copy(document, entry.document)
	return document, entry.filename, true
}

// Insert stores a document under its request path, evicting the oldest
// insertions until the total resident cost fits the bound. Documents
// larger than the whole bound are not stored.
func (c *contentCache) Insert(path string, document []byte, filename string, now time.Time) {
	cost := int64(len(document))
	if cost > c.maxCost {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(path)
	for c.total+cost > c.maxCost && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}
	c.entries[path] = &cacheEntry{document: document, filename: filename, created: now}
	c.order = append(c.order, path)
	c.total += cost
}

// Cost returns the total resident bytes.
func (c *contentCache) Cost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Len returns the number of resident entries.
func (c *contentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *contentCache) removeLocked(path string) {
	entry, found := c.entries[path]
	if !found {
		return
	}
	delete(c.entries, path)
	c.total -= int64(len(entry.document))
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
