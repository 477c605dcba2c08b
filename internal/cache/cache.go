// Package cache memoizes extraction results per source file, keyed by the
// file's modification time at insertion.
package cache

import (
	"os"
	"sync"
	"time"

	"github.com/imyousuf/routegen/internal/descriptor"
)

type entry struct {
	mtime   time.Time
	exports *descriptor.ModuleExports
}

// Cache maps absolute source paths to extraction results. An entry is valid
// only while the file's modification time matches the one recorded at Put;
// any mismatch is a miss. There is no per-entry expiry — the orchestrator
// clears the whole cache when its staleness policy decides a full rescan
// is due.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the cached exports for path if the entry is still valid.
func (c *Cache) Get(path string) (*descriptor.ModuleExports, bool) {
	c.mu.Lock()
	e, ok := c.entries[path]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil || !info.ModTime().Equal(e.mtime) {
		return nil, false
	}
	return e.exports, true
}

// Put records the exports for path against the file's current modification
// time. If the file cannot be stat'ed, nothing is stored.
func (c *Cache) Put(path string, exports *descriptor.ModuleExports) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries[path] = entry{mtime: info.ModTime(), exports: exports}
	c.mu.Unlock()
}

// Invalidate removes the entry for path unconditionally. Change and delete
// notifications call this so rapid same-mtime edits cannot serve stale
// descriptors.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
