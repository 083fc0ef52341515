// Package formula - Parsed formula cache
package formula

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct formulas kept parsed
const DefaultCacheSize = 256

// Cache memoizes ASTs by their literal formula text.
// It is safe for concurrent use. A nil *Cache parses every time.
type Cache struct {
	entries *lru.Cache[string, Node]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// NewCache creates a cache holding up to size formulas.
// A size of zero or less returns nil, which disables caching.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, Node](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Lookup returns the AST for src, parsing it on a miss.
// hit reports whether the AST came from the cache. Parse failures are not cached.
func (c *Cache) Lookup(src string) (n Node, hit bool, err error) {
	if c == nil {
		n, err = Parse(src)
		return n, false, err
	}

	if n, ok := c.entries.Get(src); ok {
		c.hits.Add(1)
		return n, true, nil
	}
	c.misses.Add(1)

	n, err = Parse(src)
	if err != nil {
		return nil, false, err
	}

	// a concurrent parse of the same text may have won; keep the first AST
	if prev, found, _ := c.entries.PeekOrAdd(src, n); found {
		return prev, false, nil
	}
	return n, false, nil
}

// Parse returns the AST for src
func (c *Cache) Parse(src string) (Node, error) {
	n, _, err := c.Lookup(src)
	return n, err
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}

// Purge drops every cached AST
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}
