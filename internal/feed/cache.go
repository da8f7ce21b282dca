// Package feed holds the process-wide article cache and the HTTP server
// that renders it as RSS.
//
// The cache is the only thing the refresh loop and the request path share:
// the loop writes whole source entries, requests read them.
package feed

import (
	"sync"

	"newsrss/internal/scrape"
)

type (
	// Cache maps a source name to the articles from its most recent
	// successful scrape. Safe for one writer and many readers.
	Cache struct {
		mu    sync.RWMutex
		feeds map[string]entry
	}

	entry struct {
		articles []scrape.Article
		gen      uint64
	}
)

// NewCache creates an empty cache. Every source is absent until its first
// successful refresh commits.
func NewCache() *Cache {
	return &Cache{
		feeds: map[string]entry{},
	}
}

// Replace swaps out a source's articles wholesale, bumping the entry's
// generation. Readers see either the old list or the new one, never a mix.
func (c *Cache) Replace(name string, articles []scrape.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.feeds[name]
	e.articles = articles
	e.gen++
	c.feeds[name] = e
}

// Lookup returns a source's articles and the generation they were committed
// at. A source that has never refreshed reports !ok, which callers must
// treat differently from an empty list.
func (c *Cache) Lookup(name string) ([]scrape.Article, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.feeds[name]

	return e.articles, e.gen, ok
}
