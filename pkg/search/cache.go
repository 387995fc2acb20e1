package search

import (
	"context"
	"slices"
	"sync"

	"github.com/matst80/killu-finder/pkg/types"
)

// ResultCache maps a query key to the results shown for it during a session.
// Failing backends behave like a miss.
type ResultCache interface {
	Get(ctx context.Context, key string) (types.ResultSet, bool)
	Set(ctx context.Context, key string, results types.ResultSet)
	Clear(ctx context.Context)
	Len() int
}

// MemoryCache is a session scoped cache. With MaxEntries > 0 the oldest
// inserted key is evicted first, otherwise it grows with every distinct query.
type MemoryCache struct {
	MaxEntries int

	mu    sync.RWMutex
	items map[string]types.ResultSet
	order []string
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		MaxEntries: maxEntries,
		items:      make(map[string]types.ResultSet),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (types.ResultSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rs, ok := c.items[key]
	return rs, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, results types.ResultSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]types.ResultSet)
	}
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = results
	for c.MaxEntries > 0 && len(c.order) > c.MaxEntries {
		delete(c.items, c.order[0])
		c.order = slices.Delete(c.order, 0, 1)
	}
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]types.ResultSet)
	c.order = nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
