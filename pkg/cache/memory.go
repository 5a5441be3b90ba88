package cache

import (
	"context"
	"maps"
	"sync"
)

// MemoryCache is the default in-process implementation of both cache
// contracts. State does not survive a restart; hosts that need durability
// plug in one of the store-backed implementations or their own.
type MemoryCache struct {
	mu       sync.RWMutex
	visitors map[string][]byte
	hits     map[string][]byte
}

var (
	_ VisitorCache = (*MemoryCache)(nil)
	_ HitCache     = (*MemoryCache)(nil)
)

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		visitors: make(map[string][]byte),
		hits:     make(map[string][]byte),
	}
}

func (c *MemoryCache) CacheVisitor(_ context.Context, visitorID string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visitors[visitorID] = data
	return nil
}

func (c *MemoryCache) LookupVisitor(_ context.Context, visitorID string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visitors[visitorID], nil
}

func (c *MemoryCache) FlushVisitor(_ context.Context, visitorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.visitors, visitorID)
	return nil
}

func (c *MemoryCache) CacheHits(_ context.Context, hits map[string][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.hits, hits)
	return nil
}

func (c *MemoryCache) LookupHits(_ context.Context) (map[string][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]byte, len(c.hits))
	maps.Copy(out, c.hits)
	return out, nil
}

func (c *MemoryCache) FlushHits(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.hits, id)
	}
	return nil
}

func (c *MemoryCache) FlushAllHits(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.hits)
	return nil
}
