package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Cache implements ports.CacheStore in memory.
type Cache struct {
	mu          sync.RWMutex
	generations map[string]map[string]domain.CachedResponse
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{generations: make(map[string]map[string]domain.CachedResponse)}
}

func cloneResponse(r domain.CachedResponse) domain.CachedResponse {
	r.Body = slices.Clone(r.Body)
	r.Header = r.Header.Clone()
	return r
}

func (c *Cache) Put(ctx context.Context, generation string, resp domain.CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen, ok := c.generations[generation]
	if !ok {
		gen = make(map[string]domain.CachedResponse)
		c.generations[generation] = gen
	}
	gen[resp.Key] = cloneResponse(resp)
	return nil
}

func (c *Cache) Get(ctx context.Context, generation, key string) (*domain.CachedResponse, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resp, ok := c.generations[generation][key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	out := cloneResponse(resp)
	return &out, nil
}

func (c *Cache) Generations(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.generations))
	for name := range c.generations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (c *Cache) DeleteGeneration(ctx context.Context, generation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.generations, generation)
	return nil
}
