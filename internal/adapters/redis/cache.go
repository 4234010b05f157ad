package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	backend "github.com/redis/go-redis/v9"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Cache implements ports.CacheStore with one hash per generation and a set
// naming the generations.
type Cache struct {
	client *backend.Client
	prefix string
}

// NewCache creates a cache stored under prefix+"cache:".
func NewCache(client *backend.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) genKey(gen string) string { return c.prefix + "cache:" + gen }
func (c *Cache) setKey() string           { return c.prefix + "cache:generations" }

func (c *Cache) Put(ctx context.Context, generation string, resp domain.CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return &domain.CacheError{Op: "put", Key: resp.Key, Err: err}
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.genKey(generation), resp.Key, data)
	pipe.SAdd(ctx, c.setKey(), generation)
	if _, err := pipe.Exec(ctx); err != nil {
		return &domain.CacheError{Op: "put", Key: resp.Key, Err: err}
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, generation, key string) (*domain.CachedResponse, error) {
	raw, err := c.client.HGet(ctx, c.genKey(generation), key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, &domain.CacheError{Op: "get", Key: key, Err: err}
	}

	var resp domain.CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &domain.CacheError{Op: "get", Key: key, Err: err}
	}
	return &resp, nil
}

func (c *Cache) Generations(ctx context.Context) ([]string, error) {
	gens, err := c.client.SMembers(ctx, c.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list cache generations: %w", err)
	}
	sort.Strings(gens)
	return gens, nil
}

func (c *Cache) DeleteGeneration(ctx context.Context, generation string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.genKey(generation))
	pipe.SRem(ctx, c.setKey(), generation)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete cache generation %s: %w", generation, err)
	}
	return nil
}
