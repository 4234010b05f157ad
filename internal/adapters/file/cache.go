package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Cache implements ports.CacheStore with one directory per generation.
// Entries are JSON files named after the SHA-256 of their key.
type Cache struct {
	BasePath string
}

// NewCache creates a file cache rooted at basePath.
// If basePath is empty, it defaults to ".sefra/cache".
func NewCache(basePath string) *Cache {
	if basePath == "" {
		basePath = filepath.Join(".sefra", "cache")
	}
	return &Cache{BasePath: basePath}
}

func entryName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".json"
}

func (c *Cache) Put(ctx context.Context, generation string, resp domain.CachedResponse) error {
	if err := checkName("generation", generation); err != nil {
		return err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return &domain.CacheError{Op: "put", Key: resp.Key, Err: err}
	}
	if err := writeAtomic(filepath.Join(c.BasePath, generation), entryName(resp.Key), data); err != nil {
		return &domain.CacheError{Op: "put", Key: resp.Key, Err: err}
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, generation, key string) (*domain.CachedResponse, error) {
	if err := checkName("generation", generation); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(c.BasePath, generation, entryName(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, &domain.CacheError{Op: "get", Key: key, Err: err}
	}

	var resp domain.CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &domain.CacheError{Op: "get", Key: key, Err: err}
	}
	return &resp, nil
}

func (c *Cache) Generations(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list cache generations: %w", err)
	}

	gens := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			gens = append(gens, entry.Name())
		}
	}
	sort.Strings(gens)
	return gens, nil
}

func (c *Cache) DeleteGeneration(ctx context.Context, generation string) error {
	if err := checkName("generation", generation); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(c.BasePath, generation)); err != nil {
		return fmt.Errorf("failed to delete cache generation %s: %w", generation, err)
	}
	return nil
}
