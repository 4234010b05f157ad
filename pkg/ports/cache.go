package ports

import (
	"context"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// CacheStore is an origin-scoped response store partitioned into named generations.
type CacheStore interface {
	// Put stores (or replaces) an entry in the generation, creating it if needed.
	Put(ctx context.Context, generation string, resp domain.CachedResponse) error

	// Get returns the entry for key, or domain.ErrCacheMiss.
	Get(ctx context.Context, generation, key string) (*domain.CachedResponse, error)

	// Generations lists the existing generation names.
	Generations(ctx context.Context) ([]string, error)

	// DeleteGeneration removes a generation with all its entries.
	// Deleting a missing generation is not an error.
	DeleteGeneration(ctx context.Context, generation string) error
}
