package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// DefaultMaxBodySize bounds a response body kept in memory or in the cache.
const DefaultMaxBodySize = 32 << 20

// ErrBodyTooLarge is returned for responses whose body exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// installConcurrency bounds parallel manifest downloads.
const installConcurrency = 4

// Install precaches the manifest into the static generation. Every asset is
// downloaded before anything is written. On failure the error is a
// *domain.CacheError naming the offending asset and a partial generation is
// removed. A generation left by an earlier install of the same version is
// kept, and if it still holds every manifest entry the worker counts as
// installed so it can activate while the origin is unreachable. Generations
// of other versions are left untouched.
func (w *Worker) Install(ctx context.Context) error {
	_, err := w.call(ctx, func(ctx context.Context) (any, error) {
		return nil, w.install(ctx)
	})
	return err
}

func (w *Worker) install(ctx context.Context) error {
	w.logger.InfoContext(ctx, "installing offline cache", "generation", w.gens.Static, "assets", len(w.manifest))

	existed, err := w.hasGeneration(ctx, w.gens.Static)
	if err != nil {
		return &domain.CacheError{Op: "install", Key: w.gens.Static, Err: err}
	}

	var mu sync.Mutex
	entries := make([]domain.CachedResponse, 0, len(w.manifest))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)
	for _, path := range w.manifest {
		g.Go(func() error {
			entry, err := w.precache(gctx, path)
			if err != nil {
				return &domain.CacheError{Op: "install", Key: path, Err: err}
			}
			mu.Lock()
			entries = append(entries, *entry)
			mu.Unlock()
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		for _, entry := range entries {
			if err = w.cache.Put(ctx, w.gens.Static, entry); err != nil {
				break
			}
		}
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "offline cache install failed", "error", err)
		if !existed {
			if delErr := w.cache.DeleteGeneration(context.WithoutCancel(ctx), w.gens.Static); delErr != nil {
				w.logger.ErrorContext(ctx, "failed to discard partial install", "generation", w.gens.Static, "error", delErr)
			}
			return err
		}
		if w.phase == PhaseNew && w.complete(ctx) {
			w.phase = PhaseInstalled
			w.logger.WarnContext(ctx, "keeping previously installed offline cache", "generation", w.gens.Static)
		}
		return err
	}

	w.phase = PhaseInstalled
	w.logger.InfoContext(ctx, "offline cache installed", "generation", w.gens.Static)
	return nil
}

func (w *Worker) hasGeneration(ctx context.Context, name string) (bool, error) {
	gens, err := w.cache.Generations(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(gens, name), nil
}

// complete reports whether the static generation holds every manifest entry.
func (w *Worker) complete(ctx context.Context) bool {
	for _, path := range w.manifest {
		u := w.origin.ResolveReference(&url.URL{Path: path})
		if _, err := w.cache.Get(ctx, w.gens.Static, u.RequestURI()); err != nil {
			return false
		}
	}
	return true
}

func (w *Worker) precache(ctx context.Context, path string) (*domain.CachedResponse, error) {
	u := w.origin.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.network.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := readBody(resp.Body, w.maxBody)
	if err != nil {
		return nil, err
	}
	return &domain.CachedResponse{
		Key:      cacheKey(req),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: w.now().UTC(),
	}, nil
}

// Activate removes every generation that does not belong to the current
// version and starts intercepting requests. It fails with
// domain.ErrNotInstalled until Install has succeeded.
func (w *Worker) Activate(ctx context.Context) error {
	_, err := w.call(ctx, func(ctx context.Context) (any, error) {
		return nil, w.activate(ctx)
	})
	return err
}

func (w *Worker) activate(ctx context.Context) error {
	if w.phase == PhaseNew {
		return domain.ErrNotInstalled
	}

	gens, err := w.cache.Generations(ctx)
	if err != nil {
		return &domain.CacheError{Op: "activate", Err: err}
	}
	for _, name := range gens {
		if w.gens.Current(name) {
			continue
		}
		if err := w.cache.DeleteGeneration(ctx, name); err != nil {
			return &domain.CacheError{Op: "activate", Key: name, Err: err}
		}
		w.logger.InfoContext(ctx, "deleted old cache generation", "generation", name)
	}

	w.phase = PhaseActive
	w.logger.InfoContext(ctx, "offline worker activated")
	return nil
}
