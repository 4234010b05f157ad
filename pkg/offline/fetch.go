package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Source tells where a fetched response came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceNetwork  Source = "network"
	SourceBypass   Source = "bypass"
	SourceFallback Source = "fallback"
)

// Response is a fully read response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Source Source
}

// Fetch answers req. Until the worker is active, and for non-GET or
// cross-origin requests, the network is called directly and nothing is
// cached. Otherwise the cache is consulted first across all generations; a
// miss goes to the network and a 200 same-origin answer is copied into the
// dynamic generation. When the network fails on a navigation request the
// cached FallbackPath is served instead. Bodies over the size limit fail
// with ErrBodyTooLarge and are never cached.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*Response, error) {
	v, err := w.call(ctx, func(ctx context.Context) (any, error) {
		return w.fetch(ctx, req.WithContext(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

func (w *Worker) sameOrigin(req *http.Request) bool {
	return req.URL.Scheme == w.origin.Scheme && req.URL.Host == w.origin.Host
}

func (w *Worker) fetch(ctx context.Context, req *http.Request) (*Response, error) {
	if w.phase != PhaseActive || req.Method != http.MethodGet || !w.sameOrigin(req) {
		w.metrics.ObserveCache(string(SourceBypass))
		resp, _, err := w.roundTrip(req)
		if err != nil {
			return nil, err
		}
		resp.Source = SourceBypass
		return resp, nil
	}

	key := cacheKey(req)
	if hit := w.match(ctx, key); hit != nil {
		w.metrics.ObserveCache("hit")
		return fromCache(hit, SourceCache), nil
	}
	w.metrics.ObserveCache("miss")

	resp, basic, err := w.roundTrip(req)
	if err != nil {
		if IsNavigation(req) && !errors.Is(err, ErrBodyTooLarge) {
			if fallback := w.match(ctx, FallbackPath); fallback != nil {
				w.metrics.ObserveCache(string(SourceFallback))
				w.logger.WarnContext(ctx, "network unavailable, serving offline page", "path", key, "error", err)
				return fromCache(fallback, SourceFallback), nil
			}
		}
		return nil, err
	}

	if resp.Status == http.StatusOK && basic {
		entry := domain.CachedResponse{
			Key:      key,
			Status:   resp.Status,
			Header:   resp.Header.Clone(),
			Body:     slices.Clone(resp.Body),
			StoredAt: w.now().UTC(),
		}
		if err := w.cache.Put(ctx, w.gens.Dynamic, entry); err != nil {
			w.logger.WarnContext(ctx, "failed to cache response", "path", key, "error", err)
		}
	}
	resp.Source = SourceNetwork
	return resp, nil
}

// match looks key up in the current generations first, then in any other.
// Lookup failures are logged and treated as misses.
func (w *Worker) match(ctx context.Context, key string) *domain.CachedResponse {
	gens, err := w.cache.Generations(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "cache lookup failed", "error", &domain.CacheError{Op: "match", Key: key, Err: err})
		return nil
	}
	order := []string{w.gens.Static, w.gens.Dynamic}
	for _, g := range gens {
		if !w.gens.Current(g) {
			order = append(order, g)
		}
	}

	for _, gen := range order {
		if !slices.Contains(gens, gen) {
			continue
		}
		entry, err := w.cache.Get(ctx, gen, key)
		if err == nil {
			return entry
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			w.logger.WarnContext(ctx, "cache lookup failed", "generation", gen, "error", err)
		}
	}
	return nil
}

// roundTrip sends req to the network and reads the whole body. basic reports
// whether the final response (after redirects) is still same-origin.
func (w *Worker) roundTrip(req *http.Request) (*Response, bool, error) {
	out := req.Clone(req.Context())
	out.RequestURI = ""

	resp, err := w.network.Do(out)
	if err != nil {
		return nil, false, fmt.Errorf("network request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body, w.maxBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response body: %w", err)
	}

	final := out
	if resp.Request != nil {
		final = resp.Request
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, w.sameOrigin(final), nil
}

// readBody reads r whole, failing with ErrBodyTooLarge past limit bytes.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

func fromCache(entry *domain.CachedResponse, src Source) *Response {
	return &Response{
		Status: entry.Status,
		Header: entry.Header.Clone(),
		Body:   entry.Body,
		Source: src,
	}
}
