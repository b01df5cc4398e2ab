package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

// unavailable marks a cached negative result.
type unavailable struct{}

// Cached memoizes a Provider by input text. Unavailable results are cached
// too, so a value the model rejects is asked for once per run.
type Cached struct {
	inner  Provider
	cache  *ristretto.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached wraps inner with a cache holding up to size values.
func NewCached(inner Provider, size int) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        int64(size * 10),
		MaxCost:            int64(size),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed returns the cached result for text or asks the wrapped provider.
func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		c.hits.Add(1)
		switch t := v.(type) {
		case Vector:
			return t, nil
		case unavailable:
			return nil, fmt.Errorf("%w: cached miss for %q", ErrUnavailable, text)
		}
	}
	c.misses.Add(1)

	vec, err := c.inner.Embed(ctx, text)
	switch {
	case err == nil:
		c.cache.Set(text, vec, 1)
	case errors.Is(err, ErrUnavailable):
		c.cache.Set(text, unavailable{}, 1)
	default:
		return nil, err
	}
	c.cache.Wait()
	return vec, err
}

// Stats returns cache hits and misses so far.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the cache.
func (c *Cached) Close() error {
	c.cache.Close()
	return nil
}
