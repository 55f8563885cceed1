package store

import (
	"context"

	"relief/internal/cache"
)

// Cached is a read-through, write-through decorator. Successful writes refresh
// the cached value; failed writes evict it so the next read goes to the backend.
type Cached struct {
	inner    Store
	cache    cache.Cache[string]
	deviceID string
}

var _ Store = (*Cached)(nil)

func NewCached(inner Store, c cache.Cache[string], deviceID string) *Cached {
	return &Cached{inner: inner, cache: c, deviceID: deviceID}
}

func (c *Cached) cacheKey(key string, shared bool) string {
	return Scope(shared, c.deviceID) + "/" + key
}

func (c *Cached) Get(ctx context.Context, key string, shared bool) (string, bool, error) {
	ck := c.cacheKey(key, shared)
	if v, ok := c.cache.Get(ck); ok {
		return v, true, nil
	}
	v, found, err := c.inner.Get(ctx, key, shared)
	if err != nil || !found {
		return v, found, err
	}
	c.cache.Set(ck, v)
	return v, true, nil
}

func (c *Cached) Set(ctx context.Context, key, value string, shared bool) error {
	ck := c.cacheKey(key, shared)
	if err := c.inner.Set(ctx, key, value, shared); err != nil {
		c.cache.Delete(ck)
		return err
	}
	c.cache.Set(ck, value)
	return nil
}

// Unwrap returns the backend behind the cache.
func (c *Cached) Unwrap() Store { return c.inner }

// Close closes the wrapped store when it holds resources.
func (c *Cached) Close() error {
	if closer, ok := c.inner.(Closer); ok {
		return closer.Close()
	}
	return nil
}
