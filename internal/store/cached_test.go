package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"relief/internal/cache"
	"relief/internal/store"
	"relief/internal/store/memory"
)

type countingStore struct {
	store.Store
	gets    int
	failSet bool
}

func (c *countingStore) Get(ctx context.Context, key string, shared bool) (string, bool, error) {
	c.gets++
	return c.Store.Get(ctx, key, shared)
}

func (c *countingStore) Set(ctx context.Context, key, value string, shared bool) error {
	if c.failSet {
		return errors.New("backend down")
	}
	return c.Store.Set(ctx, key, value, shared)
}

func TestCachedReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: memory.New("d")}
	if err := inner.Set(ctx, store.KeyProposals, "[]", true); err != nil {
		t.Fatal(err)
	}

	c := store.NewCached(inner, cache.NewLRUCache[string](10, time.Minute), "d")
	for i := 0; i < 3; i++ {
		v, found, err := c.Get(ctx, store.KeyProposals, true)
		if err != nil || !found || v != "[]" {
			t.Fatalf("unexpected get: %q %v %v", v, found, err)
		}
	}
	if inner.gets != 1 {
		t.Fatalf("expected 1 backend read, got %d", inner.gets)
	}
}

func TestCachedWriteFailureEvicts(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: memory.New("d")}
	c := store.NewCached(inner, cache.NewLRUCache[string](10, time.Minute), "d")

	if err := c.Set(ctx, store.KeyDonations, "[1]", true); err != nil {
		t.Fatal(err)
	}
	inner.failSet = true
	if err := c.Set(ctx, store.KeyDonations, "[1,2]", true); err == nil {
		t.Fatalf("expected write error")
	}

	v, _, _ := c.Get(ctx, store.KeyDonations, true)
	if v != "[1]" {
		t.Fatalf("cache must not serve the failed write, got %q", v)
	}
	if inner.gets != 1 {
		t.Fatalf("expected read to fall through to backend, gets=%d", inner.gets)
	}
}

func TestCachedKeepsScopesApart(t *testing.T) {
	ctx := context.Background()
	c := store.NewCached(memory.New("d"), cache.NewLRUCache[string](10, time.Minute), "d")
	if err := c.Set(ctx, store.KeyUserVotes, `{"1":true}`, false); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, store.KeyUserVotes, true); found {
		t.Fatalf("shared lookup hit per-device cache entry")
	}
}

func TestUncachedReachesBackend(t *testing.T) {
	ctx := context.Background()
	inner := memory.New("d")
	c := store.NewCached(inner, cache.NewLRUCache[string](10, time.Minute), "d")
	if err := c.Set(ctx, store.KeyProposals, "[]", true); err != nil {
		t.Fatal(err)
	}
	// another process writes the backend directly
	if err := inner.Set(ctx, store.KeyProposals, "[1]", true); err != nil {
		t.Fatal(err)
	}

	if v, _, _ := c.Get(ctx, store.KeyProposals, true); v != "[]" {
		t.Fatalf("cached read = %q, want the cached value", v)
	}
	if v, _, _ := store.Uncached(c).Get(ctx, store.KeyProposals, true); v != "[1]" {
		t.Fatalf("uncached read = %q, want [1]", v)
	}
	if store.Uncached(inner) != store.Store(inner) {
		t.Fatalf("plain store must be returned as is")
	}
}

func TestValidateDeviceID(t *testing.T) {
	for _, bad := range []string{"", "  ", "a:b", "a b"} {
		if err := store.ValidateDeviceID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
	if err := store.ValidateDeviceID("kiosk-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
