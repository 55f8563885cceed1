package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("shared/donations", "[]")
	c.Set("shared/proposals", "[]")
	c.Get("shared/donations")
	c.Set("device:a/user_votes", "{}")

	if _, ok := c.Get("shared/proposals"); ok {
		t.Fatalf("expected proposals to be evicted")
	}
	if v, ok := c.Get("shared/donations"); !ok || v != "[]" {
		t.Fatalf("expected donations to survive, got %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size=%d", c.Size())
	}
	if s := c.Stats(); s.Evictions != 1 || s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestLRUOverwriteKeepsSize(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("k", 1)
	c.Set("k", 2)
	if v, _ := c.Get("k"); v != 2 || c.Size() != 1 {
		t.Fatalf("got %d size %d", v, c.Size())
	}
	c.Delete("k")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Fatalf("size=%d after delete", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newLRU[int](10, time.Second, clock.now)

	c.Set("x", 1)
	clock.advance(2 * time.Second)
	if _, ok := c.Get("x"); ok {
		t.Fatalf("expected expired entry")
	}

	c.Set("y", 2)
	c.Set("z", 3)
	clock.advance(500 * time.Millisecond)
	c.Set("fresh", 4)
	clock.advance(600 * time.Millisecond)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 2 {
		t.Fatalf("expected 2 cleaned, got %d", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("fresh entry should survive cleanup")
	}
	if s := c.Stats(); s.Expired != 3 {
		t.Fatalf("expired = %d, want 3", s.Expired)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestStatsHitRatio(t *testing.T) {
	if r := (Stats{}).HitRatio(); r != 0 {
		t.Fatalf("empty ratio = %v", r)
	}
	if r := (Stats{Hits: 3, Misses: 1}).HitRatio(); r != 0.75 {
		t.Fatalf("ratio = %v", r)
	}
}
