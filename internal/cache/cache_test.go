package cache

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"threepl/internal/core"
	"threepl/internal/log"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLRU(size int, ttl time.Duration) (*LRU[string, int], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string, int](size, ttl)
	c.now = clk.Now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Errorf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("c = %v, %v", v, ok)
	}
	st := c.Stats()
	if st.Size != 2 || st.Hits != 3 || st.Misses != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.Advance(30 * time.Second)
	c.Set("b", 3)
	clk.Advance(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Errorf("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("CleanExpired = %d, want 0", n)
	}
	clk.Advance(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Stats().Size != 0 {
		t.Errorf("cache not empty")
	}
}

func TestLRUNoTTL(t *testing.T) {
	c, clk := newTestLRU(1, 0)
	c.Set("a", 1)
	clk.Advance(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Errorf("entry expired without a ttl")
	}
	c.Delete("a")
	c.Set("b", 2)
	c.Purge()
	if c.Stats().Size != 0 {
		t.Errorf("Purge left entries")
	}
}

func TestMetricsKeyDistinguishesInputs(t *testing.T) {
	c := NewMetrics(8, time.Minute)
	d := core.OperatingDrivers{PalletThroughput: 100, FacilitySqFt: 1000, ActualRent: 500}
	k := MetricsKey{Variant: "standard", Revision: 1, Month: 0, Drivers: d}
	c.Set(k, core.DerivedMetrics{GrossRevenue: 42})

	if m, ok := c.Get(k); !ok || m.GrossRevenue != 42 {
		t.Fatalf("Get = %+v, %v", m, ok)
	}
	next := k
	next.Revision = 2
	if _, ok := c.Get(next); ok {
		t.Errorf("new revision hit stale entry")
	}
	other := k
	other.Drivers.ActualRent = 600
	if _, ok := c.Get(other); ok {
		t.Errorf("different drivers hit cached entry")
	}
	if k.String() == other.String() {
		t.Errorf("keys render identically: %s", k)
	}
}

func TestManagerSweep(t *testing.T) {
	c, clk := newTestLRU(10, time.Second)
	c.Set("a", 1)
	m := NewManager()
	m.Register(c)
	clk.Advance(2 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}

	m.Start(context.Background(), 10*time.Millisecond)
	m.Start(context.Background(), 10*time.Millisecond)
	m.Stop()
	m.Stop()
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestManagerLogsSweepsUnderCacheComponent(t *testing.T) {
	var out lockedBuffer
	ctx := log.WithLogger(context.Background(), log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &out}))

	c, clk := newTestLRU(10, time.Second)
	c.Set("a", 1)
	clk.Advance(2 * time.Second)
	m := NewManager()
	m.Register(c)
	m.Start(ctx, 5*time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "Expired cache entries removed") {
		if time.Now().After(deadline) {
			t.Fatalf("no sweep logged: %q", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(out.String(), `"component":"cache"`) {
		t.Errorf("sweep log missing cache component: %s", out.String())
	}
}
