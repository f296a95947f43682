// Package cache holds derived metrics between requests. Entries are keyed by
// ledger revision, so any ledger edit makes older entries unreachable and
// they age out through LRU eviction or the periodic expiry sweep.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"threepl/internal/core"
	"threepl/internal/log"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on an interval until stopped.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// Sweep runs one cleanup pass over every registered cache.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Start launches the sweeper. It is a no-op when already running.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil || interval <= 0 {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(ctx, interval, m.stop, m.done)
}

func (m *Manager) run(ctx context.Context, interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.FromContext(ctx).WithComponent(log.ComponentCache).DebugContext(ctx,
					"Expired cache entries removed", "count", n)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the sweeper and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// MetricsKey identifies one computed month. Drivers are part of the key
// because the same ledger yields different metrics for different inputs.
type MetricsKey struct {
	Variant  string
	Revision uint64
	Month    int
	Drivers  core.OperatingDrivers
}

func (k MetricsKey) String() string {
	return fmt.Sprintf("%s|%d|%d|%+v", k.Variant, k.Revision, k.Month, k.Drivers)
}

// Metrics caches derived metrics per MetricsKey.
type Metrics = LRU[MetricsKey, core.DerivedMetrics]

func NewMetrics(maxSize int, ttl time.Duration) *Metrics {
	return NewLRU[MetricsKey, core.DerivedMetrics](maxSize, ttl)
}
