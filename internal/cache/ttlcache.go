// Package cache provides a generic TTL-based cache with singleflight
// deduplication, used by the gateway for on-demand REST reads that
// fall outside the watch pipeline (currently: per-pod metrics).
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// defaultMaxEntries bounds the cache so an unbounded stream of
// distinct keys cannot grow it forever between eviction sweeps.
const defaultMaxEntries = 10000

// singleflightFetchTimeout bounds a cache-miss producer call so that
// one caller's slow backend cannot wedge every concurrent waiter on
// the same key indefinitely.
const singleflightFetchTimeout = 30 * time.Second

// TTLCache implements a get-or-compute cache: get_or_compute(key, ttl,
// producer), lazy eviction on read, explicit invalidate /
// invalidate_prefix. A singleflight.Group deduplicates concurrent
// producer calls for the same key so a cache stampede on an expired
// metrics entry costs one upstream read, not N.
type TTLCache struct {
	now         func() time.Time
	maxEntries  int
	mu          sync.RWMutex
	entries     map[string]entry
	inflight    singleflight.Group
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Option configures a TTLCache at construction time.
type Option func(*TTLCache)

// WithClock injects a custom time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) { c.now = now }
}

// WithMaxEntries overrides the default upper bound on cached entries.
func WithMaxEntries(n int) Option {
	return func(c *TTLCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// New returns an empty TTLCache.
func New(opts ...Option) *TTLCache {
	c := &TTLCache{
		now:        time.Now,
		maxEntries: defaultMaxEntries,
		entries:    make(map[string]entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Producer computes the value for a cache miss.
type Producer func(ctx context.Context) (any, error)

// GetOrCompute returns the cached value for key if it has not yet
// expired, otherwise it calls producer, caches the result for ttl,
// and returns it. Concurrent misses on the same key share a single
// producer call.
func (c *TTLCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, producer Producer) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		return e.value, nil
	}

	v, err, _ := c.inflight.Do(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), singleflightFetchTimeout)
		defer cancel()

		value, err := producer(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if len(c.entries) >= c.maxEntries {
			c.evictExpiredLocked()
		}
		if len(c.entries) < c.maxEntries {
			c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
		}
		c.mu.Unlock()

		return value, nil
	})
	return v, err
}

// Invalidate removes a single key, regardless of its TTL.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix removes every key with the given prefix.
func (c *TTLCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// StartEvictionLoop implements core.CacheEvictor: a background sweep
// of expired entries, supplementing the mandatory lazy-read eviction —
// without it a key that is cached once and never read again would
// otherwise pin memory until the process restarts.
func (c *TTLCache) StartEvictionLoop(ctx context.Context, interval time.Duration) {
	log := slog.Default().With("component", "ttl-cache-evictor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			before := len(c.entries)
			c.evictExpiredLocked()
			after := len(c.entries)
			c.mu.Unlock()

			if evicted := before - after; evicted > 0 {
				log.Info("evicted expired cache entries", "count", evicted)
			}
		}
	}
}

// evictExpiredLocked removes expired entries. Caller must hold mu.
func (c *TTLCache) evictExpiredLocked() {
	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

var _ core.CacheEvictor = (*TTLCache)(nil)
