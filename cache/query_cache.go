// Package cache memoizes query results by fingerprint.
package cache

import (
	"fmt"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"ev-ad-insights/metrics"
	"ev-ad-insights/utils"
)

// QueryCache stores one immutable result per fingerprint until Reset.
// Concurrent misses on the same fingerprint share a single computation; a
// failed computation is not stored. Callers must not mutate returned values.
type QueryCache struct {
	store   *gocache.Cache
	group   singleflight.Group
	metrics *metrics.CacheMetrics
	logger  *utils.Logger
}

// New creates an empty QueryCache. m may be nil.
func New(logger *utils.Logger, m *metrics.CacheMetrics) *QueryCache {
	return &QueryCache{
		// No expiration and no janitor: entries live until Reset.
		store:   gocache.New(gocache.NoExpiration, 0),
		metrics: m,
		logger:  logger,
	}
}

// GetOrCompute returns the result cached under fp, running compute when
// there is none.
func (c *QueryCache) GetOrCompute(fp Fingerprint, compute func() (any, error)) (any, error) {
	key := string(fp)
	if v, ok := c.store.Get(key); ok {
		c.inc(func(m *metrics.CacheMetrics) { m.Hits.Inc() })
		return v, nil
	}
	c.inc(func(m *metrics.CacheMetrics) { m.Misses.Inc() })

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that missed just before another finished must not recompute.
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}

		c.inc(func(m *metrics.CacheMetrics) { m.Computations.Inc() })
		v, err := compute()
		if err != nil {
			c.inc(func(m *metrics.CacheMetrics) { m.Failures.Inc() })
			return nil, err
		}

		c.store.Set(key, v, gocache.NoExpiration)
		c.inc(func(m *metrics.CacheMetrics) { m.Entries.Set(float64(c.store.ItemCount())) })
		return v, nil
	})
	if err != nil {
		c.logger.Warn("[cache] Computation for %s failed: %v", fp, err)
		return nil, fmt.Errorf("cache: compute %s: %w", fp, err)
	}
	return v, nil
}

// Get is the typed form of GetOrCompute.
func Get[T any](c *QueryCache, fp Fingerprint, compute func() (T, error)) (T, error) {
	v, err := c.GetOrCompute(fp, func() (any, error) { return compute() })
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: entry %s holds %T", fp, v)
	}
	return typed, nil
}

// Reset drops every entry. Called when a new dataset is loaded.
func (c *QueryCache) Reset() {
	c.store.Flush()
	c.inc(func(m *metrics.CacheMetrics) {
		m.Resets.Inc()
		m.Entries.Set(0)
	})
	c.logger.Debug("[cache] Reset")
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	return c.store.ItemCount()
}

func (c *QueryCache) inc(f func(m *metrics.CacheMetrics)) {
	if c.metrics != nil {
		f(c.metrics)
	}
}
