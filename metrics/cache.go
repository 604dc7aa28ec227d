// Package metrics provides Prometheus metrics for the query pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks query cache effectiveness.
type CacheMetrics struct {
	Hits         prometheus.Counter
	Misses       prometheus.Counter
	Computations prometheus.Counter
	Failures     prometheus.Counter
	Entries      prometheus.Gauge
	Resets       prometheus.Counter
}

// NewCacheMetrics creates the cache metrics and registers them with registry.
func NewCacheMetrics(registry prometheus.Registerer) (*CacheMetrics, error) {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evads_query_cache_hits_total",
			Help: "Queries answered from the cache.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evads_query_cache_misses_total",
			Help: "Queries whose fingerprint was not cached.",
		}),
		Computations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evads_query_cache_computations_total",
			Help: "Compute functions actually run by the cache.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evads_query_cache_failures_total",
			Help: "Compute functions that returned an error.",
		}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evads_query_cache_entries",
			Help: "Number of cached query results.",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evads_query_cache_resets_total",
			Help: "Explicit cache invalidations.",
		}),
	}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *CacheMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Hits.Describe(ch)
	m.Misses.Describe(ch)
	m.Computations.Describe(ch)
	m.Failures.Describe(ch)
	m.Entries.Describe(ch)
	m.Resets.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *CacheMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Hits.Collect(ch)
	m.Misses.Collect(ch)
	m.Computations.Collect(ch)
	m.Failures.Collect(ch)
	m.Entries.Collect(ch)
	m.Resets.Collect(ch)
}
