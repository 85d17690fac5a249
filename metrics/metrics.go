// Package metrics wires the lookup session and cache into Prometheus
// counters and histograms, in the style of sdns's own metrics middleware.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects cache and lookup instrumentation for one process.
// The zero value is not usable; construct with New.
type Metrics struct {
	cacheHits    *prometheus.GaugeVec
	cacheMisses  *prometheus.GaugeVec
	cacheEntries *prometheus.GaugeVec

	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
}

// New builds a Metrics and registers its collectors with reg. Pass
// prometheus.DefaultRegisterer to use the global registry, as sdns does.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "resolve_cache_hits_total",
			Help: "How many cache lookups were satisfied from the cache, cumulative since cache creation",
		}, []string{"class"}),
		cacheMisses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "resolve_cache_misses_total",
			Help: "How many cache lookups found no usable entry, cumulative since cache creation",
		}, []string{"class"}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "resolve_cache_entries",
			Help: "Number of distinct owner names currently held per class",
		}, []string{"class"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolve_lookups_total",
			Help: "How many lookups completed, by outcome",
		}, []string{"qtype", "outcome"}),
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resolve_lookup_duration_seconds",
			Help:    "Lookup latency from Session.Lookup to a completed result",
			Buckets: prometheus.DefBuckets,
		}, []string{"qtype"}),
	}

	reg.MustRegister(m.cacheHits, m.cacheMisses, m.cacheEntries, m.lookups, m.lookupDuration)
	return m
}

// ObserveCacheStats records one snapshot of a cache's cumulative
// hit/miss counters and current occupancy for class.
func (m *Metrics) ObserveCacheStats(class string, hits, misses uint64, entries int64) {
	m.cacheHits.WithLabelValues(class).Set(float64(hits))
	m.cacheMisses.WithLabelValues(class).Set(float64(misses))
	m.cacheEntries.WithLabelValues(class).Set(float64(entries))
}

// ObserveLookup records the outcome and latency of one completed lookup.
func (m *Metrics) ObserveLookup(qtype, outcome string, d time.Duration) {
	m.lookups.WithLabelValues(qtype, outcome).Inc()
	m.lookupDuration.WithLabelValues(qtype).Observe(d.Seconds())
}
