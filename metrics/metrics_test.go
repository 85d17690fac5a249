package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCacheStatsSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCacheStats("IN", 5, 2, 100)

	assert.Equal(t, float64(5), testutil.ToFloat64(m.cacheHits.WithLabelValues("IN")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheMisses.WithLabelValues("IN")))
	assert.Equal(t, float64(100), testutil.ToFloat64(m.cacheEntries.WithLabelValues("IN")))
}

func TestObserveLookupIncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLookup("A", "success", 10*time.Millisecond)
	m.ObserveLookup("A", "success", 20*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.lookups.WithLabelValues("A", "success")))

	count, err := testutil.GatherAndCount(reg, "resolve_lookup_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
