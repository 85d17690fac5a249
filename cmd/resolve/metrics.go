package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semihalev/resolve/lookup"
	"github.com/semihalev/resolve/metrics"
	"github.com/semihalev/zlog/v2"
)

// startMetrics exposes a Prometheus /metrics endpoint on addr, mirroring
// sdns's own api.metrics handler. An empty addr disables metrics
// entirely and returns a nil Metrics.
func startMetrics(addr string) (*metrics.Metrics, func()) {
	if addr == "" {
		return nil, func() {}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("resolve: metrics server failed", "addr", addr, "error", err)
		}
	}()
	zlog.Info("resolve: metrics listening", "addr", addr)

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			zlog.Warn("resolve: metrics shutdown failed", "error", err)
		}
	}
	return m, stop
}

// watchCacheStats polls sess's cache occupancy every interval and feeds
// it to m until ctx is done.
func watchCacheStats(ctx context.Context, m *metrics.Metrics, sess *lookup.Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for class, stats := range sess.CacheStats() {
				m.ObserveCacheStats(class, stats.Hits, stats.Misses, stats.Entries)
			}
		case <-ctx.Done():
			return
		}
	}
}
