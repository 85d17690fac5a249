package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/semihalev/resolve/config"
	"github.com/semihalev/resolve/hosts"
	"github.com/semihalev/resolve/hosts/kubernetes"
	"github.com/semihalev/zlog/v2"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Validate config and hosts-file loading, and watch them for changes",
		Long: "The library is not a server: serve loads the configured hosts file " +
			"and, if configured, connects to the Kubernetes API, then watches both " +
			"for changes until interrupted. It exists to validate deployment " +
			"configuration outside of an embedding application.",
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	w, err := config.Watch(cfgPath, version)
	if err != nil {
		return fmt.Errorf("resolve: watch config: %w", err)
	}
	defer w.Close()

	cfg := w.Current()
	zlog.Info("resolve: loaded config", "path", cfgPath, "servers", cfg.Servers)

	m, stopMetrics := startMetrics(metricsAddr)
	defer stopMetrics()

	statsCtx, stopStats := context.WithCancel(context.Background())
	defer stopStats()

	if m != nil {
		sess, err := buildSession(cfg, m)
		if err != nil {
			return fmt.Errorf("resolve: build session for metrics: %w", err)
		}
		defer sess.Close(context.Background())
		go watchCacheStats(statsCtx, m, sess, 15*time.Second)
	}

	var closers []func() error

	if cfg.Hostsfile != "" {
		h, err := hosts.Watch(cfg.Hostsfile)
		if err != nil {
			return fmt.Errorf("resolve: load hosts file: %w", err)
		}
		zlog.Info("resolve: watching hosts file", "path", cfg.Hostsfile)
		closers = append(closers, h.Close)
	}

	if cfg.Kubernetes.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		kp, err := kubernetes.New(ctx, cfg.Kubernetes.Kubeconfig, kubernetes.WithClusterDomain(cfg.Kubernetes.ClusterDomain))
		if err != nil {
			cancel()
			return fmt.Errorf("resolve: connect to kubernetes: %w", err)
		}
		zlog.Info("resolve: watching kubernetes services", "cluster-domain", cfg.Kubernetes.ClusterDomain)
		closers = append(closers, kp.Close, func() error { cancel(); return nil })
	}

	w.OnChange(func(c *config.Config) {
		zlog.Info("resolve: config reloaded", "path", cfgPath, "servers", c.Servers)
	})

	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				zlog.Warn("resolve: close error", "error", err)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	zlog.Info("resolve: serving, press ctrl-c to stop")
	<-sig
	zlog.Info("resolve: stopping")
	return nil
}
