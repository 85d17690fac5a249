package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semihalev/resolve/cache"
	"github.com/semihalev/resolve/config"
	"github.com/semihalev/resolve/hosts"
	"github.com/semihalev/resolve/lookup"
	"github.com/semihalev/resolve/metrics"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
	"github.com/semihalev/resolve/transport"
)

func newLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name> [type]",
		Short: "Resolve one name and print the answer records",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runLookup,
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	qtype := rr.TypeA
	if len(args) == 2 {
		t, ok := rr.ParseType(strings.ToUpper(args[1]))
		if !ok {
			return fmt.Errorf("resolve: unknown record type %q", args[1])
		}
		qtype = t
	}

	cfg, err := config.Load(cfgPath, version)
	if err != nil {
		return fmt.Errorf("resolve: load config: %w", err)
	}

	m, stopMetrics := startMetrics(metricsAddr)
	defer stopMetrics()

	sess, err := buildSession(cfg, m)
	if err != nil {
		return err
	}
	defer sess.Close(context.Background())

	n, err := name.Parse(args[0], name.Root)
	if err != nil {
		return fmt.Errorf("resolve: parse name %q: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Duration)
	defer cancel()

	res, err := sess.Lookup(ctx, n, qtype, rr.ClassINET)
	if err != nil {
		return fmt.Errorf("resolve: lookup failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, rec := range res.Records {
		fmt.Fprintf(out, "%s\t%d\t%s\t%s\t%v\n", rec.Name, rec.TTL, rec.Class, rec.Type, rec.Data)
	}
	for _, alias := range res.Aliases {
		fmt.Fprintf(out, "; alias: %s\n", alias)
	}
	return nil
}

func buildSession(cfg *config.Config, m *metrics.Metrics) (*lookup.Session, error) {
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("resolve: no upstream servers configured")
	}

	var t transport.Transport
	if len(cfg.AccessList) > 0 {
		acl, err := transport.NewACL(cfg.AccessList)
		if err != nil {
			return nil, fmt.Errorf("resolve: build access list: %w", err)
		}
		t = &transport.Guard{Transport: transport.NewUDP(cfg.Servers[0]), ACL: acl}
	} else {
		t = transport.NewUDP(cfg.Servers[0])
	}

	c := cache.New(rr.ClassINET, cfg.CacheSize, cache.WithMaxTTL(cfg.CacheMaxTTL.Duration), cache.WithCycling(cfg.CycleResults))

	var searchPath []name.Name
	for _, s := range cfg.SearchPath {
		sn, err := name.Parse(s, name.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve: search path entry %q: %w", s, err)
		}
		searchPath = append(searchPath, sn)
	}

	opts := []lookup.Option{
		lookup.WithCache(c),
		lookup.WithSearchPath(searchPath),
		lookup.WithNdots(cfg.Ndots),
		lookup.WithMaxRedirects(cfg.MaxRedirects),
	}

	if cfg.Hostsfile != "" {
		h, err := hosts.Load(cfg.Hostsfile)
		if err != nil {
			return nil, fmt.Errorf("resolve: load hosts file: %w", err)
		}
		opts = append(opts, lookup.WithHostsParser(h))
	}

	if m != nil {
		opts = append(opts, lookup.WithObserver(m))
	}

	return lookup.New(t, opts...), nil
}
