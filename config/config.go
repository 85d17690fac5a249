// Package config loads the lookup session's TOML configuration file,
// in the shape and loading style of sdns's own config package.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/semihalev/zlog/v2"
)

const configVersion = "1.0.0"

// Config holds every tunable of a lookup session.
type Config struct {
	Version string

	// SearchPath is the ordered list of suffixes tried for
	// non-absolute query names, each made absolute by an implicit
	// trailing root.
	SearchPath []string
	// Ndots is the label-count threshold above which the absolute
	// form of a name is tried before any search suffix.
	Ndots int
	// MaxRedirects bounds CNAME/DNAME hop chasing.
	MaxRedirects int
	// CycleResults rotates RRset member order on each cache read.
	CycleResults bool

	// Servers is the ordered list of upstream server addresses; the
	// resolve command's transport dials only the first entry.
	Servers []string
	// Timeout is the deadline for one whole lookup, shared by every
	// transport round trip that lookup makes.
	Timeout Duration

	// CacheSize caps the number of distinct owner names held per
	// record class before eviction.
	CacheSize int
	// CacheMaxTTL caps how long any positive entry may be cached,
	// regardless of the TTL the answer carried.
	CacheMaxTTL Duration

	// Hostsfile is the path to a static hosts file consulted before
	// the cache and transport; blank disables the hosts short-circuit.
	Hostsfile string

	// AccessList restricts, by CIDR, which upstream server addresses
	// the transport is permitted to contact; empty allows any.
	AccessList []string

	// Kubernetes optionally resolves cluster-local Service names.
	Kubernetes KubernetesConfig

	sVersion string
}

// KubernetesConfig configures the optional Kubernetes-backed hosts
// provider.
type KubernetesConfig struct {
	Enabled       bool
	Kubeconfig    string
	ClusterDomain string
}

// Duration wraps time.Duration so it can be read from TOML as a string
// like "3s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// ServerVersion returns the caller-supplied build version passed to Load.
func (c *Config) ServerVersion() string { return c.sVersion }

var defaultConfig = `
# Config version, config and build versions can be different.
version = "%s"

# Ordered list of suffixes appended to non-absolute query names.
searchpath = [
]

# Absolute-first threshold: names with more labels than this are tried
# in absolute form before any search suffix.
ndots = 1

# Hop cap for CNAME/DNAME redirect chains.
maxredirects = 16

# Rotate cached RRset member order on every read.
cycleresults = false

# Upstream server addresses; queries are sent to the first one.
servers = [
"127.0.0.1:53"
]

# Deadline for one whole lookup, across all of its transport round trips.
timeout = "3s"

# Maximum number of distinct owner names held per record class.
cachesize = 65536

# Upper bound on any cached positive entry's TTL, regardless of the
# TTL the response carried.
cachemaxttl = "168h"

# Path to a static hosts file, left blank to disable the hosts
# short-circuit.
hostsfile = ""

# Upstream server addresses the transport may contact, in CIDR form.
# Left empty, any address is permitted.
accesslist = [
]

[kubernetes]
enabled = false
kubeconfig = ""
clusterdomain = "cluster.local"
`

// Load reads cfgfile, generating a default file at that path first if
// it does not exist.
func Load(cfgfile, version string) (*Config, error) {
	if _, err := os.Stat(cfgfile); os.IsNotExist(err) {
		if err := generateConfig(cfgfile); err != nil {
			return nil, err
		}
	}

	zlog.Info("config: loading", "path", cfgfile)

	cfg := new(Config)
	if _, err := toml.DecodeFile(cfgfile, cfg); err != nil {
		return nil, fmt.Errorf("config: could not load %s: %w", cfgfile, err)
	}

	if cfg.Version != configVersion {
		zlog.Warn("config: file is out of version, regenerate to see new defaults", "have", cfg.Version, "want", configVersion)
	}
	cfg.sVersion = version

	if cfg.Ndots <= 0 {
		cfg.Ndots = 1
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 16
	}

	return cfg, nil
}

func generateConfig(path string) error {
	output, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: could not generate %s: %w", path, err)
	}
	defer func() {
		if err := output.Close(); err != nil {
			zlog.Warn("config: generation failed while closing file", "error", err)
		}
	}()

	r := strings.NewReader(fmt.Sprintf(defaultConfig, configVersion))
	if _, err := io.Copy(output, r); err != nil {
		return fmt.Errorf("config: could not write default config: %w", err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		zlog.Info("config: default config file generated", "path", abs)
	}
	return nil
}
