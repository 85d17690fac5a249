package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesDefaultFileWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.toml")

	cfg, err := Load(path, "0.0.0-test")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 1, cfg.Ndots)
	assert.Equal(t, 16, cfg.MaxRedirects)
	assert.Equal(t, []string{"127.0.0.1:53"}, cfg.Servers)
	assert.Equal(t, 3*time.Second, cfg.Timeout.Duration)
	assert.Equal(t, "0.0.0-test", cfg.ServerVersion())
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir, "0.0.0-test")
	assert.Error(t, err)
}

func TestLoadAppliesConfiguredValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.toml")
	contents := `
version = "1.0.0"
searchpath = ["corp.example."]
ndots = 2
maxredirects = 4
cycleresults = true
servers = ["192.0.2.53:53"]
timeout = "1s"
cachesize = 100
cachemaxttl = "1h"
hostsfile = "/etc/hosts"
accesslist = ["192.0.2.0/24"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path, "0.0.0-test")
	require.NoError(t, err)
	assert.Equal(t, []string{"corp.example."}, cfg.SearchPath)
	assert.Equal(t, 2, cfg.Ndots)
	assert.Equal(t, 4, cfg.MaxRedirects)
	assert.True(t, cfg.CycleResults)
	assert.Equal(t, time.Hour, cfg.CacheMaxTTL.Duration)
	assert.Equal(t, "/etc/hosts", cfg.Hostsfile)
	assert.Equal(t, []string{"192.0.2.0/24"}, cfg.AccessList)
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.toml")
	require.NoError(t, os.WriteFile(path, []byte(`version = "1.0.0"
ndots = 1
maxredirects = 16
servers = ["127.0.0.1:53"]
timeout = "3s"
cachesize = 100
cachemaxttl = "1h"
`), 0o644))

	w, err := Watch(path, "0.0.0-test")
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 1, w.Current().Ndots)

	require.NoError(t, os.WriteFile(path, []byte(`version = "1.0.0"
ndots = 3
maxredirects = 16
servers = ["127.0.0.1:53"]
timeout = "3s"
cachesize = 100
cachemaxttl = "1h"
`), 0o644))

	require.Eventually(t, func() bool {
		return w.Current().Ndots == 3
	}, 2*time.Second, 20*time.Millisecond)
}
