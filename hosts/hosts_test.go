package hosts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/resolve/lookup"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

const (
	waitTimeout = 2 * time.Second
	waitTick    = 20 * time.Millisecond
)

func writeHostsFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func mustName(t *testing.T, s string) name.Name {
	t.Helper()
	n, err := name.Parse(s, name.Root)
	require.NoError(t, err)
	return n
}

func TestLoadParsesV4AndV6Entries(t *testing.T) {
	p := writeHostsFile(t, "127.0.0.1 localhost\n::1 localhost\n10.0.0.5 db.internal db\n")
	h, err := Load(p)
	require.NoError(t, err)

	addr, err := h.AddressForHost(mustName(t, "localhost."), rr.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr.String())

	addr6, err := h.AddressForHost(mustName(t, "localhost."), rr.TypeAAAA)
	require.NoError(t, err)
	assert.Equal(t, "::1", addr6.String())

	addr, err = h.AddressForHost(mustName(t, "db.internal."), rr.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", addr.String())
}

func TestAddressForHostReturnsErrNotFound(t *testing.T) {
	p := writeHostsFile(t, "127.0.0.1 localhost\n")
	h, err := Load(p)
	require.NoError(t, err)

	_, err = h.AddressForHost(mustName(t, "missing.example."), rr.TypeA)
	assert.True(t, errors.Is(err, lookup.ErrNotFound))
}

func TestParseIgnoresCommentsAndBlankLines(t *testing.T) {
	p := writeHostsFile(t, "# comment\n\n192.0.2.1 host.example. # trailing\n")
	h, err := Load(p)
	require.NoError(t, err)

	addr, err := h.AddressForHost(mustName(t, "host.example."), rr.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", addr.String())
}

func TestWatchReloadsOnWrite(t *testing.T) {
	p := writeHostsFile(t, "127.0.0.1 localhost\n")
	h, err := Watch(p)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.AddressForHost(mustName(t, "extra.example."), rr.TypeA)
	require.True(t, errors.Is(err, lookup.ErrNotFound))

	require.NoError(t, os.WriteFile(p, []byte("127.0.0.1 localhost\n10.1.1.1 extra.example.\n"), 0o644))

	require.Eventually(t, func() bool {
		addr, err := h.AddressForHost(mustName(t, "extra.example."), rr.TypeA)
		return err == nil && addr.String() == "10.1.1.1"
	}, waitTimeout, waitTick)
}
