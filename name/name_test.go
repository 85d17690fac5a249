package name

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/resolve/wire"
)

func mustParse(t *testing.T, s string) Name {
	t.Helper()
	n, err := Parse(s, Root)
	require.NoError(t, err)
	return n
}

func TestParseAndString(t *testing.T) {
	n := mustParse(t, "www.Example.COM.")
	assert.True(t, n.IsAbsolute())
	assert.Equal(t, "www.example.com.", n.String())
	assert.Equal(t, 3, n.LabelCount())
}

func TestEqualFoldsASCIIOnly(t *testing.T) {
	a := mustParse(t, "Example.com.")
	b := mustParse(t, "example.COM.")
	assert.True(t, a.Equal(b))
}

func TestSubdomain(t *testing.T) {
	child := mustParse(t, "www.example.com.")
	parent := mustParse(t, "example.com.")
	other := mustParse(t, "example.net.")

	assert.True(t, child.Subdomain(parent))
	assert.True(t, child.StrictSubdomain(parent))
	assert.False(t, other.Subdomain(parent))
	assert.True(t, parent.Subdomain(parent))
	assert.False(t, parent.StrictSubdomain(parent))
}

func TestConcatExceedsWireLength(t *testing.T) {
	label := make([]byte, 63)
	for i := range label {
		label[i] = 'a'
	}
	var labels []string
	for i := 0; i < 3; i++ {
		labels = append(labels, string(label))
	}
	long, err := New(labels...)
	require.NoError(t, err)

	suffix, err := New(string(label), string(label))
	require.NoError(t, err)
	suffix.labels = append(suffix.labels, "")

	_, err = long.Concat(suffix)
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestFromDNAME(t *testing.T) {
	owner := mustParse(t, "old.example.")
	target := mustParse(t, "new.example.")
	n := mustParse(t, "x.old.example.")

	rewritten, err := n.FromDNAME(owner, target)
	require.NoError(t, err)
	assert.Equal(t, "x.new.example.", rewritten.String())
}

func TestFromDNAMENotSubdomain(t *testing.T) {
	owner := mustParse(t, "old.example.")
	target := mustParse(t, "new.example.")
	n := mustParse(t, "x.other.example.")

	_, err := n.FromDNAME(owner, target)
	assert.Error(t, err)
}

func TestRoundTripCanonicalAndCompressed(t *testing.T) {
	names := []string{
		"example.com.",
		"www.example.com.",
		"a.b.c.example.com.",
		".",
	}

	w := wire.NewWriter(64)
	comp := NewCompressor(true)
	var parsed []Name
	for _, s := range names {
		n := mustParse(t, s)
		require.NoError(t, comp.WriteTo(w, n))
	}

	r := wire.NewReader(w.Bytes())
	for range names {
		n, err := ReadFrom(r)
		require.NoError(t, err)
		parsed = append(parsed, n)
	}

	for i, s := range names {
		assert.Equal(t, s, parsed[i].String())
	}

	// Compression should have made the encoding shorter than writing
	// every name uncompressed.
	uncompressedLen := 0
	for _, s := range names {
		n := mustParse(t, s)
		uw := wire.NewWriter(32)
		WriteCanonical(uw, n)
		uncompressedLen += uw.Len()
	}
	assert.Less(t, w.Len(), uncompressedLen)
}

func TestReadFromRejectsForwardPointer(t *testing.T) {
	buf := []byte{0xC0, 0x05, 0}
	r := wire.NewReader(buf)
	_, err := ReadFrom(r)
	assert.ErrorIs(t, err, ErrForwardPointer)
}

func TestReadFromRejectsExcessivePointerChain(t *testing.T) {
	// Every pointer targets a strictly lower offset, so no cycle is
	// possible, but the chain is long enough to trip the hop bound.
	const hops = MaxPointerHops + 5
	buf := []byte{0} // root at offset 0
	prev := 0
	for i := 1; i <= hops; i++ {
		pos := len(buf)
		buf = append(buf, 0xC0|byte(prev>>8), byte(prev))
		prev = pos
	}

	r := wire.NewReader(buf)
	r.Seek(prev)
	_, err := ReadFrom(r)
	assert.ErrorIs(t, err, ErrPointerLoop)
}

func TestReadFromRejectsSelfPointer(t *testing.T) {
	buf := []byte{0xC0, 0x00}
	r := wire.NewReader(buf)
	_, err := ReadFrom(r)
	assert.ErrorIs(t, err, ErrForwardPointer)
}

func TestCompareOrdering(t *testing.T) {
	a := mustParse(t, "a.example.com.")
	b := mustParse(t, "b.example.com.")
	assert.True(t, a.Compare(b) < 0)
	assert.True(t, b.Compare(a) > 0)
	assert.Equal(t, 0, a.Compare(a))
}

func TestIsWildcard(t *testing.T) {
	assert.True(t, mustParse(t, "*.example.com.").IsWildcard())
	assert.False(t, mustParse(t, "www.example.com.").IsWildcard())
}
