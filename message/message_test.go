package message

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

func mustName(t *testing.T, s string) name.Name {
	t.Helper()
	n, err := name.Parse(s, name.Root)
	require.NoError(t, err)
	return n
}

func TestQueryRoundTrip(t *testing.T) {
	q := NewQuery(0x1234, mustName(t, "example.com."), rr.TypeA, rr.ClassINET)

	buf, err := q.Encode(true)
	require.NoError(t, err)

	got, err := Parse(buf, nil)
	require.NoError(t, err)

	assert.Equal(t, q.ID, got.ID)
	assert.True(t, got.RecursionDesired)
	assert.False(t, got.Response)
	require.NotNil(t, got.Question)
	assert.True(t, got.Question.Name.Equal(q.Question.Name))
	assert.Equal(t, rr.TypeA, got.Question.Type)
}

func TestResponseWithAnswerRoundTrip(t *testing.T) {
	owner := mustName(t, "example.com.")
	m := &Message{
		ID:                 0xABCD,
		Response:           true,
		Authoritative:      true,
		RecursionDesired:   true,
		RecursionAvailable: true,
		Rcode:              RcodeSuccess,
		Question:           &Question{Name: owner, Type: rr.TypeA, Class: rr.ClassINET},
		Answer: []Record{
			{Name: owner, Type: rr.TypeA, Class: rr.ClassINET, TTL: 300, Data: &rr.A{Address: net.ParseIP("192.0.2.1").To4()}},
		},
	}

	buf, err := m.Encode(true)
	require.NoError(t, err)

	got, err := Parse(buf, nil)
	require.NoError(t, err)

	assert.Equal(t, m.ID, got.ID)
	assert.True(t, got.Response)
	assert.True(t, got.Authoritative)
	assert.Equal(t, RcodeSuccess, got.Rcode)
	require.Len(t, got.Answer, 1)
	a, ok := got.Answer[0].Data.(*rr.A)
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1", a.Address.String())
	assert.Equal(t, uint32(300), got.Answer[0].TTL)
}

func TestCNAMEChainCompressesAndRoundTrips(t *testing.T) {
	owner := mustName(t, "www.example.com.")
	target := mustName(t, "alias.example.com.")
	m := &Message{
		ID:       1,
		Response: true,
		Rcode:    RcodeSuccess,
		Question: &Question{Name: owner, Type: rr.TypeA, Class: rr.ClassINET},
		Answer: []Record{
			{Name: owner, Type: rr.TypeCNAME, Class: rr.ClassINET, TTL: 60, Data: &rr.SingleName{RRType: rr.TypeCNAME, Target: target}},
			{Name: target, Type: rr.TypeA, Class: rr.ClassINET, TTL: 60, Data: &rr.A{Address: net.ParseIP("192.0.2.2").To4()}},
		},
	}

	buf, err := m.Encode(true)
	require.NoError(t, err)

	// Compression must actually shrink the message relative to an
	// uncompressed encoding of the same content.
	uncompressed, err := m.Encode(false)
	require.NoError(t, err)
	assert.Less(t, len(buf), len(uncompressed))

	got, err := Parse(buf, nil)
	require.NoError(t, err)
	require.Len(t, got.Answer, 2)
	cname, ok := got.Answer[0].Data.(*rr.SingleName)
	require.True(t, ok)
	assert.True(t, cname.Target.Equal(target))
}

func TestParseRejectsTruncatedQuestion(t *testing.T) {
	q := NewQuery(1, mustName(t, "example.com."), rr.TypeA, rr.ClassINET)
	buf, err := q.Encode(true)
	require.NoError(t, err)

	_, err = Parse(buf[:len(buf)-1], nil)
	assert.Error(t, err)
}

func TestEDNSRoundTrip(t *testing.T) {
	m := NewQuery(2, mustName(t, "example.com."), rr.TypeA, rr.ClassINET)
	m.EDNS = &EDNS{UDPSize: 4096, Version: 0, DNSSECOK: true, Options: []rr.OPTOption{{Code: 8, Data: []byte{0, 1, 0, 0}}}}

	buf, err := m.Encode(true)
	require.NoError(t, err)

	got, err := Parse(buf, nil)
	require.NoError(t, err)
	require.NotNil(t, got.EDNS)
	assert.Equal(t, uint16(4096), got.EDNS.UDPSize)
	assert.True(t, got.EDNS.DNSSECOK)
	require.Len(t, got.EDNS.Options, 1)
	assert.Equal(t, uint16(8), got.EDNS.Options[0].Code)
	assert.Empty(t, got.Additional, "OPT record must not remain in Additional")
}

func TestGroupRRsetsAttachesRRSIG(t *testing.T) {
	owner := mustName(t, "example.com.")
	section := []Record{
		{Name: owner, Type: rr.TypeA, Class: rr.ClassINET, TTL: 300, Data: &rr.A{Address: net.ParseIP("192.0.2.1").To4()}},
		{Name: owner, Type: rr.TypeA, Class: rr.ClassINET, TTL: 200, Data: &rr.A{Address: net.ParseIP("192.0.2.2").To4()}},
		{Name: owner, Type: rr.TypeRRSIG, Class: rr.ClassINET, TTL: 300, Data: &rr.SIGBase{RRType: rr.TypeRRSIG, TypeCovered: rr.TypeA}},
	}

	sets := GroupRRsets(section)
	require.Len(t, sets, 1)
	assert.Equal(t, rr.TypeA, sets[0].Type)
	assert.Equal(t, uint32(200), sets[0].TTL, "RRset TTL is the minimum of its members")
	assert.Len(t, sets[0].Records, 2)
	assert.Len(t, sets[0].Sigs, 1)
}

func TestGroupRRsetsPreservesOrderAcrossDistinctTypes(t *testing.T) {
	owner := mustName(t, "example.com.")
	target := mustName(t, "mail.example.com.")
	section := []Record{
		{Name: owner, Type: rr.TypeMX, Class: rr.ClassINET, TTL: 100, Data: &rr.MX{Preference: 10, Exchange: target}},
		{Name: owner, Type: rr.TypeA, Class: rr.ClassINET, TTL: 100, Data: &rr.A{Address: net.ParseIP("192.0.2.1").To4()}},
	}

	sets := GroupRRsets(section)
	require.Len(t, sets, 2)
	assert.Equal(t, rr.TypeMX, sets[0].Type)
	assert.Equal(t, rr.TypeA, sets[1].Type)
}
