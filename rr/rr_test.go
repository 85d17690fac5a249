package rr

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

func origin(t *testing.T) name.Name {
	t.Helper()
	n, err := name.Parse("example.com.", name.Root)
	require.NoError(t, err)
	return n
}

func roundTripWire(t *testing.T, d Data) Data {
	t.Helper()
	w := wire.NewWriter(64)
	require.NoError(t, d.WriteWire(w, name.NewCompressor(true)))

	r := wire.NewReader(w.Bytes())
	fresh := Default().New(d.Type())
	require.NoError(t, fresh.ParseWire(r))
	assert.Equal(t, 0, r.Len(), "codec did not consume all RDATA")
	return fresh
}

func TestARoundTrip(t *testing.T) {
	a := &A{Address: net.ParseIP("192.0.2.1").To4()}
	got := roundTripWire(t, a).(*A)
	assert.Equal(t, a.Address.String(), got.Address.String())
	assert.Equal(t, "192.0.2.1", a.String())
}

func TestAAAARoundTrip(t *testing.T) {
	aaaa := &AAAA{Address: net.ParseIP("2001:db8::1")}
	got := roundTripWire(t, aaaa).(*AAAA)
	assert.Equal(t, aaaa.Address.String(), got.Address.String())
}

func TestSingleNameRoundTrip(t *testing.T) {
	n, err := name.Parse("target.example.com.", name.Root)
	require.NoError(t, err)
	cname := &SingleName{RRType: TypeCNAME, Target: n}
	got := roundTripWire(t, cname).(*SingleName)
	assert.True(t, cname.Target.Equal(got.Target))
}

func TestMXRoundTrip(t *testing.T) {
	ex, err := name.Parse("mail.example.com.", name.Root)
	require.NoError(t, err)
	mx := &MX{Preference: 10, Exchange: ex}
	got := roundTripWire(t, mx).(*MX)
	assert.Equal(t, mx.Preference, got.Preference)
	assert.True(t, mx.Exchange.Equal(got.Exchange))
}

func TestSOARoundTrip(t *testing.T) {
	mname, _ := name.Parse("ns1.example.com.", name.Root)
	rname, _ := name.Parse("hostmaster.example.com.", name.Root)
	soa := &SOA{MName: mname, RName: rname, Serial: 2024010100, Refresh: 3600, Retry: 900, Expire: 1209600, Minimum: 300}
	got := roundTripWire(t, soa).(*SOA)
	assert.Equal(t, soa.Serial, got.Serial)
	assert.Equal(t, soa.Minimum, got.Minimum)
	assert.True(t, soa.MName.Equal(got.MName))
}

func TestTXTRoundTrip(t *testing.T) {
	txt := &TXT{Values: [][]byte{[]byte("hello world"), []byte("v=spf1 -all")}}
	got := roundTripWire(t, txt).(*TXT)
	require.Len(t, got.Values, 2)
	assert.Equal(t, "hello world", string(got.Values[0]))
}

func TestSRVRoundTrip(t *testing.T) {
	target, _ := name.Parse("sipserver.example.com.", name.Root)
	srv := &SRV{Priority: 10, Weight: 60, Port: 5060, Target: target}
	got := roundTripWire(t, srv).(*SRV)
	assert.Equal(t, srv.Port, got.Port)
	assert.True(t, srv.Target.Equal(got.Target))
}

func TestDSRoundTrip(t *testing.T) {
	ds := &DS{RRType: TypeDS, KeyTag: 12345, Algorithm: 8, DigestType: 2, Digest: []byte{1, 2, 3, 4, 5, 6}}
	got := roundTripWire(t, ds).(*DS)
	assert.Equal(t, ds.KeyTag, got.KeyTag)
	assert.Equal(t, ds.Digest, got.Digest)
}

func TestDNSKEYRoundTripAndKeyTag(t *testing.T) {
	key := &DNSKEY{RRType: TypeDNSKEY, Flags: 257, Protocol: 3, Algorithm: 8, PublicKey: []byte{0x01, 0x02, 0x03, 0x04, 0x05}}
	got := roundTripWire(t, key).(*DNSKEY)
	assert.Equal(t, key.Flags, got.Flags)
	assert.Equal(t, key.KeyTag(), got.KeyTag())
}

func TestNSECRoundTrip(t *testing.T) {
	next, _ := name.Parse("b.example.com.", name.Root)
	nsec := &NSEC{NextDomain: next, TypeBitmap: encodeTypeBitmap([]string{"A", "MX", "RRSIG", "NSEC"})}
	got := roundTripWire(t, nsec).(*NSEC)
	assert.True(t, nsec.NextDomain.Equal(got.NextDomain))
	assert.Equal(t, decodeTypeBitmap(nsec.TypeBitmap), decodeTypeBitmap(got.TypeBitmap))
}

func TestNSEC3RoundTrip(t *testing.T) {
	n3 := &NSEC3{HashAlgorithm: 1, Flags: 0, Iterations: 5, Salt: []byte{0xAA, 0xBB}, NextHashed: []byte("0123456789abcdef"), TypeBitmap: encodeTypeBitmap([]string{"A"})}
	got := roundTripWire(t, n3).(*NSEC3)
	assert.Equal(t, n3.Iterations, got.Iterations)
	assert.Equal(t, n3.Salt, got.Salt)
}

func TestSVCBRoundTrip(t *testing.T) {
	target, _ := name.Parse("svc.example.com.", name.Root)
	svcb := &SVCB{RRType: TypeHTTPS, Priority: 1, Target: target, Params: []SVCBParam{{Key: 1, Value: []byte("h2")}}}
	got := roundTripWire(t, svcb).(*SVCB)
	assert.Equal(t, svcb.Priority, got.Priority)
	require.Len(t, got.Params, 1)
	assert.Equal(t, svcb.Params[0].Value, got.Params[0].Value)
}

func TestUnknownRoundTripAndText(t *testing.T) {
	u := &Unknown{RRType: Type(65280), Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	got := roundTripWire(t, u).(*Unknown)
	assert.Equal(t, u.Data, got.Data)
	assert.Equal(t, `\# 4 DEADBEEF`, u.String())

	var parsed Unknown
	parsed.RRType = Type(65280)
	require.NoError(t, parsed.ParseText([]string{`\#`, "4", "DEADBEEF"}, name.Root))
	assert.Equal(t, u.Data, parsed.Data)
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "TYPE65280", Type(65280).String())
	assert.Equal(t, "A", TypeA.String())
}

func TestRegistryOverlayIsolated(t *testing.T) {
	overlay := Default().Overlay()
	called := false
	require.NoError(t, overlay.Register(Type(9999), "X-CUSTOM", func() Data {
		called = true
		return &Unknown{RRType: Type(9999)}
	}))

	// The default registry must not see the overlay's registration.
	_, ok := Default().TypeByMnemonic("X-CUSTOM")
	assert.False(t, ok)

	overlay.New(Type(9999))
	assert.True(t, called)
}

func TestRegistryRejectsConflictingMnemonic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(TypeA, "A", func() Data { return &A{} }))
	err := r.Register(TypeAAAA, "A", func() Data { return &AAAA{} })
	assert.Error(t, err)
}

func TestParseTextThenEmit(t *testing.T) {
	o := origin(t)
	var mx MX
	require.NoError(t, mx.ParseText([]string{"10", "mail.example.com."}, o))
	assert.Equal(t, "10 mail.example.com.", mx.String())
}
