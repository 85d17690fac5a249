package rr

import (
	"fmt"
	"net"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// A is the IPv4 address record (RFC 1035 section 3.4.1).
type A struct {
	Address net.IP
}

// Type implements Data.
func (r *A) Type() Type { return TypeA }

// ParseWire implements Data.
func (r *A) ParseWire(rd *wire.Reader) error {
	b, err := rd.ReadByteArray(4)
	if err != nil {
		return err
	}
	r.Address = net.IP(b)
	return nil
}

// WriteWire implements Data.
func (r *A) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	v4 := r.Address.To4()
	if v4 == nil {
		return fmt.Errorf("rr: A record address %v is not IPv4", r.Address)
	}
	w.WriteBytes(v4)
	return nil
}

// ParseText implements Data.
func (r *A) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 1, "A"); err != nil {
		return err
	}
	ip := net.ParseIP(tokens[0]).To4()
	if ip == nil {
		return fmt.Errorf("rr: invalid IPv4 address %q", tokens[0])
	}
	r.Address = ip
	return nil
}

// String implements Data.
func (r *A) String() string { return r.Address.String() }

// AAAA is the IPv6 address record (RFC 3596).
type AAAA struct {
	Address net.IP
}

// Type implements Data.
func (r *AAAA) Type() Type { return TypeAAAA }

// ParseWire implements Data.
func (r *AAAA) ParseWire(rd *wire.Reader) error {
	b, err := rd.ReadByteArray(16)
	if err != nil {
		return err
	}
	r.Address = net.IP(b)
	return nil
}

// WriteWire implements Data.
func (r *AAAA) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	v6 := r.Address.To16()
	if v6 == nil || r.Address.To4() != nil {
		return fmt.Errorf("rr: AAAA record address %v is not IPv6", r.Address)
	}
	w.WriteBytes(v6)
	return nil
}

// ParseText implements Data.
func (r *AAAA) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 1, "AAAA"); err != nil {
		return err
	}
	ip := net.ParseIP(tokens[0])
	if ip == nil || ip.To4() != nil {
		return fmt.Errorf("rr: invalid IPv6 address %q", tokens[0])
	}
	r.Address = ip
	return nil
}

// String implements Data.
func (r *AAAA) String() string { return r.Address.String() }
