package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/yl2chen/cidranger"

	"github.com/semihalev/resolve/message"
)

// ACL restricts which upstream server addresses a Transport may
// contact, an outbound counterpart to a recursive server's inbound
// client allowlist.
type ACL struct {
	ranger cidranger.Ranger
}

// NewACL builds an ACL from a list of CIDR blocks.
func NewACL(cidrs []string) (*ACL, error) {
	a := &ACL{ranger: cidranger.NewPCTrieRanger()}
	for _, c := range cidrs {
		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("transport: invalid CIDR %q: %w", c, err)
		}
		if err := a.ranger.Insert(cidranger.NewBasicRangerEntry(*ipnet)); err != nil {
			return nil, fmt.Errorf("transport: insert %q: %w", c, err)
		}
	}
	return a, nil
}

// Allowed reports whether addr (host, or host:port) is covered by the
// allowlist.
func (a *ACL) Allowed(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	ok, _ := a.ranger.Contains(ip)
	return ok
}

// Guard wraps a Transport so Send refuses to contact any server address
// not permitted by the ACL. The guarded transport must expose the
// address it targets via the AddressedTransport interface.
type Guard struct {
	Transport AddressedTransport
	ACL       *ACL
}

// AddressedTransport is a Transport that can report its target address
// for ACL enforcement.
type AddressedTransport interface {
	Transport
	Address() string
}

// Send implements Transport, rejecting the call before it reaches the
// wrapped transport if its address is not allowlisted.
func (g *Guard) Send(ctx context.Context, m *message.Message) (*message.Message, error) {
	if !g.ACL.Allowed(g.Transport.Address()) {
		return nil, fmt.Errorf("transport: %s is not permitted by the access list", g.Transport.Address())
	}
	return g.Transport.Send(ctx, m)
}
