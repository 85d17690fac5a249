// Package transport implements reference "send one message, get one
// message" transports the lookup session drives through the external
// Transport contract: UDP with TCP fallback on truncation, and plain
// TCP.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/semihalev/resolve/message"
	"github.com/semihalev/resolve/rr"
)

// Transport sends one query and returns one response, or a failure.
// Implementations own server selection, retry, and timeout policy; the
// lookup session treats any returned error as terminal for the current
// candidate.
type Transport interface {
	Send(ctx context.Context, m *message.Message) (*message.Message, error)
}

const maxUDPMessageSize = 65535

// UDP sends queries over UDP and transparently retries over TCP when
// the response has the truncation bit set.
type UDP struct {
	// Server is the upstream address, e.g. "192.0.2.53:53".
	Server string
	// Registry resolves RDATA codecs for the response; rr.Default() if nil.
	Registry *rr.Registry
	// Dialer customizes the outbound connection; the zero value dials
	// directly.
	Dialer net.Dialer

	tcp *TCP
}

// NewUDP returns a UDP transport for server, with an internal TCP
// fallback transport for truncated responses.
func NewUDP(server string) *UDP {
	u := &UDP{Server: server}
	u.tcp = &TCP{Server: server}
	return u
}

// Send implements Transport.
func (u *UDP) Send(ctx context.Context, m *message.Message) (*message.Message, error) {
	buf, err := m.Encode(true)
	if err != nil {
		return nil, fmt.Errorf("transport: encode query: %w", err)
	}

	conn, err := u.Dialer.DialContext(ctx, "udp", u.Server)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", u.Server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(buf); err != nil {
		return nil, fmt.Errorf("transport: write query: %w", err)
	}

	resp := make([]byte, maxUDPMessageSize)
	n, err := conn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	reg := u.Registry
	if reg == nil {
		reg = rr.Default()
	}
	parsed, err := message.Parse(resp[:n], reg)
	if err != nil {
		return nil, fmt.Errorf("transport: parse response: %w", err)
	}

	if parsed.Truncated {
		tcp := u.tcp
		tcp.Registry = reg
		tcp.Dialer = u.Dialer
		return tcp.Send(ctx, m)
	}
	return parsed, nil
}

// Address implements AddressedTransport.
func (u *UDP) Address() string { return u.Server }

// TCP sends queries over a length-prefixed TCP stream (RFC 1035
// section 4.2.2), opening one connection per query.
type TCP struct {
	Server   string
	Registry *rr.Registry
	Dialer   net.Dialer
}

// NewTCP returns a TCP transport for server.
func NewTCP(server string) *TCP {
	return &TCP{Server: server}
}

// Send implements Transport.
func (t *TCP) Send(ctx context.Context, m *message.Message) (*message.Message, error) {
	buf, err := m.Encode(true)
	if err != nil {
		return nil, fmt.Errorf("transport: encode query: %w", err)
	}
	if len(buf) > maxUDPMessageSize {
		return nil, fmt.Errorf("transport: message exceeds %d bytes", maxUDPMessageSize)
	}

	conn, err := t.Dialer.DialContext(ctx, "tcp", t.Server)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", t.Server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(buf)))
	if _, err := conn.Write(prefix[:]); err != nil {
		return nil, fmt.Errorf("transport: write length prefix: %w", err)
	}
	if _, err := conn.Write(buf); err != nil {
		return nil, fmt.Errorf("transport: write query: %w", err)
	}

	if _, err := io.ReadFull(conn, prefix[:]); err != nil {
		return nil, fmt.Errorf("transport: read length prefix: %w", err)
	}
	respLen := binary.BigEndian.Uint16(prefix[:])
	resp := make([]byte, respLen)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	reg := t.Registry
	if reg == nil {
		reg = rr.Default()
	}
	parsed, err := message.Parse(resp, reg)
	if err != nil {
		return nil, fmt.Errorf("transport: parse response: %w", err)
	}
	return parsed, nil
}

// Address implements AddressedTransport.
func (t *TCP) Address() string { return t.Server }
