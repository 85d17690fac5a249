// Package doq implements a DNS-over-QUIC client transport (RFC 9250).
package doq

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/semihalev/zlog/v2"

	"github.com/semihalev/resolve/message"
	"github.com/semihalev/resolve/rr"
)

var doqProtos = []string{"doq", "doq-i02", "doq-i00", "doq-i01", "doq-i11"}

const (
	maxMsgSize    = 65535
	tlsMinVersion = tls.VersionTLS13
)

// Transport is a client-side DNS-over-QUIC transport. One Transport
// holds at most one QUIC connection, redialing lazily after the
// previous connection is closed.
type Transport struct {
	Server   string
	TLS      *tls.Config
	Registry *rr.Registry

	conn *quic.Conn
}

// New returns a Transport dialing server, defaulting tlsConfig's
// NextProtos and minimum version to the values RFC 9250 requires.
func New(server string, tlsConfig *tls.Config) *Transport {
	cfg := tlsConfig
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cloned := cfg.Clone()
	cloned.NextProtos = doqProtos
	if cloned.MinVersion < tlsMinVersion {
		cloned.MinVersion = tlsMinVersion
	}
	return &Transport{Server: server, TLS: cloned}
}

// Address implements transport.AddressedTransport.
func (t *Transport) Address() string { return t.Server }

func (t *Transport) dial(ctx context.Context) (*quic.Conn, error) {
	if t.conn != nil {
		select {
		case <-t.conn.Context().Done():
			t.conn = nil
		default:
			return t.conn, nil
		}
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 15 * time.Second,
	}
	conn, err := quic.DialAddr(ctx, t.Server, t.TLS, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("doq: dial %s: %w", t.Server, err)
	}
	t.conn = conn
	return conn, nil
}

// Send implements transport.Transport. Per RFC 9250 section 4.2.1, each
// query gets a fresh bidirectional stream and the message ID sent on
// the wire is fixed at zero.
func (t *Transport) Send(ctx context.Context, m *message.Message) (*message.Message, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("doq: open stream: %w", err)
	}
	defer stream.Close()

	originalID := m.ID
	m.ID = 0
	buf, encErr := m.Encode(true)
	m.ID = originalID
	if encErr != nil {
		return nil, fmt.Errorf("doq: encode query: %w", encErr)
	}

	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(buf)))
	if _, err := stream.Write(prefix[:]); err != nil {
		return nil, fmt.Errorf("doq: write length prefix: %w", err)
	}
	if _, err := stream.Write(buf); err != nil {
		return nil, fmt.Errorf("doq: write query: %w", err)
	}
	if err := stream.Close(); err != nil {
		zlog.Debug("doq: half-close after write failed", "error", err)
	}

	limited := io.LimitReader(stream, maxMsgSize+2)
	respBuf, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("doq: read response: %w", err)
	}
	if len(respBuf) < 2 {
		return nil, fmt.Errorf("doq: response shorter than its length prefix")
	}
	respLen := binary.BigEndian.Uint16(respBuf[:2])
	if int(respLen) != len(respBuf)-2 {
		return nil, fmt.Errorf("doq: response length mismatch: header says %d, got %d", respLen, len(respBuf)-2)
	}

	reg := t.Registry
	if reg == nil {
		reg = rr.Default()
	}
	resp, err := message.Parse(respBuf[2:], reg)
	if err != nil {
		return nil, fmt.Errorf("doq: parse response: %w", err)
	}
	resp.ID = originalID
	return resp, nil
}

// Close releases the underlying QUIC connection, if one is open.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.CloseWithError(0, "")
	t.conn = nil
	return err
}
