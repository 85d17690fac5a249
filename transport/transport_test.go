package transport

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/resolve/message"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

func mustName(t *testing.T, s string) name.Name {
	t.Helper()
	n, err := name.Parse(s, name.Root)
	require.NoError(t, err)
	return n
}

func answerFor(query *message.Message) *message.Message {
	resp := &message.Message{
		ID:       query.ID,
		Response: true,
		Rcode:    message.RcodeSuccess,
		Question: query.Question,
		Answer: []message.Record{
			{Name: query.Question.Name, Type: rr.TypeA, Class: rr.ClassINET, TTL: 60,
				Data: &rr.A{Address: net.ParseIP("192.0.2.1").To4()}},
		},
	}
	return resp
}

func TestUDPSendReceive(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 512)
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		q, err := message.Parse(buf[:n], nil)
		if err != nil {
			return
		}
		resp, err := answerFor(q).Encode(true)
		if err != nil {
			return
		}
		conn.WriteToUDP(resp, addr)
	}()

	u := NewUDP(conn.LocalAddr().String())
	query := message.NewQuery(42, mustName(t, "example.com."), rr.TypeA, rr.ClassINET)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := u.Send(ctx, query)
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
	a := resp.Answer[0].Data.(*rr.A)
	assert.Equal(t, "192.0.2.1", a.Address.String())

	<-done
}

func TestTCPSendReceive(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var prefix [2]byte
		if _, err := conn.Read(prefix[:]); err != nil {
			return
		}
		qlen := binary.BigEndian.Uint16(prefix[:])
		buf := make([]byte, qlen)
		total := 0
		for total < len(buf) {
			n, err := conn.Read(buf[total:])
			if err != nil {
				return
			}
			total += n
		}

		q, err := message.Parse(buf, nil)
		if err != nil {
			return
		}
		resp, err := answerFor(q).Encode(true)
		if err != nil {
			return
		}
		var respPrefix [2]byte
		binary.BigEndian.PutUint16(respPrefix[:], uint16(len(resp)))
		conn.Write(respPrefix[:])
		conn.Write(resp)
	}()

	tcp := NewTCP(ln.Addr().String())
	query := message.NewQuery(7, mustName(t, "example.com."), rr.TypeA, rr.ClassINET)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := tcp.Send(ctx, query)
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
}

func TestACLAllowsAndDenies(t *testing.T) {
	acl, err := NewACL([]string{"192.0.2.0/24"})
	require.NoError(t, err)

	assert.True(t, acl.Allowed("192.0.2.53:53"))
	assert.False(t, acl.Allowed("198.51.100.1:53"))
}

func TestGuardRejectsDisallowedAddress(t *testing.T) {
	acl, err := NewACL([]string{"192.0.2.0/24"})
	require.NoError(t, err)

	guard := &Guard{Transport: NewUDP("198.51.100.1:53"), ACL: acl}
	_, err = guard.Send(context.Background(), message.NewQuery(1, mustName(t, "example.com."), rr.TypeA, rr.ClassINET))
	assert.Error(t, err)
}
