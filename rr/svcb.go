package rr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// SVCBParam is one key=value service parameter (RFC 9460 section 2.1).
type SVCBParam struct {
	Key   uint16
	Value []byte
}

// SVCB covers SVCB (RFC 9460) and HTTPS (RFC 9460 section 9), which
// share this wire shape.
type SVCB struct {
	RRType     Type
	Priority   uint16
	Target     name.Name
	Params     []SVCBParam
}

func (r *SVCB) Type() Type { return r.RRType }

func (r *SVCB) ParseWire(rd *wire.Reader) error {
	prio, err := rd.ReadU16()
	if err != nil {
		return err
	}
	target, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	var params []SVCBParam
	for rd.Len() > 0 {
		key, err := rd.ReadU16()
		if err != nil {
			return err
		}
		length, err := rd.ReadU16()
		if err != nil {
			return err
		}
		value, err := rd.ReadByteArray(int(length))
		if err != nil {
			return err
		}
		params = append(params, SVCBParam{Key: key, Value: value})
	}
	r.Priority, r.Target, r.Params = prio, target, params
	return nil
}

func (r *SVCB) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.Priority)
	// SVCB/HTTPS target names are never compressed (RFC 9460 section 2).
	if err := name.NewCompressor(false).WriteTo(w, r.Target); err != nil {
		return err
	}
	for _, p := range r.Params {
		w.WriteU16(p.Key)
		w.WriteU16(uint16(len(p.Value)))
		w.WriteBytes(p.Value)
	}
	return nil
}

var svcbParamNames = map[uint16]string{
	0: "mandatory", 1: "alpn", 2: "no-default-alpn", 3: "port",
	4: "ipv4hint", 5: "ech", 6: "ipv6hint",
}

func (r *SVCB) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 2, "SVCB"); err != nil {
		return err
	}
	prio, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	target, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	var params []SVCBParam
	for _, tok := range tokens[2:] {
		kv := strings.SplitN(tok, "=", 2)
		key, ok := svcbParamKey(kv[0])
		if !ok {
			return fmt.Errorf("rr: unknown SVCB parameter %q", kv[0])
		}
		var value []byte
		if len(kv) == 2 {
			value = []byte(kv[1])
		}
		params = append(params, SVCBParam{Key: key, Value: value})
	}
	r.Priority, r.Target, r.Params = prio, target, params
	return nil
}

func svcbParamKey(s string) (uint16, bool) {
	for k, v := range svcbParamNames {
		if v == s {
			return k, true
		}
	}
	if strings.HasPrefix(s, "key") {
		if n, err := strconv.ParseUint(s[3:], 10, 16); err == nil {
			return uint16(n), true
		}
	}
	return 0, false
}

func (r *SVCB) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", r.Priority, r.Target)
	for _, p := range r.Params {
		name := svcbParamNames[p.Key]
		if name == "" {
			name = fmt.Sprintf("key%d", p.Key)
		}
		fmt.Fprintf(&b, " %s=%s", name, string(p.Value))
	}
	return b.String()
}
