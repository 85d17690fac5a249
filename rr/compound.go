package rr

import (
	"fmt"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// MX is the mail exchange record (RFC 1035 section 3.3.9).
type MX struct {
	Preference uint16
	Exchange   name.Name
}

func (r *MX) Type() Type { return TypeMX }

func (r *MX) ParseWire(rd *wire.Reader) error {
	pref, err := rd.ReadU16()
	if err != nil {
		return err
	}
	n, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Preference, r.Exchange = pref, n
	return nil
}

func (r *MX) WriteWire(w *wire.Writer, c *name.Compressor) error {
	w.WriteU16(r.Preference)
	return c.WriteTo(w, r.Exchange)
}

func (r *MX) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 2, "MX"); err != nil {
		return err
	}
	pref, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	n, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	r.Preference, r.Exchange = pref, n
	return nil
}

func (r *MX) String() string {
	return fmt.Sprintf("%d %s", r.Preference, r.Exchange)
}

// SOA is the start-of-authority record (RFC 1035 section 3.3.13).
type SOA struct {
	MName   name.Name
	RName   name.Name
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func (r *SOA) Type() Type { return TypeSOA }

func (r *SOA) ParseWire(rd *wire.Reader) error {
	mname, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	rname, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	fields := make([]uint32, 5)
	for i := range fields {
		v, err := rd.ReadU32()
		if err != nil {
			return err
		}
		fields[i] = v
	}
	r.MName, r.RName = mname, rname
	r.Serial, r.Refresh, r.Retry, r.Expire, r.Minimum = fields[0], fields[1], fields[2], fields[3], fields[4]
	return nil
}

func (r *SOA) WriteWire(w *wire.Writer, c *name.Compressor) error {
	if err := c.WriteTo(w, r.MName); err != nil {
		return err
	}
	if err := c.WriteTo(w, r.RName); err != nil {
		return err
	}
	w.WriteU32(r.Serial)
	w.WriteU32(r.Refresh)
	w.WriteU32(r.Retry)
	w.WriteU32(r.Expire)
	w.WriteU32(r.Minimum)
	return nil
}

func (r *SOA) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 7, "SOA"); err != nil {
		return err
	}
	mname, err := name.Parse(tokens[0], origin)
	if err != nil {
		return err
	}
	rname, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	fields := make([]uint32, 5)
	for i := 0; i < 5; i++ {
		v, err := parseUint32(tokens[2+i])
		if err != nil {
			return err
		}
		fields[i] = v
	}
	r.MName, r.RName = mname, rname
	r.Serial, r.Refresh, r.Retry, r.Expire, r.Minimum = fields[0], fields[1], fields[2], fields[3], fields[4]
	return nil
}

func (r *SOA) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d", r.MName, r.RName, r.Serial, r.Refresh, r.Retry, r.Expire, r.Minimum)
}

// SRV is the service location record (RFC 2782).
type SRV struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   name.Name
}

func (r *SRV) Type() Type { return TypeSRV }

func (r *SRV) ParseWire(rd *wire.Reader) error {
	prio, err := rd.ReadU16()
	if err != nil {
		return err
	}
	weight, err := rd.ReadU16()
	if err != nil {
		return err
	}
	port, err := rd.ReadU16()
	if err != nil {
		return err
	}
	n, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Priority, r.Weight, r.Port, r.Target = prio, weight, port, n
	return nil
}

func (r *SRV) WriteWire(w *wire.Writer, c *name.Compressor) error {
	w.WriteU16(r.Priority)
	w.WriteU16(r.Weight)
	w.WriteU16(r.Port)
	// SRV target names must never be compressed (RFC 2782).
	return name.NewCompressor(false).WriteTo(w, r.Target)
}

func (r *SRV) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 4, "SRV"); err != nil {
		return err
	}
	prio, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	weight, err := parseUint16(tokens[1])
	if err != nil {
		return err
	}
	port, err := parseUint16(tokens[2])
	if err != nil {
		return err
	}
	n, err := name.Parse(tokens[3], origin)
	if err != nil {
		return err
	}
	r.Priority, r.Weight, r.Port, r.Target = prio, weight, port, n
	return nil
}

func (r *SRV) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Priority, r.Weight, r.Port, r.Target)
}

// RP is the responsible person record (RFC 1183 section 2.2).
type RP struct {
	Mailbox    name.Name
	TXTDomain  name.Name
}

func (r *RP) Type() Type { return TypeRP }

func (r *RP) ParseWire(rd *wire.Reader) error {
	mbox, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	txt, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Mailbox, r.TXTDomain = mbox, txt
	return nil
}

func (r *RP) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	nc := name.NewCompressor(false)
	if err := nc.WriteTo(w, r.Mailbox); err != nil {
		return err
	}
	return nc.WriteTo(w, r.TXTDomain)
}

func (r *RP) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 2, "RP"); err != nil {
		return err
	}
	mbox, err := name.Parse(tokens[0], origin)
	if err != nil {
		return err
	}
	txt, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	r.Mailbox, r.TXTDomain = mbox, txt
	return nil
}

func (r *RP) String() string { return fmt.Sprintf("%s %s", r.Mailbox, r.TXTDomain) }

// AFSDB is the AFS database record (RFC 1183 section 1).
type AFSDB struct {
	Subtype  uint16
	Hostname name.Name
}

func (r *AFSDB) Type() Type { return TypeAFSDB }

func (r *AFSDB) ParseWire(rd *wire.Reader) error {
	st, err := rd.ReadU16()
	if err != nil {
		return err
	}
	n, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Subtype, r.Hostname = st, n
	return nil
}

func (r *AFSDB) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.Subtype)
	return name.NewCompressor(false).WriteTo(w, r.Hostname)
}

func (r *AFSDB) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 2, "AFSDB"); err != nil {
		return err
	}
	st, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	n, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	r.Subtype, r.Hostname = st, n
	return nil
}

func (r *AFSDB) String() string { return fmt.Sprintf("%d %s", r.Subtype, r.Hostname) }

// KX is the key exchanger record (RFC 2230).
type KX struct {
	Preference uint16
	Exchanger  name.Name
}

func (r *KX) Type() Type { return TypeKX }

func (r *KX) ParseWire(rd *wire.Reader) error {
	pref, err := rd.ReadU16()
	if err != nil {
		return err
	}
	n, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Preference, r.Exchanger = pref, n
	return nil
}

func (r *KX) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.Preference)
	return name.NewCompressor(false).WriteTo(w, r.Exchanger)
}

func (r *KX) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 2, "KX"); err != nil {
		return err
	}
	pref, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	n, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	r.Preference, r.Exchanger = pref, n
	return nil
}

func (r *KX) String() string { return fmt.Sprintf("%d %s", r.Preference, r.Exchanger) }

// PX is the X.400 mail mapping record (RFC 2163).
type PX struct {
	Preference uint16
	Map822     name.Name
	MapX400    name.Name
}

func (r *PX) Type() Type { return TypePX }

func (r *PX) ParseWire(rd *wire.Reader) error {
	pref, err := rd.ReadU16()
	if err != nil {
		return err
	}
	map822, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	mapX400, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Preference, r.Map822, r.MapX400 = pref, map822, mapX400
	return nil
}

func (r *PX) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.Preference)
	nc := name.NewCompressor(false)
	if err := nc.WriteTo(w, r.Map822); err != nil {
		return err
	}
	return nc.WriteTo(w, r.MapX400)
}

func (r *PX) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 3, "PX"); err != nil {
		return err
	}
	pref, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	map822, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	mapX400, err := name.Parse(tokens[2], origin)
	if err != nil {
		return err
	}
	r.Preference, r.Map822, r.MapX400 = pref, map822, mapX400
	return nil
}

func (r *PX) String() string {
	return fmt.Sprintf("%d %s %s", r.Preference, r.Map822, r.MapX400)
}

// RT is the route-through record (RFC 1183 section 3.3).
type RT struct {
	Preference        uint16
	IntermediateHost  name.Name
}

func (r *RT) Type() Type { return TypeRT }

func (r *RT) ParseWire(rd *wire.Reader) error {
	pref, err := rd.ReadU16()
	if err != nil {
		return err
	}
	n, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Preference, r.IntermediateHost = pref, n
	return nil
}

func (r *RT) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.Preference)
	return name.NewCompressor(false).WriteTo(w, r.IntermediateHost)
}

func (r *RT) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 2, "RT"); err != nil {
		return err
	}
	pref, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	n, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	r.Preference, r.IntermediateHost = pref, n
	return nil
}

func (r *RT) String() string { return fmt.Sprintf("%d %s", r.Preference, r.IntermediateHost) }

// MINFO is the mailbox/mail-list information record (RFC 1035 section 3.3.7).
type MINFO struct {
	RMailbx name.Name
	EMailbx name.Name
}

func (r *MINFO) Type() Type { return TypeMINFO }

func (r *MINFO) ParseWire(rd *wire.Reader) error {
	rm, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	em, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.RMailbx, r.EMailbx = rm, em
	return nil
}

func (r *MINFO) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	nc := name.NewCompressor(false)
	if err := nc.WriteTo(w, r.RMailbx); err != nil {
		return err
	}
	return nc.WriteTo(w, r.EMailbx)
}

func (r *MINFO) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 2, "MINFO"); err != nil {
		return err
	}
	rm, err := name.Parse(tokens[0], origin)
	if err != nil {
		return err
	}
	em, err := name.Parse(tokens[1], origin)
	if err != nil {
		return err
	}
	r.RMailbx, r.EMailbx = rm, em
	return nil
}

func (r *MINFO) String() string { return fmt.Sprintf("%s %s", r.RMailbx, r.EMailbx) }

// NAPTR is the naming authority pointer record (RFC 3403).
type NAPTR struct {
	Order       uint16
	Preference  uint16
	Flags       string
	Services    string
	Regexp      string
	Replacement name.Name
}

func (r *NAPTR) Type() Type { return TypeNAPTR }

func (r *NAPTR) ParseWire(rd *wire.Reader) error {
	order, err := rd.ReadU16()
	if err != nil {
		return err
	}
	pref, err := rd.ReadU16()
	if err != nil {
		return err
	}
	flags, err := rd.ReadCountedString()
	if err != nil {
		return err
	}
	svc, err := rd.ReadCountedString()
	if err != nil {
		return err
	}
	rex, err := rd.ReadCountedString()
	if err != nil {
		return err
	}
	repl, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Order, r.Preference = order, pref
	r.Flags, r.Services, r.Regexp = string(flags), string(svc), string(rex)
	r.Replacement = repl
	return nil
}

func (r *NAPTR) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.Order)
	w.WriteU16(r.Preference)
	if err := w.WriteCountedString([]byte(r.Flags)); err != nil {
		return err
	}
	if err := w.WriteCountedString([]byte(r.Services)); err != nil {
		return err
	}
	if err := w.WriteCountedString([]byte(r.Regexp)); err != nil {
		return err
	}
	return name.NewCompressor(false).WriteTo(w, r.Replacement)
}

func (r *NAPTR) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 6, "NAPTR"); err != nil {
		return err
	}
	order, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	pref, err := parseUint16(tokens[1])
	if err != nil {
		return err
	}
	repl, err := name.Parse(tokens[5], origin)
	if err != nil {
		return err
	}
	r.Order, r.Preference = order, pref
	r.Flags = unquote(tokens[2])
	r.Services = unquote(tokens[3])
	r.Regexp = unquote(tokens[4])
	r.Replacement = repl
	return nil
}

func (r *NAPTR) String() string {
	return fmt.Sprintf("%d %d %q %q %q %s", r.Order, r.Preference, r.Flags, r.Services, r.Regexp, r.Replacement)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// HINFO is the host information record (RFC 1035 section 3.3.2).
type HINFO struct {
	CPU string
	OS  string
}

func (r *HINFO) Type() Type { return TypeHINFO }

func (r *HINFO) ParseWire(rd *wire.Reader) error {
	cpu, err := rd.ReadCountedString()
	if err != nil {
		return err
	}
	os, err := rd.ReadCountedString()
	if err != nil {
		return err
	}
	r.CPU, r.OS = string(cpu), string(os)
	return nil
}

func (r *HINFO) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	if err := w.WriteCountedString([]byte(r.CPU)); err != nil {
		return err
	}
	return w.WriteCountedString([]byte(r.OS))
}

func (r *HINFO) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 2, "HINFO"); err != nil {
		return err
	}
	r.CPU = unquote(tokens[0])
	r.OS = unquote(tokens[1])
	return nil
}

func (r *HINFO) String() string { return fmt.Sprintf("%q %q", r.CPU, r.OS) }
