// Package message implements the DNS message codec: the 12-byte header,
// the question section, the three record sections, and the OPT
// pseudo-record surfaced as EDNS rather than as an ordinary record.
package message

import (
	"errors"
	"fmt"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
	"github.com/semihalev/resolve/wire"
)

// Opcode is the DNS operation code (header bits 11-14).
type Opcode uint8

// Well-known opcodes.
const (
	OpcodeQuery  Opcode = 0
	OpcodeIQuery Opcode = 1
	OpcodeStatus Opcode = 2
	OpcodeNotify Opcode = 4
	OpcodeUpdate Opcode = 5
)

// Rcode is a response code, possibly extended by the OPT record's
// upper 8 bits (RFC 6891 section 6.1.3).
type Rcode uint16

// Well-known response codes.
const (
	RcodeSuccess        Rcode = 0
	RcodeFormatError    Rcode = 1
	RcodeServerFailure  Rcode = 2
	RcodeNameError      Rcode = 3 // NXDOMAIN
	RcodeNotImplemented Rcode = 4
	RcodeRefused        Rcode = 5
	RcodeYXDomain       Rcode = 6
	RcodeYXRRSet        Rcode = 7
	RcodeNXRRSet        Rcode = 8
	RcodeNotAuth        Rcode = 9
	RcodeNotZone        Rcode = 10
	RcodeBadVers        Rcode = 16
)

func (c Rcode) String() string {
	switch c {
	case RcodeSuccess:
		return "NOERROR"
	case RcodeFormatError:
		return "FORMERR"
	case RcodeServerFailure:
		return "SERVFAIL"
	case RcodeNameError:
		return "NXDOMAIN"
	case RcodeNotImplemented:
		return "NOTIMP"
	case RcodeRefused:
		return "REFUSED"
	case RcodeYXDomain:
		return "YXDOMAIN"
	case RcodeYXRRSet:
		return "YXRRSET"
	case RcodeNXRRSet:
		return "NXRRSET"
	case RcodeNotAuth:
		return "NOTAUTH"
	case RcodeNotZone:
		return "NOTZONE"
	case RcodeBadVers:
		return "BADVERS"
	default:
		return fmt.Sprintf("RCODE%d", uint16(c))
	}
}

var (
	// ErrTooManyQuestions is returned when the header announces more
	// than one question, which this codec never produces and refuses
	// to decode.
	ErrTooManyQuestions = errors.New("message: question section has more than one entry")
	// ErrTrailingData is returned when bytes remain after every
	// announced section has been consumed.
	ErrTrailingData = errors.New("message: trailing bytes after message")
	// ErrRDATALength is returned when a record's codec did not consume
	// exactly its announced RDLENGTH.
	ErrRDATALength = errors.New("message: RDATA did not consume its declared length")
	// ErrOPTData is returned when an OPT record's RDATA did not decode
	// to the OPT pseudo-record layout.
	ErrOPTData = errors.New("message: OPT record has non-OPT RDATA")
)

// Question is the single entry of the question section.
type Question struct {
	Name  name.Name
	Type  rr.Type
	Class rr.Class
}

// Record is one resource record: an owner name, its type/class/TTL, and
// its decoded RDATA.
type Record struct {
	Name  name.Name
	Type  rr.Type
	Class rr.Class
	TTL   uint32
	Data  rr.Data
}

// EDNS carries the fields of the OPT pseudo-record (RFC 6891), exposed
// as a distinct field rather than folded into the additional section.
type EDNS struct {
	UDPSize       uint16
	ExtendedRcode uint8
	Version       uint8
	DNSSECOK      bool
	Options       []rr.OPTOption
}

// Message is a decoded DNS message.
type Message struct {
	ID                 uint16
	Response           bool
	Opcode             Opcode
	Authoritative      bool
	Truncated          bool
	RecursionDesired   bool
	RecursionAvailable bool
	AuthenticData      bool
	CheckingDisabled   bool
	Rcode              Rcode

	Question *Question

	Answer     []Record
	Authority  []Record
	Additional []Record

	EDNS *EDNS
}

// NewQuery builds an outgoing question message with the RD bit set.
func NewQuery(id uint16, n name.Name, t rr.Type, c rr.Class) *Message {
	return &Message{
		ID:               id,
		RecursionDesired: true,
		Question:         &Question{Name: n, Type: t, Class: c},
	}
}

func decodeFlags(v uint16) (resp bool, op Opcode, aa, tc, rd, ra, ad, cd bool, rcodeLow uint16) {
	resp = v&0x8000 != 0
	op = Opcode((v >> 11) & 0xF)
	aa = v&0x0400 != 0
	tc = v&0x0200 != 0
	rd = v&0x0100 != 0
	ra = v&0x0080 != 0
	ad = v&0x0020 != 0
	cd = v&0x0010 != 0
	rcodeLow = v & 0xF
	return
}

func encodeFlags(m *Message, rcodeLow uint16) uint16 {
	var v uint16
	if m.Response {
		v |= 0x8000
	}
	v |= uint16(m.Opcode&0xF) << 11
	if m.Authoritative {
		v |= 0x0400
	}
	if m.Truncated {
		v |= 0x0200
	}
	if m.RecursionDesired {
		v |= 0x0100
	}
	if m.RecursionAvailable {
		v |= 0x0080
	}
	if m.AuthenticData {
		v |= 0x0020
	}
	if m.CheckingDisabled {
		v |= 0x0010
	}
	v |= rcodeLow & 0xF
	return v
}

// Parse decodes buf into a Message, resolving RDATA codecs through reg
// (rr.Default() if nil). Any section whose announced count does not
// match what can actually be read, or any record whose RDATA does not
// exactly fill its RDLENGTH, is a decode failure.
func Parse(buf []byte, reg *rr.Registry) (*Message, error) {
	if reg == nil {
		reg = rr.Default()
	}
	r := wire.NewReader(buf)

	id, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	flagsWord, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	qdcount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	ancount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	nscount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	arcount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	resp, op, aa, tc, rd, ra, ad, cd, rcodeLow := decodeFlags(flagsWord)
	m := &Message{
		ID: id, Response: resp, Opcode: op, Authoritative: aa, Truncated: tc,
		RecursionDesired: rd, RecursionAvailable: ra, AuthenticData: ad, CheckingDisabled: cd,
	}

	if qdcount > 1 {
		return nil, ErrTooManyQuestions
	}
	if qdcount == 1 {
		qn, err := name.ReadFrom(r)
		if err != nil {
			return nil, err
		}
		qt, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		qc, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		m.Question = &Question{Name: qn, Type: rr.Type(qt), Class: rr.Class(qc)}
	}

	answer, err := parseSection(r, reg, int(ancount))
	if err != nil {
		return nil, err
	}
	authority, err := parseSection(r, reg, int(nscount))
	if err != nil {
		return nil, err
	}
	additional, err := parseSection(r, reg, int(arcount))
	if err != nil {
		return nil, err
	}

	var edns *EDNS
	kept := additional[:0]
	for _, rec := range additional {
		if rec.Type != rr.TypeOPT {
			kept = append(kept, rec)
			continue
		}
		od, ok := rec.Data.(*rr.OPTData)
		if !ok {
			return nil, ErrOPTData
		}
		edns = &EDNS{
			UDPSize:       uint16(rec.Class),
			ExtendedRcode: uint8(rec.TTL >> 24),
			Version:       uint8(rec.TTL >> 16),
			DNSSECOK:      rec.TTL&0x8000 != 0,
			Options:       od.Options,
		}
	}

	m.Answer, m.Authority, m.Additional = answer, authority, kept
	m.EDNS = edns
	if edns != nil {
		m.Rcode = Rcode(uint16(edns.ExtendedRcode)<<4 | rcodeLow)
	} else {
		m.Rcode = Rcode(rcodeLow)
	}

	if r.Len() != 0 {
		return nil, ErrTrailingData
	}
	return m, nil
}

func parseSection(r *wire.Reader, reg *rr.Registry, count int) ([]Record, error) {
	if count == 0 {
		return nil, nil
	}
	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		rec, err := parseRecord(r, reg)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(r *wire.Reader, reg *rr.Registry) (Record, error) {
	n, err := name.ReadFrom(r)
	if err != nil {
		return Record{}, err
	}
	typ, err := r.ReadU16()
	if err != nil {
		return Record{}, err
	}
	class, err := r.ReadU16()
	if err != nil {
		return Record{}, err
	}
	ttl, err := r.ReadU32()
	if err != nil {
		return Record{}, err
	}
	rdlen, err := r.ReadU16()
	if err != nil {
		return Record{}, err
	}

	restore, err := r.Restrict(int(rdlen))
	if err != nil {
		return Record{}, err
	}
	defer restore()

	data := reg.New(rr.Type(typ))
	if err := data.ParseWire(r); err != nil {
		return Record{}, err
	}
	if r.Len() != 0 {
		return Record{}, ErrRDATALength
	}

	return Record{Name: n, Type: rr.Type(typ), Class: rr.Class(class), TTL: ttl, Data: data}, nil
}

// Encode serializes m to wire format. Name compression across the whole
// message is applied when compress is true.
func (m *Message) Encode(compress bool) ([]byte, error) {
	w := wire.NewWriter(512)
	c := name.NewCompressor(compress)

	w.WriteU16(m.ID)

	rcodeLow := uint16(m.Rcode) & 0xF
	extRcode := uint8(uint16(m.Rcode) >> 4)
	w.WriteU16(encodeFlags(m, rcodeLow))

	var qdcount uint16
	if m.Question != nil {
		qdcount = 1
	}
	w.WriteU16(qdcount)
	w.WriteU16(uint16(len(m.Answer)))
	w.WriteU16(uint16(len(m.Authority)))

	arcount := len(m.Additional)
	if m.EDNS != nil {
		arcount++
	}
	w.WriteU16(uint16(arcount))

	if m.Question != nil {
		if err := c.WriteTo(w, m.Question.Name); err != nil {
			return nil, err
		}
		w.WriteU16(uint16(m.Question.Type))
		w.WriteU16(uint16(m.Question.Class))
	}

	for _, rec := range m.Answer {
		if err := writeRecord(w, c, rec); err != nil {
			return nil, err
		}
	}
	for _, rec := range m.Authority {
		if err := writeRecord(w, c, rec); err != nil {
			return nil, err
		}
	}
	for _, rec := range m.Additional {
		if err := writeRecord(w, c, rec); err != nil {
			return nil, err
		}
	}
	if m.EDNS != nil {
		if err := writeOPT(w, c, m.EDNS, extRcode); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

func writeRecord(w *wire.Writer, c *name.Compressor, rec Record) error {
	if err := c.WriteTo(w, rec.Name); err != nil {
		return err
	}
	w.WriteU16(uint16(rec.Type))
	w.WriteU16(uint16(rec.Class))
	w.WriteU32(rec.TTL)

	rdlenPos := w.Len()
	w.WriteU16(0)
	dataStart := w.Len()
	if err := rec.Data.WriteWire(w, c); err != nil {
		return err
	}
	w.PatchU16(rdlenPos, uint16(w.Len()-dataStart))
	return nil
}

func writeOPT(w *wire.Writer, c *name.Compressor, e *EDNS, extRcode uint8) error {
	if err := c.WriteTo(w, name.Root); err != nil {
		return err
	}
	w.WriteU16(uint16(rr.TypeOPT))
	w.WriteU16(e.UDPSize)

	ttl := uint32(extRcode)<<24 | uint32(e.Version)<<16
	if e.DNSSECOK {
		ttl |= 0x8000
	}
	w.WriteU32(ttl)

	rdlenPos := w.Len()
	w.WriteU16(0)
	dataStart := w.Len()
	od := &rr.OPTData{Options: e.Options}
	if err := od.WriteWire(w, c); err != nil {
		return err
	}
	w.PatchU16(rdlenPos, uint16(w.Len()-dataStart))
	return nil
}
