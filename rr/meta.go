package rr

import (
	"fmt"
	"strings"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// OPTOption is one EDNS0 option (RFC 6891 section 6.1.2).
type OPTOption struct {
	Code uint16
	Data []byte
}

// OPTData is the RDATA of the OPT pseudo-record: a sequence of
// options. The surrounding OPT record's class/TTL fields carry the
// UDP payload size, extended RCODE, version, and flags; the message
// codec (C4) interprets those, not this catalog.
type OPTData struct {
	Options []OPTOption
}

func (r *OPTData) Type() Type { return TypeOPT }

func (r *OPTData) ParseWire(rd *wire.Reader) error {
	var opts []OPTOption
	for rd.Len() > 0 {
		code, err := rd.ReadU16()
		if err != nil {
			return err
		}
		length, err := rd.ReadU16()
		if err != nil {
			return err
		}
		data, err := rd.ReadByteArray(int(length))
		if err != nil {
			return err
		}
		opts = append(opts, OPTOption{Code: code, Data: data})
	}
	r.Options = opts
	return nil
}

func (r *OPTData) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	for _, o := range r.Options {
		w.WriteU16(o.Code)
		w.WriteU16(uint16(len(o.Data)))
		w.WriteBytes(o.Data)
	}
	return nil
}

func (r *OPTData) ParseText(_ []string, _ name.Name) error {
	return fmt.Errorf("rr: OPT pseudo-records have no presentation form")
}

func (r *OPTData) String() string {
	parts := make([]string, len(r.Options))
	for i, o := range r.Options {
		parts[i] = fmt.Sprintf("%d:%s", o.Code, encodeHex(o.Data))
	}
	return strings.Join(parts, " ")
}

// TSIG is the transaction signature meta-record (RFC 8945 section 4.2).
// Verifying the MAC is out of scope here; the codec only round-trips
// the wire fields.
type TSIG struct {
	Algorithm  name.Name
	TimeSigned uint64 // 48-bit
	Fudge      uint16
	MAC        []byte
	OriginalID uint16
	Error      uint16
	OtherData  []byte
}

func (r *TSIG) Type() Type { return TypeTSIG }

func (r *TSIG) ParseWire(rd *wire.Reader) error {
	alg, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	hi, err := rd.ReadU16()
	if err != nil {
		return err
	}
	lo, err := rd.ReadU32()
	if err != nil {
		return err
	}
	fudge, err := rd.ReadU16()
	if err != nil {
		return err
	}
	macLen, err := rd.ReadU16()
	if err != nil {
		return err
	}
	mac, err := rd.ReadByteArray(int(macLen))
	if err != nil {
		return err
	}
	origID, err := rd.ReadU16()
	if err != nil {
		return err
	}
	errCode, err := rd.ReadU16()
	if err != nil {
		return err
	}
	otherLen, err := rd.ReadU16()
	if err != nil {
		return err
	}
	other, err := rd.ReadByteArray(int(otherLen))
	if err != nil {
		return err
	}
	r.Algorithm = alg
	r.TimeSigned = uint64(hi)<<32 | uint64(lo)
	r.Fudge, r.MAC, r.OriginalID, r.Error, r.OtherData = fudge, mac, origID, errCode, other
	return nil
}

func (r *TSIG) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	if err := name.NewCompressor(false).WriteTo(w, r.Algorithm); err != nil {
		return err
	}
	w.WriteU16(uint16(r.TimeSigned >> 32))
	w.WriteU32(uint32(r.TimeSigned))
	w.WriteU16(r.Fudge)
	w.WriteU16(uint16(len(r.MAC)))
	w.WriteBytes(r.MAC)
	w.WriteU16(r.OriginalID)
	w.WriteU16(r.Error)
	w.WriteU16(uint16(len(r.OtherData)))
	w.WriteBytes(r.OtherData)
	return nil
}

func (r *TSIG) ParseText(_ []string, _ name.Name) error {
	return fmt.Errorf("rr: TSIG has no presentation form")
}

func (r *TSIG) String() string {
	return fmt.Sprintf("%s %d %d %s", r.Algorithm, r.TimeSigned, r.Fudge, encodeBase64(r.MAC))
}

// TKEY is the transaction key meta-record (RFC 2930).
type TKEY struct {
	Algorithm  name.Name
	Inception  uint32
	Expiration uint32
	Mode       uint16
	Error      uint16
	Key        []byte
	OtherData  []byte
}

func (r *TKEY) Type() Type { return TypeTKEY }

func (r *TKEY) ParseWire(rd *wire.Reader) error {
	alg, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	inc, err := rd.ReadU32()
	if err != nil {
		return err
	}
	exp, err := rd.ReadU32()
	if err != nil {
		return err
	}
	mode, err := rd.ReadU16()
	if err != nil {
		return err
	}
	errCode, err := rd.ReadU16()
	if err != nil {
		return err
	}
	keyLen, err := rd.ReadU16()
	if err != nil {
		return err
	}
	key, err := rd.ReadByteArray(int(keyLen))
	if err != nil {
		return err
	}
	otherLen, err := rd.ReadU16()
	if err != nil {
		return err
	}
	other, err := rd.ReadByteArray(int(otherLen))
	if err != nil {
		return err
	}
	r.Algorithm, r.Inception, r.Expiration = alg, inc, exp
	r.Mode, r.Error, r.Key, r.OtherData = mode, errCode, key, other
	return nil
}

func (r *TKEY) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	if err := name.NewCompressor(false).WriteTo(w, r.Algorithm); err != nil {
		return err
	}
	w.WriteU32(r.Inception)
	w.WriteU32(r.Expiration)
	w.WriteU16(r.Mode)
	w.WriteU16(r.Error)
	w.WriteU16(uint16(len(r.Key)))
	w.WriteBytes(r.Key)
	w.WriteU16(uint16(len(r.OtherData)))
	w.WriteBytes(r.OtherData)
	return nil
}

func (r *TKEY) ParseText(_ []string, _ name.Name) error {
	return fmt.Errorf("rr: TKEY has no presentation form")
}

func (r *TKEY) String() string {
	return fmt.Sprintf("%s %d %d %d %d", r.Algorithm, r.Inception, r.Expiration, r.Mode, r.Error)
}
