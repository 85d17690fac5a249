package rr

import (
	"strings"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// TXT is a sequence of character-strings (RFC 1035 section 3.3.14).
// SPF (RFC 4408) reuses this exact wire shape.
type TXT struct {
	RRType Type
	Values [][]byte
}

func (r *TXT) Type() Type {
	if r.RRType == 0 {
		return TypeTXT
	}
	return r.RRType
}

func (r *TXT) ParseWire(rd *wire.Reader) error {
	r.Values = nil
	for rd.Len() > 0 {
		s, err := rd.ReadCountedString()
		if err != nil {
			return err
		}
		r.Values = append(r.Values, s)
	}
	return nil
}

func (r *TXT) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	for _, v := range r.Values {
		if err := w.WriteCountedString(v); err != nil {
			return err
		}
	}
	return nil
}

func (r *TXT) ParseText(tokens []string, _ name.Name) error {
	if len(tokens) == 0 {
		return wantTokens(tokens, 1, "TXT")
	}
	r.Values = nil
	for _, t := range tokens {
		r.Values = append(r.Values, []byte(unquote(t)))
	}
	return nil
}

func (r *TXT) String() string {
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = quoteTXT(v)
	}
	return strings.Join(parts, " ")
}

func quoteTXT(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// Binary is an opaque byte payload used by types whose RDATA is not
// otherwise structured for this catalog's purposes (NULL, DHCID,
// OPENPGPKEY): the wire form is the raw bytes, and the text form is
// base64, per their respective RFCs.
type Binary struct {
	RRType Type
	Data   []byte
}

func (r *Binary) Type() Type { return r.RRType }

func (r *Binary) ParseWire(rd *wire.Reader) error {
	b, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.Data = b
	return nil
}

func (r *Binary) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteBytes(r.Data)
	return nil
}

func (r *Binary) ParseText(tokens []string, _ name.Name) error {
	b, err := decodeBase64(strings.Join(tokens, ""))
	if err != nil {
		return err
	}
	r.Data = b
	return nil
}

func (r *Binary) String() string { return encodeBase64(r.Data) }

// CERT is the certificate record (RFC 4398).
type CERT struct {
	CertType uint16
	KeyTag   uint16
	Algorithm uint8
	Cert     []byte
}

func (r *CERT) Type() Type { return TypeCERT }

func (r *CERT) ParseWire(rd *wire.Reader) error {
	ct, err := rd.ReadU16()
	if err != nil {
		return err
	}
	tag, err := rd.ReadU16()
	if err != nil {
		return err
	}
	alg, err := rd.ReadU8()
	if err != nil {
		return err
	}
	cert, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.CertType, r.KeyTag, r.Algorithm, r.Cert = ct, tag, alg, cert
	return nil
}

func (r *CERT) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.CertType)
	w.WriteU16(r.KeyTag)
	w.WriteU8(r.Algorithm)
	w.WriteBytes(r.Cert)
	return nil
}

func (r *CERT) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 4, "CERT"); err != nil {
		return err
	}
	ct, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	tag, err := parseUint16(tokens[1])
	if err != nil {
		return err
	}
	alg, err := parseUint8(tokens[2])
	if err != nil {
		return err
	}
	cert, err := decodeBase64(strings.Join(tokens[3:], ""))
	if err != nil {
		return err
	}
	r.CertType, r.KeyTag, r.Algorithm, r.Cert = ct, tag, alg, cert
	return nil
}

func (r *CERT) String() string {
	return itoa(r.CertType) + " " + itoa(r.KeyTag) + " " + itoa(uint16(r.Algorithm)) + " " + encodeBase64(r.Cert)
}
