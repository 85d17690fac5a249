package rr

import (
	"fmt"
	"strings"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// SIGBase is the shared layout of SIG (RFC 2535) and RRSIG (RFC 4034
// section 3): a signature over an RRset, giving the covered type,
// algorithm, validity window, key tag, signer, and signature bytes.
// Validating the signature is out of scope for this catalog.
type SIGBase struct {
	RRType      Type
	TypeCovered Type
	Algorithm   uint8
	Labels      uint8
	OrigTTL     uint32
	Expiration  uint32 // POSIX seconds
	Inception   uint32 // POSIX seconds
	KeyTag      uint16
	Signer      name.Name
	Signature   []byte
}

func (r *SIGBase) Type() Type { return r.RRType }

func (r *SIGBase) ParseWire(rd *wire.Reader) error {
	covered, err := rd.ReadU16()
	if err != nil {
		return err
	}
	alg, err := rd.ReadU8()
	if err != nil {
		return err
	}
	labels, err := rd.ReadU8()
	if err != nil {
		return err
	}
	origTTL, err := rd.ReadU32()
	if err != nil {
		return err
	}
	exp, err := rd.ReadU32()
	if err != nil {
		return err
	}
	inc, err := rd.ReadU32()
	if err != nil {
		return err
	}
	tag, err := rd.ReadU16()
	if err != nil {
		return err
	}
	signer, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	sig, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.TypeCovered = Type(covered)
	r.Algorithm, r.Labels = alg, labels
	r.OrigTTL, r.Expiration, r.Inception = origTTL, exp, inc
	r.KeyTag, r.Signer, r.Signature = tag, signer, sig
	return nil
}

func (r *SIGBase) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(uint16(r.TypeCovered))
	w.WriteU8(r.Algorithm)
	w.WriteU8(r.Labels)
	w.WriteU32(r.OrigTTL)
	w.WriteU32(r.Expiration)
	w.WriteU32(r.Inception)
	w.WriteU16(r.KeyTag)
	// RFC 3597: names in RRSIG RDATA are never compressed.
	if err := name.NewCompressor(false).WriteTo(w, r.Signer); err != nil {
		return err
	}
	w.WriteBytes(r.Signature)
	return nil
}

func (r *SIGBase) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 9, "RRSIG"); err != nil {
		return err
	}
	covered, ok := ParseType(tokens[0])
	if !ok {
		return fmt.Errorf("rr: unknown covered type %q", tokens[0])
	}
	alg, err := parseUint8(tokens[1])
	if err != nil {
		return err
	}
	labels, err := parseUint8(tokens[2])
	if err != nil {
		return err
	}
	origTTL, err := parseUint32(tokens[3])
	if err != nil {
		return err
	}
	exp, err := parseUint32(tokens[4])
	if err != nil {
		return err
	}
	inc, err := parseUint32(tokens[5])
	if err != nil {
		return err
	}
	tag, err := parseUint16(tokens[6])
	if err != nil {
		return err
	}
	signer, err := name.Parse(tokens[7], origin)
	if err != nil {
		return err
	}
	sig, err := decodeBase64(strings.Join(tokens[8:], ""))
	if err != nil {
		return err
	}
	r.TypeCovered, r.Algorithm, r.Labels = covered, alg, labels
	r.OrigTTL, r.Expiration, r.Inception, r.KeyTag = origTTL, exp, inc, tag
	r.Signer, r.Signature = signer, sig
	return nil
}

func (r *SIGBase) String() string {
	return fmt.Sprintf("%s %d %d %d %d %d %d %s %s",
		r.TypeCovered, r.Algorithm, r.Labels, r.OrigTTL,
		r.Expiration, r.Inception, r.KeyTag, r.Signer, encodeBase64(r.Signature))
}

// DNSKEY covers DNSKEY (RFC 4034 section 2), CDNSKEY (RFC 7344), and
// the older KEY (RFC 2535) record, which share this wire shape.
type DNSKEY struct {
	RRType    Type
	Flags     uint16
	Protocol  uint8
	Algorithm uint8
	PublicKey []byte
}

func (r *DNSKEY) Type() Type { return r.RRType }

func (r *DNSKEY) ParseWire(rd *wire.Reader) error {
	flags, err := rd.ReadU16()
	if err != nil {
		return err
	}
	proto, err := rd.ReadU8()
	if err != nil {
		return err
	}
	alg, err := rd.ReadU8()
	if err != nil {
		return err
	}
	key, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.Flags, r.Protocol, r.Algorithm, r.PublicKey = flags, proto, alg, key
	return nil
}

func (r *DNSKEY) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.Flags)
	w.WriteU8(r.Protocol)
	w.WriteU8(r.Algorithm)
	w.WriteBytes(r.PublicKey)
	return nil
}

func (r *DNSKEY) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 4, "DNSKEY"); err != nil {
		return err
	}
	flags, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	proto, err := parseUint8(tokens[1])
	if err != nil {
		return err
	}
	alg, err := parseUint8(tokens[2])
	if err != nil {
		return err
	}
	key, err := decodeBase64(strings.Join(tokens[3:], ""))
	if err != nil {
		return err
	}
	r.Flags, r.Protocol, r.Algorithm, r.PublicKey = flags, proto, alg, key
	return nil
}

func (r *DNSKEY) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Flags, r.Protocol, r.Algorithm, encodeBase64(r.PublicKey))
}

// KeyTag computes the DNSKEY footprint per RFC 4034 Appendix B: the
// checksum over the RDATA for every algorithm except 1 (the obsolete
// RSA/MD5), which uses the Appendix B.1 rule instead.
func (r *DNSKEY) KeyTag() uint16 {
	if r.Algorithm == 1 {
		if len(r.PublicKey) < 2 {
			return 0
		}
		return uint16(r.PublicKey[len(r.PublicKey)-3])<<8 | uint16(r.PublicKey[len(r.PublicKey)-2])
	}

	w := wire.NewWriter(4 + len(r.PublicKey))
	w.WriteU16(r.Flags)
	w.WriteU8(r.Protocol)
	w.WriteU8(r.Algorithm)
	w.WriteBytes(r.PublicKey)
	rdata := w.Bytes()

	var ac uint32
	for i, b := range rdata {
		if i&1 == 0 {
			ac += uint32(b) << 8
		} else {
			ac += uint32(b)
		}
	}
	ac += ac >> 16 & 0xFFFF
	return uint16(ac & 0xFFFF)
}

// DS covers DS (RFC 4034 section 5), CDS (RFC 7344), and DLV (RFC
// 4431), all a delegation-signer digest over a child DNSKEY.
type DS struct {
	RRType     Type
	KeyTag     uint16
	Algorithm  uint8
	DigestType uint8
	Digest     []byte
}

func (r *DS) Type() Type { return r.RRType }

func (r *DS) ParseWire(rd *wire.Reader) error {
	tag, err := rd.ReadU16()
	if err != nil {
		return err
	}
	alg, err := rd.ReadU8()
	if err != nil {
		return err
	}
	dt, err := rd.ReadU8()
	if err != nil {
		return err
	}
	digest, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.KeyTag, r.Algorithm, r.DigestType, r.Digest = tag, alg, dt, digest
	return nil
}

func (r *DS) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU16(r.KeyTag)
	w.WriteU8(r.Algorithm)
	w.WriteU8(r.DigestType)
	w.WriteBytes(r.Digest)
	return nil
}

func (r *DS) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 4, "DS"); err != nil {
		return err
	}
	tag, err := parseUint16(tokens[0])
	if err != nil {
		return err
	}
	alg, err := parseUint8(tokens[1])
	if err != nil {
		return err
	}
	dt, err := parseUint8(tokens[2])
	if err != nil {
		return err
	}
	digest, err := decodeHex(strings.Join(tokens[3:], ""))
	if err != nil {
		return err
	}
	r.KeyTag, r.Algorithm, r.DigestType, r.Digest = tag, alg, dt, digest
	return nil
}

func (r *DS) String() string {
	return fmt.Sprintf("%d %d %d %s", r.KeyTag, r.Algorithm, r.DigestType, encodeHex(r.Digest))
}

// SSHFP is the SSH fingerprint record (RFC 4255).
type SSHFP struct {
	Algorithm   uint8
	FPType      uint8
	Fingerprint []byte
}

func (r *SSHFP) Type() Type { return TypeSSHFP }

func (r *SSHFP) ParseWire(rd *wire.Reader) error {
	alg, err := rd.ReadU8()
	if err != nil {
		return err
	}
	ft, err := rd.ReadU8()
	if err != nil {
		return err
	}
	fp, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.Algorithm, r.FPType, r.Fingerprint = alg, ft, fp
	return nil
}

func (r *SSHFP) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU8(r.Algorithm)
	w.WriteU8(r.FPType)
	w.WriteBytes(r.Fingerprint)
	return nil
}

func (r *SSHFP) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 3, "SSHFP"); err != nil {
		return err
	}
	alg, err := parseUint8(tokens[0])
	if err != nil {
		return err
	}
	ft, err := parseUint8(tokens[1])
	if err != nil {
		return err
	}
	fp, err := decodeHex(strings.Join(tokens[2:], ""))
	if err != nil {
		return err
	}
	r.Algorithm, r.FPType, r.Fingerprint = alg, ft, fp
	return nil
}

func (r *SSHFP) String() string {
	return fmt.Sprintf("%d %d %s", r.Algorithm, r.FPType, encodeHex(r.Fingerprint))
}

// TLSA covers TLSA (RFC 6698) and SMIMEA (RFC 8162), which share this
// certificate-association wire shape.
type TLSA struct {
	RRType       Type
	Usage        uint8
	Selector     uint8
	MatchingType uint8
	Data         []byte
}

func (r *TLSA) Type() Type { return r.RRType }

func (r *TLSA) ParseWire(rd *wire.Reader) error {
	usage, err := rd.ReadU8()
	if err != nil {
		return err
	}
	sel, err := rd.ReadU8()
	if err != nil {
		return err
	}
	mt, err := rd.ReadU8()
	if err != nil {
		return err
	}
	data, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.Usage, r.Selector, r.MatchingType, r.Data = usage, sel, mt, data
	return nil
}

func (r *TLSA) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU8(r.Usage)
	w.WriteU8(r.Selector)
	w.WriteU8(r.MatchingType)
	w.WriteBytes(r.Data)
	return nil
}

func (r *TLSA) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 4, "TLSA"); err != nil {
		return err
	}
	usage, err := parseUint8(tokens[0])
	if err != nil {
		return err
	}
	sel, err := parseUint8(tokens[1])
	if err != nil {
		return err
	}
	mt, err := parseUint8(tokens[2])
	if err != nil {
		return err
	}
	data, err := decodeHex(strings.Join(tokens[3:], ""))
	if err != nil {
		return err
	}
	r.Usage, r.Selector, r.MatchingType, r.Data = usage, sel, mt, data
	return nil
}

func (r *TLSA) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Usage, r.Selector, r.MatchingType, encodeHex(r.Data))
}

// NSEC is the authenticated denial-of-existence record (RFC 4034
// section 4). The type bitmap is kept opaque here (raw bytes); this
// catalog does not interpret it beyond round-tripping.
type NSEC struct {
	NextDomain name.Name
	TypeBitmap []byte
}

func (r *NSEC) Type() Type { return TypeNSEC }

func (r *NSEC) ParseWire(rd *wire.Reader) error {
	n, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	bm, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.NextDomain, r.TypeBitmap = n, bm
	return nil
}

func (r *NSEC) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	if err := name.NewCompressor(false).WriteTo(w, r.NextDomain); err != nil {
		return err
	}
	w.WriteBytes(r.TypeBitmap)
	return nil
}

func (r *NSEC) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 1, "NSEC"); err != nil {
		return err
	}
	n, err := name.Parse(tokens[0], origin)
	if err != nil {
		return err
	}
	r.NextDomain = n
	r.TypeBitmap = encodeTypeBitmap(tokens[1:])
	return nil
}

func (r *NSEC) String() string {
	return fmt.Sprintf("%s %s", r.NextDomain, decodeTypeBitmap(r.TypeBitmap))
}

// NSEC3 is the hashed denial-of-existence record (RFC 5155 section 3).
type NSEC3 struct {
	HashAlgorithm uint8
	Flags         uint8
	Iterations    uint16
	Salt          []byte
	NextHashed    []byte
	TypeBitmap    []byte
}

func (r *NSEC3) Type() Type { return TypeNSEC3 }

func (r *NSEC3) ParseWire(rd *wire.Reader) error {
	alg, err := rd.ReadU8()
	if err != nil {
		return err
	}
	flags, err := rd.ReadU8()
	if err != nil {
		return err
	}
	iter, err := rd.ReadU16()
	if err != nil {
		return err
	}
	saltLen, err := rd.ReadU8()
	if err != nil {
		return err
	}
	salt, err := rd.ReadByteArray(int(saltLen))
	if err != nil {
		return err
	}
	hashLen, err := rd.ReadU8()
	if err != nil {
		return err
	}
	hash, err := rd.ReadByteArray(int(hashLen))
	if err != nil {
		return err
	}
	bm, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.HashAlgorithm, r.Flags, r.Iterations = alg, flags, iter
	r.Salt, r.NextHashed, r.TypeBitmap = salt, hash, bm
	return nil
}

func (r *NSEC3) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU8(r.HashAlgorithm)
	w.WriteU8(r.Flags)
	w.WriteU16(r.Iterations)
	w.WriteU8(uint8(len(r.Salt)))
	w.WriteBytes(r.Salt)
	w.WriteU8(uint8(len(r.NextHashed)))
	w.WriteBytes(r.NextHashed)
	w.WriteBytes(r.TypeBitmap)
	return nil
}

func (r *NSEC3) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 5, "NSEC3"); err != nil {
		return err
	}
	alg, err := parseUint8(tokens[0])
	if err != nil {
		return err
	}
	flags, err := parseUint8(tokens[1])
	if err != nil {
		return err
	}
	iter, err := parseUint16(tokens[2])
	if err != nil {
		return err
	}
	var salt []byte
	if tokens[3] != "-" {
		salt, err = decodeHex(tokens[3])
		if err != nil {
			return err
		}
	}
	hash, err := decodeBase32Hex(tokens[4])
	if err != nil {
		return err
	}
	r.HashAlgorithm, r.Flags, r.Iterations = alg, flags, iter
	r.Salt, r.NextHashed = salt, hash
	r.TypeBitmap = encodeTypeBitmap(tokens[5:])
	return nil
}

func (r *NSEC3) String() string {
	salt := "-"
	if len(r.Salt) > 0 {
		salt = encodeHex(r.Salt)
	}
	return fmt.Sprintf("%d %d %d %s %s %s",
		r.HashAlgorithm, r.Flags, r.Iterations, salt,
		encodeBase32Hex(r.NextHashed), decodeTypeBitmap(r.TypeBitmap))
}

// NSEC3PARAM carries the hashing parameters used to compute NSEC3
// owner names for a zone (RFC 5155 section 4).
type NSEC3PARAM struct {
	HashAlgorithm uint8
	Flags         uint8
	Iterations    uint16
	Salt          []byte
}

func (r *NSEC3PARAM) Type() Type { return TypeNSEC3PARAM }

func (r *NSEC3PARAM) ParseWire(rd *wire.Reader) error {
	alg, err := rd.ReadU8()
	if err != nil {
		return err
	}
	flags, err := rd.ReadU8()
	if err != nil {
		return err
	}
	iter, err := rd.ReadU16()
	if err != nil {
		return err
	}
	saltLen, err := rd.ReadU8()
	if err != nil {
		return err
	}
	salt, err := rd.ReadByteArray(int(saltLen))
	if err != nil {
		return err
	}
	r.HashAlgorithm, r.Flags, r.Iterations, r.Salt = alg, flags, iter, salt
	return nil
}

func (r *NSEC3PARAM) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU8(r.HashAlgorithm)
	w.WriteU8(r.Flags)
	w.WriteU16(r.Iterations)
	w.WriteU8(uint8(len(r.Salt)))
	w.WriteBytes(r.Salt)
	return nil
}

func (r *NSEC3PARAM) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 4, "NSEC3PARAM"); err != nil {
		return err
	}
	alg, err := parseUint8(tokens[0])
	if err != nil {
		return err
	}
	flags, err := parseUint8(tokens[1])
	if err != nil {
		return err
	}
	iter, err := parseUint16(tokens[2])
	if err != nil {
		return err
	}
	var salt []byte
	if tokens[3] != "-" {
		salt, err = decodeHex(tokens[3])
		if err != nil {
			return err
		}
	}
	r.HashAlgorithm, r.Flags, r.Iterations, r.Salt = alg, flags, iter, salt
	return nil
}

func (r *NSEC3PARAM) String() string {
	salt := "-"
	if len(r.Salt) > 0 {
		salt = encodeHex(r.Salt)
	}
	return fmt.Sprintf("%d %d %d %s", r.HashAlgorithm, r.Flags, r.Iterations, salt)
}

// CAA is the certification authority authorization record (RFC 6844).
type CAA struct {
	Flags uint8
	Tag   string
	Value string
}

func (r *CAA) Type() Type { return TypeCAA }

func (r *CAA) ParseWire(rd *wire.Reader) error {
	flags, err := rd.ReadU8()
	if err != nil {
		return err
	}
	tag, err := rd.ReadCountedString()
	if err != nil {
		return err
	}
	value, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.Flags, r.Tag, r.Value = flags, string(tag), string(value)
	return nil
}

func (r *CAA) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteU8(r.Flags)
	if err := w.WriteCountedString([]byte(r.Tag)); err != nil {
		return err
	}
	w.WriteBytes([]byte(r.Value))
	return nil
}

func (r *CAA) ParseText(tokens []string, _ name.Name) error {
	if err := wantTokens(tokens, 3, "CAA"); err != nil {
		return err
	}
	flags, err := parseUint8(tokens[0])
	if err != nil {
		return err
	}
	r.Flags = flags
	r.Tag = tokens[1]
	r.Value = unquote(strings.Join(tokens[2:], " "))
	return nil
}

func (r *CAA) String() string {
	return fmt.Sprintf("%d %s %q", r.Flags, r.Tag, r.Value)
}

// encodeTypeBitmap builds an RFC 4034 section 4.1.2 type bitmap from a
// list of type mnemonics.
func encodeTypeBitmap(mnemonics []string) []byte {
	windows := map[uint8][]byte{}
	for _, m := range mnemonics {
		t, ok := ParseType(m)
		if !ok {
			continue
		}
		win := uint8(t >> 8)
		bit := uint8(t & 0xff)
		block := windows[win]
		needed := int(bit/8) + 1
		for len(block) < needed {
			block = append(block, 0)
		}
		block[bit/8] |= 0x80 >> (bit % 8)
		windows[win] = block
	}
	var out []byte
	for win := 0; win < 256; win++ {
		block, ok := windows[uint8(win)]
		if !ok {
			continue
		}
		out = append(out, uint8(win), uint8(len(block)))
		out = append(out, block...)
	}
	return out
}

// decodeTypeBitmap renders a type bitmap back to space-separated
// mnemonics.
func decodeTypeBitmap(bm []byte) string {
	var types []string
	i := 0
	for i+2 <= len(bm) {
		win := bm[i]
		length := int(bm[i+1])
		i += 2
		if i+length > len(bm) {
			break
		}
		block := bm[i : i+length]
		i += length
		for j, b := range block {
			for bit := 0; bit < 8; bit++ {
				if b&(0x80>>bit) != 0 {
					t := Type(int(win)<<8 | j*8 + bit)
					types = append(types, t.String())
				}
			}
		}
	}
	return strings.Join(types, " ")
}
