// Package rr implements the DNS resource-record catalog: numeric RR
// type codes, RDATA codecs, and a registry mapping one to the other,
// per RFC 1035 and its many extensions.
package rr

// Type is a DNS RR type code.
type Type uint16

// Well-known RR types. Values follow the IANA DNS Parameters registry.
const (
	TypeA          Type = 1
	TypeNS         Type = 2
	TypeMD         Type = 3
	TypeMF         Type = 4
	TypeCNAME      Type = 5
	TypeSOA        Type = 6
	TypeMB         Type = 7
	TypeMG         Type = 8
	TypeMR         Type = 9
	TypeNULL       Type = 10
	TypeWKS        Type = 11
	TypePTR        Type = 12
	TypeHINFO      Type = 13
	TypeMINFO      Type = 14
	TypeMX         Type = 15
	TypeTXT        Type = 16
	TypeRP         Type = 17
	TypeAFSDB      Type = 18
	TypeX25        Type = 19
	TypeISDN       Type = 20
	TypeRT         Type = 21
	TypeSIG        Type = 24
	TypeKEY        Type = 25
	TypePX         Type = 26
	TypeAAAA       Type = 28
	TypeLOC        Type = 29
	TypeSRV        Type = 33
	TypeNAPTR      Type = 35
	TypeKX         Type = 36
	TypeCERT       Type = 37
	TypeDNAME      Type = 39
	TypeOPT        Type = 41
	TypeDS         Type = 43
	TypeSSHFP      Type = 44
	TypeIPSECKEY   Type = 45
	TypeRRSIG      Type = 46
	TypeNSEC       Type = 47
	TypeDNSKEY     Type = 48
	TypeDHCID      Type = 49
	TypeNSEC3      Type = 50
	TypeNSEC3PARAM Type = 51
	TypeTLSA       Type = 52
	TypeSMIMEA     Type = 53
	TypeCDS        Type = 59
	TypeCDNSKEY    Type = 60
	TypeOPENPGPKEY Type = 61
	TypeCSYNC      Type = 62
	TypeZONEMD     Type = 63
	TypeSVCB       Type = 64
	TypeHTTPS      Type = 65
	TypeSPF        Type = 99
	TypeTKEY       Type = 249
	TypeTSIG       Type = 250
	TypeIXFR       Type = 251
	TypeAXFR       Type = 252
	TypeANY        Type = 255
	TypeURI        Type = 256
	TypeCAA        Type = 257
	TypeDLV        Type = 32769
)

// Class is a DNS record/query class.
type Class uint16

// Well-known classes.
const (
	ClassINET   Class = 1
	ClassCHAOS  Class = 3
	ClassHESIOD Class = 4
	ClassNONE   Class = 254
	ClassANY    Class = 255
)

var typeNames = map[Type]string{
	TypeA: "A", TypeNS: "NS", TypeMD: "MD", TypeMF: "MF", TypeCNAME: "CNAME",
	TypeSOA: "SOA", TypeMB: "MB", TypeMG: "MG", TypeMR: "MR", TypeNULL: "NULL",
	TypeWKS: "WKS", TypePTR: "PTR", TypeHINFO: "HINFO", TypeMINFO: "MINFO",
	TypeMX: "MX", TypeTXT: "TXT", TypeRP: "RP", TypeAFSDB: "AFSDB",
	TypeX25: "X25", TypeISDN: "ISDN", TypeRT: "RT", TypeSIG: "SIG",
	TypeKEY: "KEY", TypePX: "PX", TypeAAAA: "AAAA", TypeLOC: "LOC",
	TypeSRV: "SRV", TypeNAPTR: "NAPTR", TypeKX: "KX", TypeCERT: "CERT",
	TypeDNAME: "DNAME", TypeOPT: "OPT", TypeDS: "DS", TypeSSHFP: "SSHFP",
	TypeIPSECKEY: "IPSECKEY", TypeRRSIG: "RRSIG", TypeNSEC: "NSEC",
	TypeDNSKEY: "DNSKEY", TypeDHCID: "DHCID", TypeNSEC3: "NSEC3",
	TypeNSEC3PARAM: "NSEC3PARAM", TypeTLSA: "TLSA", TypeSMIMEA: "SMIMEA",
	TypeCDS: "CDS", TypeCDNSKEY: "CDNSKEY", TypeOPENPGPKEY: "OPENPGPKEY",
	TypeCSYNC: "CSYNC", TypeZONEMD: "ZONEMD", TypeSVCB: "SVCB",
	TypeHTTPS: "HTTPS", TypeSPF: "SPF", TypeTKEY: "TKEY", TypeTSIG: "TSIG",
	TypeIXFR: "IXFR", TypeAXFR: "AXFR", TypeANY: "ANY", TypeURI: "URI",
	TypeCAA: "CAA", TypeDLV: "DLV",
}

var nameTypes = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, s := range typeNames {
		m[s] = t
	}
	return m
}()

// String returns the type's IANA mnemonic, or "TYPEnnn" per RFC 3597 if unknown.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return unknownTypeString(t)
}

func unknownTypeString(t Type) string {
	const hex = "0123456789"
	// RFC 3597 4.1: TYPEnnn where nnn is decimal.
	if t == 0 {
		return "TYPE0"
	}
	buf := make([]byte, 0, 9)
	buf = append(buf, "TYPE"...)
	digits := make([]byte, 0, 5)
	n := t
	for n > 0 {
		digits = append(digits, hex[n%10])
		n /= 10
	}
	for i := len(digits) - 1; i >= 0; i-- {
		buf = append(buf, digits[i])
	}
	return string(buf)
}

// ParseType looks up a type code by mnemonic.
func ParseType(s string) (Type, bool) {
	t, ok := nameTypes[s]
	return t, ok
}

var className = map[Class]string{
	ClassINET: "IN", ClassCHAOS: "CH", ClassHESIOD: "HS",
	ClassNONE: "NONE", ClassANY: "ANY",
}

// String returns the class mnemonic, or "CLASSnnn" if unknown.
func (c Class) String() string {
	if s, ok := className[c]; ok {
		return s
	}
	return "CLASS" + itoa(uint16(c))
}

func itoa(n uint16) string {
	if n == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// definedAfter2003 lists RR types for which RFC 3597 section 4
// forbids name compression in RDATA (roughly: types standardized after
// the RFC's publication, plus a few explicitly called out).
var definedAfter2003 = map[Type]bool{
	TypeDS: true, TypeSSHFP: true, TypeIPSECKEY: true, TypeRRSIG: true,
	TypeNSEC: true, TypeDNSKEY: true, TypeDHCID: true, TypeNSEC3: true,
	TypeNSEC3PARAM: true, TypeTLSA: true, TypeSMIMEA: true, TypeCDS: true,
	TypeCDNSKEY: true, TypeOPENPGPKEY: true, TypeCSYNC: true,
	TypeZONEMD: true, TypeSVCB: true, TypeHTTPS: true, TypeCAA: true,
}

// AllowsCompression reports whether embedded domain names in this
// type's RDATA may be compressed on the wire.
func AllowsCompression(t Type) bool {
	return !definedAfter2003[t]
}
