package rr

import (
	"fmt"
	"sync"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// Data is the RDATA codec every concrete record type implements. A
// Data value is created empty by a Factory and then populated by
// exactly one of ParseWire/ParseText before use.
type Data interface {
	// Type returns the RR type this value encodes.
	Type() Type
	// ParseWire reconstructs the RDATA from a reader already
	// restricted to exactly RDLENGTH bytes.
	ParseWire(r *wire.Reader) error
	// WriteWire emits RDATA (not including the RDLENGTH prefix). c
	// must not be nil; a Compressor built with NewCompressor(false)
	// disables compression (canonical form).
	WriteWire(w *wire.Writer, c *name.Compressor) error
	// ParseText reads whitespace-separated presentation tokens,
	// relative to origin for any embedded domain names.
	ParseText(tokens []string, origin name.Name) error
	// String renders the canonical presentation form of the RDATA
	// (the record's fields only, not the owner/type/class/ttl).
	String() string
}

// Factory creates a new, empty Data value for one RR type.
type Factory func() Data

type registration struct {
	mnemonic string
	factory  Factory
}

// Registry maps RR type codes to codecs. The zero value is not usable;
// construct with NewRegistry, Default, or Default().Overlay().
type Registry struct {
	mu       sync.RWMutex
	byType   map[Type]registration
	byName   map[string]Type
	fallback Factory
}

// NewRegistry returns an empty registry that falls back to Unknown
// for any type it has no codec for.
func NewRegistry() *Registry {
	return &Registry{
		byType:   make(map[Type]registration),
		byName:   make(map[string]Type),
		fallback: func() Data { return &Unknown{} },
	}
}

// Register binds code to mnemonic and factory. It fails if mnemonic is
// already bound to a different numeric code, per the catalog's
// invariant that a mnemonic names exactly one type.
func (r *Registry) Register(code Type, mnemonic string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[mnemonic]; ok && existing != code {
		return fmt.Errorf("rr: mnemonic %q already bound to type %d", mnemonic, existing)
	}
	r.byType[code] = registration{mnemonic: mnemonic, factory: factory}
	r.byName[mnemonic] = code
	return nil
}

// Factory returns the codec factory for code, or the Unknown fallback
// if none is registered.
func (r *Registry) Factory(code Type) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.byType[code]; ok {
		return reg.factory
	}
	return r.fallback
}

// New allocates an empty Data for code via its registered factory.
func (r *Registry) New(code Type) Data {
	d := r.Factory(code)()
	if u, ok := d.(*Unknown); ok {
		u.RRType = code
	}
	return d
}

// Mnemonic returns the registered textual name for code, if any.
func (r *Registry) Mnemonic(code Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byType[code]
	if !ok {
		return "", false
	}
	return reg.mnemonic, true
}

// TypeByMnemonic looks up a registered type by its mnemonic.
func (r *Registry) TypeByMnemonic(mnemonic string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[mnemonic]
	return t, ok
}

// Overlay returns a new Registry pre-populated with every entry in r,
// which may then be modified independently. This is how a caller
// customizes the process-wide default without racing other holders of
// the default's reference.
func (r *Registry) Overlay() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o := NewRegistry()
	for code, reg := range r.byType {
		o.byType[code] = reg
		o.byName[reg.mnemonic] = code
	}
	return o
}

var defaultRegistry = buildDefaultRegistry()

// Default returns the process-wide, pre-populated registry covering
// every RR type this package implements. It is intended to be
// immutable in practice: callers who need to customize type handling
// should call Default().Overlay() and register on the copy, then hand
// that copy to a LookupSession at construction time.
func Default() *Registry { return defaultRegistry }

func buildDefaultRegistry() *Registry {
	r := NewRegistry()
	register := func(code Type, mnemonic string, f Factory) {
		if err := r.Register(code, mnemonic, f); err != nil {
			panic(err)
		}
	}

	register(TypeA, "A", func() Data { return &A{} })
	register(TypeAAAA, "AAAA", func() Data { return &AAAA{} })

	register(TypeNS, "NS", func() Data { return &SingleName{RRType: TypeNS} })
	register(TypeCNAME, "CNAME", func() Data { return &SingleName{RRType: TypeCNAME} })
	register(TypePTR, "PTR", func() Data { return &SingleName{RRType: TypePTR} })
	register(TypeDNAME, "DNAME", func() Data { return &SingleName{RRType: TypeDNAME} })
	register(TypeMB, "MB", func() Data { return &SingleName{RRType: TypeMB} })
	register(TypeMG, "MG", func() Data { return &SingleName{RRType: TypeMG} })
	register(TypeMR, "MR", func() Data { return &SingleName{RRType: TypeMR} })
	register(TypeMD, "MD", func() Data { return &SingleName{RRType: TypeMD} })
	register(TypeMF, "MF", func() Data { return &SingleName{RRType: TypeMF} })

	register(TypeMX, "MX", func() Data { return &MX{} })
	register(TypeSOA, "SOA", func() Data { return &SOA{} })
	register(TypeSRV, "SRV", func() Data { return &SRV{} })
	register(TypeRP, "RP", func() Data { return &RP{} })
	register(TypeAFSDB, "AFSDB", func() Data { return &AFSDB{} })
	register(TypeKX, "KX", func() Data { return &KX{} })
	register(TypePX, "PX", func() Data { return &PX{} })
	register(TypeRT, "RT", func() Data { return &RT{} })
	register(TypeMINFO, "MINFO", func() Data { return &MINFO{} })
	register(TypeNAPTR, "NAPTR", func() Data { return &NAPTR{} })
	register(TypeHINFO, "HINFO", func() Data { return &HINFO{} })

	register(TypeTXT, "TXT", func() Data { return &TXT{} })
	register(TypeSPF, "SPF", func() Data { return &TXT{RRType: TypeSPF} })
	register(TypeNULL, "NULL", func() Data { return &Binary{RRType: TypeNULL} })
	register(TypeDHCID, "DHCID", func() Data { return &Binary{RRType: TypeDHCID} })
	register(TypeOPENPGPKEY, "OPENPGPKEY", func() Data { return &Binary{RRType: TypeOPENPGPKEY} })
	register(TypeCERT, "CERT", func() Data { return &CERT{} })

	register(TypeSIG, "SIG", func() Data { return &SIGBase{RRType: TypeSIG} })
	register(TypeRRSIG, "RRSIG", func() Data { return &SIGBase{RRType: TypeRRSIG} })
	register(TypeDNSKEY, "DNSKEY", func() Data { return &DNSKEY{RRType: TypeDNSKEY} })
	register(TypeCDNSKEY, "CDNSKEY", func() Data { return &DNSKEY{RRType: TypeCDNSKEY} })
	register(TypeKEY, "KEY", func() Data { return &DNSKEY{RRType: TypeKEY} })
	register(TypeDS, "DS", func() Data { return &DS{RRType: TypeDS} })
	register(TypeCDS, "CDS", func() Data { return &DS{RRType: TypeCDS} })
	register(TypeDLV, "DLV", func() Data { return &DS{RRType: TypeDLV} })
	register(TypeSSHFP, "SSHFP", func() Data { return &SSHFP{} })
	register(TypeTLSA, "TLSA", func() Data { return &TLSA{RRType: TypeTLSA} })
	register(TypeSMIMEA, "SMIMEA", func() Data { return &TLSA{RRType: TypeSMIMEA} })
	register(TypeNSEC, "NSEC", func() Data { return &NSEC{} })
	register(TypeNSEC3, "NSEC3", func() Data { return &NSEC3{} })
	register(TypeNSEC3PARAM, "NSEC3PARAM", func() Data { return &NSEC3PARAM{} })
	register(TypeCAA, "CAA", func() Data { return &CAA{} })

	register(TypeSVCB, "SVCB", func() Data { return &SVCB{RRType: TypeSVCB} })
	register(TypeHTTPS, "HTTPS", func() Data { return &SVCB{RRType: TypeHTTPS} })

	register(TypeOPT, "OPT", func() Data { return &OPTData{} })
	register(TypeTSIG, "TSIG", func() Data { return &TSIG{} })
	register(TypeTKEY, "TKEY", func() Data { return &TKEY{} })

	return r
}
