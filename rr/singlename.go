package rr

import (
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// SingleName covers the RR types whose entire RDATA is one domain
// name: NS, CNAME, PTR, DNAME, MB, MG, MR, MD, MF.
type SingleName struct {
	RRType Type
	Target name.Name
}

// Type implements Data.
func (r *SingleName) Type() Type { return r.RRType }

// ParseWire implements Data.
func (r *SingleName) ParseWire(rd *wire.Reader) error {
	n, err := name.ReadFrom(rd)
	if err != nil {
		return err
	}
	r.Target = n
	return nil
}

// WriteWire implements Data.
func (r *SingleName) WriteWire(w *wire.Writer, c *name.Compressor) error {
	if !AllowsCompression(r.RRType) {
		c = name.NewCompressor(false)
	}
	return c.WriteTo(w, r.Target)
}

// ParseText implements Data.
func (r *SingleName) ParseText(tokens []string, origin name.Name) error {
	if err := wantTokens(tokens, 1, r.RRType.String()); err != nil {
		return err
	}
	n, err := name.Parse(tokens[0], origin)
	if err != nil {
		return err
	}
	r.Target = n
	return nil
}

// String implements Data.
func (r *SingleName) String() string { return r.Target.String() }
