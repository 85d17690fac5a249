package rr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/wire"
)

// Unknown is the RFC 3597 fallback codec for any type this registry
// has no dedicated codec for: RDATA is treated as an opaque byte
// string, and the presentation form is "\# <length> <hex>".
type Unknown struct {
	RRType Type
	Data   []byte
}

func (r *Unknown) Type() Type { return r.RRType }

func (r *Unknown) ParseWire(rd *wire.Reader) error {
	b, err := rd.ReadRest()
	if err != nil {
		return err
	}
	r.Data = b
	return nil
}

func (r *Unknown) WriteWire(w *wire.Writer, _ *name.Compressor) error {
	w.WriteBytes(r.Data)
	return nil
}

// ParseText accepts the RFC 3597 generic form: "\# <length> <hex>".
func (r *Unknown) ParseText(tokens []string, _ name.Name) error {
	if len(tokens) < 2 || tokens[0] != `\#` {
		return fmt.Errorf(`rr: unknown-type RDATA must be "\# <length> <hex>"`)
	}
	length, err := strconv.Atoi(tokens[1])
	if err != nil {
		return err
	}
	data, err := decodeHex(strings.Join(tokens[2:], ""))
	if err != nil {
		return err
	}
	if len(data) != length {
		return fmt.Errorf("rr: unknown-type RDATA length mismatch: declared %d, got %d", length, len(data))
	}
	r.Data = data
	return nil
}

func (r *Unknown) String() string {
	return fmt.Sprintf(`\# %d %s`, len(r.Data), encodeHex(r.Data))
}
