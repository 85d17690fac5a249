package name

import (
	"github.com/semihalev/resolve/wire"
)

// ReadFrom decodes a name from r, following compression pointers as
// needed. Pointer targets must point strictly backward; loops and
// excessive pointer chains are rejected.
func ReadFrom(r *wire.Reader) (Name, error) {
	var labels []string
	hops := 0
	jumped := false
	startPos := r.Pos()
	returnPos := -1

	for {
		lengthPos := r.Pos()
		lenByte, err := r.ReadU8()
		if err != nil {
			return Name{}, ErrTruncated
		}

		switch {
		case lenByte == 0:
			labels = append(labels, "")
			if jumped {
				r.Seek(returnPos)
			}
			n := Name{labels: labels}
			if len(n.labels) > MaxLabels {
				return Name{}, ErrTooManyLabels
			}
			return n, nil

		case lenByte&0xC0 == 0xC0:
			lo, err := r.ReadU8()
			if err != nil {
				return Name{}, ErrTruncated
			}
			offset := (int(lenByte&0x3F) << 8) | int(lo)
			if offset >= lengthPos {
				return Name{}, ErrForwardPointer
			}
			hops++
			if hops > MaxPointerHops {
				return Name{}, ErrPointerLoop
			}
			if !jumped {
				returnPos = r.Pos()
				jumped = true
			}
			r.Seek(offset)
			_ = startPos

		case lenByte&0xC0 != 0:
			return Name{}, ErrTruncated

		default:
			label, err := r.ReadByteArray(int(lenByte))
			if err != nil {
				return Name{}, ErrTruncated
			}
			labels = append(labels, string(label))
			if len(labels) > MaxLabels {
				return Name{}, ErrTooManyLabels
			}
		}
	}
}

// Compressor tracks names already written to a single message so
// subsequent occurrences can be emitted as backward pointers instead of
// literal labels. A Compressor is scoped to exactly one message
// encoding; reusing it across messages produces garbage offsets.
type Compressor struct {
	offsets map[string]int // canonical suffix key -> wire offset
	enabled bool
}

// NewCompressor returns a Compressor ready to track offsets for one
// message. Pass enabled=false to disable compression entirely (used
// when producing the canonical form for DNSSEC signing).
func NewCompressor(enabled bool) *Compressor {
	return &Compressor{offsets: make(map[string]int), enabled: enabled}
}

func suffixKey(labels []string) string {
	// Join with a NUL separator and fold case so the map key is
	// insensitive the same way name comparison is.
	total := 0
	for _, l := range labels {
		total += len(l) + 1
	}
	b := make([]byte, 0, total)
	for _, l := range labels {
		for i := 0; i < len(l); i++ {
			b = append(b, lowerASCII(l[i]))
		}
		b = append(b, 0)
	}
	return string(b)
}

// WriteTo encodes n into w, compressing against previously written
// names when the compressor is enabled. n need not be absolute; a
// non-absolute name is encoded with an implicit root terminator.
func (c *Compressor) WriteTo(w *wire.Writer, n Name) error {
	labels := n.labels
	if !n.IsAbsolute() {
		labels = append(append([]string(nil), labels...), "")
	}

	for i := 0; i < len(labels); i++ {
		suffix := labels[i:]
		if len(suffix) == 1 && suffix[0] == "" {
			w.WriteU8(0)
			return nil
		}

		if c.enabled {
			key := suffixKey(suffix)
			if offset, ok := c.offsets[key]; ok {
				w.WriteU16(uint16(0xC000 | offset))
				return nil
			}
			if w.Len() < 0x4000 {
				c.offsets[key] = w.Len()
			}
		}

		label := labels[i]
		if len(label) > MaxLabelLength {
			return ErrLabelTooLong
		}
		w.WriteU8(uint8(len(label)))
		w.WriteBytes([]byte(label))
	}
	w.WriteU8(0)
	return nil
}

// WriteCanonical encodes n in lowercased, uncompressed wire form, as
// required for DNSSEC canonical ordering and signing.
func WriteCanonical(w *wire.Writer, n Name) {
	nc := NewCompressor(false)
	labels := n.labels
	if !n.IsAbsolute() {
		labels = append(append([]string(nil), labels...), "")
	}
	lower := make([]string, len(labels))
	for i, l := range labels {
		lb := make([]byte, len(l))
		for j := 0; j < len(l); j++ {
			lb[j] = lowerASCII(l[j])
		}
		lower[i] = string(lb)
	}
	_ = nc.WriteTo(w, Name{labels: lower})
}
