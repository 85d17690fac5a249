// Package name implements DNS domain names: parsing, comparison, and
// wire encoding with compression, per RFC 1035 section 3.1 and 4.1.4.
package name

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxWireLength is the maximum encoded length of a name, including
	// every length octet and the terminating root label.
	MaxWireLength = 255
	// MaxLabelLength is the maximum length of a single label.
	MaxLabelLength = 63
	// MaxLabels is the maximum number of labels a name may hold.
	MaxLabels = 128
	// MaxPointerHops bounds compression-pointer chases while decoding,
	// guarding against pointer loops.
	MaxPointerHops = 128
)

var (
	// ErrLabelTooLong is returned when a label exceeds MaxLabelLength.
	ErrLabelTooLong = errors.New("name: label exceeds 63 octets")
	// ErrTooLong is returned when the wire form of a name would exceed
	// MaxWireLength.
	ErrTooLong = errors.New("name: exceeds 255 octets")
	// ErrTooManyLabels is returned when a name has more than MaxLabels labels.
	ErrTooManyLabels = errors.New("name: too many labels")
	// ErrPointerLoop is returned when decoding detects a compression
	// pointer cycle or an excessive chain of pointers.
	ErrPointerLoop = errors.New("name: compression pointer loop")
	// ErrForwardPointer is returned when a compression pointer targets
	// an offset at or after the current position.
	ErrForwardPointer = errors.New("name: forward compression pointer")
	ErrTruncated      = errors.New("name: truncated")
)

// Root is the zero-length, single-label absolute name ".".
var Root = Name{labels: []string{""}}

// Name is an immutable, ordered sequence of labels. The empty final
// label denotes the root and marks a name as absolute. Label bytes are
// stored exactly as given; comparisons fold ASCII A-Z to a-z only.
type Name struct {
	labels []string
}

// New builds a Name directly from labels, without the trailing root
// label implied; callers that need an absolute name should append "".
func New(labels ...string) (Name, error) {
	if len(labels) > MaxLabels {
		return Name{}, ErrTooManyLabels
	}
	n := Name{labels: append([]string(nil), labels...)}
	if _, err := n.wireLength(); err != nil {
		return Name{}, err
	}
	for _, l := range labels {
		if len(l) > MaxLabelLength {
			return Name{}, ErrLabelTooLong
		}
	}
	return n, nil
}

// Parse reads a presentation-format name (dotted, with backslash
// escapes for '.', '\\' and non-printable bytes as \DDD) relative to
// origin. A trailing unescaped '.' makes the result absolute; otherwise
// origin's labels are appended.
func Parse(text string, origin Name) (Name, error) {
	if text == "." {
		return Root, nil
	}
	if text == "@" {
		return origin, nil
	}

	var labels []string
	var cur strings.Builder
	absolute := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text):
			i++
			n := text[i]
			if n >= '0' && n <= '9' && i+2 < len(text) &&
				isDigit(text[i+1]) && isDigit(text[i+2]) {
				val := (int(n-'0') * 100) + (int(text[i+1]-'0') * 10) + int(text[i+2]-'0')
				if val > 255 {
					return Name{}, fmt.Errorf("name: invalid escape in %q", text)
				}
				cur.WriteByte(byte(val))
				i += 2
			} else {
				cur.WriteByte(n)
			}
		case c == '.':
			if cur.Len() == 0 && len(labels) == 0 {
				return Name{}, fmt.Errorf("name: empty label in %q", text)
			}
			labels = append(labels, cur.String())
			cur.Reset()
			if i == len(text)-1 {
				absolute = true
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		labels = append(labels, cur.String())
	}

	for _, l := range labels {
		if len(l) > MaxLabelLength {
			return Name{}, ErrLabelTooLong
		}
	}

	n := Name{labels: labels}
	if absolute {
		n.labels = append(n.labels, "")
		return n, n.checkLength()
	}
	return n.Concat(origin)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (n Name) checkLength() error {
	if len(n.labels) > MaxLabels {
		return ErrTooManyLabels
	}
	if _, err := n.wireLength(); err != nil {
		return err
	}
	return nil
}

func (n Name) wireLength() (int, error) {
	total := 0
	for _, l := range n.labels {
		if len(l) > MaxLabelLength {
			return 0, ErrLabelTooLong
		}
		total += len(l) + 1
	}
	if !n.IsAbsolute() {
		total++ // implicit root terminator when encoded
	}
	if total > MaxWireLength {
		return 0, ErrTooLong
	}
	return total, nil
}

// Labels returns the label sequence, including the trailing empty root
// label if the name is absolute.
func (n Name) Labels() []string {
	return append([]string(nil), n.labels...)
}

// LabelCount returns the number of labels, excluding the root label.
func (n Name) LabelCount() int {
	if n.IsAbsolute() {
		return len(n.labels) - 1
	}
	return len(n.labels)
}

// IsAbsolute reports whether the name's final label is the zero-length
// root label.
func (n Name) IsAbsolute() bool {
	return len(n.labels) > 0 && n.labels[len(n.labels)-1] == ""
}

// IsRoot reports whether n is exactly the root name.
func (n Name) IsRoot() bool {
	return len(n.labels) == 1 && n.labels[0] == ""
}

// IsWildcard reports whether the first label is the single byte "*".
func (n Name) IsWildcard() bool {
	return len(n.labels) > 0 && n.labels[0] == "*"
}

// Concat returns prefix+suffix, failing if the combined wire length
// would exceed 255 octets or the label count would exceed MaxLabels.
// If prefix is already absolute, suffix is ignored and prefix is
// returned unchanged (mirrors appending root to an absolute name).
func (n Name) Concat(suffix Name) (Name, error) {
	if n.IsAbsolute() {
		return n, nil
	}
	combined := Name{labels: append(append([]string(nil), n.labels...), suffix.labels...)}
	if err := combined.checkLength(); err != nil {
		return Name{}, err
	}
	return combined, nil
}

// Equal reports whether a and b are the same name under ASCII
// case-insensitive comparison (A-Z folded to a-z; other octets compared
// byte-exact).
func (n Name) Equal(o Name) bool {
	if len(n.labels) != len(o.labels) {
		return false
	}
	for i := range n.labels {
		if !equalFoldASCII(n.labels[i], o.labels[i]) {
			return false
		}
	}
	return true
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Subdomain reports whether n's trailing labels equal b exactly, i.e.
// n is equal to or a descendant of b.
func (n Name) Subdomain(b Name) bool {
	if len(b.labels) > len(n.labels) {
		return false
	}
	offset := len(n.labels) - len(b.labels)
	for i, l := range b.labels {
		if !equalFoldASCII(n.labels[offset+i], l) {
			return false
		}
	}
	return true
}

// StrictSubdomain reports whether n is a proper descendant of b (n != b
// and n.Subdomain(b)).
func (n Name) StrictSubdomain(b Name) bool {
	return len(n.labels) > len(b.labels) && n.Subdomain(b)
}

// Compare implements a total, canonical ordering over names as used by
// NSEC/NSEC3 owner-name ordering: compare from the least-significant
// (rightmost) label toward the most-significant, case-insensitively.
func (n Name) Compare(o Name) int {
	a := stripRoot(n.labels)
	b := stripRoot(o.labels)
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if c := compareLabel(a[i], b[j]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func stripRoot(labels []string) []string {
	if len(labels) > 0 && labels[len(labels)-1] == "" {
		return labels[:len(labels)-1]
	}
	return labels
}

func compareLabel(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		ca, cb := lowerASCII(a[i]), lowerASCII(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// Parent returns n with its first label removed, and false if n has no
// labels beyond the root to remove.
func (n Name) Parent() (Name, bool) {
	if len(n.labels) <= 1 {
		return Name{}, false
	}
	return Name{labels: append([]string(nil), n.labels[1:]...)}, true
}

// FromDNAME rewrites n by replacing the trailing suffix equal to
// owner with target, per RFC 6672 section 2.2. n must be a subdomain
// of owner. The synthesized name is validated for wire length.
func (n Name) FromDNAME(owner, target Name) (Name, error) {
	if !n.Subdomain(owner) {
		return Name{}, fmt.Errorf("name: %s is not a subdomain of %s", n, owner)
	}
	prefixLen := len(n.labels) - len(owner.labels)
	prefix := n.labels[:prefixLen]
	combined := Name{labels: append(append([]string(nil), prefix...), target.labels...)}
	if err := combined.checkLength(); err != nil {
		return Name{}, err
	}
	return combined, nil
}

// String renders the canonical, lowercased, dot-separated presentation
// form with '.', '\\' and non-printable bytes escaped.
func (n Name) String() string {
	if len(n.labels) == 0 {
		return "@"
	}
	if n.IsRoot() {
		return "."
	}
	var b strings.Builder
	for _, l := range stripRoot(n.labels) {
		writeEscapedLabel(&b, l)
		b.WriteByte('.')
	}
	s := b.String()
	if !n.IsAbsolute() {
		s = strings.TrimSuffix(s, ".")
	}
	return strings.ToLower(s)
}

func writeEscapedLabel(b *strings.Builder, l string) {
	for i := 0; i < len(l); i++ {
		c := l[i]
		switch {
		case c == '.' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(b, "\\%03d", c)
		default:
			b.WriteByte(c)
		}
	}
}
