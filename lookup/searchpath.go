package lookup

import "github.com/semihalev/resolve/name"

// expandName builds the ordered list of absolute candidates for n. An
// already-absolute n yields itself alone. Otherwise every suffix in
// searchPath is concatenated onto n, plus the bare root form; the root
// form is tried first when n has more labels than ndots, last
// otherwise. Any concatenation that would exceed the wire length limit
// is silently dropped.
func expandName(n name.Name, searchPath []name.Name, ndots int) []name.Name {
	if n.IsAbsolute() {
		return []name.Name{n}
	}

	root, rootErr := n.Concat(name.Root)

	suffixed := make([]name.Name, 0, len(searchPath))
	for _, suffix := range searchPath {
		cand, err := n.Concat(suffix)
		if err != nil {
			continue
		}
		suffixed = append(suffixed, cand)
	}

	out := make([]name.Name, 0, len(suffixed)+1)
	if n.LabelCount() > ndots {
		if rootErr == nil {
			out = append(out, root)
		}
		out = append(out, suffixed...)
		return out
	}

	out = append(out, suffixed...)
	if rootErr == nil {
		out = append(out, root)
	}
	return out
}
