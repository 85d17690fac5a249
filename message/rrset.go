package message

import (
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

// RRset groups records sharing (name, type, class) from one section,
// together with any RRSIG records covering that type.
type RRset struct {
	Name    name.Name
	Type    rr.Type
	Class   rr.Class
	TTL     uint32
	Records []Record
	Sigs    []Record
}

type rrsetKey struct {
	name  string
	typ   rr.Type
	class rr.Class
}

// GroupRRsets partitions a section into RRsets keyed by (name, type,
// class), in order of first appearance, and attaches any RRSIG records
// to the RRset their type-covered field names.
func GroupRRsets(section []Record) []RRset {
	order := make([]rrsetKey, 0, len(section))
	sets := make(map[rrsetKey]*RRset, len(section))
	var sigs []Record

	for _, rec := range section {
		if rec.Type == rr.TypeRRSIG {
			sigs = append(sigs, rec)
			continue
		}
		k := rrsetKey{rec.Name.String(), rec.Type, rec.Class}
		s, ok := sets[k]
		if !ok {
			s = &RRset{Name: rec.Name, Type: rec.Type, Class: rec.Class, TTL: rec.TTL}
			sets[k] = s
			order = append(order, k)
		} else if rec.TTL < s.TTL {
			s.TTL = rec.TTL
		}
		s.Records = append(s.Records, rec)
	}

	for _, sig := range sigs {
		sigData, ok := sig.Data.(*rr.SIGBase)
		if !ok {
			continue
		}
		k := rrsetKey{sig.Name.String(), sigData.TypeCovered, sig.Class}
		if s, ok := sets[k]; ok {
			s.Sigs = append(s.Sigs, sig)
		}
	}

	result := make([]RRset, 0, len(order))
	for _, k := range order {
		result = append(result, *sets[k])
	}
	return result
}
