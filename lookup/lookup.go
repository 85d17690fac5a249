// Package lookup implements the resolver-facing lookup session: search
// path expansion, the hosts short-circuit, cache probing, transport
// dispatch, and CNAME/DNAME redirect chasing.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/semihalev/zlog/v2"

	"github.com/semihalev/resolve/cache"
	"github.com/semihalev/resolve/message"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
	"github.com/semihalev/resolve/transport"
)

// ErrKind classifies a lookup failure so callers can branch on it
// without parsing error strings.
type ErrKind int

// Error kinds surfaced to callers, per the error handling design.
const (
	// NoSuchDomain reports RCODE=NXDOMAIN, or a cached NXDOMAIN, after
	// every search-path candidate has been exhausted.
	NoSuchDomain ErrKind = iota
	// NoSuchRRSet reports RCODE=NXRRSET, or an empty NOERROR answer for
	// a name that exists, after search-path exhaustion.
	NoSuchRRSet
	// ServerFailed reports RCODE=SERVFAIL.
	ServerFailed
	// RedirectOverflow reports a CNAME/DNAME chain longer than MaxRedirects.
	RedirectOverflow
	// InvalidZoneData reports a protocol violation in a response, such
	// as multiple CNAME records for one owner.
	InvalidZoneData
	// LookupFailed covers any other RCODE or transport failure.
	LookupFailed
)

func (k ErrKind) String() string {
	switch k {
	case NoSuchDomain:
		return "no-such-domain"
	case NoSuchRRSet:
		return "no-such-rrset"
	case ServerFailed:
		return "server-failed"
	case RedirectOverflow:
		return "redirect-overflow"
	case InvalidZoneData:
		return "invalid-zone-data"
	case LookupFailed:
		return "lookup-failed"
	default:
		return "unknown"
	}
}

// Error is a failed lookup outcome. Kind lets callers recover from
// name-not-found conditions while treating everything else as fatal.
type Error struct {
	Kind ErrKind
	Name name.Name
	Type rr.Type
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lookup: %s %s: %s: %v", e.Name, e.Type, e.Kind, e.Err)
	}
	return fmt.Sprintf("lookup: %s %s: %s", e.Name, e.Type, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrKind, n name.Name, t rr.Type, err error) *Error {
	return &Error{Kind: kind, Name: n, Type: t, Err: err}
}

// Result is the outcome of a successful lookup: the answer records for
// the query type, plus the chain of alias names walked to reach them.
type Result struct {
	Records []message.Record
	Aliases []name.Name
}

// HostsParser resolves a name to a literal address without consulting
// the network, mirroring an /etc/hosts style short-circuit. It is
// consulted only for A/AAAA queries.
type HostsParser interface {
	AddressForHost(n name.Name, t rr.Type) (net.IP, error)
}

// ErrNotFound is returned by a HostsParser when it has no entry for the
// requested name; any other error is treated as an I/O failure and
// swallowed, falling through to the transport.
var ErrNotFound = errors.New("lookup: no hosts entry")

const defaultMaxRedirects = 16
const defaultNdots = 1

// cacheKey identifies one (class, name, type) cache instance lookup.
type cacheKey struct {
	class rr.Class
	name  string
	typ   rr.Type
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%d/%s/%d", k.class, k.name, k.typ)
}

// normalCredibility is the minimum credibility a cache probe accepts:
// anything short of a bare hint or unglued additional record.
const normalCredibility = cache.NonauthAnswer

// Observer receives per-lookup outcome and latency observations. A
// *metrics.Metrics satisfies this without either package importing the
// other.
type Observer interface {
	ObserveLookup(qtype, outcome string, d time.Duration)
}

// Session is a long-lived, concurrency-safe DNS lookup engine. The zero
// value is not usable; construct with New.
type Session struct {
	caches       map[rr.Class]*cache.Cache
	hosts        HostsParser
	transport    transport.Transport
	searchPath   []name.Name
	ndots        int
	maxRedirects int
	registry     *rr.Registry
	observer     Observer

	group singleflight.Group
}

// Option configures a Session at construction.
type Option func(*Session)

// WithCache registers c as the cache consulted for its own record class.
func WithCache(c *cache.Cache) Option {
	return func(s *Session) { s.caches[c.Class()] = c }
}

// WithHostsParser installs a hosts short-circuit consulted before any
// cache or transport activity, for A/AAAA queries only.
func WithHostsParser(h HostsParser) Option {
	return func(s *Session) { s.hosts = h }
}

// WithSearchPath sets the ordered list of suffixes tried for
// non-absolute query names.
func WithSearchPath(suffixes []name.Name) Option {
	return func(s *Session) { s.searchPath = append([]name.Name(nil), suffixes...) }
}

// WithNdots sets the label-count threshold above which the absolute
// form of a name is tried before any search suffix.
func WithNdots(n int) Option {
	return func(s *Session) { s.ndots = n }
}

// WithMaxRedirects bounds the number of CNAME/DNAME hops a single
// lookup will follow before failing with RedirectOverflow.
func WithMaxRedirects(n int) Option {
	return func(s *Session) { s.maxRedirects = n }
}

// WithRegistry records reg as the session's record-type registry. The
// session does not hand it to its transport: responses are decoded with
// the transport's own Registry setting (rr.Default() when that is nil).
func WithRegistry(reg *rr.Registry) Option {
	return func(s *Session) { s.registry = reg }
}

// WithObserver installs o to receive an outcome/latency observation
// after every completed Lookup call.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// New builds a Session sending queries through t.
func New(t transport.Transport, opts ...Option) *Session {
	s := &Session{
		caches:       make(map[rr.Class]*cache.Cache),
		transport:    t,
		ndots:        defaultNdots,
		maxRedirects: defaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases resources held by the session's hosts parser, if it
// implements io.Closer-like cleanup through Close.
func (s *Session) Close(ctx context.Context) error {
	if closer, ok := s.hosts.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Lookup resolves n at type t and class c, expanding the search path
// for non-absolute names, consulting the hosts parser and cache before
// the transport, and chasing CNAME/DNAME redirects.
func (s *Session) Lookup(ctx context.Context, n name.Name, t rr.Type, c rr.Class) (*Result, error) {
	if s.observer == nil {
		return s.lookup(ctx, n, t, c)
	}
	start := time.Now()
	res, err := s.lookup(ctx, n, t, c)
	s.observer.ObserveLookup(t.String(), outcomeLabel(err), time.Since(start))
	return res, err
}

// CacheStats returns a snapshot of cache occupancy and hit ratio for
// every record class the session has a registered cache for, keyed by
// class mnemonic, for metrics reporting.
func (s *Session) CacheStats() map[string]cache.Stats {
	out := make(map[string]cache.Stats, len(s.caches))
	for class, c := range s.caches {
		out[class.String()] = c.Stats()
	}
	return out
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind.String()
	}
	return "error"
}

func (s *Session) lookup(ctx context.Context, n name.Name, t rr.Type, c rr.Class) (*Result, error) {
	candidates := expandName(n, s.searchPath, s.ndots)
	if len(candidates) == 0 {
		return nil, newError(LookupFailed, n, t, fmt.Errorf("lookup: %s has no viable search-path candidate", n))
	}

	if s.hosts != nil && (t == rr.TypeA || t == rr.TypeAAAA) {
		for _, cand := range candidates {
			if addr, ok := s.probeHosts(cand, t); ok {
				return addr, nil
			}
		}
	}

	var lastErr error
	for _, cand := range candidates {
		res, err := s.resolveWithRedirects(ctx, cand, t, c)
		if err == nil {
			return res, nil
		}
		var le *Error
		if errors.As(err, &le) && (le.Kind == NoSuchDomain || le.Kind == NoSuchRRSet) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr == nil {
		lastErr = newError(NoSuchDomain, n, t, nil)
	}
	return nil, lastErr
}

func (s *Session) probeHosts(cand name.Name, t rr.Type) (*Result, bool) {
	addr, err := s.hosts.AddressForHost(cand, t)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			zlog.Debug("lookup: hosts parser failed, falling through", "name", cand, "error", err)
		}
		return nil, false
	}

	var data rr.Data
	switch t {
	case rr.TypeA:
		v4 := addr.To4()
		if v4 == nil {
			return nil, false
		}
		data = &rr.A{Address: v4}
	case rr.TypeAAAA:
		v6 := addr.To16()
		if v6 == nil {
			return nil, false
		}
		data = &rr.AAAA{Address: v6}
	default:
		return nil, false
	}

	return &Result{
		Records: []message.Record{{Name: cand, Type: t, Class: rr.ClassINET, TTL: 0, Data: data}},
	}, true
}

// resolveWithRedirects resolves current at (t, c), following in-response
// CNAME/DNAME redirects up to maxRedirects hops.
func (s *Session) resolveWithRedirects(ctx context.Context, current name.Name, t rr.Type, c rr.Class) (*Result, error) {
	var aliases []name.Name
	hop := 0

	for {
		records, err := s.resolveOne(ctx, current, t, c)
		if err != nil {
			return nil, err
		}

		final, chased, next, redirected, err := followRedirects(current, t, c, records)
		if err != nil {
			return nil, newError(InvalidZoneData, current, t, err)
		}
		hop += len(chased)
		if hop > s.maxRedirects {
			return nil, newError(RedirectOverflow, current, t, nil)
		}
		if len(final) > 0 {
			return &Result{Records: final, Aliases: append(aliases, chased...)}, nil
		}
		if !redirected {
			return nil, newError(NoSuchRRSet, current, t, nil)
		}

		aliases = append(aliases, chased...)
		current = next
	}
}

// resolveOne answers one (name, type, class) question: cache probe,
// then transport dispatch, then cache insertion, deduplicating
// concurrent identical in-flight requests.
func (s *Session) resolveOne(ctx context.Context, n name.Name, t rr.Type, c rr.Class) ([]message.Record, error) {
	if ca, ok := s.caches[c]; ok {
		switch resp := ca.Lookup(n, t, normalCredibility); resp.Kind {
		case cache.Successful:
			// resp.RRset is owned by the chain target, not n, when the
			// cache followed an in-cache CNAME to reach it (cache.go's
			// Lookup): prepend the CNAME records so followRedirects can
			// walk from n to the target the same way it would from a
			// transport answer section.
			return append(append([]message.Record(nil), resp.CNAMEs...), toRecords(resp.RRset)...), nil
		case cache.NXDOMAIN:
			return nil, newError(NoSuchDomain, n, t, nil)
		case cache.NXRRSET:
			return nil, newError(NoSuchRRSet, n, t, nil)
		default:
			// Partial, CNAMEChain, DNAMEHit and Unknown all fall
			// through to the transport: the cache did not hold a
			// complete answer for this exact (name, type).
		}
	}

	key := (cacheKey{class: c, name: n.String(), typ: t}).String()
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.dispatch(ctx, n, t, c)
	})
	if err != nil {
		return nil, err
	}
	return v.([]message.Record), nil
}

func (s *Session) dispatch(ctx context.Context, n name.Name, t rr.Type, c rr.Class) ([]message.Record, error) {
	query := message.NewQuery(newQueryID(), n, t, c)

	resp, err := s.transport.Send(ctx, query)
	if err != nil {
		return nil, newError(LookupFailed, n, t, err)
	}

	if err := validateResponse(resp); err != nil {
		return nil, newError(InvalidZoneData, n, t, err)
	}

	if ca, ok := s.caches[c]; ok {
		ca.AddMessage(resp)
	}

	if len(resp.Answer) == 0 && resp.Rcode != message.RcodeSuccess {
		switch resp.Rcode {
		case message.RcodeNameError:
			return nil, newError(NoSuchDomain, n, t, nil)
		case message.RcodeNXRRSet:
			return nil, newError(NoSuchRRSet, n, t, nil)
		case message.RcodeServerFailure:
			return nil, newError(ServerFailed, n, t, nil)
		default:
			return nil, newError(LookupFailed, n, t, fmt.Errorf("lookup: rcode %s", resp.Rcode))
		}
	}
	if len(resp.Answer) == 0 {
		return nil, newError(NoSuchRRSet, n, t, nil)
	}

	return resp.Answer, nil
}

// validateResponse rejects malformed zone data the codec itself cannot
// catch: more than one CNAME RRset member for a single owner.
func validateResponse(m *message.Message) error {
	for _, rset := range message.GroupRRsets(m.Answer) {
		if rset.Type == rr.TypeCNAME && len(rset.Records) > 1 {
			return fmt.Errorf("lookup: %d CNAME records for %s", len(rset.Records), rset.Name)
		}
	}
	return nil
}

// followRedirects scans the whole of records once for the CNAME/DNAME
// chase described in the lookup algorithm, advancing current through
// every redirect the response resolves in the same pass and collecting
// any (current, t) answer records it finds along the way, so a response
// that carries both a redirect and its synthesized answer (the normal
// recursive-resolver shape) is settled without a second round trip.
// chased lists, in order, every name that was rewritten via CNAME/DNAME
// to reach either the collected final records or next.
func followRedirects(current name.Name, t rr.Type, c rr.Class, records []message.Record) (final []message.Record, chased []name.Name, next name.Name, redirected bool, err error) {
	for _, rec := range records {
		if rec.Class != c {
			continue
		}
		switch rec.Type {
		case rr.TypeCNAME:
			if !rec.Name.Equal(current) {
				continue
			}
			sn, ok := rec.Data.(*rr.SingleName)
			if !ok {
				return nil, nil, name.Name{}, false, fmt.Errorf("lookup: malformed CNAME data at %s", rec.Name)
			}
			chased = append(chased, current)
			current = sn.Target
		case rr.TypeDNAME:
			if !current.StrictSubdomain(rec.Name) {
				continue
			}
			sn, ok := rec.Data.(*rr.SingleName)
			if !ok {
				return nil, nil, name.Name{}, false, fmt.Errorf("lookup: malformed DNAME data at %s", rec.Name)
			}
			rewritten, derr := current.FromDNAME(rec.Name, sn.Target)
			if derr != nil {
				return nil, nil, name.Name{}, false, fmt.Errorf("lookup: %w", derr)
			}
			chased = append(chased, current)
			current = rewritten
		default:
			if rec.Type == t && rec.Name.Equal(current) {
				final = append(final, rec)
			}
		}
	}
	if len(final) > 0 {
		return final, chased, name.Name{}, false, nil
	}
	if len(chased) > 0 {
		return nil, chased, current, true, nil
	}
	return nil, nil, name.Name{}, false, nil
}

func toRecords(rset *message.RRset) []message.Record {
	if rset == nil {
		return nil
	}
	return rset.Records
}

var queryIDCounter uint32

// newQueryID returns a query ID from a wrapping counter. The counter
// need not be unpredictable: the transport, not the session, is
// responsible for spoof resistance (source port randomization, etc).
func newQueryID() uint16 {
	return uint16(atomic.AddUint32(&queryIDCounter, 1))
}
