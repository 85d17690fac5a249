// Package cache implements the credibility-ranked, TTL-bounded DNS
// cache: one store per record class, keyed by owner name, holding
// either a positive RRset or a negative (NXDOMAIN/NXRRSET) marker per
// (name, type), per RFC 2308.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/semihalev/resolve/message"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

// ResponseKind classifies the result of a Lookup.
type ResponseKind int

// Lookup outcomes, per the cache contract.
const (
	Unknown ResponseKind = iota
	Successful
	CNAMEChain
	DNAMEHit
	NXDOMAIN
	NXRRSET
	Partial
)

// SetResponse is the result of a cache Lookup.
type SetResponse struct {
	Kind   ResponseKind
	RRset  *message.RRset
	CNAMEs []message.Record
	DNAME  *message.Record
}

const (
	numShards       = 256
	shardMask       = numShards - 1
	maxCNAMEChain   = 8
	defaultMaxTTL   = 7 * 24 * time.Hour
	defaultNegTTL   = 5 * time.Minute
	defaultCapacity = 64 * 1024
)

type negativeEntry struct {
	credibility Credibility
	expiry      time.Time
}

type entry struct {
	credibility Credibility
	expiry      time.Time
	negative    bool
	rrset       message.RRset
	rotation    uint64
}

type nameBucket struct {
	mu       sync.RWMutex
	nxdomain *negativeEntry
	entries  map[rr.Type]*entry
}

type shard struct {
	mu      sync.RWMutex
	buckets map[string]*nameBucket
}

// Cache is a store for exactly one record class.
type Cache struct {
	class    rr.Class
	shards   [numShards]*shard
	maxTTL   time.Duration
	capacity int
	cycle    bool

	size   int64
	hits   uint64
	misses uint64

	now func() time.Time
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithMaxTTL caps the TTL any positive entry is stored with.
func WithMaxTTL(d time.Duration) Option {
	return func(c *Cache) { c.maxTTL = d }
}

// WithCycling enables per-read rotation of RRset member order.
func WithCycling(enabled bool) Option {
	return func(c *Cache) { c.cycle = enabled }
}

// New returns an empty cache for class, holding data for at most
// capacity distinct owner names. Past that cap, inserting a new name
// evicts expired buckets first and, failing that, an arbitrary batch of
// the rest. Independently, any single stale entry is pruned the next
// time a lookup touches its bucket, whether or not the cache is over
// capacity.
func New(class rr.Class, capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	c := &Cache{
		class:    class,
		maxTTL:   defaultMaxTTL,
		capacity: capacity,
		now:      time.Now,
	}
	for i := range c.shards {
		c.shards[i] = &shard{buckets: make(map[string]*nameBucket)}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Class returns the record class this cache stores, per the getDClass
// contract.
func (c *Cache) Class() rr.Class { return c.class }

// Stats summarizes cache occupancy and hit ratio.
type Stats struct {
	Entries int64
	Hits    uint64
	Misses  uint64
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: atomic.LoadInt64(&c.size),
		Hits:    atomic.LoadUint64(&c.hits),
		Misses:  atomic.LoadUint64(&c.misses),
	}
}

func (c *Cache) shardFor(n name.Name) (*shard, string) {
	key := n.String()
	h := xxhash.Sum64String(key)
	return c.shards[h&shardMask], key
}

func (c *Cache) bucket(n name.Name, create bool) *nameBucket {
	s, key := c.shardFor(n)

	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok || !create {
		return b
	}

	s.mu.Lock()
	if b, ok = s.buckets[key]; ok {
		s.mu.Unlock()
		return b
	}
	b = &nameBucket{}
	s.buckets[key] = b
	size := atomic.AddInt64(&c.size, 1)
	s.mu.Unlock()

	if size > int64(c.capacity) {
		c.evict(c.now())
	}
	return b
}

// evict trims occupancy back toward capacity: it removes buckets whose
// data has entirely expired first, and only falls back to an arbitrary
// batch of live buckets — relying on Go's randomized map iteration order
// as the sample, the same "grab whatever comes first" strategy sdns's
// own cache.evictSimple uses for small caches — once nothing expired is
// left to reclaim.
func (c *Cache) evict(now time.Time) {
	for atomic.LoadInt64(&c.size) > int64(c.capacity) {
		if c.evictExpired(now) > 0 {
			continue
		}
		if c.evictBatch() == 0 {
			return
		}
	}
}

func (c *Cache) evictExpired(now time.Time) int {
	for _, s := range c.shards {
		s.mu.Lock()
		var removed int
		for key, b := range s.buckets {
			if bucketExpired(b, now) {
				delete(s.buckets, key)
				removed++
			}
		}
		s.mu.Unlock()
		if removed > 0 {
			atomic.AddInt64(&c.size, -int64(removed))
			return removed
		}
	}
	return 0
}

const evictBatchSize = 16

func (c *Cache) evictBatch() int {
	for _, s := range c.shards {
		s.mu.Lock()
		var removed int
		for key := range s.buckets {
			delete(s.buckets, key)
			removed++
			if removed >= evictBatchSize {
				break
			}
		}
		s.mu.Unlock()
		if removed > 0 {
			atomic.AddInt64(&c.size, -int64(removed))
			return removed
		}
	}
	return 0
}

// bucketExpired reports whether every entry a bucket holds, positive or
// negative, has passed its expiry.
func bucketExpired(b *nameBucket, now time.Time) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.nxdomain != nil && now.Before(b.nxdomain.expiry) {
		return false
	}
	for _, e := range b.entries {
		if now.Before(e.expiry) {
			return false
		}
	}
	return b.nxdomain != nil || len(b.entries) > 0
}

// pruneStale removes whichever of a bucket's nxdomain marker and
// type-keyed entries have expired as of now, and drops the bucket
// itself if nothing live remains.
func (c *Cache) pruneStale(n name.Name, b *nameBucket) {
	now := c.now()

	b.mu.Lock()
	if b.nxdomain != nil && !now.Before(b.nxdomain.expiry) {
		b.nxdomain = nil
	}
	for t, e := range b.entries {
		if !now.Before(e.expiry) {
			delete(b.entries, t)
		}
	}
	empty := b.nxdomain == nil && len(b.entries) == 0
	b.mu.Unlock()

	if !empty {
		return
	}

	s, key := c.shardFor(n)
	s.mu.Lock()
	if cur, ok := s.buckets[key]; ok && cur == b {
		delete(s.buckets, key)
		atomic.AddInt64(&c.size, -1)
	}
	s.mu.Unlock()
}

// Lookup answers (name, type) at minCred or better, following in-cache
// CNAMEs transparently up to an implementation limit and checking
// ancestor names for a covering DNAME.
func (c *Cache) Lookup(n name.Name, t rr.Type, minCred Credibility) SetResponse {
	now := c.now()
	current := n
	var cnames []message.Record

	for i := 0; i < maxCNAMEChain; i++ {
		b := c.bucket(current, false)
		if b == nil {
			break
		}

		b.mu.RLock()
		nx := b.nxdomain
		var direct, cn *entry
		if b.entries != nil {
			direct = b.entries[t]
			if t != rr.TypeCNAME {
				cn = b.entries[rr.TypeCNAME]
			}
		}
		b.mu.RUnlock()

		if nx != nil || direct != nil || cn != nil {
			c.pruneStale(current, b)
		}

		if nx != nil && nx.credibility >= minCred && now.Before(nx.expiry) {
			atomic.AddUint64(&c.hits, 1)
			return SetResponse{Kind: NXDOMAIN}
		}

		if direct != nil && direct.credibility >= minCred && now.Before(direct.expiry) {
			atomic.AddUint64(&c.hits, 1)
			if direct.negative {
				return SetResponse{Kind: NXRRSET}
			}
			rset := direct.rrset
			if c.cycle && len(rset.Records) > 1 {
				n := atomic.AddUint64(&direct.rotation, 1)
				rset.Records = rotate(rset.Records, n)
			}
			return SetResponse{Kind: Successful, RRset: &rset, CNAMEs: cnames}
		}

		if cn != nil && cn.credibility >= minCred && now.Before(cn.expiry) && !cn.negative && len(cn.rrset.Records) > 0 {
			rec := cn.rrset.Records[0]
			target, ok := rec.Data.(*rr.SingleName)
			if !ok {
				break
			}
			cnames = append(cnames, rec)
			current = target.Target
			continue
		}

		break
	}

	if dn := c.findDNAME(current, minCred, now); dn != nil {
		atomic.AddUint64(&c.hits, 1)
		return SetResponse{Kind: DNAMEHit, DNAME: dn, CNAMEs: cnames}
	}

	atomic.AddUint64(&c.misses, 1)
	if len(cnames) > 0 {
		if !current.Equal(n) {
			return SetResponse{Kind: CNAMEChain, CNAMEs: cnames}
		}
		return SetResponse{Kind: Partial, CNAMEs: cnames}
	}
	return SetResponse{Kind: Unknown}
}

func (c *Cache) findDNAME(n name.Name, minCred Credibility, now time.Time) *message.Record {
	current := n
	for {
		parent, ok := current.Parent()
		if !ok {
			return nil
		}
		b := c.bucket(parent, false)
		if b != nil {
			b.mu.RLock()
			var e *entry
			if b.entries != nil {
				e = b.entries[rr.TypeDNAME]
			}
			b.mu.RUnlock()
			if e != nil {
				if !e.negative && e.credibility >= minCred && now.Before(e.expiry) && len(e.rrset.Records) > 0 {
					rec := e.rrset.Records[0]
					return &rec
				}
				if !now.Before(e.expiry) {
					c.pruneStale(parent, b)
				}
			}
		}
		if parent.IsRoot() {
			return nil
		}
		current = parent
	}
}

func rotate(records []message.Record, n uint64) []message.Record {
	if len(records) < 2 {
		return records
	}
	shift := int(n % uint64(len(records)))
	if shift == 0 {
		return records
	}
	out := make([]message.Record, len(records))
	copy(out, records[shift:])
	copy(out[len(records)-shift:], records[:shift])
	return out
}

// AddMessage ingests every RRset in m's answer and authority sections,
// plus a negative marker if m carries no positive answer.
func (c *Cache) AddMessage(m *message.Message) {
	if m.Question == nil || m.Question.Class != c.class {
		return
	}
	now := c.now()

	if isNegative(m) {
		c.addNegative(m, now)
	}

	answerCred := NonauthAnswer
	authorityCred := NonauthAuthority
	if m.Authoritative {
		answerCred = AuthAnswer
		authorityCred = AuthAuthority
	}
	c.addSection(m.Answer, answerCred, now)
	c.addSection(m.Authority, authorityCred, now)
}

func isNegative(m *message.Message) bool {
	if m.Rcode == message.RcodeNameError {
		return true
	}
	return m.Rcode == message.RcodeSuccess && len(m.Answer) == 0
}

func (c *Cache) addNegative(m *message.Message, now time.Time) {
	q := m.Question
	ttl := negativeTTL(m)
	cred := NonauthAuthority
	if m.Authoritative {
		cred = AuthAuthority
	}

	b := c.bucket(q.Name, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	if m.Rcode == message.RcodeNameError {
		if b.nxdomain == nil || cred >= b.nxdomain.credibility {
			b.nxdomain = &negativeEntry{credibility: cred, expiry: now.Add(ttl)}
			b.entries = nil
		}
		return
	}

	if b.nxdomain != nil {
		return
	}
	existing := b.entries[q.Type]
	if existing != nil && existing.credibility > cred {
		return
	}
	if b.entries == nil {
		b.entries = make(map[rr.Type]*entry)
	}
	b.entries[q.Type] = &entry{credibility: cred, expiry: now.Add(ttl), negative: true}
}

func negativeTTL(m *message.Message) time.Duration {
	for _, rec := range m.Authority {
		soa, ok := rec.Data.(*rr.SOA)
		if !ok {
			continue
		}
		ttl := rec.TTL
		if soa.Minimum < ttl {
			ttl = soa.Minimum
		}
		return time.Duration(ttl) * time.Second
	}
	return defaultNegTTL
}

func (c *Cache) addSection(section []message.Record, cred Credibility, now time.Time) {
	for _, rset := range message.GroupRRsets(section) {
		ttl := time.Duration(rset.TTL) * time.Second
		if ttl > c.maxTTL {
			ttl = c.maxTTL
		}
		c.insert(rset.Name, rset.Type, cred, now.Add(ttl), rset)
	}
}

func (c *Cache) insert(n name.Name, t rr.Type, cred Credibility, expiry time.Time, rset message.RRset) {
	b := c.bucket(n, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.nxdomain != nil {
		if cred < b.nxdomain.credibility {
			return
		}
		b.nxdomain = nil
	}

	if b.entries == nil {
		b.entries = make(map[rr.Type]*entry)
	}
	if existing, ok := b.entries[t]; ok {
		if existing.credibility > cred {
			return
		}
		if existing.credibility == cred && existing.expiry.Before(expiry) {
			expiry = existing.expiry
		}
	}
	b.entries[t] = &entry{credibility: cred, expiry: expiry, rrset: rset}
}
