package cache

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semihalev/resolve/message"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

func mustName(t *testing.T, s string) name.Name {
	t.Helper()
	n, err := name.Parse(s, name.Root)
	require.NoError(t, err)
	return n
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func aResponse(t *testing.T, owner name.Name, ttl uint32, aa bool) *message.Message {
	t.Helper()
	return &message.Message{
		Response:      true,
		Authoritative: aa,
		Rcode:         message.RcodeSuccess,
		Question:      &message.Question{Name: owner, Type: rr.TypeA, Class: rr.ClassINET},
		Answer: []message.Record{
			{Name: owner, Type: rr.TypeA, Class: rr.ClassINET, TTL: ttl, Data: &rr.A{Address: net.ParseIP("192.0.2.1").To4()}},
		},
	}
}

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := New(rr.ClassINET, 1024)
	resp := c.Lookup(mustName(t, "example.com."), rr.TypeA, Hint)
	assert.Equal(t, Unknown, resp.Kind)
}

func TestAddMessageThenLookupSucceeds(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	owner := mustName(t, "example.com.")
	c.AddMessage(aResponse(t, owner, 300, true))

	resp := c.Lookup(owner, rr.TypeA, Hint)
	require.Equal(t, Successful, resp.Kind)
	require.NotNil(t, resp.RRset)
	require.Len(t, resp.RRset.Records, 1)
	a := resp.RRset.Records[0].Data.(*rr.A)
	assert.Equal(t, "192.0.2.1", a.Address.String())
}

func TestExpiredEntryIsNotReturned(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	owner := mustName(t, "example.com.")
	c.AddMessage(aResponse(t, owner, 1, true))

	c.now = fixedClock(base.Add(2 * time.Second))
	resp := c.Lookup(owner, rr.TypeA, Hint)
	assert.Equal(t, Unknown, resp.Kind)
}

func TestLowerCredibilityCannotOverwriteHigher(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	owner := mustName(t, "example.com.")
	c.AddMessage(aResponse(t, owner, 300, true)) // AuthAnswer

	nonauth := aResponse(t, owner, 300, false)
	nonauth.Answer[0].Data = &rr.A{Address: net.ParseIP("192.0.2.9").To4()}
	c.AddMessage(nonauth) // NonauthAnswer, must not overwrite

	resp := c.Lookup(owner, rr.TypeA, Hint)
	require.Equal(t, Successful, resp.Kind)
	a := resp.RRset.Records[0].Data.(*rr.A)
	assert.Equal(t, "192.0.2.1", a.Address.String(), "higher-credibility entry must survive a lower-credibility insert")
}

func TestNXDOMAINDisplacesPositiveAndRespectsMinCredibility(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	owner := mustName(t, "gone.example.com.")
	c.AddMessage(aResponse(t, owner, 300, true))

	nx := &message.Message{
		Response:      true,
		Authoritative: true,
		Rcode:         message.RcodeNameError,
		Question:      &message.Question{Name: owner, Type: rr.TypeA, Class: rr.ClassINET},
		Authority: []message.Record{
			{Name: mustName(t, "example.com."), Type: rr.TypeSOA, Class: rr.ClassINET, TTL: 3600, Data: &rr.SOA{
				MName: mustName(t, "ns1.example.com."), RName: mustName(t, "hostmaster.example.com."),
				Serial: 1, Refresh: 1, Retry: 1, Expire: 1, Minimum: 120,
			}},
		},
	}
	c.AddMessage(nx)

	resp := c.Lookup(owner, rr.TypeA, Hint)
	assert.Equal(t, NXDOMAIN, resp.Kind)

	strict := c.Lookup(owner, rr.TypeA, AuthAnswer)
	assert.NotEqual(t, Successful, strict.Kind)
}

func TestCNAMEChainIsFollowedTransparently(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	www := mustName(t, "www.example.com.")
	alias := mustName(t, "alias.example.com.")

	cnameMsg := &message.Message{
		Response: true, Rcode: message.RcodeSuccess,
		Question: &message.Question{Name: www, Type: rr.TypeCNAME, Class: rr.ClassINET},
		Answer: []message.Record{
			{Name: www, Type: rr.TypeCNAME, Class: rr.ClassINET, TTL: 300, Data: &rr.SingleName{RRType: rr.TypeCNAME, Target: alias}},
		},
	}
	c.AddMessage(cnameMsg)
	c.AddMessage(aResponse(t, alias, 300, true))

	resp := c.Lookup(www, rr.TypeA, Hint)
	require.Equal(t, Successful, resp.Kind)
	require.Len(t, resp.CNAMEs, 1)
	assert.True(t, resp.CNAMEs[0].Name.Equal(www))
}

func TestMinCredibilityFiltersOutLowerData(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	owner := mustName(t, "example.com.")
	c.AddMessage(aResponse(t, owner, 300, false)) // NonauthAnswer

	resp := c.Lookup(owner, rr.TypeA, AuthAnswer)
	assert.Equal(t, Unknown, resp.Kind, "NonauthAnswer data must not satisfy an AuthAnswer minimum")
}

func TestCapacityEvictsPastSoftCap(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 2)
	c.now = fixedClock(base)

	c.AddMessage(aResponse(t, mustName(t, "a.example.com."), 300, true))
	c.AddMessage(aResponse(t, mustName(t, "b.example.com."), 300, true))
	c.AddMessage(aResponse(t, mustName(t, "c.example.com."), 300, true))

	assert.LessOrEqual(t, c.Stats().Entries, int64(2), "insertion past capacity must evict rather than grow unbounded")
}

func TestCapacityEvictsExpiredBeforeLive(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 2)
	c.now = fixedClock(base)

	stale := mustName(t, "stale.example.com.")
	live := mustName(t, "live.example.com.")
	c.AddMessage(aResponse(t, stale, 1, true))
	c.now = fixedClock(base.Add(2 * time.Second))
	c.AddMessage(aResponse(t, live, 300, true))

	// Pushing a third name over capacity should reclaim the already-expired
	// "stale" bucket before touching the live one.
	c.AddMessage(aResponse(t, mustName(t, "another.example.com."), 300, true))

	resp := c.Lookup(live, rr.TypeA, Hint)
	assert.Equal(t, Successful, resp.Kind, "eviction must prefer expired data over a live entry")
}

func TestLookupPrunesExpiredBucketOnAccess(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	owner := mustName(t, "example.com.")
	c.AddMessage(aResponse(t, owner, 1, true))
	require.Equal(t, int64(1), c.Stats().Entries)

	c.now = fixedClock(base.Add(2 * time.Second))
	c.Lookup(owner, rr.TypeA, Hint)

	assert.Equal(t, int64(0), c.Stats().Entries, "an expired bucket must be removed, not merely filtered, on access")
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(rr.ClassINET, 1024)
	c.now = fixedClock(base)

	owner := mustName(t, "example.com.")
	c.AddMessage(aResponse(t, owner, 300, true))

	c.Lookup(owner, rr.TypeA, Hint)
	c.Lookup(mustName(t, "missing.example.com."), rr.TypeA, Hint)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.GreaterOrEqual(t, stats.Entries, int64(1))
}
