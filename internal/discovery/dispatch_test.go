// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/company-intel/internal/cache"
	"github.com/pdiddy/company-intel/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var capitalOne = types.CompanyIdentity{Name: "Capital One", Ticker: "COF"}

// countingCapability returns payload and counts its calls.
func countingCapability(calls *int32, payload types.RawPayload, err error) Capability {
	return func(ctx context.Context, _ types.CompanyIdentity) (types.RawPayload, error) {
		atomic.AddInt32(calls, 1)
		return payload, err
	}
}

func newsPayload() types.RawPayload {
	return types.RawPayload{
		Summary:       "Capital One closed the Discover acquisition. See https://example.com/x",
		CitationsText: "- [Deal closes](https://example.com/a)\n- [Analysis](https://example.com/b)",
		Audit:         map[string]any{"citation_count": 2},
	}
}

func TestFetchScope_CachesWithinTTL(t *testing.T) {
	var calls int32
	table := Table{types.ScopeNews: countingCapability(&calls, newsPayload(), nil)}
	d := NewDispatcher(table, cache.New[types.Section](16, time.Minute))

	first, err := d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	require.NoError(t, err)
	second, err := d.FetchScope(context.Background(), types.ScopeNews, types.CompanyIdentity{Name: "CAPITAL ONE", Ticker: "cof"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second)
}

func TestFetchScope_Normalizes(t *testing.T) {
	var calls int32
	table := Table{types.ScopeNews: countingCapability(&calls, newsPayload(), nil)}
	d := NewDispatcher(table, nil)

	sec, err := d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	require.NoError(t, err)

	assert.Equal(t, types.ScopeNews, sec.Scope)
	assert.Equal(t, "Capital One closed the Discover acquisition. See [link omitted]", sec.Summary)
	assert.Equal(t, []types.Citation{
		{Title: "Deal closes", URL: "https://example.com/a"},
		{Title: "Analysis", URL: "https://example.com/b"},
	}, sec.Citations)
	assert.Equal(t, 2, sec.Audit["citation_count"])
	assert.False(t, sec.Failed())
}

func TestNormalize_ProviderCannotMarkFailure(t *testing.T) {
	raw := newsPayload()
	raw.Audit[types.AuditStatus] = types.StatusFailed
	raw.Audit[types.AuditError] = "upstream said so"
	raw.Audit["status"] = "failed"

	sec := Normalize(types.ScopeNews, raw)
	assert.False(t, sec.Failed())
	assert.NotContains(t, sec.Audit, types.AuditStatus)
	assert.NotContains(t, sec.Audit, types.AuditError)
	assert.Equal(t, "failed", sec.Audit["status"], "ordinary provider keys are kept")
	assert.Equal(t, 2, sec.Audit["citation_count"])
}

func TestFetchScope_CacheIsolatedFromCallerMutation(t *testing.T) {
	var calls int32
	table := Table{types.ScopeNews: countingCapability(&calls, newsPayload(), nil)}
	d := NewDispatcher(table, cache.New[types.Section](16, time.Minute))

	sec, err := d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	require.NoError(t, err)
	sec.Citations[0].Title = "mutated"
	sec.Audit["citation_count"] = 99

	again, err := d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	require.NoError(t, err)
	assert.Equal(t, "Deal closes", again.Citations[0].Title)
	assert.Equal(t, 2, again.Audit["citation_count"])
}

func TestFetchScope_TickerPartOfKey(t *testing.T) {
	var calls int32
	table := Table{types.ScopeNews: countingCapability(&calls, newsPayload(), nil)}
	d := NewDispatcher(table, cache.New[types.Section](16, time.Minute))

	_, err := d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	require.NoError(t, err)
	_, err = d.FetchScope(context.Background(), types.ScopeNews, types.CompanyIdentity{Name: "Capital One"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchScope_UnknownScope(t *testing.T) {
	d := NewDispatcher(Table{}, cache.New[types.Section](16, time.Minute))

	_, err := d.FetchScope(context.Background(), types.Scope("weather"), capitalOne)
	assert.ErrorIs(t, err, types.ErrUnknownScope)
}

func TestFetchScope_FailureNotCached(t *testing.T) {
	var calls int32
	boom := errors.New("provider down")
	table := Table{types.ScopeNews: countingCapability(&calls, types.RawPayload{}, boom)}
	d := NewDispatcher(table, cache.New[types.Section](16, time.Minute))

	_, err := d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	assert.ErrorIs(t, err, boom)
	_, err = d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchScope_RecoversPanic(t *testing.T) {
	table := Table{types.ScopeNews: func(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
		panic("nil map")
	}}
	d := NewDispatcher(table, nil)

	_, err := d.FetchScope(context.Background(), types.ScopeNews, capitalOne)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestFetchAll_PartialFailure(t *testing.T) {
	var okCalls, badCalls int32
	table := Table{
		types.ScopeNews:        countingCapability(&okCalls, newsPayload(), nil),
		types.ScopeSECFilings:  countingCapability(&okCalls, types.RawPayload{Summary: "10-K filed"}, nil),
		types.ScopeProcurement: countingCapability(&badCalls, types.RawPayload{}, errors.New("HTTP 503")),
	}
	d := NewDispatcher(table, cache.New[types.Section](16, time.Minute))

	scopes := []types.Scope{types.ScopeNews, types.ScopeSECFilings, types.ScopeProcurement}
	bundle, err := d.FetchAll(context.Background(), capitalOne, scopes)
	require.NoError(t, err)

	assert.Equal(t, capitalOne, bundle.Company)
	require.Len(t, bundle.Sections, 3)

	failed := bundle.Sections[types.ScopeProcurement]
	assert.True(t, failed.Failed())
	assert.Empty(t, failed.Summary)
	assert.Empty(t, failed.Citations)
	assert.Contains(t, failed.Audit[types.AuditError], "HTTP 503")

	assert.False(t, bundle.Sections[types.ScopeNews].Failed())
	assert.Equal(t, "10-K filed", bundle.Sections[types.ScopeSECFilings].Summary)
}

func TestFetchAll_UnknownScopeFailsFast(t *testing.T) {
	var calls int32
	table := Table{types.ScopeNews: countingCapability(&calls, newsPayload(), nil)}
	d := NewDispatcher(table, nil)

	_, err := d.FetchAll(context.Background(), capitalOne, []types.Scope{types.ScopeNews, "weather"})
	assert.ErrorIs(t, err, types.ErrUnknownScope)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFetchAll_DeduplicatesScopes(t *testing.T) {
	var calls int32
	table := Table{types.ScopeNews: countingCapability(&calls, newsPayload(), nil)}
	d := NewDispatcher(table, nil)

	bundle, err := d.FetchAll(context.Background(), capitalOne, []types.Scope{types.ScopeNews, types.ScopeNews})
	require.NoError(t, err)
	assert.Len(t, bundle.Sections, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchAll_RunsConcurrently(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	slow := func(ctx context.Context, _ types.CompanyIdentity) (types.RawPayload, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return types.RawPayload{Summary: "ok"}, nil
	}
	table := Table{}
	for _, sc := range types.BriefingScopes {
		table[sc] = slow
	}

	d := NewDispatcher(table, nil, WithConcurrency(2))
	bundle, err := d.FetchAll(context.Background(), capitalOne, types.BriefingScopes)
	require.NoError(t, err)
	assert.Len(t, bundle.Sections, len(types.BriefingScopes))
	assert.Equal(t, 2, peak)
}

func TestFetchAll_ScopeTimeout(t *testing.T) {
	table := Table{
		types.ScopeNews: func(ctx context.Context, _ types.CompanyIdentity) (types.RawPayload, error) {
			<-ctx.Done()
			return types.RawPayload{}, ctx.Err()
		},
		types.ScopeEarnings: func(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
			return types.RawPayload{Summary: "beat estimates"}, nil
		},
	}
	d := NewDispatcher(table, nil, WithScopeTimeout(20*time.Millisecond))

	bundle, err := d.FetchAll(context.Background(), capitalOne, []types.Scope{types.ScopeNews, types.ScopeEarnings})
	require.NoError(t, err)
	assert.True(t, bundle.Sections[types.ScopeNews].Failed())
	assert.Contains(t, bundle.Sections[types.ScopeNews].Audit[types.AuditError], "deadline exceeded")
	assert.Equal(t, "beat estimates", bundle.Sections[types.ScopeEarnings].Summary)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	table := Table{
		types.ScopeNews: func(ctx context.Context, _ types.CompanyIdentity) (types.RawPayload, error) {
			<-ctx.Done()
			return types.RawPayload{}, ctx.Err()
		},
	}
	d := NewDispatcher(table, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bundle, err := d.FetchAll(ctx, capitalOne, []types.Scope{types.ScopeNews})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, bundle.Sections[types.ScopeNews].Failed())
}

// stubProvider implements Provider with a fixed payload per method.
type stubProvider struct{ calls sync.Map }

func (p *stubProvider) record(name string) (types.RawPayload, error) {
	p.calls.Store(name, true)
	return types.RawPayload{Summary: name}, nil
}

func (p *stubProvider) SECFilings(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
	return p.record("sec")
}
func (p *stubProvider) News(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
	return p.record("news")
}
func (p *stubProvider) Procurement(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
	return p.record("procurement")
}
func (p *stubProvider) Earnings(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
	return p.record("earnings")
}
func (p *stubProvider) IndustryContext(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
	return p.record("industry")
}
func (p *stubProvider) Competitors(context.Context, types.CompanyIdentity) (types.RawPayload, error) {
	return p.record("competitors")
}

func TestBind(t *testing.T) {
	d := NewDispatcher(Bind(&stubProvider{}), nil)
	assert.Equal(t, types.AllScopes, d.Scopes())

	bundle, err := d.FetchAll(context.Background(), capitalOne, types.AllScopes)
	require.NoError(t, err)
	assert.Equal(t, "sec", bundle.Sections[types.ScopeSECFilings].Summary)
	assert.Equal(t, "industry", bundle.Sections[types.ScopeIndustryContext].Summary)
	assert.Equal(t, "competitors", bundle.Sections[types.ScopeCompetitors].Summary)
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(types.ScopeNews, types.CompanyIdentity{Name: "Capital One", Ticker: "COF"})
	b := Fingerprint(types.ScopeNews, types.CompanyIdentity{Name: " capital one ", Ticker: "cof"})
	assert.Equal(t, a, b)
	assert.Equal(t, "news|capital one|cof", a)
	assert.Equal(t, "news|capital one", Fingerprint(types.ScopeNews, types.CompanyIdentity{Name: "Capital One"}))
}
