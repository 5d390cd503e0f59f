// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discovery dispatches per-scope discovery calls for a company,
// caches the normalized sections, and assembles full discovery bundles that
// tolerate individual scope failures.
package discovery

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/company-intel/internal/cache"
	"github.com/pdiddy/company-intel/internal/extract"
	"github.com/pdiddy/company-intel/pkg/types"
)

// Capability performs discovery for one scope. It returns an empty payload,
// not an error, when the source simply has nothing to report; errors are
// reserved for transport and provider failures.
type Capability func(ctx context.Context, company types.CompanyIdentity) (types.RawPayload, error)

// Provider is a discovery source with one method per scope.
type Provider interface {
	SECFilings(ctx context.Context, company types.CompanyIdentity) (types.RawPayload, error)
	News(ctx context.Context, company types.CompanyIdentity) (types.RawPayload, error)
	Procurement(ctx context.Context, company types.CompanyIdentity) (types.RawPayload, error)
	Earnings(ctx context.Context, company types.CompanyIdentity) (types.RawPayload, error)
	IndustryContext(ctx context.Context, company types.CompanyIdentity) (types.RawPayload, error)
	Competitors(ctx context.Context, company types.CompanyIdentity) (types.RawPayload, error)
}

// Table maps each scope to the capability serving it. Adding a scope means
// adding an entry; caching and fan-out are unaffected.
type Table map[types.Scope]Capability

// Bind builds the policy table for a provider.
func Bind(p Provider) Table {
	return Table{
		types.ScopeSECFilings:      p.SECFilings,
		types.ScopeNews:            p.News,
		types.ScopeProcurement:     p.Procurement,
		types.ScopeEarnings:        p.Earnings,
		types.ScopeIndustryContext: p.IndustryContext,
		types.ScopeCompetitors:     p.Competitors,
	}
}

// Fingerprint is the cache key for a scope request. Every lookup and store
// for a (scope, company) pair goes through it.
func Fingerprint(scope types.Scope, company types.CompanyIdentity) string {
	return cache.Fingerprint(string(scope), company.Name, company.Ticker)
}

// Dispatcher resolves scopes to capabilities through a shared section cache.
// It is safe for concurrent use; the cache is the only shared state.
type Dispatcher struct {
	table        Table
	cache        *cache.Cache[types.Section]
	log          logrus.FieldLogger
	concurrency  int
	scopeTimeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithConcurrency caps the number of scopes fetched in parallel by FetchAll.
// Zero or negative means one goroutine per scope.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) { d.concurrency = n }
}

// WithScopeTimeout bounds each scope fetch in FetchAll. Zero disables it.
func WithScopeTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.scopeTimeout = t }
}

// NewDispatcher returns a dispatcher over table. The table is copied, so
// later changes by the caller have no effect. A nil cache disables caching.
func NewDispatcher(table Table, c *cache.Cache[types.Section], opts ...Option) *Dispatcher {
	d := &Dispatcher{
		table: make(Table, len(table)),
		cache: c,
	}
	for sc, capability := range table {
		d.table[sc] = capability
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.log = l
	}
	return d
}

// Scopes returns the scopes the dispatcher can serve, in canonical order.
func (d *Dispatcher) Scopes() []types.Scope {
	var out []types.Scope
	for _, sc := range types.AllScopes {
		if _, ok := d.table[sc]; ok {
			out = append(out, sc)
		}
	}
	return out
}

// FetchScope returns the section for one scope, from cache when a fresh
// entry exists. An unknown scope fails with types.ErrUnknownScope before
// any call is made. A capability failure is returned as an error and
// nothing is cached.
func (d *Dispatcher) FetchScope(ctx context.Context, scope types.Scope, company types.CompanyIdentity) (types.Section, error) {
	capability, ok := d.table[scope]
	if !ok {
		return types.Section{}, fmt.Errorf("%w: %q", types.ErrUnknownScope, scope)
	}

	key := Fingerprint(scope, company)
	entry := d.log.WithFields(logrus.Fields{
		"op":      "discover",
		"scope":   scope,
		"company": company.Name,
	})

	if d.cache != nil {
		if sec, ok := d.cache.Get(key); ok {
			entry.Debug("cache hit")
			return sec.Clone(), nil
		}
	}

	start := time.Now()
	raw, err := d.invoke(ctx, capability, company)
	if err != nil {
		entry.WithError(err).Warn("discovery failed")
		return types.Section{}, fmt.Errorf("discovering %s for %s: %w", scope, company.Name, err)
	}

	sec := Normalize(scope, raw)
	if d.cache != nil {
		d.cache.Set(key, sec.Clone())
	}
	entry.WithFields(logrus.Fields{
		"citations": len(sec.Citations),
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Info("discovered")
	return sec, nil
}

// FetchAll fetches every requested scope concurrently and returns a bundle
// with exactly one section per distinct scope. A scope whose capability
// fails is reported as a failure-marker section (see types.FailedSection)
// and never aborts the others. Unknown scopes fail the whole call up front
// with types.ErrUnknownScope. If ctx is cancelled the bundle is still
// returned, together with ctx.Err().
func (d *Dispatcher) FetchAll(ctx context.Context, company types.CompanyIdentity, scopes []types.Scope) (types.DiscoveryBundle, error) {
	var unique []types.Scope
	seen := make(map[types.Scope]bool, len(scopes))
	for _, sc := range scopes {
		if _, ok := d.table[sc]; !ok {
			return types.DiscoveryBundle{}, fmt.Errorf("%w: %q", types.ErrUnknownScope, sc)
		}
		if !seen[sc] {
			seen[sc] = true
			unique = append(unique, sc)
		}
	}

	bundle := types.DiscoveryBundle{
		Company:  company,
		Sections: make(map[types.Scope]types.Section, len(unique)),
	}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		eg.SetLimit(d.concurrency)
	}
	for _, sc := range unique {
		eg.Go(func() error {
			sctx, cancel := egCtx, context.CancelFunc(func() {})
			if d.scopeTimeout > 0 {
				sctx, cancel = context.WithTimeout(egCtx, d.scopeTimeout)
			}
			defer cancel()

			sec, err := d.FetchScope(sctx, sc, company)
			if err != nil {
				sec = types.FailedSection(sc, err)
			}
			mu.Lock()
			bundle.Sections[sc] = sec
			mu.Unlock()
			// Scope failures are recorded in the bundle, never propagated.
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, sec := range bundle.Sections {
		if sec.Failed() {
			failed++
		}
	}
	d.log.WithFields(logrus.Fields{
		"op":      "discover_all",
		"company": company.Name,
		"scopes":  len(unique),
		"failed":  failed,
	}).Info("discovery bundle assembled")

	return bundle, ctx.Err()
}

// invoke calls capability, converting a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, capability Capability, company types.CompanyIdentity) (raw types.RawPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("stack", string(debug.Stack())).Errorf("discovery capability panicked: %v", r)
			err = fmt.Errorf("capability panicked: %v", r)
		}
	}()
	return capability(ctx, company)
}

// Normalize turns a raw payload into a section: inline URLs are stripped
// from the summary and citation bullets are parsed in order. Provider audit
// entries under the reserved failure-marker keys are dropped.
func Normalize(scope types.Scope, raw types.RawPayload) types.Section {
	sec := types.Section{
		Scope:     scope,
		Summary:   strings.TrimSpace(extract.StripInlineURLs(raw.Summary)),
		Citations: extract.ParseCitations(raw.CitationsText),
		Audit:     make(map[string]any, len(raw.Audit)),
	}
	for k, v := range raw.Audit {
		if k == types.AuditStatus || k == types.AuditError {
			continue
		}
		sec.Audit[k] = v
	}
	if sec.Citations == nil {
		sec.Citations = []types.Citation{}
	}
	return sec
}
