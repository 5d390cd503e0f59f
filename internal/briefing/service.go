// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package briefing

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/company-intel/internal/cache"
	"github.com/pdiddy/company-intel/internal/discovery"
	"github.com/pdiddy/company-intel/internal/extract"
	"github.com/pdiddy/company-intel/internal/ledger"
	"github.com/pdiddy/company-intel/internal/resolve"
	"github.com/pdiddy/company-intel/internal/synth"
	"github.com/pdiddy/company-intel/pkg/types"
)

// Default briefing cache bounds.
const (
	DefaultCacheSize = 64
	DefaultCacheTTL  = 30 * time.Minute
)

// DefaultBuildTimeout bounds one shared briefing build.
const DefaultBuildTimeout = 10 * time.Minute

// Recorder persists run outcomes. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, run ledger.Run) error
}

// Request asks for one briefing.
type Request struct {
	// Input is the free-text company name or alias.
	Input string

	// Scopes overrides the service's default scope set.
	Scopes []types.Scope

	// IncludeRaw attaches the discovery bundle to the briefing.
	IncludeRaw bool

	// Refresh skips the briefing cache lookup. Section caching still applies.
	Refresh bool
}

// Result is a briefing plus how it was produced. RunID is empty when the
// briefing came from cache.
type Result struct {
	RunID    string          `json:"run_id" yaml:"run_id"`
	Company  resolve.Company `json:"company" yaml:"company"`
	Briefing types.Briefing  `json:"briefing" yaml:"briefing"`
	Cached   bool            `json:"cached" yaml:"cached"`
}

// Service runs the briefing pipeline. It is safe for concurrent use;
// concurrent requests for the same briefing share one build.
type Service struct {
	resolver   *resolve.Resolver
	dispatcher *discovery.Dispatcher
	synth      *synth.Synthesizer
	briefings  *cache.Cache[types.Briefing]
	recorder   Recorder
	scopes     []types.Scope
	log        logrus.FieldLogger
	group      singleflight.Group
	newRunID   func() string

	buildTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithRecorder records every run. Recording failures are logged, never
// returned.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithBriefingCache replaces the default briefing cache.
func WithBriefingCache(c *cache.Cache[types.Briefing]) Option {
	return func(s *Service) { s.briefings = c }
}

// WithDefaultScopes sets the scopes fetched when a request names none.
func WithDefaultScopes(scopes []types.Scope) Option {
	return func(s *Service) { s.scopes = append([]types.Scope(nil), scopes...) }
}

// WithBuildTimeout bounds each briefing build. Builds are shared between
// callers and outlive any one of them, so this is their only deadline.
// Zero or negative disables it.
func WithBuildTimeout(d time.Duration) Option {
	return func(s *Service) { s.buildTimeout = d }
}

// NewService wires the pipeline stages together.
func NewService(r *resolve.Resolver, d *discovery.Dispatcher, sy *synth.Synthesizer, opts ...Option) *Service {
	s := &Service{
		resolver:   r,
		dispatcher: d,
		synth:      sy,
		scopes:     append([]types.Scope(nil), types.BriefingScopes...),
		newRunID:   uuid.NewString,

		buildTimeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.briefings == nil {
		s.briefings = cache.New[types.Briefing](DefaultCacheSize, DefaultCacheTTL)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return s
}

// briefingKey is the briefing cache key. The scope set is part of the key
// so a narrowed briefing never answers for the full one.
func briefingKey(company types.CompanyIdentity, scopes []types.Scope) string {
	return cache.Fingerprint("briefing", company.Name, company.Ticker, scopeSetKey(scopes))
}

// scopeSetKey renders scopes in canonical order, ignoring duplicates.
func scopeSetKey(scopes []types.Scope) string {
	want := make(map[types.Scope]bool, len(scopes))
	for _, sc := range scopes {
		want[sc] = true
	}
	var parts []string
	for _, sc := range types.AllScopes {
		if want[sc] {
			parts = append(parts, string(sc))
			delete(want, sc)
		}
	}
	// Unknown scopes still need a stable key; FetchAll rejects them later.
	var unknown []string
	for sc := range want {
		unknown = append(unknown, string(sc))
	}
	slices.Sort(unknown)
	parts = append(parts, unknown...)
	return strings.Join(parts, ",")
}

type built struct {
	runID    string
	briefing types.Briefing
}

// Brief resolves the company and returns its briefing, from cache when a
// fresh one exists. An unresolved company yields *resolve.UnresolvedError.
// A synthesis failure yields an error wrapping synth.ErrSynthesis and no
// briefing; failed scopes alone never fail the briefing.
func (s *Service) Brief(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	company, err := s.resolver.Identify(req.Input)
	if err != nil {
		runID := s.newRunID()
		s.log.WithFields(logrus.Fields{
			"op":     "brief",
			"run_id": runID,
			"target": req.Input,
		}).WithError(err).Warn("company not resolved")
		s.record(ctx, ledger.Run{
			ID: runID, Input: req.Input, Status: ledger.StatusFailed, Error: err.Error(),
			StartedAt: start, FinishedAt: time.Now(),
		})
		return Result{RunID: runID}, err
	}

	id := company.Identity()
	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = s.scopes
	}
	key := briefingKey(id, scopes)

	if !req.Refresh {
		if b, ok := s.briefings.Get(key); ok {
			s.log.WithFields(logrus.Fields{
				"op":      "brief",
				"company": id.Name,
			}).Info("briefing cache hit")
			return Result{Company: company, Briefing: present(b, req.IncludeRaw), Cached: true}, nil
		}
	}

	// The build is shared, so it runs detached from this caller. A caller
	// that gives up returns at once; the build still finishes and fills the
	// cache for the others.
	ch := s.group.DoChan(key, func() (any, error) {
		bctx := context.WithoutCancel(ctx)
		if s.buildTimeout > 0 {
			var cancel context.CancelFunc
			bctx, cancel = context.WithTimeout(bctx, s.buildTimeout)
			defer cancel()
		}
		return s.build(bctx, req.Input, company, scopes, key, start)
	})
	var v any
	select {
	case <-ctx.Done():
		return Result{Company: company}, ctx.Err()
	case r := <-ch:
		v, err = r.Val, r.Err
	}
	if err != nil {
		res := Result{Company: company}
		if b, ok := v.(built); ok {
			res.RunID = b.runID
		}
		return res, err
	}
	b := v.(built)
	return Result{RunID: b.runID, Company: company, Briefing: present(b.briefing, req.IncludeRaw)}, nil
}

func (s *Service) build(ctx context.Context, input string, company resolve.Company, scopes []types.Scope, key string, start time.Time) (built, error) {
	runID := s.newRunID()
	id := company.Identity()
	log := s.log.WithFields(logrus.Fields{
		"op":      "brief",
		"run_id":  runID,
		"company": id.Name,
	})
	run := ledger.Run{
		ID:        runID,
		Input:     input,
		Slug:      company.Slug,
		Company:   id.Name,
		Status:    ledger.StatusFailed,
		StartedAt: start,
	}
	fail := func(err error) (built, error) {
		log.WithError(err).Error("briefing failed")
		run.Error = err.Error()
		run.FinishedAt = time.Now()
		s.record(ctx, run)
		return built{runID: runID}, err
	}

	bundle, err := s.dispatcher.FetchAll(ctx, id, scopes)
	run.Scopes = ledger.ScopeResults(bundle)
	if err != nil {
		return fail(fmt.Errorf("discovering %s: %w", id.Name, err))
	}

	events, err := s.synth.Synthesize(ctx, Items(bundle))
	if err != nil {
		return fail(err)
	}

	summary := fmt.Sprintf("Identified %d significant events for %s.", len(events), id.Name)
	b := Assemble(id, events, summary, SectionTexts(bundle), &bundle)
	s.briefings.Set(key, b)

	run.Status = ledger.StatusOK
	run.EventCount = len(events)
	run.FinishedAt = time.Now()
	s.record(ctx, run)

	log.WithFields(logrus.Fields{
		"events":  len(events),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("briefing complete")
	return built{runID: runID, briefing: b}, nil
}

// present returns a private copy of b, without the raw bundle unless asked.
func present(b types.Briefing, includeRaw bool) types.Briefing {
	out := clone(b)
	if !includeRaw {
		out.RawSections = nil
	}
	return out
}

func (s *Service) record(ctx context.Context, run ledger.Run) {
	if s.recorder == nil {
		return
	}
	// The run outcome is worth keeping even when the request was cancelled.
	if err := s.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		s.log.WithFields(logrus.Fields{
			"op":     "record_run",
			"run_id": run.ID,
		}).WithError(err).Warn("recording run failed")
	}
}

// Items turns the bundle's successful sections into analysis items in
// canonical scope order. Failed sections are left out of synthesis.
func Items(bundle types.DiscoveryBundle) []types.AnalysisItem {
	var items []types.AnalysisItem
	for _, sc := range bundle.OrderedScopes() {
		sec := bundle.Sections[sc]
		if sec.Failed() {
			continue
		}
		items = append(items, types.AnalysisItem{
			Company:   bundle.Company.Name,
			Title:     sc.Title(),
			Content:   sec.Summary,
			Citations: append([]types.Citation{}, sec.Citations...),
			Raw: map[string]any{
				"scope":        string(sc),
				"audit":        sec.Clone().Audit,
				"citations_md": extract.FormatCitations(sec.Citations),
			},
		})
	}
	return items
}

// SectionTexts returns the per-scope summary text of a bundle. Failed
// scopes get a short failure note.
func SectionTexts(bundle types.DiscoveryBundle) map[types.Scope]string {
	out := make(map[types.Scope]string, len(bundle.Sections))
	for sc, sec := range bundle.Sections {
		if sec.Failed() {
			msg, _ := sec.Audit[types.AuditError].(string)
			out[sc] = fmt.Sprintf("(Failed to fetch %s: %s)", sc, msg)
			continue
		}
		out[sc] = sec.Summary
	}
	return out
}
