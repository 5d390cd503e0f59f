// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/company-intel/internal/extract"
	"github.com/pdiddy/company-intel/pkg/types"
)

// Audit keys written into every payload.
const (
	AuditProvider      = "provider"
	AuditSearchQueries = "search_queries"
	AuditResultCount   = "result_count"
	AuditCitationCount = "citation_count"
	AuditEnriched      = "enriched"
)

const (
	providerName = "tavily"

	// snippetLen caps each hit's text in a fallback summary.
	snippetLen = 400
)

// Searcher is the part of Client the provider depends on.
type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

// Provider serves every discovery scope from one search API. Each scope
// renders its own query; the hits become a summary plus citation bullets.
type Provider struct {
	searcher   Searcher
	queries    map[types.Scope]compiledQuery
	maxResults int
	enricher   *Enricher
	log        logrus.FieldLogger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithMaxResults sets the hits requested per scope.
func WithMaxResults(n int) ProviderOption {
	return func(p *Provider) { p.maxResults = n }
}

// WithEnricher fetches full article text for hits with short snippets.
func WithEnricher(e *Enricher) ProviderOption {
	return func(p *Provider) { p.enricher = e }
}

// WithProviderLogger sets the logger. The default discards.
func WithProviderLogger(l logrus.FieldLogger) ProviderOption {
	return func(p *Provider) { p.log = l }
}

// NewProvider compiles queries and returns a provider. Scopes missing from
// queries fall back to DefaultQueries.
func NewProvider(s Searcher, queries map[types.Scope]Query, opts ...ProviderOption) (*Provider, error) {
	merged := DefaultQueries()
	for sc, q := range queries {
		merged[sc] = q
	}

	p := &Provider{
		searcher:   s,
		queries:    make(map[types.Scope]compiledQuery, len(merged)),
		maxResults: 8,
	}
	for sc, q := range merged {
		cq, err := compile(sc, q)
		if err != nil {
			return nil, err
		}
		p.queries[sc] = cq
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.log = l
	}
	return p, nil
}

func (p *Provider) SECFilings(ctx context.Context, c types.CompanyIdentity) (types.RawPayload, error) {
	return p.discover(ctx, types.ScopeSECFilings, c)
}

func (p *Provider) News(ctx context.Context, c types.CompanyIdentity) (types.RawPayload, error) {
	return p.discover(ctx, types.ScopeNews, c)
}

func (p *Provider) Procurement(ctx context.Context, c types.CompanyIdentity) (types.RawPayload, error) {
	return p.discover(ctx, types.ScopeProcurement, c)
}

func (p *Provider) Earnings(ctx context.Context, c types.CompanyIdentity) (types.RawPayload, error) {
	return p.discover(ctx, types.ScopeEarnings, c)
}

func (p *Provider) IndustryContext(ctx context.Context, c types.CompanyIdentity) (types.RawPayload, error) {
	return p.discover(ctx, types.ScopeIndustryContext, c)
}

func (p *Provider) Competitors(ctx context.Context, c types.CompanyIdentity) (types.RawPayload, error) {
	return p.discover(ctx, types.ScopeCompetitors, c)
}

func (p *Provider) discover(ctx context.Context, scope types.Scope, company types.CompanyIdentity) (types.RawPayload, error) {
	q, ok := p.queries[scope]
	if !ok {
		return types.RawPayload{}, fmt.Errorf("%w: %q", types.ErrUnknownScope, scope)
	}
	text, err := q.render(company)
	if err != nil {
		return types.RawPayload{}, fmt.Errorf("rendering %s query: %w", scope, err)
	}

	resp, err := p.searcher.Search(ctx, Request{
		Query:          text,
		SearchDepth:    q.Depth,
		Topic:          q.Topic,
		Days:           q.Days,
		MaxResults:     p.maxResults,
		IncludeAnswer:  true,
		IncludeDomains: q.IncludeDomains,
	})
	if err != nil {
		return types.RawPayload{}, err
	}

	var (
		hits      []Result
		citations []types.Citation
	)
	for _, r := range resp.Results {
		if !extract.ValidURL(r.URL) {
			continue
		}
		hits = append(hits, r)
		citations = append(citations, types.Citation{Title: strings.TrimSpace(r.Title), URL: r.URL})
	}

	enriched := 0
	if p.enricher != nil {
		for i := range hits {
			if !p.enricher.NeedsText(hits[i].Content) {
				continue
			}
			body, err := p.enricher.Text(ctx, hits[i].URL)
			if err != nil {
				// Enrichment is best-effort; the snippet stays.
				p.log.WithFields(logrus.Fields{
					"op":     "enrich",
					"scope":  scope,
					"target": hits[i].URL,
				}).WithError(err).Debug("enrichment skipped")
				continue
			}
			hits[i].Content = body
			enriched++
		}
	}

	return types.RawPayload{
		Summary:       summarize(scope, company, resp.Answer, hits),
		CitationsText: extract.FormatCitations(citations),
		Audit: map[string]any{
			AuditProvider:      providerName,
			AuditSearchQueries: []string{text},
			AuditResultCount:   len(hits),
			AuditCitationCount: len(citations),
			AuditEnriched:      enriched,
		},
	}, nil
}

// summarize prefers the API's synthesized answer and otherwise lists the
// hits as bullets. No hits is a normal outcome, not an error.
func summarize(scope types.Scope, company types.CompanyIdentity, answer string, hits []Result) string {
	if a := strings.TrimSpace(answer); a != "" {
		return a
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No %s results found for %s.", strings.ToLower(scope.Title()), company.Name)
	}
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteByte('\n')
		}
		text := strings.Join(strings.Fields(h.Content), " ")
		fmt.Fprintf(&b, "- %s: %s", strings.TrimSpace(h.Title), extract.Summarize(text, snippetLen))
	}
	return b.String()
}
