// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the company-intel pipeline:
// company identities, discovery sections and bundles, analysis items and
// events, and the assembled briefing.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownScope is returned when a scope identifier has no discovery
// capability registered. It is a configuration error: never retried, never cached.
var ErrUnknownScope = errors.New("unknown scope")

// ErrEmptyCompanyName is returned by NewCompanyIdentity for a blank name.
var ErrEmptyCompanyName = errors.New("company name is empty")

// CompanyIdentity identifies the company a request is about. Construct it
// with NewCompanyIdentity; the zero value is not a valid identity.
type CompanyIdentity struct {
	// Name is the trimmed, non-empty company name.
	Name string `json:"name" yaml:"name"`

	// Ticker is the optional exchange ticker. Empty means absent.
	Ticker string `json:"ticker,omitempty" yaml:"ticker,omitempty"`
}

// NewCompanyIdentity trims name and ticker and rejects a blank name.
func NewCompanyIdentity(name, ticker string) (CompanyIdentity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CompanyIdentity{}, ErrEmptyCompanyName
	}
	return CompanyIdentity{Name: name, Ticker: strings.TrimSpace(ticker)}, nil
}

// Scope is one discovery category.
type Scope string

const (
	ScopeSECFilings      Scope = "sec_filings"
	ScopeNews            Scope = "news"
	ScopeProcurement     Scope = "procurement"
	ScopeEarnings        Scope = "earnings"
	ScopeIndustryContext Scope = "industry_context"
	ScopeCompetitors     Scope = "competitors"
)

// AllScopes lists every known scope in canonical order.
var AllScopes = []Scope{
	ScopeSECFilings,
	ScopeNews,
	ScopeProcurement,
	ScopeEarnings,
	ScopeIndustryContext,
	ScopeCompetitors,
}

// BriefingScopes is the default scope set for a full company briefing.
// Competitors are only fetched on request.
var BriefingScopes = []Scope{
	ScopeSECFilings,
	ScopeNews,
	ScopeProcurement,
	ScopeEarnings,
	ScopeIndustryContext,
}

// ParseScope validates a scope identifier.
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, sc := range AllScopes {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
}

// ParseScopes parses a comma-separated list of scope identifiers.
func ParseScopes(list string) ([]Scope, error) {
	var scopes []Scope
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		sc, err := ParseScope(part)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, sc)
	}
	return scopes, nil
}

// Title returns a human-readable heading such as "Sec Filings".
func (s Scope) Title() string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Citation is a titled link to a source.
type Citation struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	URL   string `json:"url" yaml:"url"`
}

// Audit keys reserved for the discovery layer. Provider audits never set
// them.
const (
	AuditStatus = "discovery_status"
	AuditError  = "discovery_error"

	StatusFailed = "failed"
)

// Section is the normalized result of one scope's discovery call.
type Section struct {
	Scope     Scope          `json:"scope" yaml:"scope"`
	Summary   string         `json:"summary" yaml:"summary"`
	Citations []Citation     `json:"citations" yaml:"citations"`
	Audit     map[string]any `json:"audit,omitempty" yaml:"audit,omitempty"`
}

// FailedSection returns the failure-marker section reported for a scope
// whose discovery call failed.
func FailedSection(scope Scope, err error) Section {
	return Section{
		Scope:     scope,
		Citations: []Citation{},
		Audit: map[string]any{
			AuditStatus: StatusFailed,
			AuditError:  err.Error(),
		},
	}
}

// Clone returns a copy that shares no slices or maps with s. Audit values
// are copied shallowly.
func (s Section) Clone() Section {
	out := s
	if s.Citations != nil {
		out.Citations = append([]Citation{}, s.Citations...)
	}
	if s.Audit != nil {
		out.Audit = make(map[string]any, len(s.Audit))
		for k, v := range s.Audit {
			out.Audit[k] = v
		}
	}
	return out
}

// Failed reports whether the section carries a failure marker.
func (s Section) Failed() bool {
	status, _ := s.Audit[AuditStatus].(string)
	return status == StatusFailed
}

// RawPayload is what a discovery capability returns for one scope.
type RawPayload struct {
	Summary string `json:"summary" yaml:"summary"`

	// CitationsText holds "- [title](url)" bullets, one per line.
	CitationsText string `json:"citations_md" yaml:"citations_md"`

	Audit map[string]any `json:"audit,omitempty" yaml:"audit,omitempty"`
}

// DiscoveryBundle maps each requested scope to its section.
type DiscoveryBundle struct {
	Company  CompanyIdentity   `json:"company" yaml:"company"`
	Sections map[Scope]Section `json:"sections" yaml:"sections"`
}

// OrderedScopes returns the bundle's scopes in canonical order.
func (b DiscoveryBundle) OrderedScopes() []Scope {
	var out []Scope
	for _, sc := range AllScopes {
		if _, ok := b.Sections[sc]; ok {
			out = append(out, sc)
		}
	}
	return out
}
