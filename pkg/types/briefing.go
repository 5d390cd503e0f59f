// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AnalysisItem is the uniform shape handed to the reasoning capability,
// regardless of which scope produced it.
type AnalysisItem struct {
	Company   string         `json:"company" yaml:"company"`
	Title     string         `json:"title" yaml:"title"`
	Content   string         `json:"content" yaml:"content"`
	Citations []Citation     `json:"citations" yaml:"citations"`
	Raw       map[string]any `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// AnalysisEvent is one high-impact event returned by synthesis.
type AnalysisEvent struct {
	Title     string         `json:"title" yaml:"title"`
	Insights  map[string]any `json:"insights" yaml:"insights"`
	Citations []Citation     `json:"citations" yaml:"citations"`

	// Meta holds every provider field that is not modeled above.
	Meta map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Briefing is the final report handed to the presentation boundary.
type Briefing struct {
	Company  CompanyIdentity  `json:"company" yaml:"company"`
	Events   []AnalysisEvent  `json:"events" yaml:"events"`
	Summary  string           `json:"summary" yaml:"summary"`
	Sections map[Scope]string `json:"sections" yaml:"sections"`

	// RawSections is the full discovery bundle, when requested.
	RawSections *DiscoveryBundle `json:"raw_sections,omitempty" yaml:"raw_sections,omitempty"`
}

// Citations returns every citation attached to the briefing's events, in
// event order. Duplicates are kept.
func (b Briefing) Citations() []Citation {
	var out []Citation
	for _, ev := range b.Events {
		out = append(out, ev.Citations...)
	}
	return out
}
