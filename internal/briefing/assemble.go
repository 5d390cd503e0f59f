// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package briefing orchestrates a company briefing: identity resolution,
// scope discovery, synthesis and assembly. It also answers follow-up
// questions from a cached briefing or a targeted discovery pass.
package briefing

import (
	"github.com/pdiddy/company-intel/pkg/types"
)

// Assemble combines its inputs into a Briefing. The result shares no
// slices or maps with the inputs, so later changes to either side do not
// leak across. raw may be nil.
func Assemble(company types.CompanyIdentity, events []types.AnalysisEvent, summary string, sections map[types.Scope]string, raw *types.DiscoveryBundle) types.Briefing {
	b := types.Briefing{
		Company:  company,
		Events:   make([]types.AnalysisEvent, len(events)),
		Summary:  summary,
		Sections: make(map[types.Scope]string, len(sections)),
	}
	for i, ev := range events {
		b.Events[i] = cloneEvent(ev)
	}
	for sc, text := range sections {
		b.Sections[sc] = text
	}
	if raw != nil {
		bundle := cloneBundle(*raw)
		b.RawSections = &bundle
	}
	return b
}

// clone deep-copies a briefing down to the event and section level.
func clone(b types.Briefing) types.Briefing {
	return Assemble(b.Company, b.Events, b.Summary, b.Sections, b.RawSections)
}

func cloneEvent(ev types.AnalysisEvent) types.AnalysisEvent {
	return types.AnalysisEvent{
		Title:     ev.Title,
		Insights:  copyMap(ev.Insights),
		Citations: append([]types.Citation{}, ev.Citations...),
		Meta:      copyMap(ev.Meta),
	}
}

func cloneBundle(b types.DiscoveryBundle) types.DiscoveryBundle {
	out := types.DiscoveryBundle{
		Company:  b.Company,
		Sections: make(map[types.Scope]types.Section, len(b.Sections)),
	}
	for sc, sec := range b.Sections {
		out.Sections[sc] = sec.Clone()
	}
	return out
}

// copyMap copies the top level of m. Nested values are shared.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
