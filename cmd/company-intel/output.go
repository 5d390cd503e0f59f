// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-intel/internal/briefing"
	"github.com/pdiddy/company-intel/internal/profile"
	"github.com/pdiddy/company-intel/pkg/types"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// writeStructured writes v as JSON or YAML. It reports false for the table
// format so the caller can print its own layout.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case formatTable, "":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported format %q: use table, json or yaml", format)
	}
}

// insightOrder is the display order of the common insight fields; any
// others follow alphabetically.
var insightOrder = []string{"what_happened", "why_it_matters", "consulting_angle", "need_type", "service_line", "urgency", "timing"}

// printBriefing writes the human-readable briefing layout.
func printBriefing(w io.Writer, res briefing.Result, prof profile.Profile) {
	b := res.Briefing
	fmt.Fprintf(w, "%s", b.Company.Name)
	if b.Company.Ticker != "" {
		fmt.Fprintf(w, " (%s)", b.Company.Ticker)
	}
	if res.Cached {
		fmt.Fprint(w, "  [cached]")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if prof != nil {
		printProfile(w, prof)
	}

	fmt.Fprintf(w, "\n%s\n", b.Summary)
	for i, ev := range b.Events {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, ev.Title)
		for _, k := range insightKeys(ev.Insights) {
			fmt.Fprintf(w, "   %-18s %v\n", k+":", ev.Insights[k])
		}
		for _, c := range ev.Citations {
			fmt.Fprintf(w, "   - %s\n", citationLine(c))
		}
	}

	fmt.Fprintln(w, "\nSections")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, sc := range sectionOrder(b.Sections) {
		fmt.Fprintf(w, "\n[%s]\n%s\n", sc.Title(), b.Sections[sc])
	}

	if b.RawSections != nil {
		fmt.Fprintln(w, "\nSources")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, sc := range b.RawSections.OrderedScopes() {
			sec := b.RawSections.Sections[sc]
			fmt.Fprintf(w, "%-18s %d citations\n", sc, len(sec.Citations))
		}
	}

	if res.RunID != "" {
		fmt.Fprintf(w, "\nrun %s\n", res.RunID)
	}
}

// printProfile writes the profile side panel.
func printProfile(w io.Writer, p profile.Profile) {
	fmt.Fprintln(w, "\nProfile")
	keys := make([]string, 0, len(p))
	for k := range p {
		if k != "company_name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %v\n", k+":", p[k])
	}
}

func insightKeys(m map[string]any) []string {
	var keys []string
	seen := make(map[string]bool, len(insightOrder))
	for _, k := range insightOrder {
		seen[k] = true
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] && k != "source_urls" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// sectionOrder lists the scopes present in sections in canonical order.
func sectionOrder(sections map[types.Scope]string) []types.Scope {
	var out []types.Scope
	for _, sc := range types.AllScopes {
		if _, ok := sections[sc]; ok {
			out = append(out, sc)
		}
	}
	return out
}

func citationLine(c types.Citation) string {
	if c.Title == "" || c.Title == c.URL {
		return c.URL
	}
	return c.Title + " <" + c.URL + ">"
}
