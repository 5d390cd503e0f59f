// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-intel/internal/briefing"
	"github.com/pdiddy/company-intel/internal/profile"
	"github.com/pdiddy/company-intel/internal/resolve"
	"github.com/pdiddy/company-intel/pkg/types"
)

func sampleResult() briefing.Result {
	return briefing.Result{
		RunID:   "run-1",
		Company: resolve.Company{Slug: "Capital_One", Name: "Capital One Financial Corporation", Ticker: "COF"},
		Briefing: types.Briefing{
			Company: types.CompanyIdentity{Name: "Capital One Financial Corporation", Ticker: "COF"},
			Summary: "Identified 1 significant events for Capital One Financial Corporation.",
			Events: []types.AnalysisEvent{{
				Title: "Discover integration underway",
				Insights: map[string]any{
					"why_it_matters": "Network ownership",
					"what_happened":  "Integration began",
					"source_urls":    []any{"https://example.com/news/1"},
					"region":         "US",
				},
				Citations: []types.Citation{{Title: "news one", URL: "https://example.com/news/1"}},
			}},
			Sections: map[types.Scope]string{
				types.ScopeNews:       "News summary",
				types.ScopeSECFilings: "(Failed to fetch sec_filings: timeout)",
			},
		},
	}
}

func TestWriteStructured(t *testing.T) {
	res := sampleResult()

	var buf bytes.Buffer
	handled, err := writeStructured(&buf, formatJSON, briefingOutput{Result: res, Profile: profile.Profile{"industry": "Banking"}})
	if err != nil || !handled {
		t.Fatalf("json: handled=%v err=%v", handled, err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding json: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if _, ok := decoded["briefing"].(map[string]any); !ok {
		t.Errorf("briefing missing from %v", decoded)
	}
	if p, _ := decoded["profile"].(map[string]any); p["industry"] != "Banking" {
		t.Errorf("profile = %v", decoded["profile"])
	}

	buf.Reset()
	handled, err = writeStructured(&buf, formatYAML, briefingOutput{Result: res})
	if err != nil || !handled {
		t.Fatalf("yaml: handled=%v err=%v", handled, err)
	}
	var y map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &y); err != nil {
		t.Fatalf("decoding yaml: %v", err)
	}
	if y["run_id"] != "run-1" {
		t.Errorf("yaml run_id = %v", y["run_id"])
	}
	if _, ok := y["profile"]; ok {
		t.Error("empty profile should be omitted")
	}

	if handled, err := writeStructured(&buf, formatTable, res); handled || err != nil {
		t.Errorf("table: handled=%v err=%v", handled, err)
	}
	if _, err := writeStructured(&buf, "xml", res); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestPrintBriefing(t *testing.T) {
	var buf bytes.Buffer
	printBriefing(&buf, sampleResult(), profile.Profile{"company_name": "Capital One", "industry": "Banking"})
	out := buf.String()

	for _, want := range []string{
		"Capital One Financial Corporation (COF)",
		"industry:",
		"1. Discover integration underway",
		"- news one <https://example.com/news/1>",
		"[Sec Filings]\n(Failed to fetch sec_filings: timeout)",
		"run run-1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "source_urls") {
		t.Error("source_urls should not be printed as an insight")
	}
	if strings.Index(out, "[Sec Filings]") > strings.Index(out, "[News]") {
		t.Error("sections should print in canonical scope order")
	}
	if strings.Index(out, "what_happened") > strings.Index(out, "why_it_matters") {
		t.Error("what_happened should print before why_it_matters")
	}
}

func TestInsightKeys(t *testing.T) {
	got := insightKeys(map[string]any{"zeta": 1, "urgency": "high", "alpha": 2, "what_happened": "x", "source_urls": nil})
	want := []string{"what_happened", "urgency", "alpha", "zeta"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("insightKeys = %v, want %v", got, want)
	}
}

func TestCitationLine(t *testing.T) {
	cases := []struct {
		c    types.Citation
		want string
	}{
		{types.Citation{Title: "Filing", URL: "https://sec.gov/x"}, "Filing <https://sec.gov/x>"},
		{types.Citation{URL: "https://sec.gov/x"}, "https://sec.gov/x"},
		{types.Citation{Title: "https://sec.gov/x", URL: "https://sec.gov/x"}, "https://sec.gov/x"},
	}
	for _, tc := range cases {
		if got := citationLine(tc.c); got != tc.want {
			t.Errorf("citationLine(%v) = %q, want %q", tc.c, got, tc.want)
		}
	}
}
