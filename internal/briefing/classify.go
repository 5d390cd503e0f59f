// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package briefing

import (
	"regexp"

	"github.com/pdiddy/company-intel/pkg/types"
)

// Label is the topic of a follow-up question.
type Label string

const (
	LabelRisk        Label = "risk"
	LabelFinancial   Label = "financial"
	LabelCompetitive Label = "competitive"
	LabelRegulatory  Label = "regulatory"
	LabelStrategic   Label = "strategic"
	LabelTimeline    Label = "timeline"
	LabelGeneral     Label = "general"
)

type labelRule struct {
	label    Label
	patterns []*regexp.Regexp
}

// rules are evaluated in this order by Classify.
var rules = []labelRule{
	{LabelRisk, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(risk|downside|exposure|threat|vulnerab)`),
		regexp.MustCompile(`(?i)\b(credit risk|regulatory risk|operational risk|cyber|lawsuit|fine)\b`),
	}},
	{LabelFinancial, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(revenue|earnings?|profit|loss|margin|guidance|forecast)\b`),
		regexp.MustCompile(`(?i)\b(financial impact|capex|opex|cash flow)\b`),
	}},
	{LabelCompetitive, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(competitors?|competitive|market share|position|moat|benchmark|vs|versus)\b`),
	}},
	{LabelRegulatory, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(regulatory|regulation|compliance|legal|SEC|DOJ|FTC|antitrust)\b`),
		regexp.MustCompile(`(?i)\b(filing|10-?K|10-?Q|8-?K|consent decree|settlement)\b`),
	}},
	{LabelStrategic, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(strategy|strategic|roadmap|future|plan|initiative|priorit(?:y|ies))\b`),
		regexp.MustCompile(`(?i)\b(product|launch|expansion|hiring|acquisition|divestiture)\b`),
	}},
	{LabelTimeline, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(when|timeline|by when|deadline|date)\b`),
	}},
}

// primaryPriority breaks ties when a question matches several labels.
var primaryPriority = []Label{
	LabelRegulatory,
	LabelFinancial,
	LabelRisk,
	LabelStrategic,
	LabelCompetitive,
	LabelTimeline,
}

var labelScopes = map[Label][]types.Scope{
	LabelFinancial:   {types.ScopeNews, types.ScopeSECFilings},
	LabelRisk:        {types.ScopeNews, types.ScopeSECFilings},
	LabelCompetitive: {types.ScopeNews, types.ScopeIndustryContext},
	LabelRegulatory:  {types.ScopeSECFilings, types.ScopeNews},
	LabelStrategic:   {types.ScopeNews, types.ScopeIndustryContext},
	LabelTimeline:    {types.ScopeNews, types.ScopeSECFilings},
	LabelGeneral:     {types.ScopeNews, types.ScopeIndustryContext},
}

// Classify returns every label whose patterns match text.
func Classify(text string) []Label {
	var out []Label
	for _, r := range rules {
		for _, re := range r.patterns {
			if re.MatchString(text) {
				out = append(out, r.label)
				break
			}
		}
	}
	return out
}

// PrimaryLabel returns the highest-priority matching label, or LabelGeneral.
func PrimaryLabel(text string) Label {
	matched := make(map[Label]bool)
	for _, l := range Classify(text) {
		matched[l] = true
	}
	for _, l := range primaryPriority {
		if matched[l] {
			return l
		}
	}
	return LabelGeneral
}

// ScopesFor returns the discovery scopes that answer questions about label.
// Unknown labels get the general scopes.
func ScopesFor(label Label) []types.Scope {
	scopes, ok := labelScopes[label]
	if !ok {
		scopes = labelScopes[LabelGeneral]
	}
	return append([]types.Scope(nil), scopes...)
}
