// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package briefing

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/company-intel/internal/extract"
	"github.com/pdiddy/company-intel/pkg/types"
)

// Answer sources.
const (
	SourceBriefing  = "briefing"
	SourceDiscovery = "discovery"
)

const (
	answerLimit   = 1200
	citationLimit = 8
	minTermLen    = 4
	prefixLen     = 40

	noFindings = "I couldn't find anything new that directly answers that. Try asking more specifically, or run a full briefing."
)

// stopTerms are long enough to pass minTermLen but carry no topic.
var stopTerms = map[string]bool{"what": true, "when": true, "where": true, "which": true, "does": true, "about": true}

// insightKeys are the event insight fields searched for follow-up answers.
var insightKeys = []string{"what_happened", "why_it_matters", "consulting_angle", "advice"}

// Answer is the reply to a follow-up question.
type Answer struct {
	Text      string           `json:"answer" yaml:"answer"`
	Citations []types.Citation `json:"citations" yaml:"citations"`
	Source    string           `json:"source" yaml:"source"`
	Label     Label            `json:"label" yaml:"label"`
	Scopes    []types.Scope    `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// FollowUp answers a question about a company. A cached default briefing is
// searched first; otherwise the question is classified and only the scopes
// for its label are discovered.
func (s *Service) FollowUp(ctx context.Context, input, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question is empty")
	}

	company, err := s.resolver.Identify(input)
	if err != nil {
		return Answer{}, err
	}
	id := company.Identity()
	label := PrimaryLabel(question)
	log := s.log.WithFields(logrus.Fields{
		"op":      "follow_up",
		"company": id.Name,
		"label":   label,
	})

	if b, ok := s.briefings.Get(briefingKey(id, s.scopes)); ok {
		if ans, ok := answerFromBriefing(b, question); ok {
			ans.Label = label
			log.Info("answered from briefing")
			return ans, nil
		}
	}

	scopes := ScopesFor(label)
	bundle, err := s.dispatcher.FetchAll(ctx, id, scopes)
	if err != nil {
		log.WithError(err).Error("follow-up discovery failed")
		return Answer{}, err
	}

	var (
		parts []string
		lists [][]types.Citation
	)
	for _, sc := range scopes {
		sec := bundle.Sections[sc]
		if sec.Failed() || sec.Summary == "" {
			continue
		}
		parts = append(parts, "**"+sc.Title()+"**\n"+sec.Summary)
		lists = append(lists, sec.Citations)
	}

	ans := Answer{
		Text:      strings.Join(parts, "\n\n"),
		Citations: mergeCitations(citationLimit, lists...),
		Source:    SourceDiscovery,
		Label:     label,
		Scopes:    scopes,
	}
	if len(parts) == 0 {
		ans.Text = noFindings
	}
	log.WithFields(logrus.Fields{
		"scopes":    len(scopes),
		"citations": len(ans.Citations),
	}).Info("answered from discovery")
	return ans, nil
}

type passage struct {
	text      string
	citations []types.Citation
}

// answerFromBriefing does a light lexical search over the briefing's events
// and section summaries. The first passage that contains a key term of the
// question, or its opening words, answers it.
func answerFromBriefing(b types.Briefing, question string) (Answer, bool) {
	q := strings.ToLower(question)
	terms := keyTerms(q, b.Company.Name)
	prefix := questionPrefix(q)

	for _, p := range passages(b) {
		lower := strings.ToLower(p.text)
		hit := strings.Contains(lower, prefix)
		for _, t := range terms {
			if hit {
				break
			}
			hit = strings.Contains(lower, t)
		}
		if !hit {
			continue
		}
		return Answer{
			Text:      extract.Summarize(p.text, answerLimit),
			Citations: mergeCitations(citationLimit, p.citations),
			Source:    SourceBriefing,
		}, true
	}
	return Answer{}, false
}

// questionPrefix returns the opening prefixLen runes of q.
func questionPrefix(q string) string {
	if r := []rune(q); len(r) > prefixLen {
		return string(r[:prefixLen])
	}
	return q
}

func passages(b types.Briefing) []passage {
	var out []passage
	for _, ev := range b.Events {
		bits := []string{ev.Title}
		for _, k := range insightKeys {
			if v, ok := ev.Insights[k].(string); ok && strings.TrimSpace(v) != "" {
				bits = append(bits, strings.TrimSpace(v))
			}
		}
		out = append(out, passage{text: strings.Join(bits, " "), citations: ev.Citations})
	}
	for _, sc := range types.AllScopes {
		text, ok := b.Sections[sc]
		if !ok || text == "" {
			continue
		}
		var cites []types.Citation
		if b.RawSections != nil {
			sec := b.RawSections.Sections[sc]
			if sec.Failed() {
				continue
			}
			cites = sec.Citations
		}
		out = append(out, passage{text: text, citations: cites})
	}
	return out
}

// keyTerms returns the question's topical words. Words from the company
// name are dropped since every passage is about the company.
func keyTerms(question, company string) []string {
	skip := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(company)) {
		skip[trimWord(w)] = true
	}
	var terms []string
	for _, w := range strings.Fields(question) {
		w = trimWord(w)
		if len(w) < minTermLen || stopTerms[w] || skip[w] {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

func trimWord(w string) string {
	w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	return strings.TrimSuffix(w, "'s")
}

// mergeCitations joins lists in order, dropping repeated URLs, and stops at
// limit.
func mergeCitations(limit int, lists ...[]types.Citation) []types.Citation {
	seen := make(map[string]bool)
	out := []types.Citation{}
	for _, list := range lists {
		for _, c := range list {
			u := strings.TrimSpace(c.URL)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, types.Citation{Title: c.Title, URL: u})
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}
