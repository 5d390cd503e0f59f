// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth turns a batch of normalized discovery items into analysis
// events. The reasoning capability is called once per batch; its output is
// treated as untrusted and reconciled into typed events.
package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/company-intel/internal/extract"
	"github.com/pdiddy/company-intel/pkg/types"
)

// ErrSynthesis marks a failed synthesis. There is no partial result: callers
// get either every event or this error.
var ErrSynthesis = errors.New("synthesis failed")

// Event keys read during reconciliation.
const (
	keyTitle       = "title"
	keyHeadline    = "headline"
	keyInsights    = "insights"
	keyCitations   = "citations"
	keyRawData     = "raw_data"
	keyCitationsMD = "citations_md"
	keySourceURLs  = "source_urls"

	untitled       = "Untitled"
	sourceURLTitle = "Source"
)

// WireRecord is the shape the reasoning capability receives for each item.
type WireRecord struct {
	Company     string           `json:"company"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Content     string           `json:"content"`
	RawData     map[string]any   `json:"raw_data"`
	Citations   []types.Citation `json:"citations"`
}

// ToWire maps an item to its wire record. Content fills both description
// and content.
func ToWire(item types.AnalysisItem) WireRecord {
	citations := item.Citations
	if citations == nil {
		citations = []types.Citation{}
	}
	return WireRecord{
		Company:     item.Company,
		Title:       item.Title,
		Description: item.Content,
		Content:     item.Content,
		RawData:     item.Raw,
		Citations:   citations,
	}
}

// Reasoner is the external reasoning capability. It returns free-form event
// maps in the order it chooses.
type Reasoner interface {
	Synthesize(ctx context.Context, batch []WireRecord) ([]map[string]any, error)
}

// Synthesizer batches items into one reasoning call and reconciles the result.
type Synthesizer struct {
	reasoner Reasoner
	log      logrus.FieldLogger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger. The default discards.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Synthesizer) { s.log = l }
}

// New returns a Synthesizer backed by r.
func New(r Reasoner, opts ...Option) *Synthesizer {
	s := &Synthesizer{reasoner: r}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return s
}

// Synthesize sends every item to the reasoning capability in a single call.
// Event order follows the capability's output. An empty batch makes no call
// and yields no events.
func (s *Synthesizer) Synthesize(ctx context.Context, items []types.AnalysisItem) ([]types.AnalysisEvent, error) {
	if len(items) == 0 {
		return []types.AnalysisEvent{}, nil
	}

	batch := make([]WireRecord, len(items))
	for i, it := range items {
		batch[i] = ToWire(it)
	}

	start := time.Now()
	raw, err := s.reasoner.Synthesize(ctx, batch)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"op":    "synthesize",
			"items": len(items),
		}).WithError(err).Error("synthesis failed")
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	events := make([]types.AnalysisEvent, 0, len(raw))
	for i, ev := range raw {
		if ev == nil {
			return nil, fmt.Errorf("%w: event %d is null", ErrSynthesis, i)
		}
		events = append(events, Reconcile(ev))
	}

	s.log.WithFields(logrus.Fields{
		"op":      "synthesize",
		"items":   len(items),
		"events":  len(events),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("synthesis complete")
	return events, nil
}

// Reconcile converts one raw provider event into an AnalysisEvent.
//
// Citations are gathered from the explicit citation list, then from the
// markdown bullets in raw_data.citations_md, then from the http(s) entries
// of insights.source_urls. Every match is kept; nothing is deduplicated.
// Keys other than title, insights and citations are carried in Meta.
func Reconcile(raw map[string]any) types.AnalysisEvent {
	ev := types.AnalysisEvent{
		Title:     eventTitle(raw),
		Insights:  map[string]any{},
		Citations: []types.Citation{},
		Meta:      map[string]any{},
	}

	insights, isMap := raw[keyInsights].(map[string]any)
	if isMap {
		ev.Insights = insights
	}

	ev.Citations = append(ev.Citations, explicitCitations(raw[keyCitations])...)
	if rd, ok := raw[keyRawData].(map[string]any); ok {
		if md, ok := rd[keyCitationsMD].(string); ok {
			ev.Citations = append(ev.Citations, extract.ParseCitations(md)...)
		}
	}
	ev.Citations = append(ev.Citations, sourceURLCitations(insights)...)

	for k, v := range raw {
		switch k {
		case keyTitle, keyCitations:
			continue
		case keyInsights:
			// Non-map insights would otherwise be lost.
			if !isMap && v != nil {
				ev.Meta[k] = v
			}
			continue
		}
		ev.Meta[k] = v
	}
	return ev
}

func eventTitle(raw map[string]any) string {
	for _, k := range []string{keyTitle, keyHeadline} {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return untitled
}

// explicitCitations accepts a list of {title, url} maps or bare URL strings.
func explicitCitations(v any) []types.Citation {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []types.Citation
	for _, entry := range list {
		switch e := entry.(type) {
		case map[string]any:
			u, _ := e["url"].(string)
			if !extract.ValidURL(u) {
				continue
			}
			title, _ := e["title"].(string)
			out = append(out, types.Citation{Title: strings.TrimSpace(title), URL: u})
		case string:
			if extract.ValidURL(e) {
				out = append(out, types.Citation{Title: e, URL: e})
			}
		}
	}
	return out
}

func sourceURLCitations(insights map[string]any) []types.Citation {
	list, ok := insights[keySourceURLs].([]any)
	if !ok {
		return nil
	}
	var out []types.Citation
	for _, entry := range list {
		u, ok := entry.(string)
		if !ok {
			continue
		}
		u = strings.TrimSpace(u)
		if !extract.ValidURL(u) {
			continue
		}
		out = append(out, types.Citation{Title: sourceURLTitle, URL: u})
	}
	return out
}
