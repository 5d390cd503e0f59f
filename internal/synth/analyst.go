// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/pdiddy/company-intel/pkg/types"
)

const systemPrompt = "You are a JSON generator. Output only JSON, with no prose and no code fences."

// analysisPromptTmpl asks the model to pick the high-impact events from the
// whole batch at once so it can cross-reference scopes.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`You are a senior analyst preparing a consulting briefing on {{.Company}}.

Below are research items gathered from several sources (SEC filings, news, procurement, earnings, industry context). Read all of them together and identify the events with the highest business impact. Merge items that describe the same event.

For each event return:
- title: a short headline
- insights: an object with
  - what_happened: the facts, in two or three sentences
  - why_it_matters: the business impact for {{.Company}}
  - consulting_angle: where an advisory firm could help
  - need_type: the kind of need (e.g. "technology", "risk", "operations")
  - service_line: the most relevant service line
  - urgency: one of "high", "medium", "low"
  - timing: when action is needed
  - source_urls: the URLs from the items' citations that support the event
- citations: a list of {"title": ..., "url": ...} objects copied from the items

Respond with a JSON object containing an "events" array ordered from highest to lowest impact. Do not include any text outside the JSON object. Use only URLs that appear in the items.

Research items:
{{.Items}}
`))

// Analyst is the reasoning capability backed by an OpenAI-compatible chat
// model.
type Analyst struct {
	Model   model.BaseChatModel
	Limiter *rate.Limiter
}

// NewChatModel builds the chat model described by cfg.
func NewChatModel(ctx context.Context, cfg types.SynthesisConfig) (model.BaseChatModel, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}
	return cm, nil
}

// NewAnalyst returns an Analyst throttled to rpm calls per minute. A
// non-positive rpm disables throttling.
func NewAnalyst(cm model.BaseChatModel, rpm int) *Analyst {
	a := &Analyst{Model: cm}
	if rpm > 0 {
		a.Limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}
	return a
}

// Synthesize implements Reasoner with a single chat completion.
func (a *Analyst) Synthesize(ctx context.Context, batch []WireRecord) ([]map[string]any, error) {
	prompt, err := renderPrompt(batch)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	resp, err := a.Model.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("calling chat model: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("chat model returned no message")
	}
	return parseEvents(resp.Content)
}

// renderPrompt executes the analysis template for a batch.
func renderPrompt(batch []WireRecord) (string, error) {
	items, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", err
	}
	company := ""
	if len(batch) > 0 {
		company = batch[0].Company
	}

	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, struct {
		Company string
		Items   string
	}{Company: company, Items: string(items)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseEvents accepts either a JSON array of events or an object with an
// "events" array, optionally wrapped in a markdown code fence.
func parseEvents(content string) ([]map[string]any, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil, fmt.Errorf("empty model response")
	}

	if strings.HasPrefix(clean, "[") {
		var events []map[string]any
		if err := json.Unmarshal([]byte(clean), &events); err != nil {
			return nil, fmt.Errorf("parsing events array: %w", err)
		}
		return events, nil
	}

	var wrapped struct {
		Events *[]map[string]any `json:"events"`
	}
	if err := json.Unmarshal([]byte(clean), &wrapped); err != nil {
		return nil, fmt.Errorf("parsing events object: %w", err)
	}
	if wrapped.Events == nil {
		return nil, fmt.Errorf("model response has no events array")
	}
	return *wrapped.Events, nil
}
