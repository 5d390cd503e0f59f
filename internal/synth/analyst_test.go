// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/pdiddy/company-intel/pkg/types"
)

// fakeChatModel returns a canned reply and records the prompt it saw.
type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
	calls int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

var batch = []WireRecord{
	ToWire(types.AnalysisItem{
		Company:   "Capital One",
		Title:     "News",
		Content:   "Discover deal closed.",
		Citations: []types.Citation{{Title: "Deal", URL: "https://news.test/a"}},
	}),
}

func TestAnalystPrompt(t *testing.T) {
	cm := &fakeChatModel{reply: `{"events":[]}`}
	a := NewAnalyst(cm, 0)

	if _, err := a.Synthesize(context.Background(), batch); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if cm.calls != 1 {
		t.Fatalf("calls = %d, want 1", cm.calls)
	}
	if len(cm.seen) != 2 || cm.seen[0].Role != schema.System || cm.seen[1].Role != schema.User {
		t.Fatalf("messages = %+v", cm.seen)
	}
	user := cm.seen[1].Content
	for _, want := range []string{"briefing on Capital One", `"description": "Discover deal closed."`, "https://news.test/a", "source_urls"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalystParsesReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"object", `{"events":[{"title":"A"},{"title":"B"}]}`, 2},
		{"array", `[{"title":"A"}]`, 1},
		{"fenced", "```json\n{\"events\":[{\"title\":\"A\"}]}\n```", 1},
		{"bare fence", "```\n[{\"title\":\"A\"}]\n```", 1},
		{"empty events", `{"events":[]}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyst(&fakeChatModel{reply: tt.reply}, 0)
			events, err := a.Synthesize(context.Background(), batch)
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("events = %d, want %d", len(events), tt.want)
			}
		})
	}
}

func TestAnalystRejectsUnparseable(t *testing.T) {
	for _, reply := range []string{"", "Here are the events: none", `{"items":[]}`, `[{"title":`} {
		a := NewAnalyst(&fakeChatModel{reply: reply}, 0)
		if _, err := a.Synthesize(context.Background(), batch); err == nil {
			t.Errorf("reply %q: expected error", reply)
		}
	}
}

func TestAnalystModelError(t *testing.T) {
	boom := errors.New("429 too many requests")
	a := NewAnalyst(&fakeChatModel{err: boom}, 0)
	_, err := New(a).Synthesize(context.Background(), []types.AnalysisItem{{Company: "Capital One", Title: "News"}})
	if !errors.Is(err, ErrSynthesis) || !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestAnalystLimiterHonoursContext(t *testing.T) {
	cm := &fakeChatModel{reply: `[]`}
	a := &Analyst{Model: cm, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}

	if _, err := a.Synthesize(context.Background(), batch); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := a.Synthesize(ctx, batch); err == nil {
		t.Fatal("expected limiter wait to fail")
	}
	if cm.calls != 1 {
		t.Errorf("calls = %d, want 1", cm.calls)
	}
}

func TestNewAnalystLimiter(t *testing.T) {
	if NewAnalyst(&fakeChatModel{}, 0).Limiter != nil {
		t.Error("rpm 0 should disable throttling")
	}
	if l := NewAnalyst(&fakeChatModel{}, 30).Limiter; l == nil || float64(l.Limit()) != 0.5 {
		t.Errorf("limiter = %v", l)
	}
}
