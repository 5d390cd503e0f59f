// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package briefing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/company-intel/pkg/types"
)

func TestPrimaryLabel(t *testing.T) {
	tests := []struct {
		question string
		want     Label
	}{
		{"What's the revenue guidance?", LabelFinancial},
		{"Any SEC filing or lawsuit risk?", LabelRegulatory},
		{"Is there cyber exposure?", LabelRisk},
		{"How do they compare to competitors?", LabelCompetitive},
		{"What is their cloud strategy?", LabelStrategic},
		{"When is the deadline?", LabelTimeline},
		{"Tell me more", LabelGeneral},
		{"", LabelGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryLabel(tt.question))
		})
	}
}

func TestClassifyMultiLabel(t *testing.T) {
	got := Classify("What is the risk to revenue from the acquisition?")
	assert.Equal(t, []Label{LabelRisk, LabelFinancial, LabelStrategic}, got)
	assert.Empty(t, Classify("hello"))
}

func TestScopesFor(t *testing.T) {
	assert.Equal(t, []types.Scope{types.ScopeSECFilings, types.ScopeNews}, ScopesFor(LabelRegulatory))
	assert.Equal(t, []types.Scope{types.ScopeNews, types.ScopeIndustryContext}, ScopesFor(Label("weather")))

	s := ScopesFor(LabelFinancial)
	s[0] = types.ScopeCompetitors
	assert.Equal(t, types.ScopeNews, ScopesFor(LabelFinancial)[0], "returned slice must be a copy")
}
