// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-intel/pkg/types"
)

// Query describes how one scope searches. Template is a text/template
// rendered with the company identity ({{.Name}}, {{.Ticker}}).
type Query struct {
	Template       string   `yaml:"query"`
	Topic          string   `yaml:"topic,omitempty"`
	Depth          string   `yaml:"depth,omitempty"`
	Days           int      `yaml:"days,omitempty"`
	IncludeDomains []string `yaml:"include_domains,omitempty"`
}

// QueryFile is the on-disk form of per-scope query overrides.
type QueryFile struct {
	Scopes map[string]Query `yaml:"scopes"`
}

// DefaultQueries returns the built-in query for every scope.
func DefaultQueries() map[types.Scope]Query {
	return map[types.Scope]Query{
		types.ScopeSECFilings: {
			Template:       `{{.Name}}{{with .Ticker}} ({{.}}){{end}} SEC filings 10-K 10-Q 8-K risk factors MD&A material events`,
			Depth:          "advanced",
			IncludeDomains: []string{"sec.gov"},
		},
		types.ScopeNews: {
			Template: `{{.Name}} news regulatory financial M&A risk`,
			Topic:    "news",
			Days:     30,
		},
		types.ScopeProcurement: {
			Template: `{{.Name}} U.S. government contract award procurement notice`,
		},
		types.ScopeEarnings: {
			Template: `{{.Name}}{{with .Ticker}} {{.}}{{end}} earnings call results guidance investor relations`,
			Topic:    "news",
			Days:     120,
		},
		types.ScopeIndustryContext: {
			Template: `{{.Name}} industry sector outlook competitive landscape`,
			Depth:    "advanced",
		},
		types.ScopeCompetitors: {
			Template: `top competitors of {{.Name}} market share competitive positioning`,
		},
	}
}

// ReadQueryFile loads per-scope query overrides from a YAML file and merges
// them over DefaultQueries. Unknown scope names are rejected.
func ReadQueryFile(path string) (map[types.Scope]Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}

	queries := DefaultQueries()
	for name, q := range qf.Scopes {
		sc, err := types.ParseScope(name)
		if err != nil {
			return nil, fmt.Errorf("query file %s: %w", path, err)
		}
		if strings.TrimSpace(q.Template) == "" {
			return nil, fmt.Errorf("query file %s: scope %s has an empty query", path, sc)
		}
		queries[sc] = q
	}
	return queries, nil
}

// compiledQuery is a Query with its template parsed.
type compiledQuery struct {
	Query
	tmpl *template.Template
}

func compile(scope types.Scope, q Query) (compiledQuery, error) {
	tmpl, err := template.New(string(scope)).Option("missingkey=error").Parse(q.Template)
	if err != nil {
		return compiledQuery{}, fmt.Errorf("parsing %s query template: %w", scope, err)
	}
	return compiledQuery{Query: q, tmpl: tmpl}, nil
}

// render executes the template for company, collapsing whitespace.
func (q compiledQuery) render(company types.CompanyIdentity) (string, error) {
	var buf bytes.Buffer
	if err := q.tmpl.Execute(&buf, company); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}
