// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps free-text company input to a canonical company from
// an alias table. Matching tries, in order, an exact case-insensitive alias
// match, a match on the normalized form, and a fuzzy similarity match.
package resolve

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-intel/pkg/types"
)

// FuzzyThreshold is the similarity (0..1) a fuzzy match must exceed.
const FuzzyThreshold = 0.70

// fuzzyParams scores plain edit distance, without the common-prefix bonus.
var fuzzyParams = levenshtein.NewParams().BonusScale(0)

// suggestionLimit caps the number of names Suggestions returns.
const suggestionLimit = 5

//go:embed companies.yaml
var builtinTable []byte

// Company is one entry in the alias table.
type Company struct {
	Slug    string   `yaml:"slug" json:"slug"`
	Name    string   `yaml:"name" json:"name"`
	Ticker  string   `yaml:"ticker,omitempty" json:"ticker,omitempty"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

// Identity returns the request identity for the company.
func (c Company) Identity() types.CompanyIdentity {
	return types.CompanyIdentity{Name: c.Name, Ticker: c.Ticker}
}

// UnresolvedError reports input that matched no company. Suggestions holds
// display names whose name or aliases contain the input.
type UnresolvedError struct {
	Input       string
	Suggestions []string
}

func (e *UnresolvedError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no company matches %q", e.Input)
	}
	return fmt.Sprintf("no company matches %q (did you mean: %s?)", e.Input, strings.Join(e.Suggestions, ", "))
}

// Resolver is an immutable alias table. It is safe for concurrent use.
type Resolver struct {
	companies  []Company
	exact      map[string]int
	normalized map[string]int
	variants   []variant
}

// variant is one normalized name or alias, kept in table order for fuzzy
// matching.
type variant struct {
	key     string
	company int
}

type tableFile struct {
	Companies []Company `yaml:"companies"`
}

// New builds a resolver over companies. The slice is copied. Every company
// needs a slug and a display name; slugs must be unique.
func New(companies []Company) (*Resolver, error) {
	r := &Resolver{
		companies:  make([]Company, len(companies)),
		exact:      make(map[string]int),
		normalized: make(map[string]int),
	}
	seen := make(map[string]bool, len(companies))
	for i, c := range companies {
		if strings.TrimSpace(c.Slug) == "" || strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("company %d: slug and name are required", i)
		}
		if seen[c.Slug] {
			return nil, fmt.Errorf("company %q: duplicate slug", c.Slug)
		}
		seen[c.Slug] = true

		c.Aliases = append([]string(nil), c.Aliases...)
		r.companies[i] = c

		for _, name := range append([]string{c.Slug, c.Name}, c.Aliases...) {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			// First entry wins so table order decides conflicts.
			if _, ok := r.exact[key]; !ok {
				r.exact[key] = i
			}
			norm := Normalize(name)
			if norm == "" {
				continue
			}
			if _, ok := r.normalized[norm]; !ok {
				r.normalized[norm] = i
			}
			r.variants = append(r.variants, variant{key: norm, company: i})
		}
	}
	return r, nil
}

// Load reads a YAML alias table.
func Load(rd io.Reader) (*Resolver, error) {
	var tf tableFile
	if err := yaml.NewDecoder(rd).Decode(&tf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("alias table is empty")
		}
		return nil, fmt.Errorf("decoding alias table: %w", err)
	}
	return New(tf.Companies)
}

// LoadFile reads a YAML alias table from path.
func LoadFile(path string) (*Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening alias table: %w", err)
	}
	defer f.Close()
	r, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Default returns a resolver over the built-in alias table.
func Default() *Resolver {
	r, err := Load(bytes.NewReader(builtinTable))
	if err != nil {
		panic("resolve: built-in alias table: " + err.Error())
	}
	return r
}

var (
	punctRe  = regexp.MustCompile(`[^\w\s]`)
	fillerRe = regexp.MustCompile(`\b(briefing|on|for|about|company|corp|corporation|inc|llc)\b`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Normalize case-folds s, strips punctuation and filler words such as
// "corp" or "briefing", and removes whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, "")
	s = fillerRe.ReplaceAllString(s, "")
	return spaceRe.ReplaceAllString(s, "")
}

// Resolve returns the company matching input, or false when nothing matches.
func (r *Resolver) Resolve(input string) (Company, bool) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return Company{}, false
	}
	if i, ok := r.exact[key]; ok {
		return r.company(i), true
	}

	norm := Normalize(input)
	if norm == "" {
		return Company{}, false
	}
	if i, ok := r.normalized[norm]; ok {
		return r.company(i), true
	}

	best, bestScore := -1, 0.0
	for _, v := range r.variants {
		score := levenshtein.Similarity(norm, v.key, fuzzyParams)
		if score > FuzzyThreshold && score > bestScore {
			best, bestScore = v.company, score
		}
	}
	if best < 0 {
		return Company{}, false
	}
	return r.company(best), true
}

// Identify is Resolve with a typed failure carrying suggestions.
func (r *Resolver) Identify(input string) (Company, error) {
	if c, ok := r.Resolve(input); ok {
		return c, nil
	}
	return Company{}, &UnresolvedError{Input: input, Suggestions: r.Suggestions(input)}
}

// Suggestions returns up to five display names whose name or any alias
// contains partial, case-insensitively, in table order.
func (r *Resolver) Suggestions(partial string) []string {
	needle := strings.ToLower(strings.TrimSpace(partial))
	if needle == "" {
		return nil
	}
	var out []string
	for _, c := range r.companies {
		if !matchesAny(needle, c) {
			continue
		}
		out = append(out, c.Name)
		if len(out) == suggestionLimit {
			break
		}
	}
	return out
}

func matchesAny(needle string, c Company) bool {
	if strings.Contains(strings.ToLower(c.Name), needle) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.Contains(strings.ToLower(a), needle) {
			return true
		}
	}
	return false
}

// Lookup returns the company with the given slug.
func (r *Resolver) Lookup(slug string) (Company, bool) {
	for i, c := range r.companies {
		if c.Slug == slug {
			return r.company(i), true
		}
	}
	return Company{}, false
}

// Companies returns a copy of the alias table.
func (r *Resolver) Companies() []Company {
	out := make([]Company, len(r.companies))
	for i := range r.companies {
		out[i] = r.company(i)
	}
	return out
}

func (r *Resolver) company(i int) Company {
	c := r.companies[i]
	c.Aliases = append([]string(nil), c.Aliases...)
	return c
}
