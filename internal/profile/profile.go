// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile reads company profiles from a directory of
// <slug>_profile.json files. Profiles are read-only side material for the
// presentation layer; the pipeline never writes them.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when no profile exists for a slug.
var ErrNotFound = errors.New("profile not found")

const suffix = "_profile.json"

// Profile is an open profile document. CompanyName is always set.
type Profile map[string]any

// CompanyName returns the profile's company_name field.
func (p Profile) CompanyName() string {
	s, _ := p["company_name"].(string)
	return s
}

// Store reads profiles from Dir.
type Store struct {
	Dir string
}

// Load reads the profile for slug. A profile without company_name gets one
// derived from the slug.
func (s Store) Load(slug string) (Profile, error) {
	if slug == "" || filepath.Base(slug) != slug || strings.HasPrefix(slug, ".") {
		return nil, fmt.Errorf("invalid profile slug %q", slug)
	}

	path := filepath.Join(s.Dir, slug+suffix)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		return nil, fmt.Errorf("reading profile %s: %w", slug, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", slug, err)
	}
	if p == nil {
		return nil, fmt.Errorf("parsing profile %s: not a JSON object", slug)
	}
	if strings.TrimSpace(p.CompanyName()) == "" {
		p["company_name"] = nameFromSlug(slug)
	}
	return p, nil
}

// Slugs lists the slugs that have a profile, sorted. A missing directory
// has none.
func (s Store) Slugs() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profiles directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), suffix))
	}
	sort.Strings(out)
	return out, nil
}

func nameFromSlug(slug string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(slug, "_", " ")), " ")
}
