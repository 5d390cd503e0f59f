// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/company-intel/pkg/types"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "ledger.db")
	s, err := NewStore(types.LedgerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Input:      "capital one",
		Slug:       "Capital_One",
		Company:    "Capital One Financial Corporation",
		Status:     StatusOK,
		EventCount: 3,
		StartedAt:  started,
		FinishedAt: started.Add(4 * time.Second),
		Scopes: []ScopeResult{
			{Scope: types.ScopeNews, Status: StatusOK, CitationCount: 5},
			{Scope: types.ScopeSECFilings, Status: StatusFailed, Error: "HTTP 503"},
		},
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	_, path := testStore(t)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(types.LedgerConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecordAndRecent(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := s.Record(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	runs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("order = %s, %s", runs[0].ID, runs[1].ID)
	}

	r := runs[0]
	if r.Slug != "Capital_One" || r.EventCount != 3 || r.Status != StatusOK {
		t.Errorf("run = %+v", r)
	}
	if !r.StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("started_at = %v", r.StartedAt)
	}
	if len(r.Scopes) != 2 {
		t.Fatalf("scopes = %+v", r.Scopes)
	}
	// Canonical scope order, not insertion order.
	if r.Scopes[0].Scope != types.ScopeSECFilings || r.Scopes[0].Error != "HTTP 503" {
		t.Errorf("scope 0 = %+v", r.Scopes[0])
	}
	if r.Scopes[1].Scope != types.ScopeNews || r.Scopes[1].CitationCount != 5 {
		t.Errorf("scope 1 = %+v", r.Scopes[1])
	}
}

func TestRecordFailedRunWithoutCompany(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	now := time.Now()

	run := Run{ID: "run-x", Input: "acme", Status: StatusFailed, Error: "unresolved", StartedAt: now, FinishedAt: now}
	if err := s.Record(ctx, run); err != nil {
		t.Fatal(err)
	}
	runs, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Error != "unresolved" || runs[0].Slug != "" || len(runs[0].Scopes) != 0 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRecordDuplicateIDRollsBack(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Record(ctx, sampleRun("dup", now)); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, sampleRun("dup", now)); err == nil {
		t.Fatal("expected error for duplicate run id")
	}
	if err := s.Record(ctx, Run{Input: "x"}); err == nil {
		t.Fatal("expected error for missing id")
	}

	runs, _ := s.Recent(ctx, 10)
	if len(runs) != 1 {
		t.Errorf("runs = %d, want 1", len(runs))
	}
}

func TestScopeResults(t *testing.T) {
	b := types.DiscoveryBundle{Sections: map[types.Scope]types.Section{
		types.ScopeNews:     {Scope: types.ScopeNews, Citations: []types.Citation{{URL: "https://a.test"}}},
		types.ScopeEarnings: types.FailedSection(types.ScopeEarnings, errors.New("timeout")),
	}}
	got := ScopeResults(b)
	want := []ScopeResult{
		{Scope: types.ScopeNews, Status: StatusOK, CitationCount: 1},
		{Scope: types.ScopeEarnings, Status: StatusFailed, Error: "timeout"},
	}
	if len(got) != len(want) {
		t.Fatalf("results = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
