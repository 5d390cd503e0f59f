// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps an audit trail of briefing runs in SQLite. It is
// write-mostly: briefings and cached sections are never read back from it.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/company-intel/pkg/types"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one briefing request.
type Run struct {
	ID         string        `json:"id" yaml:"id"`
	Input      string        `json:"input" yaml:"input"`
	Slug       string        `json:"slug,omitempty" yaml:"slug,omitempty"`
	Company    string        `json:"company,omitempty" yaml:"company,omitempty"`
	Status     string        `json:"status" yaml:"status"`
	EventCount int           `json:"event_count" yaml:"event_count"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Scopes     []ScopeResult `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// ScopeResult is the outcome of one scope within a run.
type ScopeResult struct {
	Scope         types.Scope `json:"scope" yaml:"scope"`
	Status        string      `json:"status" yaml:"status"`
	CitationCount int         `json:"citation_count" yaml:"citation_count"`
	Error         string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// ScopeResults summarizes every section of a bundle in canonical order.
func ScopeResults(b types.DiscoveryBundle) []ScopeResult {
	var out []ScopeResult
	for _, sc := range b.OrderedScopes() {
		sec := b.Sections[sc]
		r := ScopeResult{Scope: sc, Status: StatusOK, CitationCount: len(sec.Citations)}
		if sec.Failed() {
			r.Status = StatusFailed
			r.Error, _ = sec.Audit[types.AuditError].(string)
		}
		out = append(out, r)
	}
	return out
}

// Store is the SQLite-backed ledger.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the ledger database at path and creates the
// schema if it does not exist.
func NewStore(cfg types.LedgerConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("ledger path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			slug TEXT,
			company TEXT,
			status TEXT NOT NULL,
			event_count INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scope_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			scope TEXT NOT NULL,
			status TEXT NOT NULL,
			citation_count INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			PRIMARY KEY (run_id, scope)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_slug ON runs(slug)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record writes a run and its scope results in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, input, slug, company, status, event_count, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.Slug, run.Company, run.Status, run.EventCount, run.Error,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scope_results (run_id, scope, status, citation_count, error) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Scopes {
		if _, err := stmt.ExecContext(ctx, run.ID, string(r.Scope), r.Status, r.CitationCount, r.Error); err != nil {
			return fmt.Errorf("inserting scope %s: %w", r.Scope, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to n runs, newest first, each with its scope results.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, slug, company, status, event_count, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			slug, company, e  sql.NullString
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Input, &slug, &company, &r.Status, &r.EventCount, &e, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Slug, r.Company, r.Error = slug.String, company.String, e.String
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		scopes, err := s.scopeResults(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Scopes = scopes
	}
	return runs, nil
}

func (s *Store) scopeResults(ctx context.Context, runID string) ([]ScopeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope, status, citation_count, error FROM scope_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying scope results: %w", err)
	}
	defer rows.Close()

	byScope := make(map[types.Scope]ScopeResult)
	for rows.Next() {
		var (
			r     ScopeResult
			scope string
			e     sql.NullString
		)
		if err := rows.Scan(&scope, &r.Status, &r.CitationCount, &e); err != nil {
			return nil, fmt.Errorf("scanning scope result: %w", err)
		}
		r.Scope, r.Error = types.Scope(scope), e.String
		byScope[r.Scope] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []ScopeResult
	for _, sc := range types.AllScopes {
		if r, ok := byScope[sc]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
