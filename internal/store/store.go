// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store persists verification and classification runs to a SQLite
// database so results can be queried across runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"strada-check/internal/classify"
	"strada-check/internal/resilience"
	"strada-check/internal/result"
)

// Run kinds
const (
	KindVerify   = "verify"
	KindClassify = "classify"
)

// ErrRunNotFound is returned when a run id is not in the database
var ErrRunNotFound = errors.New("run not found")

// Run is the header row stored for every invocation
type Run struct {
	ID          string
	Kind        string
	StartedAt   time.Time
	Duration    time.Duration
	CrashCount  int
	PersonCount int
	TotalIssues int
	// Source names the input files
	Source string
}

// StoredResult is one check_result row read back from the database
type StoredResult struct {
	CheckID    string
	ParentID   string
	Name       string
	Status     result.Status
	Summary    string
	IssueCount int
	Details    *result.Table
}

// Store wraps the SQLite handle
type Store struct {
	db    *sql.DB
	path  string
	retry resilience.RetryConfig
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, retry: resilience.DefaultRetryConfig()}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveVerification stores a verify run and every result, sub-results included
func (s *Store) SaveVerification(ctx context.Context, run Run, results []result.Result) error {
	run.Kind = KindVerify
	run.TotalIssues = result.TotalIssues(results)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, run); err != nil {
			return err
		}
		return insertResults(ctx, tx, run.ID, results)
	})
}

// SaveClassification stores a classify run: the per-person assignments, the
// pipeline counters and the verification of the assignments
func (s *Store) SaveClassification(ctx context.Context, run Run, outcome *classify.Outcome) error {
	if outcome == nil {
		return fmt.Errorf("no classification outcome to save")
	}
	run.Kind = KindClassify
	run.PersonCount = len(outcome.Persons)
	run.TotalIssues = result.TotalIssues(outcome.Verification)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, run); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO classified_person
			(run_id, row_index, crash_id, category_main, category_sub, micromobility_type, confidence, step, conflict_partner)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare person insert: %w", err)
		}
		defer stmt.Close()
		for i, p := range outcome.Persons {
			if _, err := stmt.ExecContext(ctx, run.ID, i, p.CrashID, p.CategoryMain, p.CategorySub,
				p.MicromobilityType, p.Confidence, p.Step, p.ConflictPartner); err != nil {
				return fmt.Errorf("failed to insert person %d: %w", i, err)
			}
		}

		if err := insertStats(ctx, tx, run.ID, outcome); err != nil {
			return err
		}
		return insertResults(ctx, tx, run.ID, outcome.Verification)
	})
}

// ListRuns returns stored runs, most recent first
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, started_at, duration_ms, crash_count, person_count, total_issues, source
		FROM run ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			started    string
			durationMs int64
		)
		if err := rows.Scan(&r.ID, &r.Kind, &started, &durationMs, &r.CrashCount, &r.PersonCount, &r.TotalIssues, &r.Source); err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Results returns the check results of one run in their stored order
func (s *Store) Results(ctx context.Context, runID string) ([]StoredResult, error) {
	if err := s.exists(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT check_id, COALESCE(parent_id, ''), name, status, summary, issue_count, COALESCE(details, '')
		FROM check_result WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			r       StoredResult
			status  string
			details string
		)
		if err := rows.Scan(&r.CheckID, &r.ParentID, &r.Name, &status, &r.Summary, &r.IssueCount, &details); err != nil {
			return nil, fmt.Errorf("failed to read result: %w", err)
		}
		r.Status = result.Status(status)
		if details != "" {
			r.Details = &result.Table{}
			if err := json.Unmarshal([]byte(details), r.Details); err != nil {
				return nil, fmt.Errorf("failed to decode details of %s: %w", r.CheckID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TypeCounts returns the stored micromobility type distribution of a classify run
func (s *Store) TypeCounts(ctx context.Context, runID string) (map[string]int, error) {
	if err := s.exists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT micromobility_type, COUNT(*) FROM classified_person
		WHERE run_id = ? AND micromobility_type <> ? GROUP BY micromobility_type`, runID, classify.TypeNotApplicable)
	if err != nil {
		return nil, fmt.Errorf("failed to query type counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// DeleteRun removes a run and everything stored under it
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM run WHERE id = ?", runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM run WHERE id = ?", runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}

// withTx runs fn in a transaction. The whole transaction is retried while
// another process holds the database lock.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return resilience.RetryWithBackoff(ctx, s.retry, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		return nil
	})
}

func insertRun(ctx context.Context, tx *sql.Tx, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO run (id, kind, started_at, duration_ms, crash_count, person_count, total_issues, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds(),
		run.CrashCount, run.PersonCount, run.TotalIssues, run.Source)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

func insertResults(ctx context.Context, tx *sql.Tx, runID string, results []result.Result) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO check_result
		(run_id, position, check_id, parent_id, name, status, summary, issue_count, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	var insert func(r result.Result, parent sql.NullString) error
	insert = func(r result.Result, parent sql.NullString) error {
		var details sql.NullString
		if r.Details.Len() > 0 {
			data, err := json.Marshal(r.Details)
			if err != nil {
				return fmt.Errorf("failed to encode details of %s: %w", r.ID, err)
			}
			details = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, position, r.ID, parent, r.Name, string(r.Status), r.Summary, r.IssueCount, details); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", r.ID, err)
		}
		position++
		for _, sub := range r.SubResults {
			if err := insert(sub, sql.NullString{String: r.ID, Valid: true}); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range results {
		if err := insert(r, sql.NullString{}); err != nil {
			return err
		}
	}
	return nil
}

func insertStats(ctx context.Context, tx *sql.Tx, runID string, outcome *classify.Outcome) error {
	type stat struct {
		group, name string
		value       int
	}
	stats := []stat{
		{"total", "total_cycling", outcome.Stats.TotalCycling},
		{"total", "solo_crashes", outcome.Stats.SoloCrashes},
		{"total", "multi_crashes", outcome.Stats.MultiCrashes},
	}
	for _, group := range []struct {
		name   string
		counts map[string]int
	}{
		{"type", outcome.CountByType()},
		{"step", outcome.Stats.StepCounts},
		{"guard", outcome.Stats.GuardCounts},
	} {
		names := make([]string, 0, len(group.counts))
		for name := range group.counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			stats = append(stats, stat{group.name, name, group.counts[name]})
		}
	}

	for _, st := range stats {
		if _, err := tx.ExecContext(ctx, "INSERT INTO classification_stat (run_id, stat_group, name, value) VALUES (?, ?, ?, ?)",
			runID, st.group, st.name, st.value); err != nil {
			return fmt.Errorf("failed to insert stat %s/%s: %w", st.group, st.name, err)
		}
	}
	return nil
}

// Stats returns the stored counters of a classify run keyed by group then name
func (s *Store) Stats(ctx context.Context, runID string) (map[string]map[string]int, error) {
	if err := s.exists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT stat_group, name, value FROM classification_stat WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var (
			group, name string
			value       int
		)
		if err := rows.Scan(&group, &name, &value); err != nil {
			return nil, err
		}
		if out[group] == nil {
			out[group] = make(map[string]int)
		}
		out[group][name] = value
	}
	return out, rows.Err()
}
