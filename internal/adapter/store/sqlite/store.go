// Package sqlite archives completed review passes in a SQLite database.
// The archive is append-only and supplemental: the daemon's correctness
// rests on the statefile store, not on this history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/prwatch/internal/store"
)

// Store implements the store.HistoryStore interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One row per completed review pass
	CREATE TABLE IF NOT EXISTS passes (
		pass_id TEXT PRIMARY KEY,
		repository TEXT NOT NULL,
		pr_number INTEGER NOT NULL,
		commit_sha TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finding_count INTEGER NOT NULL DEFAULT 0
	);

	-- Per-rubric outcome within a pass
	CREATE TABLE IF NOT EXISTS rubric_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pass_id TEXT NOT NULL,
		rubric TEXT NOT NULL,
		status TEXT NOT NULL,
		finding_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		FOREIGN KEY (pass_id) REFERENCES passes(pass_id) ON DELETE CASCADE
	);

	-- Individual findings reported during a pass
	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pass_id TEXT NOT NULL,
		rubric TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		FOREIGN KEY (pass_id) REFERENCES passes(pass_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_rubric_results_pass ON rubric_results(pass_id);
	CREATE INDEX IF NOT EXISTS idx_findings_pass ON findings(pass_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordPass stores a completed pass with its rubric outcomes and findings
// in one transaction.
func (s *Store) RecordPass(ctx context.Context, pass store.Pass, findings []store.ArchivedFinding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO passes (pass_id, repository, pr_number, commit_sha, started_at, finding_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pass.PassID,
		pass.Repo,
		pass.Number,
		pass.CommitSHA,
		pass.StartedAt.Unix(),
		pass.FindingCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pass: %w", err)
	}

	for _, r := range pass.Rubrics {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rubric_results (pass_id, rubric, status, finding_count, error)
			 VALUES (?, ?, ?, ?, ?)`,
			pass.PassID, r.Rubric, r.Status, r.FindingCount, nullableString(r.Error),
		)
		if err != nil {
			return fmt.Errorf("failed to insert rubric result: %w", err)
		}
	}

	for _, f := range findings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO findings (pass_id, rubric, file, line, severity, message)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			pass.PassID, f.Rubric, f.File, f.Line, f.Severity, f.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pass: %w", err)
	}
	return nil
}

// ListPasses retrieves the most recent passes, newest first.
func (s *Store) ListPasses(ctx context.Context, limit int) ([]store.Pass, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pass_id, repository, pr_number, commit_sha, started_at, finding_count
		 FROM passes ORDER BY started_at DESC, pass_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list passes: %w", err)
	}
	defer rows.Close()

	var passes []store.Pass
	for rows.Next() {
		var pass store.Pass
		var startedAt int64
		if err := rows.Scan(&pass.PassID, &pass.Repo, &pass.Number, &pass.CommitSHA, &startedAt, &pass.FindingCount); err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		pass.StartedAt = time.Unix(startedAt, 0).UTC()
		passes = append(passes, pass)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passes: %w", err)
	}

	for i := range passes {
		rubrics, err := s.rubricResults(ctx, passes[i].PassID)
		if err != nil {
			return nil, err
		}
		passes[i].Rubrics = rubrics
	}

	return passes, nil
}

func (s *Store) rubricResults(ctx context.Context, passID string) ([]store.RubricOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rubric, status, finding_count, error
		 FROM rubric_results WHERE pass_id = ? ORDER BY id`, passID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rubric results: %w", err)
	}
	defer rows.Close()

	var results []store.RubricOutcome
	for rows.Next() {
		var r store.RubricOutcome
		var errText sql.NullString
		if err := rows.Scan(&r.Rubric, &r.Status, &r.FindingCount, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan rubric result: %w", err)
		}
		r.Error = errText.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
