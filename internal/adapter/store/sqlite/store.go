// Package sqlite persists digest run history using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/patch-digest/internal/usecase/digest"
)

// Store implements the digest.Store interface using SQLite.
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

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- Stores metadata about each digest run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		patch_sha256 TEXT NOT NULL,
		tokenizer TEXT NOT NULL,
		file_count INTEGER NOT NULL,
		addition_count INTEGER NOT NULL,
		deletion_count INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_patch_sha ON runs(patch_sha256);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a completed digest run.
func (s *Store) SaveRun(ctx context.Context, run digest.Run) error {
	query := `
		INSERT INTO runs (run_id, created_at, patch_sha256, tokenizer, file_count, addition_count, deletion_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.CreatedAt.Unix(),
		run.PatchSHA,
		run.Tokenizer,
		run.FileCount,
		run.Additions,
		run.Deletions,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// RecentRuns retrieves the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]digest.Run, error) {
	query := `
		SELECT run_id, created_at, patch_sha256, tokenizer, file_count, addition_count, deletion_count, duration_ms
		FROM runs
		ORDER BY created_at DESC, run_id
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []digest.Run
	for rows.Next() {
		var run digest.Run
		var createdAt, durationMS int64
		err := rows.Scan(
			&run.ID,
			&createdAt,
			&run.PatchSHA,
			&run.Tokenizer,
			&run.FileCount,
			&run.Additions,
			&run.Deletions,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt = time.Unix(createdAt, 0).UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
