// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the conversion job ledger in SQLite. One row per
// job: what was converted, where the markdown landed, how long it took, and
// how many tables were later harvested.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/marker-pipeline/pkg/types"
)

const dbFile = "jobs.db"

// Store manages the job ledger database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database under dataDir, creating the
// schema if it does not exist.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
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
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		document TEXT NOT NULL,
		input_path TEXT NOT NULL,
		markdown_path TEXT,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		table_count INTEGER NOT NULL DEFAULT -1,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_jobs_document ON jobs(document)`)
	return err
}

// Record inserts one job into the ledger.
func (s *Store) Record(ctx context.Context, job types.Job) error {
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (document, input_path, markdown_path, status, error, duration_ms, table_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Document, job.InputPath, job.MarkdownPath, string(job.Status), job.Error,
		job.Duration.Milliseconds(), job.TableCount, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording job for %s: %w", job.Document, err)
	}
	return nil
}

// SetTableCount updates the harvested table count on the most recent
// successful job for the document.
func (s *Store) SetTableCount(ctx context.Context, document string, count int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET table_count = ?
		 WHERE rowid = (SELECT rowid FROM jobs WHERE document = ? AND status = ? ORDER BY rowid DESC LIMIT 1)`,
		count, document, string(types.JobDone))
	if err != nil {
		return fmt.Errorf("updating table count for %s: %w", document, err)
	}
	return nil
}

// List returns the most recent jobs, newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT document, input_path, markdown_path, status, error, duration_ms, table_count, created_at
		 FROM jobs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// Get returns the most recent job for a document, or sql.ErrNoRows wrapped
// when none exists.
func (s *Store) Get(ctx context.Context, document string) (types.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document, input_path, markdown_path, status, error, duration_ms, table_count, created_at
		 FROM jobs WHERE document = ? ORDER BY rowid DESC LIMIT 1`, document)
	if err != nil {
		return types.Job{}, fmt.Errorf("querying job for %s: %w", document, err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return types.Job{}, err
	}
	if len(jobs) == 0 {
		return types.Job{}, fmt.Errorf("job for %s: %w", document, sql.ErrNoRows)
	}
	return jobs[0], nil
}

func scanJobs(rows *sql.Rows) ([]types.Job, error) {
	var jobs []types.Job
	for rows.Next() {
		var (
			job        types.Job
			status     string
			durationMS int64
			createdAt  string
			mdPath     sql.NullString
			errText    sql.NullString
		)
		if err := rows.Scan(&job.Document, &job.InputPath, &mdPath, &status, &errText,
			&durationMS, &job.TableCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		job.MarkdownPath = mdPath.String
		job.Error = errText.String
		job.Status = types.JobStatus(status)
		job.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			job.CreatedAt = ts
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
