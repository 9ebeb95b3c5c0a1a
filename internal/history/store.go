// Package history persists render jobs and their per-track outcomes in a
// SQLite database under the log directory.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"slidecast/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases must be cleared or deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Job statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Job is one recorded render run over a source file.
type Job struct {
	ID         string
	Source     string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	Tracks     []TrackResult
}

// TrackResult is the outcome of rendering one subtitle track.
type TrackResult struct {
	JobID       string
	TrackIndex  int
	Language    string
	Segments    int
	OutputPath  string
	Status      string
	Error       string
	CompletedAt time.Time
}

// Store manages render history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
}

// OpenPath opens the history database at an explicit location.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'slidecast history clear' or delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// StartJob records the beginning of a render run.
func (s *Store) StartJob(ctx context.Context, id, source string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO jobs (id, source, status, started_at) VALUES (?, ?, ?, ?)",
		id, source, StatusRunning, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	return nil
}

// FinishJob records the terminal status of a render run.
func (s *Store) FinishJob(ctx context.Context, id, status, errorMessage string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, errorMessage, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish job rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish job: no job with id %q", id)
	}
	return nil
}

// RecordTrack records one track's outcome within a job.
func (s *Store) RecordTrack(ctx context.Context, result TrackResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO track_results (job_id, track_index, language, segments, output_path, status, error, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.JobID, result.TrackIndex, result.Language, result.Segments,
		result.OutputPath, result.Status, result.Error,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record track: %w", err)
	}
	return nil
}

// ListJobs returns the most recent jobs with their track results, newest
// first. A non-positive limit returns everything.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	query := "SELECT id, source, status, error, started_at, finished_at FROM jobs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job                 Job
			startedAt, finished string
		)
		if err := rows.Scan(&job.ID, &job.Source, &job.Status, &job.Error, &startedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if finished != "" {
			job.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	for i := range jobs {
		tracks, err := s.listTracks(ctx, jobs[i].ID)
		if err != nil {
			return nil, err
		}
		jobs[i].Tracks = tracks
	}
	return jobs, nil
}

func (s *Store) listTracks(ctx context.Context, jobID string) ([]TrackResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, track_index, language, segments, output_path, status, error, completed_at
		 FROM track_results WHERE job_id = ? ORDER BY track_index`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []TrackResult
	for rows.Next() {
		var (
			track       TrackResult
			completedAt string
		)
		if err := rows.Scan(&track.JobID, &track.TrackIndex, &track.Language, &track.Segments,
			&track.OutputPath, &track.Status, &track.Error, &completedAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		track.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// Clear deletes all recorded jobs and track results.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM jobs"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
