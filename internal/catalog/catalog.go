// Package catalog records which documents have been ingested and the
// history of ingestion runs.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/regqa/internal/db"
)

// ErrNotFound is returned when a document or run has no record.
var ErrNotFound = errors.New("not found")

// Status is the ingestion outcome recorded for a document.
type Status string

const (
	StatusIngested Status = "ingested"
	StatusFailed   Status = "failed"
)

// Document is the catalog record of one source file.
type Document struct {
	Name       string    `json:"name"`
	Checksum   string    `json:"checksum"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	ChunkCount int       `json:"chunk_count"`
	Status     Status    `json:"status"`
	LastError  string    `json:"last_error,omitempty"`
	IngestedAt time.Time `json:"ingested_at,omitempty"`
}

// Run is one invocation of ingestion.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Forced     bool      `json:"forced"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Removed    int       `json:"removed"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// Store provides CRUD operations for catalog records.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Get returns the record of a single document.
func (s *Store) Get(ctx context.Context, name string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, checksum, size, mod_time, chunk_count, status, last_error, ingested_at
		FROM documents WHERE name = ?`, name)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", name, ErrNotFound)
	}
	return d, err
}

// List returns every document record ordered by name.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	return s.list(ctx, `
		SELECT name, checksum, size, mod_time, chunk_count, status, last_error, ingested_at
		FROM documents ORDER BY name`)
}

// ListIngested returns the successfully ingested documents ordered by name.
func (s *Store) ListIngested(ctx context.Context) ([]Document, error) {
	return s.list(ctx, `
		SELECT name, checksum, size, mod_time, chunk_count, status, last_error, ingested_at
		FROM documents WHERE status = ? ORDER BY name`, string(StatusIngested))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Upsert records a successful ingestion of doc, clearing any earlier error.
func (s *Store) Upsert(ctx context.Context, doc Document) error {
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (name, checksum, size, mod_time, chunk_count, status, last_error, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?)
		ON CONFLICT(name) DO UPDATE SET
			checksum = excluded.checksum,
			size = excluded.size,
			mod_time = excluded.mod_time,
			chunk_count = excluded.chunk_count,
			status = excluded.status,
			last_error = '',
			ingested_at = excluded.ingested_at`,
		doc.Name, doc.Checksum, doc.Size, formatTime(doc.ModTime), doc.ChunkCount,
		string(StatusIngested), formatTime(doc.IngestedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.Name, err)
	}
	return nil
}

// MarkFailed records a failed ingestion. The checksum is kept empty so the
// document counts as changed on the next run.
func (s *Store) MarkFailed(ctx context.Context, name string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (name, checksum, status, last_error)
		VALUES (?, '', ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			checksum = '',
			status = excluded.status,
			last_error = excluded.last_error`,
		name, string(StatusFailed), msg,
	)
	if err != nil {
		return fmt.Errorf("marking document %q failed: %w", name, err)
	}
	return nil
}

// Delete removes the record of a document.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting document %q: %w", name, err)
	}
	return nil
}

// Reset forgets every document so the next ingestion processes all of them.
// Run history is kept.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("resetting catalog: %w", err)
	}
	return nil
}

// StartRun records the start of an ingestion run and returns it.
func (s *Store) StartRun(ctx context.Context, forced bool) (*Run, error) {
	run := &Run{ID: uuid.New().String(), StartedAt: s.now(), Forced: forced}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ingestion_runs (id, started_at, forced) VALUES (?, ?, ?)",
		run.ID, formatTime(run.StartedAt), boolToInt(forced),
	)
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	return run, nil
}

// FinishRun stores the counters and outcome of run.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_runs SET finished_at = ?, processed = ?, skipped = ?,
			removed = ?, failed = ?, error = ?
		WHERE id = ?`,
		formatTime(run.FinishedAt), run.Processed, run.Skipped, run.Removed, run.Failed, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// LastRun returns the most recently started run.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, forced, processed, skipped, removed, failed, error
		FROM ingestion_runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)

	var (
		r                 Run
		started, finished string
		forced            int
	)
	err := row.Scan(&r.ID, &started, &finished, &forced, &r.Processed, &r.Skipped, &r.Removed, &r.Failed, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("last run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	r.Forced = forced != 0
	return &r, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var (
		d                   Document
		status              string
		modTime, ingestedAt string
	)
	if err := sc.Scan(&d.Name, &d.Checksum, &d.Size, &modTime, &d.ChunkCount, &status, &d.LastError, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	d.Status = Status(status)
	d.ModTime = parseTime(modTime)
	d.IngestedAt = parseTime(ingestedAt)
	return &d, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
