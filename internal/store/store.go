// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps a local history of submitted lectures: task
// outcomes, fetched notes with a full-text index over their slides, and
// captured SOS events.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mathnote/pkg/types"
)

const (
	defaultDir = ".mathnote"
	dbFile     = "history.db"
)

// ErrNotFound is returned when a task or note is not in the history.
var ErrNotFound = errors.New("not found in history")

// Store manages the history SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// TaskRecord is one submitted task as remembered locally.
type TaskRecord struct {
	ID           string           `json:"task_id" yaml:"task_id"`
	Mode         types.SubmitMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Source       string           `json:"source,omitempty" yaml:"source,omitempty"`
	Status       types.TaskStatus `json:"status,omitempty" yaml:"status,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	SubmittedAt  time.Time        `json:"submitted_at" yaml:"submitted_at"`
	UpdatedAt    time.Time        `json:"updated_at" yaml:"updated_at"`
	HasNote      bool             `json:"has_note" yaml:"has_note"`
}

// New opens or creates the history database at cfg.Dir/history.db and
// creates the schema if needed.
func New(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
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

// Dir is the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			mode TEXT,
			source TEXT,
			status TEXT,
			error_message TEXT,
			submitted_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			task_id TEXT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
			title TEXT,
			created_at TEXT,
			fetched_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS slides (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL REFERENCES notes(task_id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			start_sec REAL,
			end_sec REAL,
			image_url TEXT,
			raw_transcript TEXT,
			ocr_content TEXT,
			audio_summary TEXT,
			sos_explanation TEXT,
			UNIQUE(task_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slides_task_id ON slides(task_id)`,
		`CREATE TABLE IF NOT EXISTS sos_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp_sec REAL NOT NULL,
			captured_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sos_task_id ON sos_events(task_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over slide text, kept in sync by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='slides_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE slides_fts USING fts5(
			ocr_content, audio_summary, sos_explanation, raw_transcript,
			content=slides, content_rowid=rowid)`,
		`CREATE TRIGGER slides_ai AFTER INSERT ON slides BEGIN
			INSERT INTO slides_fts(rowid, ocr_content, audio_summary, sos_explanation, raw_transcript)
			VALUES (new.rowid, new.ocr_content, new.audio_summary, new.sos_explanation, new.raw_transcript);
		END`,
		`CREATE TRIGGER slides_ad AFTER DELETE ON slides BEGIN
			INSERT INTO slides_fts(slides_fts, rowid, ocr_content, audio_summary, sos_explanation, raw_transcript)
			VALUES ('delete', old.rowid, old.ocr_content, old.audio_summary, old.sos_explanation, old.raw_transcript);
		END`,
		`CREATE TRIGGER slides_au AFTER UPDATE ON slides BEGIN
			INSERT INTO slides_fts(slides_fts, rowid, ocr_content, audio_summary, sos_explanation, raw_transcript)
			VALUES ('delete', old.rowid, old.ocr_content, old.audio_summary, old.sos_explanation, old.raw_transcript);
			INSERT INTO slides_fts(rowid, ocr_content, audio_summary, sos_explanation, raw_transcript)
			VALUES (new.rowid, new.ocr_content, new.audio_summary, new.sos_explanation, new.raw_transcript);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// RecordTask inserts or updates a task. Empty mode and source keep the
// stored values; the submission time is set once.
func (s *Store) RecordTask(ctx context.Context, r TaskRecord) error {
	if r.ID == "" {
		return errors.New("recording task: empty task id")
	}
	now := time.Now().UTC()
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, mode, source, status, error_message, submitted_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			mode=COALESCE(NULLIF(excluded.mode, ''), tasks.mode),
			source=COALESCE(NULLIF(excluded.source, ''), tasks.source),
			status=COALESCE(NULLIF(excluded.status, ''), tasks.status),
			error_message=excluded.error_message,
			updated_at=excluded.updated_at`,
		r.ID, string(r.Mode), r.Source, string(r.Status), r.ErrorMessage,
		formatTime(r.SubmittedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("recording task %s: %w", r.ID, err)
	}
	return nil
}

// Task returns one task record.
func (s *Store) Task(ctx context.Context, taskID string) (TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+` WHERE t.id = ?`, taskID)
	if err != nil {
		return TaskRecord{}, fmt.Errorf("querying task: %w", err)
	}
	defer rows.Close()
	recs, err := scanTasks(rows)
	if err != nil {
		return TaskRecord{}, err
	}
	if len(recs) == 0 {
		return TaskRecord{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return recs[0], nil
}

// ListTasks returns the most recently submitted tasks first. A limit of
// zero or less returns all of them.
func (s *Store) ListTasks(ctx context.Context, limit int) ([]TaskRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, taskSelect+` ORDER BY t.submitted_at DESC, t.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

const taskSelect = `SELECT t.id, t.mode, t.source, t.status, t.error_message,
	t.submitted_at, t.updated_at, n.task_id IS NOT NULL
	FROM tasks t LEFT JOIN notes n ON n.task_id = t.id`

func scanTasks(rows *sql.Rows) ([]TaskRecord, error) {
	var out []TaskRecord
	for rows.Next() {
		var (
			r                            TaskRecord
			mode, source, status, errMsg sql.NullString
			submittedAt, updatedAt       sql.NullString
		)
		if err := rows.Scan(&r.ID, &mode, &source, &status, &errMsg, &submittedAt, &updatedAt, &r.HasNote); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		r.Mode = types.SubmitMode(mode.String)
		r.Source = source.String
		r.Status = types.TaskStatus(status.String)
		r.ErrorMessage = errMsg.String
		r.SubmittedAt = parseTime(submittedAt.String)
		r.UpdatedAt = parseTime(updatedAt.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// timeLayout has a fixed-width fraction so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
