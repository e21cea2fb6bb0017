// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/mathnote/pkg/types"
)

// SaveNote stores a fetched note, replacing any earlier copy for the same
// task. The task row is created if it does not exist yet.
func (s *Store) SaveNote(ctx context.Context, n *types.Note) error {
	if n == nil || n.TaskID == "" {
		return errors.New("saving note: missing task id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO tasks (id, status, submitted_at, updated_at) VALUES (?, ?, ?, ?)`,
		n.TaskID, string(types.StatusCompleted), now, now,
	); err != nil {
		return fmt.Errorf("inserting task stub: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE task_id = ?`, n.TaskID); err != nil {
		return fmt.Errorf("deleting old slides: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO notes (task_id, title, created_at, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET
			title=excluded.title, created_at=excluded.created_at, fetched_at=excluded.fetched_at`,
		n.TaskID, n.Title, formatTime(n.CreatedAt), now,
	); err != nil {
		return fmt.Errorf("upserting note: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO slides (task_id, number, start_sec, end_sec, image_url, raw_transcript,
			ocr_content, audio_summary, sos_explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, sl := range n.Slides {
		if _, err := stmt.ExecContext(ctx,
			n.TaskID, sl.Number, sl.Start, sl.End, sl.ImageURL, sl.RawTranscript,
			sl.OCRContent, sl.AudioSummary, sl.SOSExplanation,
		); err != nil {
			return fmt.Errorf("inserting slide %d: %w", sl.Number, err)
		}
	}

	return tx.Commit()
}

// LoadNote returns a stored note with slides in ascending number order.
func (s *Store) LoadNote(ctx context.Context, taskID string) (*types.Note, error) {
	var (
		n         = types.Note{TaskID: taskID}
		title     sql.NullString
		createdAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT title, created_at FROM notes WHERE task_id = ?`, taskID,
	).Scan(&title, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up note: %w", err)
	}
	n.Title = title.String
	n.CreatedAt = parseTime(createdAt.String)

	rows, err := s.db.QueryContext(ctx,
		`SELECT number, start_sec, end_sec, image_url, raw_transcript, ocr_content,
			audio_summary, sos_explanation
		 FROM slides WHERE task_id = ? ORDER BY number`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying slides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sl, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		n.Slides = append(n.Slides, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlide(row scanner, extra ...any) (types.Slide, error) {
	var (
		sl                types.Slide
		image, transcript sql.NullString
		ocr, sum, expl    sql.NullString
	)
	dest := append([]any{&sl.Number, &sl.Start, &sl.End, &image, &transcript, &ocr, &sum, &expl}, extra...)
	if err := row.Scan(dest...); err != nil {
		return types.Slide{}, fmt.Errorf("scanning slide: %w", err)
	}
	sl.ImageURL = image.String
	sl.RawTranscript = transcript.String
	sl.OCRContent = ocr.String
	sl.AudioSummary = sum.String
	sl.SOSExplanation = expl.String
	return sl, nil
}

// SaveSOS replaces the stored SOS events of a task with events.
func (s *Store) SaveSOS(ctx context.Context, taskID string, events []types.SosEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sos_events WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting old sos events: %w", err)
	}
	for i, ev := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sos_events (task_id, seq, timestamp_sec, captured_at) VALUES (?, ?, ?, ?)`,
			taskID, i, ev.Timestamp, formatTime(ev.CapturedAt),
		); err != nil {
			return fmt.Errorf("inserting sos event: %w", err)
		}
	}
	return tx.Commit()
}

// LoadSOS returns the stored SOS events of a task in capture order.
func (s *Store) LoadSOS(ctx context.Context, taskID string) ([]types.SosEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp_sec, captured_at FROM sos_events WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying sos events: %w", err)
	}
	defer rows.Close()

	var out []types.SosEvent
	for rows.Next() {
		var (
			ev         types.SosEvent
			capturedAt sql.NullString
		)
		if err := rows.Scan(&ev.Timestamp, &capturedAt); err != nil {
			return nil, fmt.Errorf("scanning sos event: %w", err)
		}
		ev.CapturedAt = parseTime(capturedAt.String)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SearchResult is a slide matching a full-text query.
type SearchResult struct {
	TaskID string      `json:"task_id" yaml:"task_id"`
	Title  string      `json:"title" yaml:"title"`
	Slide  types.Slide `json:"slide" yaml:"slide"`
}

const defaultSearchLimit = 20

// Search runs an FTS5 query over slide formulas, summaries, explanations,
// and transcripts. Results are ranked by relevance.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, errors.New("search: empty query")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sl.number, sl.start_sec, sl.end_sec, sl.image_url, sl.raw_transcript,
			sl.ocr_content, sl.audio_summary, sl.sos_explanation,
			sl.task_id, n.title
		 FROM slides_fts
		 JOIN slides sl ON sl.rowid = slides_fts.rowid
		 LEFT JOIN notes n ON n.task_id = sl.task_id
		 WHERE slides_fts MATCH ?
		 ORDER BY slides_fts.rank
		 LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r     SearchResult
			title sql.NullString
		)
		sl, err := scanSlide(rows, &r.TaskID, &title)
		if err != nil {
			return nil, err
		}
		r.Slide = sl
		r.Title = title.String
		results = append(results, r)
	}
	return results, rows.Err()
}
