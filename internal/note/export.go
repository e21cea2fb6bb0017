// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pdiddy/mathnote/pkg/types"
)

var (
	// ErrExportInProgress is returned while a previous sync is in flight.
	ErrExportInProgress = errors.New("export already in progress")

	// ErrExportFailed matches every failed sync.
	ErrExportFailed = errors.New("export to Notion failed")
)

// ExportBackend is the subset of the API client used for export.
type ExportBackend interface {
	SyncNotion(ctx context.Context, taskID string) (string, error)
	DownloadLink(ctx context.Context, taskID string) (types.DownloadLink, error)
}

// Exporter pushes finished notes to Notion. At most one sync runs at a
// time; concurrent calls return ErrExportInProgress without contacting the
// backend.
type Exporter struct {
	backend  ExportBackend
	inFlight atomic.Bool
}

// NewExporter returns an Exporter using backend.
func NewExporter(backend ExportBackend) *Exporter {
	return &Exporter{backend: backend}
}

// Sync exports the note of taskID and returns the Notion page URL.
func (e *Exporter) Sync(ctx context.Context, taskID string) (string, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return "", ErrExportInProgress
	}
	defer e.inFlight.Store(false)

	url, err := e.backend.SyncNotion(ctx, taskID)
	if err != nil {
		slog.Warn("notion export failed", "task_id", taskID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	slog.Info("note exported to notion", "task_id", taskID, "url", url)
	return url, nil
}

// DownloadLink returns a time-limited link to the rendered note file.
func (e *Exporter) DownloadLink(ctx context.Context, taskID string) (types.DownloadLink, error) {
	link, err := e.backend.DownloadLink(ctx, taskID)
	if err != nil {
		return types.DownloadLink{}, fmt.Errorf("requesting download link: %w", err)
	}
	return link, nil
}
