// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mathnote/pkg/types"
)

// ExportEntry is one task with its note and SOS events, as written by
// ExportYAML and ExportJSON.
type ExportEntry struct {
	Task TaskRecord       `json:"task" yaml:"task"`
	Note *types.Note      `json:"note,omitempty" yaml:"note,omitempty"`
	SOS  []types.SosEvent `json:"sos,omitempty" yaml:"sos,omitempty"`
}

// ExportYAML writes the history to path. An empty taskID exports every
// task.
func (s *Store) ExportYAML(ctx context.Context, taskID, path string) error {
	entries, err := s.exportEntries(ctx, taskID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return writeExport(path, data)
}

// ExportJSON writes the history to path as indented JSON. An empty taskID
// exports every task.
func (s *Store) ExportJSON(ctx context.Context, taskID, path string) error {
	entries, err := s.exportEntries(ctx, taskID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return writeExport(path, data)
}

func writeExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, taskID string) ([]ExportEntry, error) {
	var tasks []TaskRecord
	if taskID != "" {
		r, err := s.Task(ctx, taskID)
		if err != nil {
			return nil, err
		}
		tasks = []TaskRecord{r}
	} else {
		var err error
		if tasks, err = s.ListTasks(ctx, 0); err != nil {
			return nil, fmt.Errorf("querying for export: %w", err)
		}
	}

	entries := make([]ExportEntry, len(tasks))
	for i, t := range tasks {
		entries[i].Task = t
		if t.HasNote {
			n, err := s.LoadNote(ctx, t.ID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			entries[i].Note = n
		}
		events, err := s.LoadSOS(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		entries[i].SOS = events
	}
	return entries, nil
}
