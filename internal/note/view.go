// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package note renders a finished lecture note and guards its export.
// Rendering is Markdown; formula markup in slide content is passed through
// verbatim for a math-aware viewer.
package note

import (
	"fmt"

	"github.com/pdiddy/mathnote/pkg/types"
)

// ViewState is what the note view should show.
type ViewState int

const (
	StateNoTask ViewState = iota
	StateLoading
	StateCompleted
	StateNoteUnavailable
	StateFailed
)

var viewStateNames = map[ViewState]string{
	StateNoTask:          "no_task",
	StateLoading:         "loading",
	StateCompleted:       "completed",
	StateNoteUnavailable: "note_unavailable",
	StateFailed:          "failed",
}

func (v ViewState) String() string {
	if s, ok := viewStateNames[v]; ok {
		return s
	}
	return fmt.Sprintf("ViewState(%d)", int(v))
}

// MarshalText lets ViewState appear by name in JSON.
func (v ViewState) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText parses a name written by MarshalText.
func (v *ViewState) UnmarshalText(b []byte) error {
	for state, name := range viewStateNames {
		if name == string(b) {
			*v = state
			return nil
		}
	}
	return fmt.Errorf("unknown view state %q", b)
}

// Input is the slice of session state the view depends on.
type Input struct {
	Task    *types.Task
	Note    *types.Note
	NoteErr error
}

// Classify maps the task and note to a view state. A note fetch failure
// only degrades a completed task; it never changes the task outcome.
func Classify(in Input) ViewState {
	switch {
	case in.Task == nil:
		return StateNoTask
	case in.Task.Status == types.StatusFailed:
		return StateFailed
	case in.Task.Status != types.StatusCompleted:
		return StateLoading
	case in.Note != nil:
		return StateCompleted
	case in.NoteErr != nil:
		return StateNoteUnavailable
	default:
		return StateLoading
	}
}
