// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"slices"

	"github.com/pdiddy/mathnote/internal/media"
	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/submit"
	"github.com/pdiddy/mathnote/pkg/types"
)

// ExportState tracks the one-shot Notion export.
type ExportState struct {
	InFlight bool
	PageURL  string
	Err      error
}

// State is everything the page shows. It is only ever replaced by Reduce;
// values handed to subscribers are never mutated afterwards.
type State struct {
	// Version increases on every change, so equal versions mean equal
	// states.
	Version uint64

	// SubmitSeq identifies the latest submission attempt. Submission
	// results for an older attempt are ignored.
	SubmitSeq  uint64
	Submitting bool
	SubmitErr  error

	// TaskID is the current task. Results for any other id are ignored.
	TaskID       string
	Mode         types.SubmitMode
	SubmittedURL string
	FileURL      string

	// Gen is the poll run bound to TaskID. Results tagged with another
	// generation come from a cancelled run.
	Gen          uint64
	Polling      bool
	PollFailures int
	PollErr      error
	Stalled      bool

	Task  *types.Task
	Media types.MediaSource

	Note        *types.Note
	NoteLoading bool
	NoteErr     error

	Export ExportState
	SOS    []types.SosEvent

	Closed bool
}

// View returns the inputs of the note view.
func (s State) View() note.Input {
	return note.Input{Task: s.Task, Note: s.Note, NoteErr: s.NoteErr}
}

// Settled reports whether nothing further will happen without user action.
func (s State) Settled() bool {
	switch {
	case s.Closed, s.Stalled:
		return true
	case s.Submitting:
		return false
	case s.SubmitErr != nil:
		return true
	case s.Task == nil:
		return false
	default:
		return s.Task.Status.IsTerminal() && !s.NoteLoading
	}
}

// Event is an input to Reduce.
type Event interface{ event() }

// SubmitStarted begins a new submission, superseding the current task.
type SubmitStarted struct {
	Seq  uint64
	Mode types.SubmitMode
	URL  string
}

// Submitted carries the backend's answer to submission Seq.
type Submitted struct {
	Seq    uint64
	Handle submit.Handle
}

// SubmitFailed reports a validation or transport failure of submission Seq.
type SubmitFailed struct {
	Seq uint64
	Err error
}

// PollArmed binds a poll run generation to a task.
type PollArmed struct {
	TaskID string
	Gen    uint64
}

// PollResult is a fetched status snapshot.
type PollResult struct {
	TaskID string
	Gen    uint64
	Task   *types.Task
}

// PollFailed is a single failed status fetch; polling continues.
type PollFailed struct {
	TaskID string
	Gen    uint64
	Err    error
}

// PollStalled means the run gave up after repeated failures.
type PollStalled struct {
	TaskID string
	Gen    uint64
	Err    error
}

// NoteLoaded delivers the finished note.
type NoteLoaded struct {
	TaskID string
	Note   *types.Note
}

// NoteFailed reports a failed note fetch for a completed task.
type NoteFailed struct {
	TaskID string
	Err    error
}

// ExportStarted marks a Notion export as in flight.
type ExportStarted struct{ TaskID string }

// ExportDone carries the created page URL.
type ExportDone struct {
	TaskID  string
	PageURL string
}

// ExportFailed reports a failed export.
type ExportFailed struct {
	TaskID string
	Err    error
}

// SOSCaptured appends a captured event.
type SOSCaptured struct{ Event types.SosEvent }

// Cancelled tears the session down.
type Cancelled struct{}

func (SubmitStarted) event() {}
func (Submitted) event()     {}
func (SubmitFailed) event()  {}
func (PollArmed) event()     {}
func (PollResult) event()    {}
func (PollFailed) event()    {}
func (PollStalled) event()   {}
func (NoteLoaded) event()    {}
func (NoteFailed) event()    {}
func (ExportStarted) event() {}
func (ExportDone) event()    {}
func (ExportFailed) event()  {}
func (SOSCaptured) event()   {}
func (Cancelled) event()     {}

// Reduce applies ev to s and returns the next state. It has no side
// effects. When ev changes nothing the returned state is s itself, with the
// same Version.
func Reduce(s State, ev Event) State {
	next, changed := reduce(s, ev)
	if !changed {
		return s
	}
	next.Version = s.Version + 1
	return next
}

func reduce(s State, ev Event) (State, bool) {
	if s.Closed {
		return s, false
	}

	switch ev := ev.(type) {
	case SubmitStarted:
		return State{
			SubmitSeq:    ev.Seq,
			Submitting:   true,
			Mode:         ev.Mode,
			SubmittedURL: ev.URL,
			Gen:          s.Gen,
			SOS:          s.SOS,
		}, true

	case Submitted:
		if ev.Seq != s.SubmitSeq || !s.Submitting || ev.Handle.TaskID == "" {
			return s, false
		}
		// Without a usable status the task ranks below pending until the
		// first poll reports one.
		status := ev.Handle.Status
		if !status.Valid() || status.IsTerminal() {
			status = ""
		}
		s.Submitting = false
		s.SubmitErr = nil
		s.TaskID = ev.Handle.TaskID
		s.Mode = ev.Handle.Mode
		if ev.Handle.URL != "" {
			s.SubmittedURL = ev.Handle.URL
		}
		s.FileURL = ev.Handle.FileURL
		s.Task = &types.Task{ID: ev.Handle.TaskID, Status: status}
		s.Polling = true
		s.Media, _ = media.Stick(types.MediaSource{}, media.Resolve(s.mediaInputs("")))
		return s, true

	case SubmitFailed:
		if ev.Seq != s.SubmitSeq || !s.Submitting {
			return s, false
		}
		s.Submitting = false
		s.SubmitErr = ev.Err
		return s, true

	case PollArmed:
		if ev.TaskID != s.TaskID || ev.Gen == s.Gen {
			return s, false
		}
		s.Gen = ev.Gen
		return s, true

	case PollResult:
		if !s.current(ev.TaskID, ev.Gen) || ev.Task == nil {
			return s, false
		}
		return s.applyStatus(ev.Task)

	case PollFailed:
		if !s.current(ev.TaskID, ev.Gen) || !s.Polling {
			return s, false
		}
		s.PollFailures++
		s.PollErr = ev.Err
		return s, true

	case PollStalled:
		if !s.current(ev.TaskID, ev.Gen) || !s.Polling {
			return s, false
		}
		s.Polling = false
		s.Stalled = true
		s.PollErr = ev.Err
		return s, true

	case NoteLoaded:
		if ev.TaskID != s.TaskID || !s.NoteLoading || ev.Note == nil {
			return s, false
		}
		s.Note = ev.Note
		s.NoteLoading = false
		s.NoteErr = nil
		return s, true

	case NoteFailed:
		if ev.TaskID != s.TaskID || !s.NoteLoading {
			return s, false
		}
		s.NoteLoading = false
		s.NoteErr = ev.Err
		return s, true

	case ExportStarted:
		if ev.TaskID != s.TaskID || s.Export.InFlight {
			return s, false
		}
		s.Export = ExportState{InFlight: true}
		return s, true

	case ExportDone:
		if ev.TaskID != s.TaskID || !s.Export.InFlight {
			return s, false
		}
		s.Export = ExportState{PageURL: ev.PageURL}
		return s, true

	case ExportFailed:
		if ev.TaskID != s.TaskID || !s.Export.InFlight {
			return s, false
		}
		s.Export = ExportState{Err: ev.Err}
		return s, true

	case SOSCaptured:
		s.SOS = append(slices.Clip(s.SOS), ev.Event)
		return s, true

	case Cancelled:
		s.Polling = false
		s.Submitting = false
		s.Closed = true
		return s, true
	}
	return s, false
}

func (s State) current(taskID string, gen uint64) bool {
	return taskID != "" && taskID == s.TaskID && gen == s.Gen
}

// applyStatus replaces the task snapshot. A terminal snapshot is final and
// a status never moves backwards.
func (s State) applyStatus(t *types.Task) (State, bool) {
	if s.Task != nil {
		if s.Task.Status.IsTerminal() {
			return s, false
		}
		if t.Status.Rank() < s.Task.Status.Rank() {
			return s, false
		}
		if s.Task.Equal(t) && s.PollFailures == 0 {
			return s, false
		}
	}

	snapshot := *t
	if snapshot.ID == "" {
		snapshot.ID = s.TaskID
	}
	s.Task = &snapshot
	s.PollFailures = 0
	s.PollErr = nil
	s.Media, _ = media.Stick(s.Media, media.Resolve(s.mediaInputs(snapshot.StorageRef)))

	if snapshot.Status.IsTerminal() {
		s.Polling = false
		if snapshot.Status == types.StatusCompleted {
			s.NoteLoading = true
		}
	}
	return s, true
}

func (s State) mediaInputs(storageRef string) media.Inputs {
	return media.Inputs{
		Mode:             s.Mode,
		SubmittedURL:     s.SubmittedURL,
		FileURL:          s.FileURL,
		StatusStorageRef: storageRef,
	}
}
