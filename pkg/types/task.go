// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the mathnote client:
// backend tasks and their progress, finished notes and slides, SOS events,
// the resolved media source, and per-component configuration.
package types

// TaskStatus is the backend lifecycle state of an analysis task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusUploaded   TaskStatus = "uploaded"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusUploaded, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions follow s.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Rank orders statuses by how far along the lifecycle they are. Terminal
// statuses share the highest rank. Unknown statuses rank below pending.
func (s TaskStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusUploaded:
		return 1
	case StatusProcessing:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	default:
		return -1
	}
}

// Progress holds independent completion fractions for the three backend
// stages. No ordering or weighting between them is implied.
type Progress struct {
	Vision    float64 `json:"vision" yaml:"vision"`
	Audio     float64 `json:"audio" yaml:"audio"`
	Synthesis float64 `json:"synthesis" yaml:"synthesis"`
}

// Clamp returns p with every field limited to [0, 1].
func (p Progress) Clamp() Progress {
	return Progress{
		Vision:    clampUnit(p.Vision),
		Audio:     clampUnit(p.Audio),
		Synthesis: clampUnit(p.Synthesis),
	}
}

func clampUnit(f float64) float64 {
	switch {
	case f < 0 || f != f:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// Task is the client's snapshot of a backend task. A snapshot whose status
// is terminal is never replaced.
type Task struct {
	// ID is the opaque identifier returned at submission.
	ID string `json:"task_id" yaml:"task_id"`

	// Status is the backend lifecycle state.
	Status TaskStatus `json:"status" yaml:"status"`

	// Progress is present while the backend reports per-stage progress.
	Progress *Progress `json:"progress,omitempty" yaml:"progress,omitempty"`

	// ErrorMessage is the backend's failure reason, if any.
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// StorageRef is a direct file reference for the source video when the
	// status payload carries one.
	StorageRef string `json:"file_url,omitempty" yaml:"file_url,omitempty"`
}

// Equal reports whether two snapshots carry the same payload.
func (t *Task) Equal(o *Task) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.ID != o.ID || t.Status != o.Status || t.ErrorMessage != o.ErrorMessage || t.StorageRef != o.StorageRef {
		return false
	}
	if (t.Progress == nil) != (o.Progress == nil) {
		return false
	}
	return t.Progress == nil || *t.Progress == *o.Progress
}

// SubmitMode says how a video was handed to the backend.
type SubmitMode string

const (
	ModeFile SubmitMode = "file"
	ModeURL  SubmitMode = "url"
)
