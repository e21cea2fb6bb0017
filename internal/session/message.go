// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"errors"
	"fmt"

	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/submit"
	"github.com/pdiddy/mathnote/pkg/types"
)

// Failure classes, one per kind of problem the user can run into.
type Failure string

const (
	FailureNone       Failure = ""
	FailureValidation Failure = "validation"
	FailureSubmit     Failure = "submit"
	FailurePolling    Failure = "polling"
	FailureTask       Failure = "task"
	FailureNote       Failure = "note"
	FailureExport     Failure = "export"
)

// pollWarnAfter is how many consecutive failed fetches pass silently
// before the user is told the connection is unreliable.
const pollWarnAfter = 3

// Notice is a user-facing message. Text never contains raw transport
// errors.
type Notice struct {
	Failure Failure `json:"failure"`
	Text    string  `json:"text"`
}

// Notices lists every failure currently visible in s, most important
// first.
func Notices(s State) []Notice {
	var out []Notice
	if s.SubmitErr != nil {
		out = append(out, submitNotice(s.SubmitErr))
	}
	if s.Task != nil && s.Task.Status == types.StatusFailed {
		out = append(out, Notice{FailureTask, note.FailureText(s.Task)})
	}
	switch {
	case s.Stalled:
		out = append(out, Notice{FailurePolling, "Lost contact with the server while checking progress. Check your connection and try again."})
	case s.Polling && s.PollFailures >= pollWarnAfter:
		out = append(out, Notice{FailurePolling, "Having trouble reaching the server. Still trying..."})
	}
	if s.NoteErr != nil {
		out = append(out, Notice{FailureNote, note.MsgNoteUnavailable})
	}
	if s.Export.Err != nil {
		out = append(out, Notice{FailureExport, "Export to Notion failed. Your note is unaffected; please try again."})
	}
	return out
}

// Message returns the most important notice text, or "".
func Message(s State) string {
	if n := Notices(s); len(n) > 0 {
		return n[0].Text
	}
	return ""
}

func submitNotice(err error) Notice {
	var ve *submit.ValidationError
	if errors.As(err, &ve) {
		switch ve.Reason {
		case submit.ReasonUnsupportedType:
			return Notice{FailureValidation, "Unsupported file type. Please choose an MP4 or MOV video."}
		case submit.ReasonTooLarge:
			return Notice{FailureValidation, "File too large. " + ve.Detail + "."}
		case submit.ReasonEmpty:
			return Notice{FailureValidation, "The selected file is empty."}
		case submit.ReasonEmptyURL:
			return Notice{FailureValidation, "Please enter a video URL."}
		default:
			return Notice{FailureValidation, fmt.Sprintf("Cannot submit this video: %s.", ve.Reason)}
		}
	}
	return Notice{FailureSubmit, "Upload failed, please try again."}
}
