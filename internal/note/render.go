// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package note

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pdiddy/mathnote/pkg/types"
)

// Mode selects how slides are presented.
type Mode string

const (
	// ModeAnnotated shows formulas, summaries, and SOS explanations.
	ModeAnnotated Mode = "annotated"

	// ModeTranscript shows the raw transcript and slide image only.
	ModeTranscript Mode = "transcript"
)

// ParseMode accepts a mode name; the empty string means annotated.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAnnotated:
		return ModeAnnotated, nil
	case ModeTranscript:
		return ModeTranscript, nil
	default:
		return "", fmt.Errorf("unknown view mode %q (want annotated or transcript)", s)
	}
}

// Placeholder texts for the non-completed view states.
const (
	MsgNoTask          = "No lecture submitted yet."
	MsgNoteUnavailable = "Analysis finished, but the note could not be loaded."
	MsgTaskFailed      = "Video processing failed."
)

// Render writes the view for in. Only StateCompleted renders slides.
func Render(w io.Writer, in Input, mode Mode) error {
	var b strings.Builder
	switch Classify(in) {
	case StateNoTask:
		b.WriteString(MsgNoTask + "\n")
	case StateLoading:
		b.WriteString(LoadingLine(in.Task) + "\n")
	case StateFailed:
		b.WriteString(FailureText(in.Task) + "\n")
	case StateNoteUnavailable:
		b.WriteString(MsgNoteUnavailable + "\n")
	case StateCompleted:
		writeNote(&b, in.Note, mode)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderNote writes a finished note in the given mode. Both modes read the
// same in-memory note.
func RenderNote(w io.Writer, n *types.Note, mode Mode) error {
	var b strings.Builder
	writeNote(&b, n, mode)
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSlide writes a single slide in the given mode.
func RenderSlide(w io.Writer, s types.Slide, mode Mode) error {
	var b strings.Builder
	writeSlide(&b, s, mode)
	_, err := io.WriteString(w, b.String())
	return err
}

// LoadingLine describes an in-progress task. Stage fractions are shown
// side by side without a combined total.
func LoadingLine(t *types.Task) string {
	if t == nil || t.Progress == nil {
		if t != nil && t.Status != "" {
			return fmt.Sprintf("Generating note... (%s)", t.Status)
		}
		return "Generating note..."
	}
	p := t.Progress.Clamp()
	return fmt.Sprintf("Generating note... (vision %d%% · audio %d%% · synthesis %d%%)",
		percent(p.Vision), percent(p.Audio), percent(p.Synthesis))
}

// FailureText is the backend's failure reason, or a generic fallback.
func FailureText(t *types.Task) string {
	if t != nil && strings.TrimSpace(t.ErrorMessage) != "" {
		return t.ErrorMessage
	}
	return MsgTaskFailed
}

func percent(f float64) int { return int(math.Round(f * 100)) }

func writeNote(b *strings.Builder, n *types.Note, mode Mode) {
	title := n.Title
	if title == "" {
		title = "Lecture note"
	}
	fmt.Fprintf(b, "# %s\n\n", title)
	if !n.CreatedAt.IsZero() {
		fmt.Fprintf(b, "_Created %s_\n\n", n.CreatedAt.Format("2006-01-02 15:04"))
	}
	slides := n.Sorted()
	if len(slides) == 0 {
		b.WriteString("_No slides were detected._\n")
		return
	}
	for i, s := range slides {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		writeSlide(b, s, mode)
	}
}

func writeSlide(b *strings.Builder, s types.Slide, mode Mode) {
	fmt.Fprintf(b, "## Slide %d · %s–%s\n\n", s.Number, Timestamp(s.Start), Timestamp(s.End))
	if s.ImageURL != "" {
		fmt.Fprintf(b, "![Slide %d](%s)\n\n", s.Number, s.ImageURL)
	}

	if mode == ModeTranscript {
		if t := strings.TrimSpace(s.RawTranscript); t != "" {
			b.WriteString(t + "\n")
		} else {
			b.WriteString("_No transcript for this slide._\n")
		}
		return
	}

	if c := strings.TrimSpace(s.OCRContent); c != "" {
		b.WriteString(c + "\n\n")
	}
	if sum := strings.TrimSpace(s.AudioSummary); sum != "" {
		b.WriteString("**Summary**\n\n" + sum + "\n")
	}
	if s.HasExplanation() {
		b.WriteString("\n> **SOS explanation**\n>\n")
		for _, line := range strings.Split(strings.TrimSpace(s.SOSExplanation), "\n") {
			if line == "" {
				b.WriteString(">\n")
				continue
			}
			b.WriteString("> " + line + "\n")
		}
	}
}

// Timestamp formats seconds as m:ss, or h:mm:ss from one hour on.
func Timestamp(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int(sec)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
