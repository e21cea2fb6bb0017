// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"sort"
	"time"
)

// Slide is one detected segment of the lecture with its extracted formula
// markup, audio summary, and optional SOS deep-dive explanation.
type Slide struct {
	// Number is positive and unique within a Note. Rendering order follows it.
	Number int `json:"slide_number" yaml:"slide_number"`

	// Start and End bound the segment in seconds; Start <= End.
	Start float64 `json:"timestamp_start" yaml:"timestamp_start"`
	End   float64 `json:"timestamp_end" yaml:"timestamp_end"`

	// ImageURL points at the captured slide frame.
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`

	// RawTranscript is the speech-to-text output for the segment.
	RawTranscript string `json:"raw_transcript,omitempty" yaml:"raw_transcript,omitempty"`

	// OCRContent is Markdown that may contain LaTeX math.
	OCRContent string `json:"ocr_content" yaml:"ocr_content"`

	// AudioSummary is Markdown summarizing the narration.
	AudioSummary string `json:"audio_summary" yaml:"audio_summary"`

	// SOSExplanation is present when a SOS event fell inside the segment.
	SOSExplanation string `json:"sos_explanation,omitempty" yaml:"sos_explanation,omitempty"`
}

// Validate checks the per-slide invariants.
func (s Slide) Validate() error {
	if s.Number <= 0 {
		return fmt.Errorf("slide number must be positive, got %d", s.Number)
	}
	if s.Start > s.End {
		return fmt.Errorf("slide %d: start %.2fs after end %.2fs", s.Number, s.Start, s.End)
	}
	return nil
}

// HasExplanation reports whether the slide carries a SOS explanation.
func (s Slide) HasExplanation() bool { return s.SOSExplanation != "" }

// Note is the finished, immutable analysis result for a task.
type Note struct {
	TaskID    string    `json:"task_id" yaml:"task_id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Slides    []Slide   `json:"slides" yaml:"slides"`
}

// Validate checks every slide and that slide numbers are unique.
func (n *Note) Validate() error {
	seen := make(map[int]bool, len(n.Slides))
	for _, s := range n.Slides {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Number] {
			return fmt.Errorf("duplicate slide number %d", s.Number)
		}
		seen[s.Number] = true
	}
	return nil
}

// Sorted returns a copy of the slides in ascending Number order. The
// receiver is left untouched.
func (n *Note) Sorted() []Slide {
	out := make([]Slide, len(n.Slides))
	copy(out, n.Slides)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Slide returns the slide with the given number.
func (n *Note) Slide(number int) (Slide, bool) {
	for _, s := range n.Slides {
		if s.Number == number {
			return s, true
		}
	}
	return Slide{}, false
}

// Prev returns the slide immediately before number in rendering order.
func (n *Note) Prev(number int) (Slide, bool) {
	sorted := n.Sorted()
	for i, s := range sorted {
		if s.Number == number && i > 0 {
			return sorted[i-1], true
		}
	}
	return Slide{}, false
}

// Next returns the slide immediately after number in rendering order.
func (n *Note) Next(number int) (Slide, bool) {
	sorted := n.Sorted()
	for i, s := range sorted {
		if s.Number == number && i+1 < len(sorted) {
			return sorted[i+1], true
		}
	}
	return Slide{}, false
}

// SlideAt returns the slide whose time range contains t seconds.
func (n *Note) SlideAt(t float64) (Slide, bool) {
	for _, s := range n.Sorted() {
		if t >= s.Start && t <= s.End {
			return s, true
		}
	}
	return Slide{}, false
}

// SosEvent marks a playback moment the viewer did not understand.
type SosEvent struct {
	// Timestamp is the playback position in seconds, >= 0.
	Timestamp float64 `json:"timestamp" yaml:"timestamp"`

	// CapturedAt is the wall-clock time of the capture.
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// DownloadLink is a time-limited link to the rendered note file.
type DownloadLink struct {
	URL       string    `json:"download_url" yaml:"download_url"`
	Filename  string    `json:"filename" yaml:"filename"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}
