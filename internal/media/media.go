// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package media decides which playable reference to show for a task: a
// direct file URL or an external video id.
package media

import (
	"regexp"
	"strings"

	"github.com/pdiddy/mathnote/pkg/types"
)

// videoIDPatterns are tried in order; the first match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:[^#\n]*?&)??v=|youtu\.be/)([^&\n?#/]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#/]+)`),
}

// ExtractVideoID returns the external video id carried by rawURL. It
// recognizes watch URLs, short links, and embed URLs.
func ExtractVideoID(rawURL string) (string, bool) {
	u := strings.TrimSpace(rawURL)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Inputs are the facts available when resolving a task's media source.
type Inputs struct {
	// Mode is the mode of the most recent submission.
	Mode types.SubmitMode

	// SubmittedURL is the URL given in URL mode.
	SubmittedURL string

	// FileURL is the storage reference returned by an upload.
	FileURL string

	// StatusStorageRef is a file reference carried by a status payload.
	StatusStorageRef string
}

// Resolve picks the playable source. The submission mode decides which
// kind of reference is eligible, so a task never carries both.
func Resolve(in Inputs) types.MediaSource {
	switch in.Mode {
	case types.ModeURL:
		if id, ok := ExtractVideoID(in.SubmittedURL); ok {
			return types.ExternalSource(id)
		}
		if src := types.FileSource(strings.TrimSpace(in.SubmittedURL)); !src.IsZero() {
			return src
		}
		return types.FileSource(in.StatusStorageRef)
	case types.ModeFile:
		if in.FileURL != "" {
			return types.FileSource(in.FileURL)
		}
		return types.FileSource(in.StatusStorageRef)
	default:
		return types.MediaSource{}
	}
}

// Stick returns the source to hold after a resolution for the same task.
// The first non-empty source wins; later candidates never swap or clear
// it. The second result reports whether the held source changed.
func Stick(held, candidate types.MediaSource) (types.MediaSource, bool) {
	if !held.IsZero() || candidate.IsZero() {
		return held, false
	}
	return candidate, true
}
