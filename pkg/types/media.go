// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MediaKind tags the variant held by a MediaSource.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaFile     MediaKind = "file"
	MediaExternal MediaKind = "external"
)

// externalEmbedBase is the player URL prefix for external video ids.
const externalEmbedBase = "https://www.youtube.com/embed/"

// MediaSource is the playable reference to the analyzed video. It holds
// exactly one reference: either a direct file URL or an external video id.
// The zero value means no source is known yet.
type MediaSource struct {
	Kind      MediaKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reference string    `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// FileSource returns a MediaSource for a direct file URL.
func FileSource(url string) MediaSource {
	if url == "" {
		return MediaSource{}
	}
	return MediaSource{Kind: MediaFile, Reference: url}
}

// ExternalSource returns a MediaSource for an external video id.
func ExternalSource(id string) MediaSource {
	if id == "" {
		return MediaSource{}
	}
	return MediaSource{Kind: MediaExternal, Reference: id}
}

// IsZero reports whether no source is set.
func (m MediaSource) IsZero() bool { return m.Kind == MediaNone || m.Reference == "" }

// PlayURL returns the URL a player should load.
func (m MediaSource) PlayURL() string {
	switch m.Kind {
	case MediaExternal:
		return externalEmbedBase + m.Reference + "?enablejsapi=1"
	case MediaFile:
		return m.Reference
	default:
		return ""
	}
}
