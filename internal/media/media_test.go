// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/mathnote/pkg/types"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?v=abc123&t=42s", "abc123", true},
		{"https://www.youtube.com/watch?feature=share&v=xyz789", "xyz789", true},
		{"https://www.youtube.com/watch?v=first&x=1&v=second", "first", true},
		{"https://www.youtube.com/watch?feature=share&v=abc&v=def", "abc", true},
		{"https://www.youtube.com/watch?xv=no&v=yes", "yes", true},
		{"https://youtu.be/abc123?si=tracking", "abc123", true},
		{"https://youtu.be/abc123#t=10", "abc123", true},
		{"https://www.youtube.com/embed/emb456", "emb456", true},
		{"  https://youtu.be/trim  ", "trim", true},
		{"https://vimeo.com/12345", "", false},
		{"https://example.com/lecture.mp4", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractVideoID(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want types.MediaSource
	}{
		{
			name: "url mode with video id",
			in:   Inputs{Mode: types.ModeURL, SubmittedURL: "https://youtu.be/abc123"},
			want: types.ExternalSource("abc123"),
		},
		{
			name: "url mode ignores storage ref when id present",
			in:   Inputs{Mode: types.ModeURL, SubmittedURL: "https://youtu.be/abc123", StatusStorageRef: "/files/x.mp4"},
			want: types.ExternalSource("abc123"),
		},
		{
			name: "url mode without id plays url directly",
			in:   Inputs{Mode: types.ModeURL, SubmittedURL: "https://cdn.example.com/l.mp4"},
			want: types.FileSource("https://cdn.example.com/l.mp4"),
		},
		{
			name: "file mode uses upload reference",
			in:   Inputs{Mode: types.ModeFile, FileURL: "/files/t1.mp4", StatusStorageRef: "/files/other.mp4"},
			want: types.FileSource("/files/t1.mp4"),
		},
		{
			name: "file mode falls back to status reference",
			in:   Inputs{Mode: types.ModeFile, StatusStorageRef: "/files/t1.mp4"},
			want: types.FileSource("/files/t1.mp4"),
		},
		{
			name: "file mode never yields external",
			in:   Inputs{Mode: types.ModeFile, SubmittedURL: "https://youtu.be/abc123"},
			want: types.MediaSource{},
		},
		{
			name: "no mode",
			in:   Inputs{FileURL: "/files/t1.mp4"},
			want: types.MediaSource{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.in))
		})
	}
}

func TestStick(t *testing.T) {
	var held types.MediaSource

	held, changed := Stick(held, types.MediaSource{})
	assert.False(t, changed)
	assert.True(t, held.IsZero())

	held, changed = Stick(held, types.FileSource("/files/t1.mp4"))
	assert.True(t, changed)
	assert.Equal(t, types.FileSource("/files/t1.mp4"), held)

	held, changed = Stick(held, types.ExternalSource("abc"))
	assert.False(t, changed, "file source must not switch to external")
	assert.Equal(t, types.FileSource("/files/t1.mp4"), held)

	held, changed = Stick(held, types.MediaSource{})
	assert.False(t, changed)
	assert.Equal(t, types.FileSource("/files/t1.mp4"), held)
}

// A URL submission whose status later carries a file reference keeps the
// external player for the whole task.
func TestResolve_ExternalStaysWhileStatusUpdates(t *testing.T) {
	in := Inputs{Mode: types.ModeURL, SubmittedURL: "https://www.youtube.com/watch?v=abc123"}
	held, _ := Stick(types.MediaSource{}, Resolve(in))

	in.StatusStorageRef = "/files/t1.mp4"
	later, changed := Stick(held, Resolve(in))

	assert.False(t, changed)
	assert.Equal(t, held, later)
	assert.Equal(t, "https://www.youtube.com/embed/abc123?enablejsapi=1", later.PlayURL())
}
