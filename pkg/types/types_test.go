// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusRank(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		rank     int
		terminal bool
	}{
		{StatusPending, 0, false},
		{StatusUploaded, 1, false},
		{StatusProcessing, 2, false},
		{StatusCompleted, 3, true},
		{StatusFailed, 3, true},
		{TaskStatus("bogus"), -1, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.rank, tt.status.Rank())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestProgressClamp(t *testing.T) {
	got := Progress{Vision: -0.5, Audio: 1.7, Synthesis: math.NaN()}.Clamp()
	assert.Equal(t, Progress{Vision: 0, Audio: 1, Synthesis: 0}, got)

	in := Progress{Vision: 0.2, Audio: 0.1, Synthesis: 0}
	assert.Equal(t, in, in.Clamp())
}

func TestTaskEqual(t *testing.T) {
	a := &Task{ID: "t1", Status: StatusProcessing, Progress: &Progress{Vision: 0.2}}
	b := &Task{ID: "t1", Status: StatusProcessing, Progress: &Progress{Vision: 0.2}}
	c := &Task{ID: "t1", Status: StatusProcessing, Progress: &Progress{Vision: 0.3}}
	d := &Task{ID: "t1", Status: StatusProcessing}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.True(t, (*Task)(nil).Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestNoteSortedLeavesOriginal(t *testing.T) {
	n := &Note{Slides: []Slide{{Number: 3}, {Number: 1}, {Number: 2}}}

	sorted := n.Sorted()
	assert.Equal(t, []int{1, 2, 3}, numbers(sorted))
	assert.Equal(t, []int{3, 1, 2}, numbers(n.Slides))
}

func TestNoteNavigation(t *testing.T) {
	n := &Note{Slides: []Slide{
		{Number: 2, Start: 10, End: 20},
		{Number: 1, Start: 0, End: 10},
		{Number: 5, Start: 20, End: 30},
	}}

	prev, ok := n.Prev(5)
	assert.True(t, ok)
	assert.Equal(t, 2, prev.Number)

	next, ok := n.Next(1)
	assert.True(t, ok)
	assert.Equal(t, 2, next.Number)

	_, ok = n.Prev(1)
	assert.False(t, ok)
	_, ok = n.Next(5)
	assert.False(t, ok)

	at, ok := n.SlideAt(25)
	assert.True(t, ok)
	assert.Equal(t, 5, at.Number)
}

func TestNoteValidate(t *testing.T) {
	tests := []struct {
		name    string
		slides  []Slide
		wantErr bool
	}{
		{"valid", []Slide{{Number: 1, Start: 0, End: 5}, {Number: 2, Start: 5, End: 5}}, false},
		{"zero number", []Slide{{Number: 0}}, true},
		{"start after end", []Slide{{Number: 1, Start: 9, End: 3}}, true},
		{"duplicate", []Slide{{Number: 1}, {Number: 1}}, true},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Note{Slides: tt.slides}).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMediaSource(t *testing.T) {
	assert.True(t, MediaSource{}.IsZero())
	assert.True(t, FileSource("").IsZero())
	assert.True(t, ExternalSource("").IsZero())

	f := FileSource("http://localhost:8000/static/a.mp4")
	assert.Equal(t, MediaFile, f.Kind)
	assert.Equal(t, "http://localhost:8000/static/a.mp4", f.PlayURL())

	e := ExternalSource("XYZ123")
	assert.Equal(t, MediaExternal, e.Kind)
	assert.Equal(t, "https://www.youtube.com/embed/XYZ123?enablejsapi=1", e.PlayURL())
}

func numbers(slides []Slide) []int {
	out := make([]int, len(slides))
	for i, s := range slides {
		out[i] = s.Number
	}
	return out
}
