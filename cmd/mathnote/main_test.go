// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mathnote/internal/api"
	"github.com/pdiddy/mathnote/internal/poll"
	"github.com/pdiddy/mathnote/internal/session"
	"github.com/pdiddy/mathnote/internal/store"
	"github.com/pdiddy/mathnote/pkg/types"
)

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://youtu.be/abc"))
	assert.True(t, isURL("  HTTP://example.com/v.mp4"))
	assert.False(t, isURL("lecture.mp4"))
	assert.False(t, isURL("./https.mov"))
}

func TestValidFrameInterval(t *testing.T) {
	for _, v := range []float64{1, 3, 5} {
		assert.True(t, validFrameInterval(v), "%g", v)
	}
	assert.False(t, validFrameInterval(2))
}

func TestOutcome(t *testing.T) {
	assert.NoError(t, outcome(session.State{Task: &types.Task{Status: types.StatusCompleted}}))

	err := outcome(session.State{TaskID: "t1", Task: &types.Task{Status: types.StatusFailed, ErrorMessage: "corrupted video"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted video")

	err = outcome(session.State{TaskID: "t1", Stalled: true})
	assert.ErrorIs(t, err, poll.ErrPollStalled)
}

func TestProgressLine(t *testing.T) {
	st := session.State{Task: &types.Task{Status: types.StatusProcessing, Progress: &types.Progress{Vision: 0.5}}}
	assert.Contains(t, progressLine(st), "vision 50%")

	st = session.State{Task: &types.Task{Status: types.StatusFailed, ErrorMessage: "bad codec"}}
	assert.Equal(t, "bad codec", progressLine(st))

	assert.Empty(t, progressLine(session.State{Task: &types.Task{Status: types.StatusCompleted}, Note: &types.Note{}}))
}

func TestRecorder(t *testing.T) {
	hist, err := store.New(types.StoreConfig{Dir: filepath.Join(t.TempDir(), "h")})
	require.NoError(t, err)
	defer hist.Close()
	ctx := context.Background()

	rec := &recorder{hist: hist}
	st := session.State{
		TaskID:       "t1",
		Mode:         types.ModeURL,
		SubmittedURL: "https://youtu.be/abc",
		Task:         &types.Task{ID: "t1", Status: types.StatusProcessing},
		SOS:          []types.SosEvent{{Timestamp: 4}},
	}
	rec.record(ctx, st)

	st.Task = &types.Task{ID: "t1", Status: types.StatusCompleted}
	st.Note = &types.Note{TaskID: "t1", Title: "Limits", Slides: []types.Slide{{Number: 1, End: 10, OCRContent: "$\\lim$"}}}
	rec.record(ctx, st)

	r, err := hist.Task(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, r.Status)
	assert.Equal(t, "https://youtu.be/abc", r.Source)
	assert.True(t, r.HasNote)

	events, err := hist.LoadSOS(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = hist.Task(ctx, "other")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

type fakeImager struct {
	url string
	err error
}

func (f fakeImager) SlideImage(_ context.Context, taskID string, number int) (string, error) {
	return f.url, f.err
}

func TestRefreshImage(t *testing.T) {
	sl := types.Slide{Number: 3, ImageURL: "https://s3/old.png"}

	got := refreshImage(context.Background(), fakeImager{url: "https://s3/fresh.png"}, "t1", sl)
	assert.Equal(t, "https://s3/fresh.png", got.ImageURL)
	assert.Equal(t, 3, got.Number)

	got = refreshImage(context.Background(), fakeImager{err: errors.New("expired")}, "t1", sl)
	assert.Equal(t, "https://s3/old.png", got.ImageURL)

	got = refreshImage(context.Background(), fakeImager{}, "t1", sl)
	assert.Equal(t, "https://s3/old.png", got.ImageURL)
}

func TestUnknownTask(t *testing.T) {
	assert.NoError(t, unknownTask("t1", nil))

	notFound := &api.StatusError{Op: "status", Code: 404}
	err := unknownTask("t1", notFound)
	assert.ErrorContains(t, err, "task t1 is not known to the backend")
	assert.ErrorIs(t, err, notFound)

	other := errors.New("connection refused")
	assert.Equal(t, other, unknownTask("t1", other))
}

func TestSaveReprocess(t *testing.T) {
	hist, err := store.New(types.StoreConfig{Dir: filepath.Join(t.TempDir(), "h")})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, hist.RecordTask(ctx, store.TaskRecord{ID: "t1", Mode: types.ModeFile, Source: "lecture.mp4", Status: types.StatusCompleted}))
	require.NoError(t, hist.SaveSOS(ctx, "t1", []types.SosEvent{{Timestamp: 1}}))

	saveReprocess(ctx, hist, "t1", types.StatusProcessing, []types.SosEvent{{Timestamp: 12}, {Timestamp: 40}})

	r, err := hist.Task(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, r.Status)
	assert.Equal(t, "lecture.mp4", r.Source)
	events, err := hist.LoadSOS(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 40.0, events[1].Timestamp)

	require.NoError(t, hist.Close())
	assert.NotPanics(t, func() {
		saveReprocess(ctx, hist, "t1", types.StatusProcessing, nil)
	}, "history failures are logged, not fatal")
}
