// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/submit"
	"github.com/pdiddy/mathnote/pkg/types"
)

// backend fakes every collaborator of a Session.
type backend struct {
	mu       sync.Mutex
	statuses []*types.Task
	polls    int
	noteErr  error
	notes    int
	submitFn func(submit.Input) (submit.Handle, error)

	exportStarted chan struct{}
	exportRelease chan struct{}
}

func (b *backend) Submit(_ context.Context, in submit.Input) (submit.Handle, error) {
	if b.submitFn != nil {
		return b.submitFn(in)
	}
	return submit.Handle{TaskID: "t1", Mode: in.Mode, FileURL: "/files/t1.mp4", Status: types.StatusUploaded}, nil
}

func (b *backend) Status(_ context.Context, taskID string) (*types.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := *b.statuses[min(b.polls, len(b.statuses)-1)]
	b.polls++
	t.ID = taskID
	return &t, nil
}

func (b *backend) pollCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls
}

func (b *backend) Note(_ context.Context, taskID string) (*types.Note, error) {
	b.mu.Lock()
	b.notes++
	b.mu.Unlock()
	if b.noteErr != nil {
		return nil, b.noteErr
	}
	return &types.Note{
		TaskID: taskID,
		Title:  "Eigenvalues",
		Slides: []types.Slide{
			{Number: 2, Start: 30, End: 60, OCRContent: "$B$"},
			{Number: 3, Start: 60, End: 90, OCRContent: "$C$"},
			{Number: 1, Start: 0, End: 30, OCRContent: "$A$"},
		},
	}, nil
}

func (b *backend) Sync(context.Context, string) (string, error) {
	if b.exportStarted != nil {
		close(b.exportStarted)
		<-b.exportRelease
	}
	return "https://notion.so/p", nil
}

func startSession(t *testing.T, b *backend) *Session {
	t.Helper()
	s := New(Deps{
		Submitter: b,
		Status:    b,
		Notes:     b,
		Exporter:  b,
		Poll:      types.PollConfig{Interval: time.Millisecond},
	})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s
}

func waitSettled(t *testing.T, s *Session) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := s.Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestSession_UploadToNote(t *testing.T) {
	b := &backend{statuses: []*types.Task{
		{Status: types.StatusUploaded},
		{Status: types.StatusProcessing, Progress: &types.Progress{Vision: 0.2, Audio: 0.1}},
		{Status: types.StatusProcessing, Progress: &types.Progress{Vision: 0.8, Audio: 0.6, Synthesis: 0.3}},
		{Status: types.StatusCompleted},
	}}
	s := startSession(t, b)

	h, err := s.Submit(context.Background(), submit.Input{Mode: types.ModeFile, Path: "lecture.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "t1", h.TaskID)

	st := waitSettled(t, s)
	assert.Equal(t, types.StatusCompleted, st.Task.Status)
	assert.False(t, st.Polling)
	require.NotNil(t, st.Note)
	assert.Equal(t, note.StateCompleted, note.Classify(st.View()))
	assert.Equal(t, types.FileSource("/files/t1.mp4"), st.Media)

	var out strings.Builder
	require.NoError(t, note.Render(&out, st.View(), note.ModeAnnotated))
	r := out.String()
	assert.Less(t, strings.Index(r, "Slide 1 "), strings.Index(r, "Slide 2 "))
	assert.Less(t, strings.Index(r, "Slide 2 "), strings.Index(r, "Slide 3 "))

	polls := b.pollCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, polls, b.pollCount(), "polling stops at completed")
	b.mu.Lock()
	assert.Equal(t, 1, b.notes, "note fetched exactly once")
	b.mu.Unlock()
}

func TestSession_BackendFailure(t *testing.T) {
	b := &backend{statuses: []*types.Task{
		{Status: types.StatusProcessing},
		{Status: types.StatusFailed, ErrorMessage: "corrupted video"},
	}}
	s := startSession(t, b)

	_, err := s.Submit(context.Background(), submit.Input{Mode: types.ModeURL, URL: "https://youtu.be/XYZ123"})
	require.NoError(t, err)

	st := waitSettled(t, s)
	assert.Equal(t, types.StatusFailed, st.Task.Status)
	assert.Equal(t, "corrupted video", Message(st))
	assert.False(t, st.Polling)
	assert.Nil(t, st.Note)
	assert.Equal(t, types.ExternalSource("XYZ123"), st.Media)

	polls := b.pollCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, polls, b.pollCount())
}

func TestSession_NoteFetchFailureIsNonFatal(t *testing.T) {
	b := &backend{
		statuses: []*types.Task{{Status: types.StatusCompleted}},
		noteErr:  errors.New("503 service unavailable"),
	}
	s := startSession(t, b)

	_, err := s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	require.NoError(t, err)

	st := waitSettled(t, s)
	assert.Equal(t, types.StatusCompleted, st.Task.Status)
	assert.Equal(t, note.StateNoteUnavailable, note.Classify(st.View()))
	assert.Equal(t, note.MsgNoteUnavailable, Message(st))
}

func TestSession_ValidationFailureRegistersNoTask(t *testing.T) {
	b := &backend{submitFn: func(submit.Input) (submit.Handle, error) {
		return submit.Handle{}, &submit.ValidationError{Reason: submit.ReasonTooLarge, Detail: "600MB exceeds 500MB"}
	}}
	s := startSession(t, b)

	_, err := s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	require.ErrorIs(t, err, submit.ErrValidation)

	st := waitSettled(t, s)
	assert.Empty(t, st.TaskID)
	assert.False(t, st.Polling)
	assert.Contains(t, Message(st), "File too large")
	assert.Zero(t, b.pollCount())
}

func TestSession_ResubmitSupersedes(t *testing.T) {
	ids := []string{"first", "second"}
	var n int
	b := &backend{
		statuses: []*types.Task{{Status: types.StatusProcessing}},
		submitFn: func(in submit.Input) (submit.Handle, error) {
			id := ids[n]
			n++
			return submit.Handle{TaskID: id, Mode: in.Mode, Status: types.StatusProcessing}, nil
		},
	}
	s := startSession(t, b)

	_, err := s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := s.Snapshot()
		return st.TaskID == "second" && st.Gen != 0 && st.Task != nil
	}, time.Second, time.Millisecond)

	first := s.Snapshot().Gen
	time.Sleep(10 * time.Millisecond)
	st := s.Snapshot()
	assert.Equal(t, "second", st.TaskID)
	assert.Equal(t, first, st.Gen)
	assert.Equal(t, "second", st.Task.ID)
}

func TestSession_ExportSingleFlight(t *testing.T) {
	b := &backend{
		statuses:      []*types.Task{{Status: types.StatusCompleted}},
		exportStarted: make(chan struct{}),
		exportRelease: make(chan struct{}),
	}
	s := startSession(t, b)

	_, err := s.Export(context.Background())
	assert.ErrorIs(t, err, ErrNoteNotReady)

	_, err = s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	require.NoError(t, err)
	waitSettled(t, s)

	done := make(chan string, 1)
	go func() {
		url, _ := s.Export(context.Background())
		done <- url
	}()
	<-b.exportStarted

	_, err = s.Export(context.Background())
	assert.ErrorIs(t, err, note.ErrExportInProgress)

	close(b.exportRelease)
	assert.Equal(t, "https://notion.so/p", <-done)

	require.Eventually(t, func() bool {
		return s.Snapshot().Export.PageURL == "https://notion.so/p"
	}, time.Second, time.Millisecond)
}

func TestSession_CaptureSOS(t *testing.T) {
	s := startSession(t, &backend{})

	_, err := s.CaptureSOS(12.5)
	require.NoError(t, err)
	_, err = s.CaptureSOS(-1)
	require.Error(t, err)
	_, err = s.CaptureSOS(12.5)
	require.NoError(t, err)

	assert.Equal(t, []float64{12.5, 12.5}, s.SOSTimestamps())
	require.Eventually(t, func() bool { return len(s.Snapshot().SOS) == 2 }, time.Second, time.Millisecond)
}

func TestSession_CaptureSOSAfterClose(t *testing.T) {
	s := New(Deps{Submitter: &backend{}, Status: &backend{}, Notes: &backend{}, Exporter: &backend{}})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	_, err := s.CaptureSOS(3)
	require.NoError(t, err)

	cancel()
	<-s.Done()

	_, err = s.CaptureSOS(7)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []float64{3}, s.SOSTimestamps())
}

func TestSession_SubscribeSeesChanges(t *testing.T) {
	b := &backend{statuses: []*types.Task{{Status: types.StatusCompleted}}}
	s := startSession(t, b)

	ch, cancel := s.Subscribe()
	defer cancel()
	first := <-ch
	assert.Empty(t, first.TaskID)

	_, err := s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.Note != nil {
				return
			}
		case <-deadline:
			t.Fatal("note never published")
		}
	}
}

func TestSession_CancelStopsPolling(t *testing.T) {
	b := &backend{statuses: []*types.Task{{Status: types.StatusProcessing}}}
	s := New(Deps{Submitter: b, Status: b, Notes: b, Exporter: b, Poll: types.PollConfig{Interval: time.Millisecond}})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	_, err := s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.pollCount() > 2 }, time.Second, time.Millisecond)

	cancel()
	<-s.Done()
	assert.True(t, s.Snapshot().Closed)

	time.Sleep(10 * time.Millisecond)
	n := b.pollCount()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, b.pollCount())

	_, err = s.Submit(context.Background(), submit.Input{Mode: types.ModeFile})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_TrackExisting(t *testing.T) {
	b := &backend{
		statuses: []*types.Task{{Status: types.StatusProcessing}, {Status: types.StatusCompleted}},
		submitFn: func(submit.Input) (submit.Handle, error) {
			return submit.Handle{}, errors.New("tracking must not submit")
		},
	}
	s := startSession(t, b)

	require.Error(t, s.Track("", types.ModeURL, ""))
	require.NoError(t, s.Track("t9", types.ModeURL, "https://youtu.be/abc123XYZ_-"))

	st := waitSettled(t, s)
	assert.Equal(t, "t9", st.TaskID)
	assert.Equal(t, types.StatusCompleted, st.Task.Status)
	assert.Equal(t, types.ExternalSource("abc123XYZ_-"), st.Media)
	require.NotNil(t, st.Note)
	assert.Equal(t, "t9", st.Note.TaskID)
}

func TestSession_TrackPendingTask(t *testing.T) {
	b := &backend{statuses: []*types.Task{
		{Status: types.StatusPending, Progress: &types.Progress{Vision: 0.1}},
	}}
	s := startSession(t, b)
	require.NoError(t, s.Track("t9", types.ModeFile, ""))

	require.Eventually(t, func() bool {
		st := s.Snapshot()
		return st.Task != nil && st.Task.Status == types.StatusPending
	}, 2*time.Second, time.Millisecond)

	st := s.Snapshot()
	require.NotNil(t, st.Task.Progress)
	assert.InDelta(t, 0.1, st.Task.Progress.Vision, 1e-9)
	assert.True(t, st.Polling)
	assert.False(t, st.Settled())
}
