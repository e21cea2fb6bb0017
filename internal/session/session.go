// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session coordinates one lecture from submission to finished
// note. All state lives in a State value owned by a single event loop;
// asynchronous work (submission, polling, note fetch, export) runs in its
// own goroutine and reports back as events that the loop folds in with
// Reduce.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/poll"
	"github.com/pdiddy/mathnote/internal/sos"
	"github.com/pdiddy/mathnote/internal/submit"
	"github.com/pdiddy/mathnote/pkg/types"
)

var (
	// ErrClosed is returned by calls made after the session stopped.
	ErrClosed = errors.New("session closed")

	// ErrNoteNotReady is returned when exporting before the note exists.
	ErrNoteNotReady = errors.New("note is not ready yet")
)

// Submitter hands a video to the backend.
type Submitter interface {
	Submit(ctx context.Context, in submit.Input) (submit.Handle, error)
}

// NoteFetcher loads a finished note.
type NoteFetcher interface {
	Note(ctx context.Context, taskID string) (*types.Note, error)
}

// Exporter syncs a finished note to Notion.
type Exporter interface {
	Sync(ctx context.Context, taskID string) (string, error)
}

// Deps are the collaborators of a Session.
type Deps struct {
	Submitter Submitter
	Status    poll.Fetcher
	Notes     NoteFetcher
	Exporter  Exporter
	Poll      types.PollConfig

	// SOS is the capture log; a new one is created when nil.
	SOS *sos.Log
}

// Session is the coordinator. Create it with New and start its loop with
// Run; every other method may be called from any goroutine.
type Session struct {
	deps   Deps
	poller *poll.Poller
	sos    *sos.Log

	events chan any
	done   chan struct{}
	seq    atomic.Uint64

	// loop-owned
	ctx   context.Context
	state State
	run   *poll.Run

	mu       sync.RWMutex
	snapshot State
	subs     map[int]chan State
	nextSub  int
}

// New returns a Session. Call Run before anything else.
func New(deps Deps) *Session {
	s := &Session{
		deps:   deps,
		sos:    deps.SOS,
		events: make(chan any, 16),
		done:   make(chan struct{}),
		subs:   make(map[int]chan State),
	}
	if s.sos == nil {
		s.sos = sos.NewLog()
	}
	s.poller = poll.New(deps.Status, deps.Poll, s.onPoll)
	return s
}

// command runs on the loop goroutine.
type command func()

// Run processes events until ctx is done. It returns ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.apply(Cancelled{})
			return ctx.Err()
		case msg := <-s.events:
			switch m := msg.(type) {
			case command:
				m()
			case Event:
				s.apply(m)
			}
		}
	}
}

func (s *Session) send(msg any) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- msg:
		return true
	case <-s.done:
		return false
	}
}

// apply reduces ev and performs the side effects of the transition.
func (s *Session) apply(ev Event) {
	prev := s.state
	next := Reduce(prev, ev)
	if next.Version == prev.Version {
		return
	}
	s.state = next
	s.effects(prev, next)
	s.publish(s.state)
}

func (s *Session) effects(prev, next State) {
	if prev.Polling && (!next.Polling || next.TaskID != prev.TaskID) {
		s.run.Stop()
		s.run = nil
	}
	if next.Polling && (!prev.Polling || next.TaskID != prev.TaskID) {
		s.run = s.poller.Start(s.ctx, next.TaskID)
		slog.Debug("polling armed", "task_id", next.TaskID, "gen", s.run.Gen)
		s.apply(PollArmed{TaskID: next.TaskID, Gen: s.run.Gen})
	}
	if next.NoteLoading && !prev.NoteLoading {
		go s.fetchNote(next.TaskID)
	}
}

func (s *Session) onPoll(r poll.Result) {
	var ev Event
	switch {
	case r.Stalled():
		ev = PollStalled{TaskID: r.TaskID, Gen: r.Gen, Err: r.Err}
	case r.Err != nil:
		ev = PollFailed{TaskID: r.TaskID, Gen: r.Gen, Err: r.Err}
	default:
		ev = PollResult{TaskID: r.TaskID, Gen: r.Gen, Task: r.Task}
	}
	s.send(ev)
}

func (s *Session) fetchNote(taskID string) {
	n, err := s.deps.Notes.Note(s.ctx, taskID)
	if err != nil {
		slog.Warn("note fetch failed", "task_id", taskID, "error", err)
		s.send(NoteFailed{TaskID: taskID, Err: err})
		return
	}
	s.send(NoteLoaded{TaskID: taskID, Note: n})
}

func (s *Session) publish(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = st
	for _, ch := range s.subs {
		// Keep only the latest state for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe returns a channel that receives the latest state after each
// change, starting with the current one. Slow readers skip intermediate
// states. Call cancel to unsubscribe.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	ch <- s.snapshot
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Wait blocks until the state is settled or ctx is done.
func (s *Session) Wait(ctx context.Context) (State, error) {
	ch, cancel := s.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		case st := <-ch:
			if st.Settled() {
				return st, nil
			}
		}
	}
}

// Submit performs one submission and, on success, starts tracking the new
// task. A submission supersedes any task being tracked.
func (s *Session) Submit(ctx context.Context, in submit.Input) (submit.Handle, error) {
	seq := s.seq.Add(1)
	if !s.send(SubmitStarted{Seq: seq, Mode: in.Mode, URL: in.URL}) {
		return submit.Handle{}, ErrClosed
	}
	h, err := s.deps.Submitter.Submit(ctx, in)
	if err != nil {
		s.send(SubmitFailed{Seq: seq, Err: err})
		return submit.Handle{}, err
	}
	s.send(Submitted{Seq: seq, Handle: h})
	return h, nil
}

// Track follows an existing task, as if it had just been submitted.
func (s *Session) Track(taskID string, mode types.SubmitMode, url string) error {
	if taskID == "" {
		return errors.New("empty task id")
	}
	seq := s.seq.Add(1)
	if !s.send(SubmitStarted{Seq: seq, Mode: mode, URL: url}) {
		return ErrClosed
	}
	s.send(Submitted{Seq: seq, Handle: submit.Handle{TaskID: taskID, Mode: mode, URL: url}})
	return nil
}

// CaptureSOS records a playback moment at t seconds. It returns ErrClosed
// once the session has stopped.
func (s *Session) CaptureSOS(t float64) (types.SosEvent, error) {
	select {
	case <-s.done:
		return types.SosEvent{}, ErrClosed
	default:
	}
	ev, err := s.sos.Capture(t)
	if err != nil {
		return types.SosEvent{}, err
	}
	if !s.send(SOSCaptured{Event: ev}) {
		return types.SosEvent{}, ErrClosed
	}
	return ev, nil
}

// SOSTimestamps returns the captured timestamps in order.
func (s *Session) SOSTimestamps() []float64 { return s.sos.Snapshot() }

// Export syncs the current note to Notion. While an export is in flight
// further calls return note.ErrExportInProgress.
func (s *Session) Export(ctx context.Context) (string, error) {
	type reply struct {
		taskID string
		err    error
	}
	replies := make(chan reply, 1)
	ok := s.send(command(func() {
		st := s.state
		switch {
		case st.Export.InFlight:
			replies <- reply{err: note.ErrExportInProgress}
		case st.Note == nil:
			replies <- reply{err: ErrNoteNotReady}
		default:
			s.apply(ExportStarted{TaskID: st.TaskID})
			replies <- reply{taskID: st.TaskID}
		}
	}))
	if !ok {
		return "", ErrClosed
	}

	var r reply
	select {
	case r = <-replies:
	case <-s.done:
		return "", ErrClosed
	}
	if r.err != nil {
		return "", r.err
	}

	url, err := s.deps.Exporter.Sync(ctx, r.taskID)
	if err != nil {
		s.send(ExportFailed{TaskID: r.taskID, Err: err})
		return "", fmt.Errorf("exporting %s: %w", r.taskID, err)
	}
	s.send(ExportDone{TaskID: r.taskID, PageURL: url})
	return url, nil
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }
