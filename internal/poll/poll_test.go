// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mathnote/pkg/types"
)

// scripted returns statuses in order, repeating the last one.
type scripted struct {
	mu    sync.Mutex
	steps []step
	calls int
	ids   []string
}

type step struct {
	status types.TaskStatus
	err    error
}

func (s *scripted) Status(_ context.Context, taskID string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++
	s.ids = append(s.ids, taskID)
	if st.err != nil {
		return nil, st.err
	}
	return &types.Task{ID: taskID, Status: st.status}, nil
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) sink(r Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}

func (c *collector) all() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func waitDone(t *testing.T, r *Run) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestRun_StopsAtTerminal(t *testing.T) {
	f := &scripted{steps: []step{
		{status: types.StatusPending},
		{status: types.StatusProcessing},
		{status: types.StatusCompleted},
	}}
	c := &collector{}
	p := New(f, types.PollConfig{Interval: 5 * time.Millisecond}, c.sink)

	r := p.Start(context.Background(), "t1")
	waitDone(t, r)

	results := c.all()
	require.Len(t, results, 3)
	assert.Equal(t, types.StatusPending, results[0].Task.Status)
	assert.Equal(t, types.StatusCompleted, results[2].Task.Status)
	for _, res := range results {
		assert.Equal(t, "t1", res.TaskID)
		assert.Equal(t, r.Gen, res.Gen)
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, f.count(), "no fetch after terminal status")
}

func TestRun_FetchesImmediately(t *testing.T) {
	f := &scripted{steps: []step{{status: types.StatusFailed}}}
	c := &collector{}
	p := New(f, types.PollConfig{Interval: time.Hour}, c.sink)

	r := p.Start(context.Background(), "t1")
	waitDone(t, r)
	require.Len(t, c.all(), 1)
	assert.Equal(t, types.StatusFailed, c.all()[0].Task.Status)
}

func TestRun_FailuresAreNonFatal(t *testing.T) {
	boom := errors.New("connection reset")
	f := &scripted{steps: []step{
		{err: boom},
		{err: boom},
		{status: types.StatusCompleted},
	}}
	c := &collector{}
	p := New(f, types.PollConfig{Interval: 5 * time.Millisecond, MaxFailures: 3}, c.sink)

	waitDone(t, p.Start(context.Background(), "t1"))

	results := c.all()
	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.False(t, results[1].Stalled())
	assert.Equal(t, types.StatusCompleted, results[2].Task.Status)
}

func TestRun_StallsAfterConsecutiveFailures(t *testing.T) {
	f := &scripted{steps: []step{{err: errors.New("down")}}}
	c := &collector{}
	p := New(f, types.PollConfig{Interval: time.Millisecond, MaxFailures: 3}, c.sink)

	waitDone(t, p.Start(context.Background(), "t1"))

	results := c.all()
	require.Len(t, results, 3)
	assert.False(t, results[1].Stalled())
	assert.True(t, results[2].Stalled())
	assert.ErrorIs(t, results[2].Err, ErrPollStalled)
	assert.Equal(t, 3, f.count())
}

func TestRun_StopIsIdempotent(t *testing.T) {
	f := &scripted{steps: []step{{status: types.StatusProcessing}}}
	c := &collector{}
	p := New(f, types.PollConfig{Interval: time.Millisecond}, c.sink)

	r := p.Start(context.Background(), "t1")
	time.Sleep(10 * time.Millisecond)
	r.Stop()
	r.Stop()
	waitDone(t, r)

	n := f.count()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, f.count(), "no fetch after stop")

	var nilRun *Run
	assert.NotPanics(t, nilRun.Stop)
}

func TestRun_ContextCancelStops(t *testing.T) {
	f := &scripted{steps: []step{{status: types.StatusProcessing}}}
	p := New(f, types.PollConfig{Interval: time.Millisecond}, func(Result) {})

	ctx, cancel := context.WithCancel(context.Background())
	r := p.Start(ctx, "t1")
	cancel()
	waitDone(t, r)
}

func TestStart_GenerationsIncrease(t *testing.T) {
	f := &scripted{steps: []step{{status: types.StatusCompleted}}}
	p := New(f, types.PollConfig{}, func(Result) {})

	a := p.Start(context.Background(), "a")
	b := p.Start(context.Background(), "b")
	waitDone(t, a)
	waitDone(t, b)
	assert.Greater(t, b.Gen, a.Gen)
}

func TestNew_Defaults(t *testing.T) {
	p := New(nil, types.PollConfig{}, nil)
	assert.Equal(t, 2*time.Second, p.interval)
	assert.Equal(t, 30, p.maxFailures)

	unlimited := New(nil, types.PollConfig{MaxFailures: -1}, nil)
	assert.Equal(t, -1, unlimited.maxFailures)
}
