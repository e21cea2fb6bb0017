// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package poll repeatedly fetches a task's status until it reaches a
// terminal state or the run is stopped.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pdiddy/mathnote/pkg/types"
)

const (
	defaultInterval    = 2 * time.Second
	defaultMaxFailures = 30
)

// ErrPollStalled is delivered when too many consecutive fetches failed and
// the run gave up.
var ErrPollStalled = errors.New("task status unavailable")

// Fetcher returns the current snapshot of a task.
type Fetcher interface {
	Status(ctx context.Context, taskID string) (*types.Task, error)
}

// Result is one poll outcome, tagged with the task id and run generation
// so receivers can drop results from superseded runs. Exactly one of Task
// and Err is set.
type Result struct {
	TaskID string
	Gen    uint64
	Task   *types.Task
	Err    error
}

// Stalled reports whether the run stopped after repeated failures.
func (r Result) Stalled() bool { return errors.Is(r.Err, ErrPollStalled) }

// Sink receives results. It is called from the run's goroutine and should
// not block for long.
type Sink func(Result)

// Poller starts runs bound to a single task id.
type Poller struct {
	fetcher     Fetcher
	sink        Sink
	interval    time.Duration
	maxFailures int

	gen atomic.Uint64
}

// New returns a Poller. A zero cfg.Interval uses 2s. A negative
// cfg.MaxFailures disables the failure cap; zero uses the default of 30.
func New(f Fetcher, cfg types.PollConfig, sink Sink) *Poller {
	p := &Poller{fetcher: f, sink: sink, interval: cfg.Interval, maxFailures: cfg.MaxFailures}
	if p.interval <= 0 {
		p.interval = defaultInterval
	}
	if p.maxFailures == 0 {
		p.maxFailures = defaultMaxFailures
	}
	return p
}

// Run is one active polling loop.
type Run struct {
	TaskID string
	Gen    uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the run. Results of fetches still in flight are dropped.
// Stop is idempotent and safe on a nil Run.
func (r *Run) Stop() {
	if r == nil {
		return
	}
	r.cancel()
}

// Done is closed when the run's goroutine exits.
func (r *Run) Done() <-chan struct{} { return r.done }

// Start fetches immediately and then every interval until the task is
// terminal, the failure cap is hit, ctx is done, or Stop is called.
func (p *Poller) Start(ctx context.Context, taskID string) *Run {
	ctx, cancel := context.WithCancel(ctx)
	r := &Run{
		TaskID: taskID,
		Gen:    p.gen.Add(1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.loop(ctx, r)
	return r
}

func (p *Poller) loop(ctx context.Context, r *Run) {
	defer close(r.done)
	defer r.cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for {
		task, err := p.fetcher.Status(ctx, r.TaskID)
		if ctx.Err() != nil {
			return
		}
		if err == nil && task == nil {
			err = errors.New("empty status response")
		}

		if err != nil {
			failures++
			slog.Warn("status fetch failed", "task_id", r.TaskID, "attempt", failures, "error", err)
			if p.maxFailures > 0 && failures >= p.maxFailures {
				p.sink(Result{TaskID: r.TaskID, Gen: r.Gen, Err: fmt.Errorf("%w after %d attempts: %v", ErrPollStalled, failures, err)})
				return
			}
			p.sink(Result{TaskID: r.TaskID, Gen: r.Gen, Err: err})
		} else {
			failures = 0
			p.sink(Result{TaskID: r.TaskID, Gen: r.Gen, Task: task})
			if task.Status.IsTerminal() {
				slog.Debug("task reached terminal status", "task_id", r.TaskID, "status", task.Status)
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
