// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sos records the playback moments a viewer marked as not
// understood.
package sos

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/pdiddy/mathnote/pkg/types"
)

// ErrNegativeTimestamp rejects captures before the start of playback.
var ErrNegativeTimestamp = errors.New("sos timestamp must be a non-negative number")

// Log is an append-only record of SOS events. Duplicates are kept and
// there is no cap. It is safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	events []types.SosEvent
	now    func() time.Time
}

// NewLog returns an empty Log.
func NewLog() *Log { return &Log{now: time.Now} }

// Capture appends an event at playback position t seconds.
func (l *Log) Capture(t float64) (types.SosEvent, error) {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return types.SosEvent{}, ErrNegativeTimestamp
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now == nil {
		l.now = time.Now
	}
	ev := types.SosEvent{Timestamp: t, CapturedAt: l.now().UTC()}
	l.events = append(l.events, ev)
	return ev, nil
}

// Snapshot returns the captured timestamps in capture order. The slice is
// a copy and safe to send.
func (l *Log) Snapshot() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Timestamp
	}
	return out
}

// Events returns a copy of the captured events.
func (l *Log) Events() []types.SosEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.SosEvent(nil), l.events...)
}
