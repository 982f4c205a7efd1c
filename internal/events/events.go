// Package events defines the build events the engine emits for reporting
// collaborators. The engine only emits; formatting and transport belong to
// sinks.
package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Kind identifies the type of an event.
type Kind string

const (
	BuildStarted       Kind = "build_started"
	BuildFinished      Kind = "build_finished"
	TaskStarted        Kind = "task_started"
	TaskFinished       Kind = "task_finished"
	ResourceContention Kind = "resource_contention"
	EdgeDropped        Kind = "edge_dropped"
)

// Event is one build notification. Fields not relevant to a Kind are empty.
type Event struct {
	Kind     Kind          `json:"kind"`
	BuildID  string        `json:"build_id"`
	Time     time.Time     `json:"time"`
	Task     string        `json:"task,omitempty"`
	Outcome  string        `json:"outcome,omitempty"`
	Error    string        `json:"error,omitempty"`
	Resource string        `json:"resource,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	// Message carries diagnostics and the build summary.
	Message string `json:"message,omitempty"`
	// Reasons explains why a task executed.
	Reasons []string `json:"reasons,omitempty"`
}

// Sink receives events. Publish must not block for long; workers call it.
type Sink interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

// Multi fans events out to several sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink. Nil sinks are ignored.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Publish implements Sink.
func (m *Multi) Publish(ctx context.Context, e Event) {
	for _, s := range m.sinks {
		s.Publish(ctx, e)
	}
}

// Close implements Sink, closing every sink and joining their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
func (Discard) Close() error                   { return nil }

// Recorder keeps every event in memory, for tests and summaries.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Sink.
func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Close implements Sink.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns the recorded events of kind k.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
