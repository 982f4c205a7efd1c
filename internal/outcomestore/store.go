// Package outcomestore defines the interface for recording the mutable,
// per-run results of tasks: their terminal outcome, the error that explains
// it and the wall-clock window in which they executed.
//
// # Why Outcome Store Exists
//
// Task records carry their live outcome for scheduling decisions, but the
// Build Result and the reporting collaborators need a stable, path-keyed view
// that survives after the plan is discarded. The store is created once per
// build invocation, written by the failure coordinator as outcomes are
// observed and read when the final result is assembled.
//
// Nothing in this store persists across runs; cross-run state belongs to the
// fingerprint stores.
package outcomestore

import (
	"context"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
)

// Timing is the execution window of a task. Both fields are zero for tasks
// that never executed.
type Timing struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (t Timing) Duration() time.Duration {
	if t.Start.IsZero() || t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

// Store is the interface for the per-run outcome records.
//
// Implementations MUST be safe for concurrent reads and writes: every worker
// reports outcomes for its own task while the coordinator reads others.
type Store interface {
	// SetOutcome records the terminal outcome of a task.
	SetOutcome(ctx context.Context, p taskid.Path, o task.Outcome) error

	// GetOutcome returns the recorded outcome, or task.Pending if none.
	GetOutcome(ctx context.Context, p taskid.Path) (task.Outcome, error)

	// SetError records the error explaining a failed or skipped task.
	SetError(ctx context.Context, p taskid.Path, taskErr error) error

	// GetError returns the recorded error, or nil.
	GetError(ctx context.Context, p taskid.Path) (error, error)

	// SetTiming records when a task executed.
	SetTiming(ctx context.Context, p taskid.Path, t Timing) error

	// GetTiming returns the recorded timing, or a zero Timing.
	GetTiming(ctx context.Context, p taskid.Path) (Timing, error)
}
