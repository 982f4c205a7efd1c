package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/buildgridgo/internal/taskid"
)

// Task is the per-run record of a declared task. Its edges are fixed once the
// plan is built; only the outcome and the recorded error change.
type Task struct {
	Decl *Declaration

	outcome atomic.Int32
	// skipOnce guarantees a task is marked skipped exactly once.
	skipOnce sync.Once
	err      atomic.Pointer[error]
}

// New creates a runtime task for a declaration.
func New(decl *Declaration) *Task {
	return &Task{Decl: decl}
}

// Path returns the task's identity.
func (t *Task) Path() taskid.Path {
	return t.Decl.Path
}

// ID returns the canonical string form of the task path.
func (t *Task) ID() string {
	return t.Decl.Path.String()
}

// Outcome atomically returns the current outcome.
func (t *Task) Outcome() Outcome {
	return Outcome(t.outcome.Load())
}

// Transition moves the task from one outcome to another. It fails when the
// current outcome is not from or the change is not allowed.
func (t *Task) Transition(from, to Outcome) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("disallowed transition for %s: %s -> %s", t.ID(), from, to)
	}
	if !t.outcome.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("invalid transition for %s: expected %s, got %s", t.ID(), from, t.Outcome())
	}
	return nil
}

// Skip marks a pending task with a skip outcome. It returns true only for the
// call that actually performed the change.
func (t *Task) Skip(to Outcome, cause error) bool {
	var skipped bool
	t.skipOnce.Do(func() {
		if t.Transition(Pending, to) == nil {
			t.SetErr(cause)
			skipped = true
		}
	})
	return skipped
}

// SetErr records the error that explains the task's outcome.
func (t *Task) SetErr(err error) {
	if err != nil {
		t.err.Store(&err)
	}
}

// Err returns the recorded error, if any.
func (t *Task) Err() error {
	if p := t.err.Load(); p != nil {
		return *p
	}
	return nil
}

// RunActions executes the task's actions in order and stops at the first
// failure. Panics are converted into an ActionError.
func (t *Task) RunActions(ctx context.Context, ec *ExecContext) error {
	for i, action := range t.Decl.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runAction(ctx, action, ec, t.ID(), i); err != nil {
			return err
		}
	}
	return nil
}

func runAction(ctx context.Context, action Action, ec *ExecContext, id string, index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Task: id, Index: index, Kind: ErrActionPanicked, Err: fmt.Errorf("%v", r)}
		}
	}()
	if actErr := action.Execute(ctx, ec); actErr != nil {
		return &ActionError{Task: id, Index: index, Kind: ErrActionFailed, Err: actErr}
	}
	return nil
}
