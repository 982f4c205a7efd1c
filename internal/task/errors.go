package task

import (
	"errors"
	"fmt"
)

var (
	// ErrActionFailed wraps failures reported by an action.
	ErrActionFailed = errors.New("task action failed")
	// ErrActionPanicked marks a failure raised as a panic inside an action.
	ErrActionPanicked = errors.New("task action panicked")
)

// ActionError reports which action of which task failed.
type ActionError struct {
	Task  string
	Index int
	Kind  error
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: task %s action #%d: %v", e.Kind, e.Task, e.Index, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *ActionError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
