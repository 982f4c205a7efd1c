package task

import (
	"context"
	"io"

	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/zclconf/go-cty/cty"
)

// Inputs are the declared inputs of a task.
type Inputs struct {
	// Files holds file, directory or glob patterns relative to the task's
	// working directory.
	Files []string
	// Properties holds scalar input values. Changing any of them invalidates
	// the task's fingerprint.
	Properties map[string]cty.Value
}

// Declared reports whether the task declares any file inputs.
func (in Inputs) Declared() bool {
	return len(in.Files) > 0
}

// Declaration is the configuration-time description of a task. Edge lists
// hold raw references, resolved against Path by the graph builder.
type Declaration struct {
	Path        taskid.Path
	Description string

	DependsOn      []string
	MustRunAfter   []string
	ShouldRunAfter []string
	FinalizedBy    []string

	Inputs  Inputs
	Outputs []string

	// ExclusiveResource names a shared resource the task must hold while it
	// executes. Empty means none.
	ExclusiveResource string

	// WorkDir is the directory relative paths are resolved against.
	WorkDir string

	Actions []Action

	// Order is the declaration index used to break ordering ties.
	Order int
}

// ExecContext carries what an action may observe about the running task.
type ExecContext struct {
	Task       taskid.Path
	WorkDir    string
	InputFiles []string
	Outputs    []string
	Properties map[string]cty.Value
	Stdout     io.Writer
}

// Action is one opaque unit of a task's work. Returning an error marks the
// task FAILED; panics are recovered and reported the same way.
type Action interface {
	Execute(ctx context.Context, ec *ExecContext) error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, ec *ExecContext) error

// Execute calls f.
func (f ActionFunc) Execute(ctx context.Context, ec *ExecContext) error {
	return f(ctx, ec)
}
