// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of local vs. remote
// execution.
package session

import (
	"context"

	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/plan"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Request describes one build invocation.
type Request struct {
	// Requested names the tasks to build. Empty builds every task.
	Requested []string
	// Excluded names tasks removed from the plan, as with -x.
	Excluded          []string
	Parallelism       int
	ContinueOnFailure bool
}

// SessionFactory creates an execution Session over a set of task
// declarations. Different implementations can support various backends,
// such as local or distributed execution.
type SessionFactory interface {
	NewSession(ctx context.Context, decls []task.Declaration) (Session, error)
}

// Session runs builds over one set of declarations and owns the resources
// shared between them.
type Session interface {
	// Plan builds and validates the execution plan without running it.
	Plan(ctx context.Context, req Request) (*plan.Plan, error)
	// Execute plans and runs one build.
	Execute(ctx context.Context, req Request) (*coordinator.Result, error)
	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}
