// Package topologystore defines the interface for storing and retrieving the
// static structure of a task graph: the tasks of one build invocation and the
// typed relations declared between them.
//
// # Why Topology Store Exists
//
// The topology store isolates the graph structure (tasks and their edges)
// from the mutable per-run outcome state managed by outcomestore. The graph
// builder writes to it while validating declarations; after the execution
// plan is built it is read-only.
//
// # Edge Direction
//
// An Edge always points from the task that declares the relation to the task
// it names, mirroring the declaration: `jar dependsOn test` is stored as
// Edge{From: jar, To: test, Kind: DependsOn}, and `compile finalizedBy report`
// as Edge{From: compile, To: report, Kind: FinalizedBy}. Consumers translate
// kinds into "must complete before" constraints.
package topologystore

import (
	"context"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
)

// EdgeKind is the type of relation between two tasks.
type EdgeKind int

const (
	// DependsOn is a hard predecessor that must be scheduled and complete first.
	DependsOn EdgeKind = iota
	// MustRunAfter orders two scheduled tasks without scheduling the target.
	MustRunAfter
	// ShouldRunAfter is an advisory ordering, dropped if it would form a cycle.
	ShouldRunAfter
	// FinalizedBy schedules the target to run after the source executes.
	FinalizedBy
)

func (k EdgeKind) String() string {
	switch k {
	case DependsOn:
		return "dependsOn"
	case MustRunAfter:
		return "mustRunAfter"
	case ShouldRunAfter:
		return "shouldRunAfter"
	case FinalizedBy:
		return "finalizedBy"
	}
	return "unknown"
}

// Edge is one declared relation.
type Edge struct {
	From taskid.Path
	To   taskid.Path
	Kind EdgeKind
}

// Store is the interface for managing the static topology of a task graph.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. The topology is written by
// the graph builder and read concurrently by the scheduler and reporting.
//
// # Typical Implementation
//
// See internal/inmemorytopology for the reference implementation using maps
// and sync.RWMutex.
type Store interface {
	// AddTask registers a task. Adding the same path twice is a no-op that
	// reports false.
	AddTask(ctx context.Context, t *task.Task) (added bool, err error)

	// AddEdge records a relation. Both tasks must already be registered.
	// Duplicate edges are ignored.
	AddEdge(ctx context.Context, e Edge) error

	// RemoveEdge deletes a relation if present.
	RemoveEdge(ctx context.Context, e Edge) error

	// GetTask retrieves a task by path.
	GetTask(ctx context.Context, p taskid.Path) (*task.Task, bool)

	// AllTasks returns every task ordered by declaration order.
	AllTasks(ctx context.Context) []*task.Task

	// EdgesFrom returns the relations declared by p, in insertion order,
	// optionally filtered by kind.
	EdgesFrom(ctx context.Context, p taskid.Path, kinds ...EdgeKind) ([]Edge, error)

	// EdgesTo returns the relations naming p as their target, in insertion
	// order, optionally filtered by kind.
	EdgesTo(ctx context.Context, p taskid.Path, kinds ...EdgeKind) ([]Edge, error)
}
