package graph

import (
	"context"

	"github.com/specialistvlad/buildgridgo/internal/outcomestore"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

// Graph is a unified interface for the task graph, combining static topology
// queries with outcome updates.
//
// # Thread-Safety
//
// Implementations MUST be thread-safe: workers update outcomes of different
// tasks in parallel while the scheduler reads relations.
type Graph interface {
	// Topology exposes the underlying structure store for the builder.
	Topology() topologystore.Store

	// Task retrieves a task by path.
	Task(ctx context.Context, p taskid.Path) (*task.Task, bool)

	// AllTasks returns every task in declaration order.
	AllTasks(ctx context.Context) []*task.Task

	// Related returns the tasks p names through edges of the given kinds, in
	// declaration order. For `jar dependsOn test`, Related(jar, DependsOn)
	// returns [test].
	Related(ctx context.Context, p taskid.Path, kinds ...topologystore.EdgeKind) ([]*task.Task, error)

	// RelatedTo returns the tasks that name p through edges of the given
	// kinds. For `jar dependsOn test`, RelatedTo(test, DependsOn) returns [jar].
	RelatedTo(ctx context.Context, p taskid.Path, kinds ...topologystore.EdgeKind) ([]*task.Task, error)

	// Outcome returns the recorded outcome of a task.
	Outcome(ctx context.Context, p taskid.Path) task.Outcome

	// MarkExecuting claims a pending task for a worker.
	//
	// State transition: Pending → Executing
	MarkExecuting(ctx context.Context, p taskid.Path) error

	// MarkFinished records the result of an executing task. A nil err means
	// Success, anything else Failed.
	//
	// State transition: Executing → Success | Failed
	MarkFinished(ctx context.Context, p taskid.Path, timing outcomestore.Timing, err error) (task.Outcome, error)

	// MarkResolved records a terminal outcome reached without executing:
	// UpToDate, NoSource, Skipped or SkippedUpstreamFailure. It reports false
	// when the task was no longer pending.
	//
	// State transition: Pending → outcome
	MarkResolved(ctx context.Context, p taskid.Path, outcome task.Outcome, cause error) (bool, error)
}
