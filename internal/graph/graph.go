package graph

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/outcomestore"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

// Manager implements Graph by composing a topology store and an outcome store.
type Manager struct {
	topology topologystore.Store
	outcomes outcomestore.Store
}

// New creates a new graph manager.
func New(ts topologystore.Store, ostore outcomestore.Store) Graph {
	return &Manager{topology: ts, outcomes: ostore}
}

// Topology implements Graph.
func (m *Manager) Topology() topologystore.Store {
	return m.topology
}

// Task implements Graph.
func (m *Manager) Task(ctx context.Context, p taskid.Path) (*task.Task, bool) {
	return m.topology.GetTask(ctx, p)
}

// AllTasks implements Graph.
func (m *Manager) AllTasks(ctx context.Context) []*task.Task {
	return m.topology.AllTasks(ctx)
}

// Related implements Graph.
func (m *Manager) Related(ctx context.Context, p taskid.Path, kinds ...topologystore.EdgeKind) ([]*task.Task, error) {
	edges, err := m.topology.EdgesFrom(ctx, p, kinds...)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, edges, func(e topologystore.Edge) taskid.Path { return e.To })
}

// RelatedTo implements Graph.
func (m *Manager) RelatedTo(ctx context.Context, p taskid.Path, kinds ...topologystore.EdgeKind) ([]*task.Task, error) {
	edges, err := m.topology.EdgesTo(ctx, p, kinds...)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, edges, func(e topologystore.Edge) taskid.Path { return e.From })
}

func (m *Manager) resolve(ctx context.Context, edges []topologystore.Edge, end func(topologystore.Edge) taskid.Path) ([]*task.Task, error) {
	out := make([]*task.Task, 0, len(edges))
	for _, e := range edges {
		t, ok := m.topology.GetTask(ctx, end(e))
		if !ok {
			return nil, fmt.Errorf("internal inconsistency: edge %s -%s-> %s names a missing task", e.From, e.Kind, e.To)
		}
		out = append(out, t)
	}
	return out, nil
}

// Outcome implements Graph.
func (m *Manager) Outcome(ctx context.Context, p taskid.Path) task.Outcome {
	if t, ok := m.topology.GetTask(ctx, p); ok {
		return t.Outcome()
	}
	o, _ := m.outcomes.GetOutcome(ctx, p)
	return o
}

// MarkExecuting implements Graph.
func (m *Manager) MarkExecuting(ctx context.Context, p taskid.Path) error {
	t, err := m.mustTask(ctx, p)
	if err != nil {
		return err
	}
	if err := t.Transition(task.Pending, task.Executing); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Task claimed for execution.", "task", p.String())
	return m.outcomes.SetOutcome(ctx, p, task.Executing)
}

// MarkFinished implements Graph.
func (m *Manager) MarkFinished(ctx context.Context, p taskid.Path, timing outcomestore.Timing, taskErr error) (task.Outcome, error) {
	t, err := m.mustTask(ctx, p)
	if err != nil {
		return task.Pending, err
	}

	outcome := task.Success
	if taskErr != nil {
		outcome = task.Failed
	}
	if err := t.Transition(task.Executing, outcome); err != nil {
		return t.Outcome(), err
	}
	t.SetErr(taskErr)

	if err := m.outcomes.SetTiming(ctx, p, timing); err != nil {
		return outcome, err
	}
	if err := m.outcomes.SetError(ctx, p, taskErr); err != nil {
		return outcome, err
	}
	return outcome, m.outcomes.SetOutcome(ctx, p, outcome)
}

// MarkResolved implements Graph.
func (m *Manager) MarkResolved(ctx context.Context, p taskid.Path, outcome task.Outcome, cause error) (bool, error) {
	t, err := m.mustTask(ctx, p)
	if err != nil {
		return false, err
	}
	if outcome == task.Executing || outcome.Executed() {
		return false, fmt.Errorf("outcome %s is not reachable without execution", outcome)
	}
	if !t.Skip(outcome, cause) {
		return false, nil
	}
	if err := m.outcomes.SetError(ctx, p, cause); err != nil {
		return true, err
	}
	return true, m.outcomes.SetOutcome(ctx, p, outcome)
}

func (m *Manager) mustTask(ctx context.Context, p taskid.Path) (*task.Task, error) {
	t, ok := m.topology.GetTask(ctx, p)
	if !ok {
		return nil, fmt.Errorf("task '%s' not found in graph", p)
	}
	return t, nil
}
