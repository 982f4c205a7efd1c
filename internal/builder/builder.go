package builder

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/graph"
	"github.com/specialistvlad/buildgridgo/internal/inmemorystore"
	"github.com/specialistvlad/buildgridgo/internal/inmemorytopology"
	"github.com/specialistvlad/buildgridgo/internal/plan"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

// Builder builds execution plans into a graph. A graph holds one build
// invocation, so each Builder is meant for a single Build call.
type Builder struct {
	graph graph.Graph
}

// New creates a builder that populates g.
func New(g graph.Graph) *Builder {
	return &Builder{graph: g}
}

// Build builds a plan against a fresh in-memory graph.
func Build(ctx context.Context, decls []task.Declaration, requested []string, opts ...Option) (*plan.Plan, error) {
	g := graph.New(inmemorytopology.New(), inmemorystore.New())
	return New(g).Build(ctx, decls, requested, opts...)
}

// Build validates decls, selects the tasks needed for requested and returns
// the ordered plan. An empty requested list selects every declared task.
// The position of a declaration in decls is its tie-break order.
func (b *Builder) Build(ctx context.Context, decls []task.Declaration, requested []string, opts ...Option) (*plan.Plan, error) {
	logger := ctxlog.FromContext(ctx)
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := b.register(ctx, decls); err != nil {
		return nil, err
	}
	logger.Debug("Task declarations registered.", "count", len(decls))

	roots, err := b.selectTasks(ctx, requested)
	if err != nil {
		return nil, err
	}
	var excluded []*task.Task
	if len(o.excluded) > 0 {
		if excluded, err = b.selectTasks(ctx, o.excluded); err != nil {
			return nil, err
		}
	}

	sel, err := b.closure(ctx, roots, excluded)
	if err != nil {
		return nil, err
	}
	logger.Debug("Task selection resolved.", "requested", len(roots), "selected", len(sel.tasks))

	wg, err := newWaitGraph(ctx, b.graph, sel)
	if err != nil {
		return nil, err
	}
	if nodes, edges := wg.findCycle(); nodes != nil {
		return nil, cycleError(wg.names(nodes), declared(edges))
	}

	dropped, err := wg.addSoftEdges()
	if err != nil {
		return nil, err
	}
	for _, d := range dropped {
		logger.Warn("Ignoring shouldRunAfter edge that would create a cycle.", "diagnostic", d.String())
		if err := b.graph.Topology().RemoveEdge(ctx, d.Edge); err != nil {
			return nil, fmt.Errorf("failed to drop edge: %w", err)
		}
	}

	order := wg.topoOrder()
	if len(order) != len(wg.tasks) {
		// Unreachable after cycle detection; kept as an invariant check.
		return nil, &GraphError{Kind: ErrCircularDependency, Msg: "graph could not be linearized"}
	}

	rootPaths := make([]taskid.Path, 0, len(roots))
	for _, r := range roots {
		rootPaths = append(rootPaths, r.Path())
	}
	p := plan.New(b.graph, wg.planNodes(order), rootPaths, dropped)
	for name, capacity := range o.resources {
		p.Resources[name] = capacity
	}
	logger.Debug("Execution plan built.", "order", p.Order())
	return p, nil
}

type relation struct {
	kind topologystore.EdgeKind
	refs []string
}

func relations(d *task.Declaration) []relation {
	return []relation{
		{kind: topologystore.DependsOn, refs: d.DependsOn},
		{kind: topologystore.MustRunAfter, refs: d.MustRunAfter},
		{kind: topologystore.ShouldRunAfter, refs: d.ShouldRunAfter},
		{kind: topologystore.FinalizedBy, refs: d.FinalizedBy},
	}
}

// register adds every declaration and its resolved relations to the topology.
func (b *Builder) register(ctx context.Context, decls []task.Declaration) error {
	topo := b.graph.Topology()

	tasks := make([]*task.Task, 0, len(decls))
	for i := range decls {
		d := decls[i]
		if d.Path.IsZero() {
			return invalidf("declaration #%d has no task name", i)
		}
		d.Order = i
		t := task.New(&d)
		added, err := topo.AddTask(ctx, t)
		if err != nil {
			return err
		}
		if !added {
			return &GraphError{Kind: ErrDuplicateTask, Msg: fmt.Sprintf("task %s is declared more than once", d.Path)}
		}
		tasks = append(tasks, t)
	}

	for _, t := range tasks {
		for _, rel := range relations(t.Decl) {
			for _, ref := range rel.refs {
				target, err := taskid.Resolve(t.Path(), ref)
				if err != nil {
					return invalidf("task %s %s %q: %v", t.ID(), rel.kind, ref, err)
				}
				if _, ok := topo.GetTask(ctx, target); !ok {
					return unknownf("task %s %s %q, but no task %s exists", t.ID(), rel.kind, ref, target)
				}
				if err := topo.AddEdge(ctx, topologystore.Edge{From: t.Path(), To: target, Kind: rel.kind}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
