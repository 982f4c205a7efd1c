// Package plan holds the Execution Plan: the subset of the task graph selected
// for one run, linearized in a deterministic topological order and annotated
// with every constraint the scheduler has to honour.
//
// A plan is immutable once the builder returns it. Runtime progress is kept
// on the task records and in the scheduler.
package plan

import (
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/graph"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

// Node is one planned task and its relations to other planned tasks.
type Node struct {
	Task *task.Task
	// Index is the node's position in the plan order.
	Index int
	// Requested is true for tasks named on the invocation.
	Requested bool
	// OnlyFinalizer is true when the task is in the plan solely because it
	// finalizes another planned task.
	OnlyFinalizer bool

	// DependsOn are hard predecessors.
	DependsOn []*Node
	// RunsAfter are ordering-only predecessors (mustRunAfter and the
	// shouldRunAfter edges that were kept).
	RunsAfter []*Node
	// Finalizes are the tasks this node finalizes; they must finish first.
	Finalizes []*Node

	// Dependents are the nodes listing this node in DependsOn.
	Dependents []*Node
	// Followers are the nodes listing this node in RunsAfter or Finalizes.
	Followers []*Node
}

// ID returns the task path string.
func (n *Node) ID() string {
	return n.Task.ID()
}

// Predecessors returns the number of nodes that must reach a terminal outcome
// before this node may start.
func (n *Node) Predecessors() int {
	return len(n.DependsOn) + len(n.RunsAfter) + len(n.Finalizes)
}

// DroppedEdge records a shouldRunAfter edge removed to break a cycle.
type DroppedEdge struct {
	Edge  topologystore.Edge
	Cycle []string
}

// String renders the diagnostic for the dropped edge.
func (d DroppedEdge) String() string {
	return d.Edge.From.String() + " shouldRunAfter " + d.Edge.To.String() +
		" ignored, it would close the cycle " + strings.Join(d.Cycle, " -> ")
}

// Plan is the ordered, validated set of tasks selected for a run.
type Plan struct {
	Graph     graph.Graph
	Nodes     []*Node
	Requested []taskid.Path
	Dropped   []DroppedEdge
	// Resources maps exclusive resource names to their capacity. Names used
	// by a planned task but missing here have capacity 1.
	Resources map[string]int

	byID map[string]*Node
}

// New assembles a plan from nodes already in topological order.
func New(g graph.Graph, nodes []*Node, requested []taskid.Path, dropped []DroppedEdge) *Plan {
	p := &Plan{
		Graph:     g,
		Nodes:     nodes,
		Requested: requested,
		Dropped:   dropped,
		Resources: map[string]int{},
		byID:      make(map[string]*Node, len(nodes)),
	}
	for i, n := range nodes {
		n.Index = i
		p.byID[n.ID()] = n
	}
	return p
}

// Len returns the number of planned tasks.
func (p *Plan) Len() int {
	return len(p.Nodes)
}

// Node looks up a planned task.
func (p *Plan) Node(path taskid.Path) (*Node, bool) {
	n, ok := p.byID[path.String()]
	return n, ok
}

// Order returns the task paths in plan order.
func (p *Plan) Order() []string {
	out := make([]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		out = append(out, n.ID())
	}
	return out
}

// Capacity returns how many tasks may hold resource concurrently.
func (p *Plan) Capacity(resource string) int {
	if c, ok := p.Resources[resource]; ok && c > 0 {
		return c
	}
	return 1
}

// Independent reports whether no path connects a and b in the combined
// graph, meaning they may run concurrently.
func (p *Plan) Independent(a, b *Node) bool {
	return !p.reaches(a, b) && !p.reaches(b, a)
}

// reaches reports whether from transitively waits for to.
func (p *Plan) reaches(from, to *Node) bool {
	seen := make(map[*Node]bool)
	stack := []*Node{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, n.DependsOn...)
		stack = append(stack, n.RunsAfter...)
		stack = append(stack, n.Finalizes...)
	}
	return false
}
