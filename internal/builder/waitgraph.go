package builder

import (
	"context"
	"sort"

	"github.com/specialistvlad/buildgridgo/internal/graph"
	"github.com/specialistvlad/buildgridgo/internal/plan"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

// waitEdge means the owning task waits for task `to`.
type waitEdge struct {
	to   int
	decl topologystore.Edge
}

// waitGraph is the selection indexed by declaration order, with every edge
// turned into "waits for". jar dependsOn test and jar mustRunAfter test both
// make jar wait for test; compile finalizedBy report makes report wait for
// compile.
type waitGraph struct {
	tasks         []*task.Task
	index         map[string]int
	requested     []bool
	onlyFinalizer []bool

	waits [][]waitEdge
	// soft holds shouldRunAfter edges until addSoftEdges decides on them.
	soft []softEdge
}

type softEdge struct {
	from int
	edge waitEdge
}

func newWaitGraph(ctx context.Context, g graph.Graph, sel *selection) (*waitGraph, error) {
	w := &waitGraph{index: make(map[string]int, len(sel.tasks))}
	for _, t := range g.AllTasks(ctx) {
		if _, ok := sel.tasks[t.ID()]; ok {
			w.index[t.ID()] = len(w.tasks)
			w.tasks = append(w.tasks, t)
			w.requested = append(w.requested, sel.requested[t.ID()])
			w.onlyFinalizer = append(w.onlyFinalizer, sel.onlyFinalizer[t.ID()])
		}
	}
	w.waits = make([][]waitEdge, len(w.tasks))

	for i, t := range w.tasks {
		edges, err := g.Topology().EdgesFrom(ctx, t.Path())
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			j, ok := w.index[e.To.String()]
			if !ok {
				continue
			}
			switch e.Kind {
			case topologystore.DependsOn, topologystore.MustRunAfter:
				w.waits[i] = append(w.waits[i], waitEdge{to: j, decl: e})
			case topologystore.ShouldRunAfter:
				w.soft = append(w.soft, softEdge{from: i, edge: waitEdge{to: j, decl: e}})
			case topologystore.FinalizedBy:
				w.waits[j] = append(w.waits[j], waitEdge{to: i, decl: e})
			}
		}
	}
	return w, nil
}

func (w *waitGraph) names(nodes []int) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, w.tasks[n].ID())
	}
	return out
}

func declared(edges []waitEdge) []topologystore.Edge {
	out := make([]topologystore.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.decl)
	}
	return out
}

const (
	white = iota
	gray
	black
)

// findCycle runs a three-color depth-first search in declaration order and
// returns the first cycle found as a closed walk plus the edges along it.
func (w *waitGraph) findCycle() ([]int, []waitEdge) {
	color := make([]int, len(w.tasks))
	parent := make([]int, len(w.tasks))
	via := make([]waitEdge, len(w.tasks))

	var nodes []int
	var edges []waitEdge

	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = gray
		for _, e := range w.waits[u] {
			v := e.to
			switch color[v] {
			case white:
				parent[v] = u
				via[v] = e
				if visit(v) {
					return true
				}
			case gray:
				nodes = []int{u}
				edges = []waitEdge{e}
				for cur := u; cur != v; cur = parent[cur] {
					edges = append(edges, via[cur])
					nodes = append(nodes, parent[cur])
				}
				reverse(nodes)
				reverse(edges)
				nodes = append(nodes, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range w.tasks {
		if color[i] == white && visit(i) {
			return nodes, edges
		}
	}
	return nil, nil
}

// pathBetween returns a walk from -> ... -> to over the current wait edges.
func (w *waitGraph) pathBetween(from, to int) ([]int, []waitEdge, bool) {
	if from == to {
		return []int{from}, nil, true
	}
	seen := make([]bool, len(w.tasks))
	var nodes []int
	var edges []waitEdge

	var visit func(u int) bool
	visit = func(u int) bool {
		seen[u] = true
		nodes = append(nodes, u)
		for _, e := range w.waits[u] {
			if e.to == to {
				nodes = append(nodes, to)
				edges = append(edges, e)
				return true
			}
			if seen[e.to] {
				continue
			}
			edges = append(edges, e)
			if visit(e.to) {
				return true
			}
			edges = edges[:len(edges)-1]
		}
		nodes = nodes[:len(nodes)-1]
		return false
	}

	if visit(from) {
		return nodes, edges, true
	}
	return nil, nil, false
}

// mustRunAfterPath returns a walk from -> ... -> to over the current wait
// edges that uses at least one mustRunAfter edge.
func (w *waitGraph) mustRunAfterPath(from, to int) ([]int, []waitEdge, bool) {
	// States are (task, whether a mustRunAfter edge was used on the way).
	var seen [2][]bool
	seen[0] = make([]bool, len(w.tasks))
	seen[1] = make([]bool, len(w.tasks))
	var nodes []int
	var edges []waitEdge

	var visit func(u int, used bool) bool
	visit = func(u int, used bool) bool {
		k := 0
		if used {
			k = 1
		}
		seen[k][u] = true
		nodes = append(nodes, u)
		for _, e := range w.waits[u] {
			nextUsed := used || e.decl.Kind == topologystore.MustRunAfter
			edges = append(edges, e)
			if e.to == to && nextUsed {
				nodes = append(nodes, to)
				return true
			}
			nk := 0
			if nextUsed {
				nk = 1
			}
			if !seen[nk][e.to] && visit(e.to, nextUsed) {
				return true
			}
			edges = edges[:len(edges)-1]
		}
		nodes = nodes[:len(nodes)-1]
		return false
	}

	if visit(from, false) {
		return nodes, edges, true
	}
	return nil, nil, false
}

// addSoftEdges inserts shouldRunAfter edges in declaration order. An edge
// that would close a cycle is dropped, unless some cycle it closes runs
// through a mustRunAfter edge, which makes the graph invalid.
func (w *waitGraph) addSoftEdges() ([]plan.DroppedEdge, error) {
	var dropped []plan.DroppedEdge
	for _, s := range w.soft {
		if nodes, path, found := w.mustRunAfterPath(s.edge.to, s.from); found {
			cycle := append([]int{s.from}, nodes...)
			cycleEdges := append([]waitEdge{s.edge}, path...)
			return nil, cycleError(w.names(cycle), declared(cycleEdges))
		}

		nodes, _, found := w.pathBetween(s.edge.to, s.from)
		if !found {
			w.waits[s.from] = append(w.waits[s.from], s.edge)
			continue
		}
		cycle := append([]int{s.from}, nodes...)
		dropped = append(dropped, plan.DroppedEdge{Edge: s.edge.decl, Cycle: w.names(cycle)})
	}
	return dropped, nil
}

// topoOrder linearizes the graph with Kahn's algorithm, always taking the
// ready task declared first.
func (w *waitGraph) topoOrder() []int {
	indegree := make([]int, len(w.tasks))
	followers := make([][]int, len(w.tasks))
	for i, edges := range w.waits {
		for _, e := range edges {
			indegree[i]++
			followers[e.to] = append(followers[e.to], i)
		}
	}

	ready := &intMinHeap{}
	for i, d := range indegree {
		if d == 0 {
			ready.push(i)
		}
	}

	order := make([]int, 0, len(w.tasks))
	for ready.len() > 0 {
		u := ready.pop()
		order = append(order, u)
		for _, v := range followers[u] {
			indegree[v]--
			if indegree[v] == 0 {
				ready.push(v)
			}
		}
	}
	return order
}

// planNodes converts the ordered wait graph into plan nodes. Relations to the
// same predecessor collapse to one, dependsOn taking precedence.
func (w *waitGraph) planNodes(order []int) []*plan.Node {
	nodes := make([]*plan.Node, len(w.tasks))
	out := make([]*plan.Node, 0, len(order))
	for _, i := range order {
		n := &plan.Node{
			Task:          w.tasks[i],
			Requested:     w.requested[i],
			OnlyFinalizer: w.onlyFinalizer[i],
		}
		nodes[i] = n
		out = append(out, n)
	}

	for _, i := range order {
		n := nodes[i]
		kinds := make(map[int]topologystore.EdgeKind)
		var targets []int
		for _, e := range w.waits[i] {
			prev, seen := kinds[e.to]
			if !seen {
				targets = append(targets, e.to)
				kinds[e.to] = e.decl.Kind
				continue
			}
			if rank(e.decl.Kind) < rank(prev) {
				kinds[e.to] = e.decl.Kind
			}
		}
		sort.Ints(targets)

		for _, j := range targets {
			pred := nodes[j]
			switch kinds[j] {
			case topologystore.DependsOn:
				n.DependsOn = append(n.DependsOn, pred)
				pred.Dependents = append(pred.Dependents, n)
			case topologystore.FinalizedBy:
				n.Finalizes = append(n.Finalizes, pred)
				pred.Followers = append(pred.Followers, n)
			default:
				n.RunsAfter = append(n.RunsAfter, pred)
				pred.Followers = append(pred.Followers, n)
			}
		}
	}
	return out
}

func rank(k topologystore.EdgeKind) int {
	switch k {
	case topologystore.DependsOn:
		return 0
	case topologystore.FinalizedBy:
		return 1
	}
	return 2
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
