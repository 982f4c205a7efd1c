package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/plan"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

var (
	// ErrDrained is returned by Next once every planned task is terminal.
	ErrDrained = errors.New("all planned tasks are finished")
	// ErrStalled is returned by Next when tasks remain but none can ever
	// become ready. A valid plan never stalls.
	ErrStalled = errors.New("no remaining task can become ready")
	// ErrUpstreamFailed is the cause recorded on SkippedUpstreamFailure tasks.
	ErrUpstreamFailed = errors.New("upstream task failed")
	// ErrHalted is the cause recorded on tasks skipped after a halt.
	ErrHalted = errors.New("build halted before the task started")
	// ErrNothingToFinalize is the cause recorded on finalizers whose
	// finalized tasks did not execute.
	ErrNothingToFinalize = errors.New("no finalized task executed")
)

// Observer receives every terminal outcome, in the order it is recorded. It
// is called with the scheduler lock held and must not call back into the
// scheduler.
type Observer func(n *plan.Node, outcome task.Outcome, err error)

// Options configures a Scheduler.
type Options struct {
	Observer Observer
	// OnContention is called once per task that had to wait for its
	// exclusive resource.
	OnContention func(n *plan.Node, resource string)
}

type settled struct {
	node    *plan.Node
	outcome task.Outcome
	err     error
}

// Scheduler hands out ready plan nodes and tracks their completion. It is
// safe for concurrent use by the workers of one run.
type Scheduler struct {
	plan *plan.Plan
	opts Options

	mu         sync.Mutex
	pending    []int
	blocked    []error
	outcomes   []task.Outcome
	done       []bool
	dispatched []bool
	contended  []bool
	remaining  int
	inFlight   int
	ready      readyQueue
	held       map[string]int
	halted     bool
	// changed is closed and replaced on every state change.
	changed chan struct{}
}

// New creates a scheduler for one run of p.
func New(ctx context.Context, p *plan.Plan, opts Options) *Scheduler {
	n := p.Len()
	s := &Scheduler{
		plan:       p,
		opts:       opts,
		pending:    make([]int, n),
		blocked:    make([]error, n),
		outcomes:   make([]task.Outcome, n),
		done:       make([]bool, n),
		dispatched: make([]bool, n),
		contended:  make([]bool, n),
		remaining:  n,
		held:       make(map[string]int),
		changed:    make(chan struct{}),
	}
	for _, node := range p.Nodes {
		s.pending[node.Index] = node.Predecessors()
		if s.pending[node.Index] == 0 {
			s.ready.push(node.Index)
		}
	}
	ctxlog.FromContext(ctx).Debug("Scheduler initialized.", "tasks", n, "ready", s.ready.len())
	return s
}

// Next blocks until a task may start and returns it with its exclusive
// resource acquired. It returns ErrDrained when the run is over, or the
// context error when ctx is done first.
func (s *Scheduler) Next(ctx context.Context) (*plan.Node, error) {
	for {
		s.mu.Lock()
		if s.remaining == 0 {
			s.mu.Unlock()
			return nil, ErrDrained
		}
		if n := s.pick(ctx); n != nil {
			s.dispatched[n.Index] = true
			s.inFlight++
			s.mu.Unlock()
			return n, nil
		}
		if s.inFlight == 0 && s.ready.len() == 0 {
			s.mu.Unlock()
			return nil, ErrStalled
		}
		wait := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// pick pops the first ready node whose resource has capacity.
func (s *Scheduler) pick(ctx context.Context) *plan.Node {
	var waiting []int
	defer func() {
		for _, i := range waiting {
			s.ready.push(i)
		}
	}()

	for s.ready.len() > 0 {
		i := s.ready.pop()
		n := s.plan.Nodes[i]
		res := n.Task.Decl.ExclusiveResource
		if res == "" {
			return n
		}
		if s.held[res] < s.plan.Capacity(res) {
			s.held[res]++
			return n
		}
		waiting = append(waiting, i)
		if !s.contended[i] {
			s.contended[i] = true
			ctxlog.FromContext(ctx).Debug("Task waiting for exclusive resource.",
				"task", n.ID(), "resource", res, "held", s.held[res])
			if s.opts.OnContention != nil {
				s.opts.OnContention(n, res)
			}
		}
	}
	return nil
}

// Complete records the outcome of a node returned by Next and unlocks the
// nodes waiting for it.
func (s *Scheduler) Complete(ctx context.Context, n *plan.Node, outcome task.Outcome, err error) error {
	if !outcome.IsTerminal() {
		return fmt.Errorf("cannot complete %s with non-terminal outcome %s", n.ID(), outcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dispatched[n.Index] || s.done[n.Index] {
		return fmt.Errorf("task %s was not handed out or is already complete", n.ID())
	}
	if res := n.Task.Decl.ExclusiveResource; res != "" {
		s.held[res]--
	}
	s.inFlight--
	s.drain(ctx, []settled{{node: n, outcome: outcome, err: err}})
	s.notify()
	return nil
}

// Halt stops the run from starting new work. Ready and future tasks are
// skipped, except finalizers of tasks that executed.
func (s *Scheduler) Halt(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return
	}
	s.halted = true
	ctxlog.FromContext(ctx).Info("Build halted, no further tasks will be started.")

	var keep []int
	var queue []settled
	for s.ready.len() > 0 {
		i := s.ready.pop()
		n := s.plan.Nodes[i]
		if s.finalizesExecuted(n) {
			keep = append(keep, i)
			continue
		}
		queue = append(queue, s.skip(ctx, n, task.Skipped, ErrHalted))
	}
	for _, i := range keep {
		s.ready.push(i)
	}
	s.drain(ctx, queue)
	s.notify()
}

// Abandon settles every task that was never handed out. It is used after the
// workers have stopped because the run was cancelled.
func (s *Scheduler) Abandon(ctx context.Context, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = true
	s.ready = readyQueue{}
	for _, n := range s.plan.Nodes {
		if s.done[n.Index] || s.dispatched[n.Index] {
			continue
		}
		outcome, err := task.Skipped, cause
		if s.blocked[n.Index] != nil {
			outcome, err = task.SkippedUpstreamFailure, s.blocked[n.Index]
		}
		s.record(s.skip(ctx, n, outcome, err))
	}
	s.notify()
}

// Halted reports whether Halt or Abandon was called.
func (s *Scheduler) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// drain records each settled node and releases its successors, settling any
// that can no longer run.
func (s *Scheduler) drain(ctx context.Context, queue []settled) {
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		s.record(cur)

		for _, d := range cur.node.Dependents {
			if !cur.outcome.SatisfiesDependents() && s.blocked[d.Index] == nil {
				s.blocked[d.Index] = fmt.Errorf("%w: %s", ErrUpstreamFailed, cur.node.ID())
			}
			queue = s.release(ctx, d, queue)
		}
		for _, f := range cur.node.Followers {
			queue = s.release(ctx, f, queue)
		}
	}
}

func (s *Scheduler) record(st settled) {
	s.done[st.node.Index] = true
	s.outcomes[st.node.Index] = st.outcome
	s.remaining--
	if s.opts.Observer != nil {
		s.opts.Observer(st.node, st.outcome, st.err)
	}
}

// release drops one unfinished predecessor of n.
func (s *Scheduler) release(ctx context.Context, n *plan.Node, queue []settled) []settled {
	s.pending[n.Index]--
	if s.pending[n.Index] > 0 {
		return queue
	}

	switch {
	case s.blocked[n.Index] != nil:
		ctxlog.FromContext(ctx).Warn("Skipping task due to upstream failure.", "task", n.ID(), "cause", s.blocked[n.Index])
		return append(queue, s.skip(ctx, n, task.SkippedUpstreamFailure, s.blocked[n.Index]))
	case n.OnlyFinalizer && !s.finalizesExecuted(n):
		ctxlog.FromContext(ctx).Debug("Skipping finalizer, nothing to finalize.", "task", n.ID())
		return append(queue, s.skip(ctx, n, task.Skipped, ErrNothingToFinalize))
	case s.halted && !s.finalizesExecuted(n):
		return append(queue, s.skip(ctx, n, task.Skipped, ErrHalted))
	}

	ctxlog.FromContext(ctx).Debug("Task ready.", "task", n.ID())
	s.ready.push(n.Index)
	return queue
}

// skip records a non-executed outcome in the graph.
func (s *Scheduler) skip(ctx context.Context, n *plan.Node, outcome task.Outcome, cause error) settled {
	if s.plan.Graph != nil {
		if _, err := s.plan.Graph.MarkResolved(ctx, n.Task.Path(), outcome, cause); err != nil {
			ctxlog.FromContext(ctx).Error("Failed to record skipped task.", "task", n.ID(), "error", err)
		}
	}
	return settled{node: n, outcome: outcome, err: cause}
}

func (s *Scheduler) finalizesExecuted(n *plan.Node) bool {
	for _, f := range n.Finalizes {
		if s.done[f.Index] && s.outcomes[f.Index].Executed() {
			return true
		}
	}
	return false
}

func (s *Scheduler) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}
