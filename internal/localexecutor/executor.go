// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface: a fixed pool of worker goroutines pulling ready
// tasks from a scheduler.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/evaluator"
	"github.com/specialistvlad/buildgridgo/internal/events"
	"github.com/specialistvlad/buildgridgo/internal/executor"
	"github.com/specialistvlad/buildgridgo/internal/outcomestore"
	"github.com/specialistvlad/buildgridgo/internal/plan"
	"github.com/specialistvlad/buildgridgo/internal/scheduler"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Options configures the worker pool.
type Options struct {
	Parallelism       int
	ContinueOnFailure bool
	BuildID           string
	// Stdout receives task output. Defaults to os.Stdout.
	Stdout io.Writer
}

// Executor implements the executor.Executor interface for local execution.
type Executor struct {
	eval *evaluator.Evaluator
	sink events.Sink
	opts Options
}

var _ executor.Executor = (*Executor)(nil)

// New creates a new local executor.
func New(eval *evaluator.Evaluator, sink events.Sink, opts Options) (*Executor, error) {
	if opts.Parallelism < 1 {
		return nil, fmt.Errorf("parallelism must be at least 1, got %d", opts.Parallelism)
	}
	if sink == nil {
		sink = events.Discard{}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Executor{eval: eval, sink: sink, opts: opts}, nil
}

// run holds the state of one Run call.
type run struct {
	*Executor
	plan   *plan.Plan
	coord  *coordinator.Coordinator
	sched  *scheduler.Scheduler
	starts sync.Map // task id -> time.Time
}

// Run executes the plan and returns the build result.
func (e *Executor) Run(ctx context.Context, p *plan.Plan) (*coordinator.Result, error) {
	logger := ctxlog.FromContext(ctx).With("buildID", e.opts.BuildID)
	ctx = ctxlog.WithLogger(ctx, logger)
	start := time.Now()

	r := &run{Executor: e, plan: p, coord: coordinator.New(e.opts.ContinueOnFailure)}
	e.publish(ctx, events.Event{Kind: events.BuildStarted, Message: fmt.Sprintf("%d tasks", p.Len())})
	for _, d := range p.Dropped {
		e.publish(ctx, events.Event{Kind: events.EdgeDropped, Message: d.String()})
	}

	r.sched = scheduler.New(ctx, p, scheduler.Options{
		Observer:     func(n *plan.Node, outcome task.Outcome, err error) { r.observe(ctx, n, outcome, err) },
		OnContention: func(n *plan.Node, res string) { e.publish(ctx, events.Event{Kind: events.ResourceContention, Task: n.ID(), Resource: res}) },
	})

	workers := min(e.opts.Parallelism, max(p.Len(), 1))
	logger.Debug("Starting worker pool.", "workers", workers, "tasks", p.Len())

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			errs[id] = r.worker(ctx, id)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn("Build cancelled, abandoning tasks that did not start.", "error", err)
		r.coord.MarkCancelled()
		r.sched.Abandon(context.WithoutCancel(ctx), err)
	}

	result := r.coord.Result(p, e.opts.BuildID, time.Since(start))
	e.publish(ctx, events.Event{Kind: events.BuildFinished, Outcome: result.Status.String(), Duration: result.Duration, Message: result.Summary()})
	return result, errors.Join(errs...)
}

func (e *Executor) publish(ctx context.Context, ev events.Event) {
	ev.BuildID = e.opts.BuildID
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	e.sink.Publish(ctx, ev)
}

// observe is called by the scheduler, under its lock, for every outcome.
func (r *run) observe(ctx context.Context, n *plan.Node, outcome task.Outcome, err error) {
	r.coord.Observe(n.ID(), outcome, err)

	ev := events.Event{Kind: events.TaskFinished, Task: n.ID(), Outcome: outcome.String()}
	if v, ok := r.starts.Load(n.ID()); ok {
		ev.Duration = time.Since(v.(time.Time))
	}
	if err != nil && outcome == task.Failed {
		ev.Error = err.Error()
	}
	r.publish(ctx, ev)
}

// worker is the core processing loop for a single concurrent worker.
func (r *run) worker(ctx context.Context, id int) error {
	logger := ctxlog.FromContext(ctx).With("worker", id)
	logger.Debug("Worker started.")
	defer logger.Debug("Worker finished.")

	for {
		n, err := r.sched.Next(ctx)
		switch {
		case errors.Is(err, scheduler.ErrDrained):
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			logger.Error("Scheduler failed.", "error", err)
			return err
		}

		wctx := ctxlog.WithLogger(ctx, logger.With("task", n.ID()))
		outcome, taskErr := r.process(wctx, n)
		if err := r.sched.Complete(wctx, n, outcome, taskErr); err != nil {
			return err
		}
		if r.coord.ShouldHalt() {
			r.sched.Halt(wctx)
		}
	}
}

// process evaluates a task and runs its actions when needed.
func (r *run) process(ctx context.Context, n *plan.Node) (task.Outcome, error) {
	logger := ctxlog.FromContext(ctx)
	g := r.plan.Graph
	d := n.Task.Decl

	st, err := r.eval.Evaluate(ctx, d)
	if err == nil && st.Verdict != evaluator.Execute {
		if st.Verdict == evaluator.NoSource {
			if err := r.eval.Clean(ctx, d); err != nil {
				logger.Warn("Failed to clean outputs of NO_SOURCE task.", "error", err)
			}
		}
		outcome := st.Verdict.Outcome()
		if _, err := g.MarkResolved(ctx, d.Path, outcome, nil); err != nil {
			return task.Failed, err
		}
		logger.Debug("Task not executed.", "outcome", outcome)
		return outcome, nil
	}

	if err := g.MarkExecuting(ctx, d.Path); err != nil {
		return task.Failed, err
	}
	started := time.Now()
	r.starts.Store(n.ID(), started)

	runErr := err
	if runErr == nil {
		r.publish(ctx, events.Event{Kind: events.TaskStarted, Task: n.ID(), Reasons: st.Reasons})
		runErr = n.Task.RunActions(ctx, &task.ExecContext{
			Task:       d.Path,
			WorkDir:    d.WorkDir,
			InputFiles: st.InputFiles,
			Outputs:    d.Outputs,
			Properties: d.Inputs.Properties,
			Stdout:     r.opts.Stdout,
		})
	}

	timing := outcomestore.Timing{Start: started, End: time.Now()}
	outcome, err := g.MarkFinished(ctx, d.Path, timing, runErr)
	if err != nil {
		return task.Failed, errors.Join(runErr, err)
	}
	if outcome == task.Success {
		if err := r.eval.Record(ctx, d, st); err != nil {
			logger.Warn("Failed to record fingerprint, task will execute next time.", "error", err)
		}
	}
	return outcome, runErr
}
