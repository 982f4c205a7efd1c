// Package coordinator observes task outcomes, decides when a run must halt
// and assembles the final build result.
package coordinator

import (
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/plan"
	"github.com/specialistvlad/buildgridgo/internal/scheduler"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Coordinator collects outcomes of one run. It is safe for concurrent use.
type Coordinator struct {
	continueOnFailure bool

	mu           sync.Mutex
	outcomes     map[string]task.Outcome
	observed     []string
	failures     []TaskFailure
	notAttempted []string
	halt         bool
	cancelled    bool
}

// New creates a coordinator. Without continueOnFailure the first failure
// halts the run.
func New(continueOnFailure bool) *Coordinator {
	return &Coordinator{
		continueOnFailure: continueOnFailure,
		outcomes:          make(map[string]task.Outcome),
	}
}

// Observe records a terminal outcome. It reports true exactly once, for the
// failure that should halt a fail-fast run.
func (c *Coordinator) Observe(taskPath string, outcome task.Outcome, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.outcomes[taskPath]; seen {
		return false
	}
	c.outcomes[taskPath] = outcome
	c.observed = append(c.observed, taskPath)

	switch outcome {
	case task.Failed:
		if err == nil {
			err = errors.New("task failed without an error")
		}
		c.failures = append(c.failures, TaskFailure{Task: taskPath, Err: err})
		if !c.continueOnFailure && !c.halt {
			c.halt = true
			return true
		}
	case task.Skipped:
		if err != nil && !errors.Is(err, scheduler.ErrNothingToFinalize) {
			c.notAttempted = append(c.notAttempted, taskPath)
		}
	}
	return false
}

// ShouldHalt reports whether no new task should be started.
func (c *Coordinator) ShouldHalt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halt || c.cancelled
}

// MarkCancelled records that the run was stopped from outside.
func (c *Coordinator) MarkCancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// Result assembles the build result for p. Tasks without an observed outcome
// are reported as not attempted.
func (c *Coordinator) Result(p *plan.Plan, buildID string, duration time.Duration) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := &Result{
		BuildID:      buildID,
		Outcomes:     make(map[string]task.Outcome, p.Len()),
		Order:        p.Order(),
		Observed:     append([]string(nil), c.observed...),
		Failures:     append([]TaskFailure(nil), c.failures...),
		NotAttempted: append([]string(nil), c.notAttempted...),
		Cancelled:    c.cancelled,
		Duration:     duration,
	}

	upToDate := false
	for _, id := range r.Order {
		o, ok := c.outcomes[id]
		if !ok {
			o = task.Skipped
			r.NotAttempted = append(r.NotAttempted, id)
		}
		r.Outcomes[id] = o
		if o == task.UpToDate {
			upToDate = true
		}
	}

	switch {
	case r.Cancelled:
		r.Status = Cancelled
	case len(r.Failures) > 0:
		r.Status = Failed
	case upToDate:
		r.Status = SucceededWithUpToDate
	default:
		r.Status = AllSucceeded
	}
	return r
}
