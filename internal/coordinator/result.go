package coordinator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/task"
)

// ErrCancelled is returned by Result.Err for a cancelled run.
var ErrCancelled = errors.New("build cancelled")

// Status classifies a finished run.
type Status int

const (
	// AllSucceeded means every planned task executed successfully or was
	// legitimately skipped.
	AllSucceeded Status = iota
	// SucceededWithUpToDate means nothing failed and at least one task was
	// up to date.
	SucceededWithUpToDate
	// Failed means at least one task failed.
	Failed
	// Cancelled means the run was stopped before every task finished.
	Cancelled
)

func (s Status) String() string {
	switch s {
	case AllSucceeded:
		return "SUCCESS"
	case SucceededWithUpToDate:
		return "SUCCESS (UP-TO-DATE)"
	case Failed:
		return "FAILED"
	case Cancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// TaskFailure is the underlying error of one failed task.
type TaskFailure struct {
	Task string
	Err  error
}

func (f TaskFailure) Error() string {
	return fmt.Sprintf("task %s failed: %v", f.Task, f.Err)
}

func (f TaskFailure) Unwrap() error { return f.Err }

// Result is the single artifact of a run.
type Result struct {
	BuildID string
	// Outcomes holds the terminal outcome of every planned task.
	Outcomes map[string]task.Outcome
	// Order is the plan order.
	Order []string
	// Observed lists tasks in the order their outcomes were recorded.
	Observed []string
	// Failures holds failed tasks in the order they were first observed.
	Failures []TaskFailure
	// NotAttempted lists tasks that never started because the run halted.
	NotAttempted []string
	Cancelled    bool
	Duration     time.Duration
	Status       Status
}

// Err returns nil for a successful run and otherwise the failures joined in
// observation order.
func (r *Result) Err() error {
	var errs []error
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	if r.Cancelled {
		errs = append(errs, ErrCancelled)
	}
	return errors.Join(errs...)
}

// Count returns how many tasks ended with outcome o.
func (r *Result) Count(o task.Outcome) int {
	n := 0
	for _, got := range r.Outcomes {
		if got == o {
			n++
		}
	}
	return n
}

// Summary renders a one-line digest such as
// "BUILD SUCCESSFUL in 1.2s: 3 tasks: 2 SUCCESS, 1 UP_TO_DATE".
func (r *Result) Summary() string {
	counts := make(map[task.Outcome]int)
	for _, o := range r.Outcomes {
		counts[o]++
	}
	outcomes := make([]task.Outcome, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, fmt.Sprintf("%d %s", counts[o], o))
	}

	head := "BUILD SUCCESSFUL"
	switch r.Status {
	case Failed:
		head = "BUILD FAILED"
	case Cancelled:
		head = "BUILD CANCELLED"
	}
	return fmt.Sprintf("%s in %s: %d tasks: %s", head, r.Duration.Round(time.Millisecond), len(r.Outcomes), strings.Join(parts, ", "))
}
