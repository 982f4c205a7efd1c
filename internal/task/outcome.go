package task

// Outcome represents the execution state of a task within a single run.
type Outcome int32

const (
	// Pending is the initial state of every task in the plan.
	Pending Outcome = iota
	// Executing means a worker is running the task's actions.
	Executing
	// Success means every action returned without error.
	Success
	// Failed means an action reported or raised a failure.
	Failed
	// UpToDate means the stored fingerprint matched and no action ran.
	UpToDate
	// NoSource means the task declared inputs but none currently exist.
	NoSource
	// Skipped means the task was never attempted: the run halted first, or
	// the task is a finalizer whose finalized task did not execute.
	Skipped
	// SkippedUpstreamFailure means a predecessor failed or was itself skipped
	// for that reason.
	SkippedUpstreamFailure
)

var outcomeNames = map[Outcome]string{
	Pending:                "PENDING",
	Executing:              "EXECUTING",
	Success:                "SUCCESS",
	Failed:                 "FAILED",
	UpToDate:               "UP_TO_DATE",
	NoSource:               "NO_SOURCE",
	Skipped:                "SKIPPED",
	SkippedUpstreamFailure: "SKIPPED_DUE_TO_UPSTREAM_FAILURE",
}

// String returns the report name of the outcome.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsTerminal reports whether the outcome is final for the run.
func (o Outcome) IsTerminal() bool {
	return o != Pending && o != Executing
}

// SatisfiesDependents reports whether dependents of a task with this outcome
// may run. A failed or upstream-skipped task blocks its dependents, while a
// task that was simply never attempted leaves them to the halt logic.
func (o Outcome) SatisfiesDependents() bool {
	switch o {
	case Success, UpToDate, NoSource, Skipped:
		return true
	default:
		return false
	}
}

// Executed reports whether the task's actions actually ran.
func (o Outcome) Executed() bool {
	return o == Success || o == Failed
}

// CanTransition reports whether from -> to is an allowed state change.
func CanTransition(from, to Outcome) bool {
	switch from {
	case Pending:
		switch to {
		case Executing, UpToDate, NoSource, Skipped, SkippedUpstreamFailure:
			return true
		}
	case Executing:
		return to == Success || to == Failed
	}
	return false
}
