// Package task defines the unit of work the engine schedules: the immutable
// Declaration produced by configuration, the per-run Task record that carries
// its mutable outcome, and the opaque Action contract the worker pool invokes.
//
// # Outcome State Machine
//
//	Pending -> UpToDate | NoSource | Skipped | SkippedUpstreamFailure
//	Pending -> Executing -> Success | Failed
//
// Every state other than Pending and Executing is terminal for the run.
// Transitions are applied with a compare-and-swap, so a task can never be
// claimed by two workers or be skipped after it started executing.
package task
