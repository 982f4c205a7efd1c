// Package scheduler decides which planned tasks may start.
//
// # Why Scheduler Exists
//
// The scheduler separates "what can run" from "how to run it". Workers in the
// executor pull tasks with Next and report back with Complete; everything in
// between (readiness, exclusive resources, skip propagation, halting) lives
// here, behind a single mutex.
//
// # How It Works
//
// Every plan node starts with a count of unfinished predecessors. When a
// node reaches a terminal outcome, the counts of its dependents and followers
// drop. A node whose count reaches zero settles into one of:
//
//   - SkippedUpstreamFailure, when a dependsOn predecessor failed or was
//     itself skipped for that reason
//   - Skipped, when it is only in the plan as a finalizer and none of the
//     tasks it finalizes executed
//   - Skipped, when the run is halted and it does not finalize an executed task
//   - ready otherwise
//
// Ready nodes are handed out in plan order. A ready node whose exclusive
// resource is at capacity waits; that contention is reported, never an error.
package scheduler
