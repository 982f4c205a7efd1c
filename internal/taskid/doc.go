// internal/taskid/doc.go

/*
Package taskid provides a structured representation for task identifiers,
based on the canonical colon-separated path format.

A path names the owning project chain followed by the task name, e.g.
`:compile` for a task in the root project or `:lib:core:compile` for a task in
project `:lib:core`. A reference without a leading colon is relative and is
resolved against the project of the task that declares it.

This package centralizes all formatting, parsing and resolution logic so that
the graph builder and the fingerprint stores agree on one stable key per task.
*/
package taskid
