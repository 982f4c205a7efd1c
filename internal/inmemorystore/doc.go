// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the outcomestore.Store interface.
//
// # Concurrency Model
//
// Each worker writes only the records of the task it runs, so keys are
// independent and written once or twice per run. sync.Map fits that pattern
// without a global lock between workers.
package inmemorystore
