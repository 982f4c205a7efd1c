// Package graph provides a unified, high-level interface for the task graph of
// one build invocation.
//
// # Why Graph Package Exists
//
// The Graph interface is a facade over two stores: the topology store holds
// tasks and their declared relations, the outcome store holds what happened
// to each task in this run. The builder, scheduler and executor talk to one
// interface and every outcome change goes through a validated transition on
// the task record before it is mirrored into the outcome store.
//
// # Lifecycle
//
//  1. Created by the session factory with both stores injected
//  2. Populated by the graph builder (tasks and edges added to topology)
//  3. Queried and updated during execution
//  4. Discarded when the session ends
package graph
