// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface. The whole task graph of one build
// invocation lives in memory and is discarded with the session.
package inmemorytopology
