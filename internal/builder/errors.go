package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

var (
	// ErrCircularDependency reports a cycle in the task graph.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrUnknownTaskReference reports a relation or request naming a task
	// that does not exist.
	ErrUnknownTaskReference = errors.New("unknown task reference")
	// ErrDuplicateTask reports two declarations with the same path.
	ErrDuplicateTask = errors.New("duplicate task")
	// ErrInvalidDeclaration reports a malformed declaration.
	ErrInvalidDeclaration = errors.New("invalid task declaration")
)

// GraphError wraps deterministic graph construction failures.
type GraphError struct {
	Kind error
	Msg  string
	// Cycle is the closed walk of task paths for ErrCircularDependency,
	// first and last element equal, each task waiting for the next.
	Cycle []string
	// Edges are the declared relations forming Cycle.
	Edges []topologystore.Edge
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidDeclaration, Msg: fmt.Sprintf(format, args...)}
}

func unknownf(format string, args ...any) error {
	return &GraphError{Kind: ErrUnknownTaskReference, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string, edges []topologystore.Edge) error {
	return &GraphError{
		Kind:  ErrCircularDependency,
		Msg:   strings.Join(path, " -> ") + describeEdges(edges),
		Cycle: path,
		Edges: edges,
	}
}

func describeEdges(edges []topologystore.Edge) string {
	if len(edges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(edges))
	for _, e := range edges {
		parts = append(parts, fmt.Sprintf("%s %s %s", e.From, e.Kind, e.To))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
