package cli

import (
	"context"
	"errors"

	"github.com/specialistvlad/buildgridgo/internal/app"
	"github.com/specialistvlad/buildgridgo/internal/builder"
	"github.com/specialistvlad/buildgridgo/internal/coordinator"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitCancelled = 130
)

// ResultError converts a finished build into an error carrying its exit code.
// A nil or successful result yields nil.
func ResultError(res *coordinator.Result) error {
	if res == nil {
		return nil
	}
	switch res.Status {
	case coordinator.Failed:
		return &ExitError{Code: ExitFailure, Message: res.Summary(), Err: res.Err()}
	case coordinator.Cancelled:
		return &ExitError{Code: ExitCancelled, Message: res.Summary(), Err: res.Err()}
	default:
		return nil
	}
}

// ExitCode maps an error returned by the application to a process exit code.
// Invalid build files and invalid task graphs are usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var graphErr *builder.GraphError
	switch {
	case errors.As(err, &graphErr), errors.Is(err, app.ErrLoad):
		return ExitUsage
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	default:
		return ExitFailure
	}
}
