// Package executor defines the interface for the task execution engine.
package executor

import (
	"context"

	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/plan"
)

// Executor runs an execution plan to completion. It manages concurrency,
// pulls ready tasks from the scheduler and reports every outcome.
//
// Run returns an error only when the run itself could not be carried out;
// task failures and cancellation are reported through the result.
type Executor interface {
	Run(ctx context.Context, p *plan.Plan) (*coordinator.Result, error)
}
