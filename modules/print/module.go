package print

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments of a `print` action block.
type Input struct {
	Message string            `hcl:"message,optional"`
	Values  map[string]string `hcl:"values,optional"`
}

// Print writes the message and the sorted values to the task's stdout.
func Print(ctx context.Context, ec *task.ExecContext, input *Input) error {
	ctxlog.FromContext(ctx).Debug("Printing message", "task", ec.Task.String())

	if input.Message != "" {
		if _, err := fmt.Fprintf(ec.Stdout, "%s\n", input.Message); err != nil {
			return err
		}
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Values))
	for k := range input.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(ec.Stdout, "      %s = %q\n", k, input.Values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("print", registry.Decoded(Print))
}
