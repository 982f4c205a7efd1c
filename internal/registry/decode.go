package registry

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Decoded returns a factory that decodes the block body into a fresh T with
// gohcl and binds it to run. T must be a struct with hcl tags.
func Decoded[T any](run func(ctx context.Context, ec *task.ExecContext, in *T) error) Factory {
	return func(body hcl.Body, evalCtx *hcl.EvalContext) (task.Action, hcl.Diagnostics) {
		in := new(T)
		if diags := gohcl.DecodeBody(body, evalCtx, in); diags.HasErrors() {
			return nil, diags
		}
		return task.ActionFunc(func(ctx context.Context, ec *task.ExecContext) error {
			return run(ctx, ec, in)
		}), nil
	}
}
