// Package exec runs an external command as a task action.
package exec

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments of an `exec` action block.
type Input struct {
	Command string            `hcl:"command"`
	Args    []string          `hcl:"args,optional"`
	Dir     string            `hcl:"dir,optional"`
	Env     map[string]string `hcl:"env,optional"`
}

// Run starts the command and waits for it. A non-zero exit status fails the
// action. Cancelling ctx kills the process.
func Run(ctx context.Context, ec *task.ExecContext, input *Input) error {
	dir := ec.WorkDir
	if input.Dir != "" {
		dir = input.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(ec.WorkDir, dir)
		}
	}
	logger := ctxlog.FromContext(ctx).With("command", input.Command, "dir", dir)
	logger.Debug("Running command", "args", input.Args)

	cmd := osexec.CommandContext(ctx, input.Command, input.Args...)
	cmd.Dir = dir
	cmd.Stdout = ec.Stdout
	cmd.Stderr = ec.Stdout
	if len(input.Env) > 0 {
		cmd.Env = os.Environ()
		keys := make([]string, 0, len(input.Env))
		for k := range input.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+input.Env[k])
		}
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", input.Command, err)
	}
	logger.Debug("Command finished")
	return nil
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("exec", registry.Decoded(Run))
}
