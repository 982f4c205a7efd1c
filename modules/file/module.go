// Package file provides write, copy and delete file operations as a task
// action.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments of a `file` action block.
type Input struct {
	Op      string `hcl:"op"`
	Path    string `hcl:"path"`
	Content string `hcl:"content,optional"`
	Source  string `hcl:"source,optional"`
}

// Run applies the operation. Relative paths resolve against the task's
// working directory.
func Run(ctx context.Context, ec *task.ExecContext, input *Input) error {
	path := resolve(ec.WorkDir, input.Path)
	logger := ctxlog.FromContext(ctx).With("op", input.Op, "path", path)

	switch input.Op {
	case "write":
		logger.Debug("Writing file")
		return write(path, func(w io.Writer) error {
			_, err := io.WriteString(w, input.Content)
			return err
		})
	case "copy":
		if input.Source == "" {
			return fmt.Errorf("file copy requires a source")
		}
		src := resolve(ec.WorkDir, input.Source)
		logger.Debug("Copying file", "source", src)
		in, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("failed to open source file '%s': %w", src, err)
		}
		defer in.Close()
		return write(path, func(w io.Writer) error {
			_, err := io.Copy(w, in)
			return err
		})
	case "delete":
		logger.Debug("Deleting path")
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to delete '%s': %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported file op %q, expected write, copy or delete", input.Op)
	}
}

func write(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return f.Close()
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("file", registry.Decoded(Run))
}
