package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// RecordInput defines the arguments of a `record` action block.
type RecordInput struct {
	// ID names the execution in the recorder. Defaults to the task path.
	ID    string `hcl:"id,optional"`
	Sleep string `hcl:"sleep,optional"`
	Fail  string `hcl:"fail,optional"`
	Panic bool   `hcl:"panic,optional"`
	// WriteOutputs creates every declared output file once the action ran.
	WriteOutputs bool `hcl:"write_outputs,optional"`
}

// RecorderModule registers the `record` action, which reports to Recorder.
type RecorderModule struct {
	Recorder *ActionRecorder
}

// Register implements registry.Module.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterAction("record", registry.Decoded(m.run))
}

func (m *RecorderModule) run(ctx context.Context, ec *task.ExecContext, in *RecordInput) error {
	id := in.ID
	if id == "" {
		id = ec.Task.String()
	}

	var action task.Action
	switch {
	case in.Panic:
		action = m.Recorder.Panicking(id)
	case in.Fail != "":
		action = m.Recorder.Failing(id, errors.New(in.Fail))
	default:
		var d time.Duration
		if in.Sleep != "" {
			var err error
			if d, err = time.ParseDuration(in.Sleep); err != nil {
				return fmt.Errorf("invalid sleep: %w", err)
			}
		}
		action = m.Recorder.Sleeper(id, d)
	}
	if err := action.Execute(ctx, ec); err != nil {
		return err
	}

	if !in.WriteOutputs {
		return nil
	}
	for _, out := range ec.Outputs {
		path := out
		if !filepath.IsAbs(path) {
			path = filepath.Join(ec.WorkDir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(ec.Task.String()), 0o644); err != nil {
			return err
		}
	}
	return nil
}
