// Package evaluator decides whether a task has to run, from the stored
// fingerprint of its last successful execution and the current state of its
// inputs and outputs.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
	"github.com/specialistvlad/buildgridgo/internal/fsutil"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Verdict is the evaluator's classification of a task.
type Verdict int

const (
	// Execute means the task's actions must run.
	Execute Verdict = iota
	// UpToDate means the stored fingerprint matches the current state.
	UpToDate
	// NoSource means the task declares file inputs and none exist.
	NoSource
)

func (v Verdict) String() string {
	switch v {
	case Execute:
		return "EXECUTE"
	case UpToDate:
		return "UP_TO_DATE"
	case NoSource:
		return "NO_SOURCE"
	}
	return "UNKNOWN"
}

// Outcome maps a non-executing verdict to the task outcome it produces.
func (v Verdict) Outcome() task.Outcome {
	switch v {
	case UpToDate:
		return task.UpToDate
	case NoSource:
		return task.NoSource
	}
	return task.Executing
}

// Options configures an Evaluator.
type Options struct {
	// RerunAll forces every task to execute.
	RerunAll bool
	// CleanStaleOutputs removes the outputs of NO_SOURCE tasks.
	CleanStaleOutputs bool
	// BuildID is stamped into recorded fingerprints.
	BuildID string
}

// State is the result of evaluating one task.
type State struct {
	Verdict Verdict
	// Reasons explains an Execute verdict.
	Reasons []string
	// InputFiles are the resolved input files, relative to the task's
	// working directory.
	InputFiles []string
	// Current holds the freshly computed input side of the fingerprint.
	Current *fingerprint.Fingerprint
}

// Evaluator classifies tasks and records fingerprints. It is safe for
// concurrent use when its store is.
type Evaluator struct {
	store fingerprint.Store
	opts  Options
	now   func() time.Time
}

// New creates an evaluator backed by store.
func New(store fingerprint.Store, opts Options) *Evaluator {
	return &Evaluator{store: store, opts: opts, now: time.Now}
}

// Evaluate computes the current fingerprint of d's inputs and compares it,
// together with the current outputs, to the stored fingerprint. Errors are
// returned only for problems reading the task's own inputs; an unavailable
// store forces Execute.
func (e *Evaluator) Evaluate(ctx context.Context, d *task.Declaration) (*State, error) {
	logger := ctxlog.FromContext(ctx).With("task", d.Path.String())

	files, err := fsutil.ExpandPatterns(d.WorkDir, d.Inputs.Files)
	if err != nil {
		return nil, fmt.Errorf("resolving inputs of %s: %w", d.Path, err)
	}
	st := &State{InputFiles: files}
	if d.Inputs.Declared() && len(files) == 0 {
		st.Verdict = NoSource
		return st, nil
	}

	inputs, err := fingerprint.SnapshotInputs(d.WorkDir, files)
	if err != nil {
		return nil, err
	}
	props, err := fingerprint.HashProperties(d.Inputs.Properties)
	if err != nil {
		return nil, fmt.Errorf("hashing properties of %s: %w", d.Path, err)
	}
	st.Current = &fingerprint.Fingerprint{
		Task:           d.Path.String(),
		InputHash:      fingerprint.HashInputs(inputs, props, d.Outputs),
		Inputs:         inputs,
		PropertiesHash: props,
	}

	if e.opts.RerunAll {
		st.Reasons = []string{"rerun of all tasks was requested"}
		return st, nil
	}

	stored, err := e.store.Load(ctx, st.Current.Task)
	if errors.Is(err, fingerprint.ErrNotFound) {
		st.Reasons = []string{"no previous execution was recorded"}
		return st, nil
	}
	if err != nil {
		logger.Warn("Fingerprint store unavailable, task will execute.", "error", err)
		st.Reasons = []string{"stored fingerprint could not be read"}
		return st, nil
	}

	outputs, err := fingerprint.SnapshotOutputs(d.WorkDir, d.Outputs)
	if err != nil {
		return nil, err
	}
	st.Current.Outputs = outputs
	if missing := missingOutputs(outputs); len(missing) > 0 {
		for _, o := range missing {
			st.Reasons = append(st.Reasons, "output "+o+" is missing")
		}
		return st, nil
	}

	st.Reasons = stored.Diff(st.Current)
	if len(st.Reasons) == 0 {
		st.Verdict = UpToDate
	}
	return st, nil
}

// missingOutputs lists, sorted, the declared outputs that do not exist.
func missingOutputs(outputs map[string]fingerprint.FileSnapshot) []string {
	var missing []string
	for path, snap := range outputs {
		if snap.Missing {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)
	return missing
}

// Record snapshots d's outputs after a successful execution and saves the
// fingerprint. It must not be called for failed executions.
func (e *Evaluator) Record(ctx context.Context, d *task.Declaration, st *State) error {
	if st == nil || st.Current == nil {
		return fmt.Errorf("no evaluated state for %s", d.Path)
	}
	outputs, err := fingerprint.SnapshotOutputs(d.WorkDir, d.Outputs)
	if err != nil {
		return err
	}
	fp := *st.Current
	fp.Outputs = outputs
	fp.BuildID = e.opts.BuildID
	fp.Timestamp = e.now().UTC()
	if err := e.store.Save(ctx, &fp); err != nil {
		return fmt.Errorf("saving fingerprint of %s: %w", d.Path, err)
	}
	ctxlog.FromContext(ctx).Debug("Fingerprint recorded.", "task", d.Path.String(), "inputHash", fp.InputHash)
	return nil
}

// Clean handles a NO_SOURCE task: its stored fingerprint is dropped and, when
// the clean policy is on, its declared outputs are removed.
func (e *Evaluator) Clean(ctx context.Context, d *task.Declaration) error {
	logger := ctxlog.FromContext(ctx)
	if e.opts.CleanStaleOutputs {
		for _, o := range d.Outputs {
			path := o
			if !filepath.IsAbs(path) {
				path = filepath.Join(d.WorkDir, o)
			}
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("removing stale output %s of %s: %w", o, d.Path, err)
			}
			logger.Debug("Removed stale output.", "task", d.Path.String(), "output", o)
		}
	}
	if err := e.store.Delete(ctx, d.Path.String()); err != nil {
		logger.Warn("Failed to drop fingerprint of NO_SOURCE task.", "task", d.Path.String(), "error", err)
	}
	return nil
}
