package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/app"
	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/modules/exec"
	"github.com/specialistvlad/buildgridgo/modules/file"
	"github.com/specialistvlad/buildgridgo/modules/print"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Options tunes a harness run. The zero value runs every task with a
// parallelism of 4 against an in-memory fingerprint store.
type Options struct {
	Requested   []string
	Excluded    []string
	Parallelism int
	Continue    bool
	RerunTasks  bool
	DryRun      bool
	Resources   map[string]int
	// StoreBackend defaults to "memory". "file" and "sqlite" keep their
	// data under the test directory.
	StoreBackend string
	// Modules replaces the default modules: print, exec, file and a
	// RecorderModule backed by Recorder.
	Modules  []registry.Module
	Recorder *ActionRecorder
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Result    *coordinator.Result
	Err       error
	App       *app.App
	// Dir holds the build files.
	Dir string

	out *SafeBuffer
}

// Rerun executes the same build again on the same app, sharing its
// fingerprint store.
func (h *HarnessResult) Rerun(ctx context.Context) (*coordinator.Result, error) {
	if h.App == nil {
		return nil, fmt.Errorf("no app to rerun: %w", h.Err)
	}
	res, err := h.App.Run(ctx)
	h.LogOutput = h.out.String()
	return res, err
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, opts)
}

// RunIntegrationTestWithContext writes files into a temporary build
// directory, starts an app on it and runs the build once with ctx.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	cfg := app.DefaultConfig()
	cfg.BuildPath = dir
	cfg.Requested = opts.Requested
	cfg.Excluded = opts.Excluded
	cfg.DryRun = opts.DryRun
	cfg.Build.Continue = opts.Continue
	cfg.Build.RerunTasks = opts.RerunTasks
	cfg.Log.Level = "debug"
	if opts.Parallelism > 0 {
		cfg.Build.Parallelism = opts.Parallelism
	}
	if opts.Resources != nil {
		cfg.Resources = opts.Resources
	}
	cfg.Store.Backend = "memory"
	if opts.StoreBackend != "" {
		cfg.Store.Backend = opts.StoreBackend
	}
	cfg, err := app.NewConfig(*cfg)
	require.NoError(t, err)

	modules := opts.Modules
	if modules == nil {
		recorder := opts.Recorder
		if recorder == nil {
			recorder = NewActionRecorder()
		}
		modules = []registry.Module{&print.Module{}, &exec.Module{}, &file.Module{}, &RecorderModule{Recorder: recorder}}
	}

	out := &SafeBuffer{}
	h := &HarnessResult{Dir: dir, out: out}
	h.App, h.Err = app.NewApp(ctx, out, cfg, modules...)
	if h.Err == nil {
		t.Cleanup(func() { _ = h.App.Close(context.Background()) })
		h.Result, h.Err = h.App.Run(ctx)
	}
	h.LogOutput = out.String()

	if os.Getenv("BUILDGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.LogOutput)
	}
	return h
}
