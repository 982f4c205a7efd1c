package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/app"
	"github.com/specialistvlad/buildgridgo/internal/builder"
	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestParse_HelpAndUsage(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "help flag", args: []string{"-h"}},
		{name: "no build path", args: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}

			cfg, shouldExit, err := Parse(tc.args, out)

			require.NoError(t, err)
			assert.True(t, shouldExit)
			assert.Nil(t, cfg)
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	// --- Arrange ---
	dir := buildDir(t, nil)

	// --- Act ---
	cfg, shouldExit, err := Parse([]string{"-x", "lint", "-x", ":docs", dir, "build", ":app:test"}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, dir, cfg.BuildPath)
	assert.Equal(t, []string{"build", ":app:test"}, cfg.Requested)
	assert.Equal(t, []string{"lint", ":docs"}, cfg.Excluded)
	assert.Equal(t, 4, cfg.Build.Parallelism)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.False(t, cfg.DryRun)
}

func TestParse_Precedence(t *testing.T) {
	// --- Arrange ---
	dir := buildDir(t, map[string]string{
		app.DefaultConfigFile: "[build]\nparallelism = 8\ncontinue = true\n\n[log]\nlevel = \"warn\"\n\n[store]\nbackend = \"file\"\npath = \"fp\"\n",
		".env":                "BUILDGRID_PARALLELISM=6\nBUILDGRID_LOG_FORMAT=json\n",
	})
	t.Setenv("BUILDGRID_STORE_BACKEND", "memory")

	// --- Act ---
	cfg, _, err := Parse([]string{"-parallelism", "2", "-log-level", "debug", dir}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Build.Parallelism, "explicit flag beats .env and TOML")
	assert.True(t, cfg.Build.Continue, "TOML beats defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, ".env beats defaults")
	assert.Equal(t, "memory", cfg.Store.Backend, "process env beats TOML")
}

func TestParse_UnsetFlagsDoNotOverride(t *testing.T) {
	dir := buildDir(t, map[string]string{
		app.DefaultConfigFile: "[log]\nformat = \"json\"\n",
	})

	cfg, _, err := Parse([]string{dir}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_BooleanFlags(t *testing.T) {
	dir := buildDir(t, nil)

	cfg, _, err := Parse([]string{"-dry-run", "-rerun-tasks", "-continue", "-store", "memory", dir}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Build.RerunTasks)
	assert.True(t, cfg.Build.Continue)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestParse_Errors(t *testing.T) {
	dir := buildDir(t, nil)

	testCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"--bogus", dir}, want: "flag provided but not defined"},
		{name: "zero parallelism", args: []string{"-parallelism", "0", dir}, want: "parallelism must be at least 1"},
		{name: "bad log level", args: []string{"-log-level", "loud", dir}, want: "invalid log level"},
		{name: "missing explicit config", args: []string{"-config", filepath.Join(dir, "nope.toml"), dir}, want: "failed to read config file"},
		{name: "dry run with watch", args: []string{"-dry-run", "-watch", dir}, want: "cannot be combined"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, shouldExit, err := Parse(tc.args, &bytes.Buffer{})

			assert.Nil(t, cfg)
			assert.False(t, shouldExit)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, ExitUsage, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestResultError(t *testing.T) {
	failed := &coordinator.Result{
		Status:   coordinator.Failed,
		Outcomes: map[string]task.Outcome{":a": task.Failed},
		Failures: []coordinator.TaskFailure{{Task: ":a", Err: errors.New("boom")}},
	}

	assert.NoError(t, ResultError(nil))
	assert.NoError(t, ResultError(&coordinator.Result{Status: coordinator.AllSucceeded}))
	assert.Equal(t, ExitFailure, ExitCode(ResultError(failed)))
	assert.Equal(t, ExitCancelled, ExitCode(ResultError(&coordinator.Result{Status: coordinator.Cancelled, Cancelled: true})))
	assert.Contains(t, ResultError(failed).Error(), "BUILD FAILED")
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "exit error", err: &ExitError{Code: 7}, want: 7},
		{name: "graph error", err: fmt.Errorf("failed to build task graph: %w", &builder.GraphError{Kind: builder.ErrCircularDependency}), want: ExitUsage},
		{name: "load error", err: fmt.Errorf("%w: bad", app.ErrLoad), want: ExitUsage},
		{name: "cancelled", err: context.Canceled, want: ExitCancelled},
		{name: "other", err: errors.New("disk full"), want: ExitFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}
