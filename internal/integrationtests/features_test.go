package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/app"
	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjects_ResolveRelativeAndAbsoluteReferences(t *testing.T) {
	// --- Arrange ---
	rec := testutil.NewActionRecorder()
	files := map[string]string{
		"build.hcl": `
task "clean" {
  action "record" {}
}
`,
		"app.hcl": `
project "app" {
  dir = "app"

  task "generate" {
    action "record" {}
  }

  task "compile" {
    depends_on     = ["generate", ":libs:core:build"]
    must_run_after = [":clean"]
    action "record" {}
  }
}

project "libs:core" {
  task "build" {
    action "record" {}
  }
}
`,
	}

	// --- Act ---
	h := testutil.RunIntegrationTest(t, files, testutil.Options{
		Requested:   []string{"clean", ":app:compile"},
		Parallelism: 1,
		Recorder:    rec,
	})

	// --- Assert ---
	require.NoError(t, h.Err)
	order := h.Result.Order
	assert.ElementsMatch(t, []string{":clean", ":app:generate", ":libs:core:build", ":app:compile"}, order)
	assert.Equal(t, ":app:compile", order[len(order)-1])
	assert.Less(t, indexOf(order, ":clean"), indexOf(order, ":app:compile"))
}

func TestExclude_RemovesTaskAndExclusiveDependencies(t *testing.T) {
	rec := testutil.NewActionRecorder()
	files := map[string]string{"build.hcl": `
task "generate" {
  action "record" {}
}
task "compile" {
  depends_on = ["generate"]
  action "record" {}
}
task "lint" {
  action "record" {}
}
task "check" {
  depends_on = ["compile", "lint"]
  action "record" {}
}
`}

	h := testutil.RunIntegrationTest(t, files, testutil.Options{
		Requested: []string{"check"},
		Excluded:  []string{"compile"},
		Recorder:  rec,
	})

	require.NoError(t, h.Err)
	assert.ElementsMatch(t, []string{":lint", ":check"}, h.Result.Order)
	assert.Zero(t, rec.Calls(":generate"))
}

func TestContinue_RunsIndependentWork(t *testing.T) {
	files := map[string]string{"build.hcl": `
task "broken" {
  action "record" {
    fail = "boom"
  }
}
task "after" {
  depends_on = ["broken"]
  action "record" {}
}
task "independent" {
  action "record" {
    sleep = "50ms"
  }
}
`}

	h := testutil.RunIntegrationTest(t, files, testutil.Options{Continue: true, Parallelism: 1})

	require.NoError(t, h.Err)
	assert.Equal(t, coordinator.Failed, h.Result.Status)
	assert.Equal(t, task.Failed, h.Result.Outcomes[":broken"])
	assert.Equal(t, task.SkippedUpstreamFailure, h.Result.Outcomes[":after"])
	assert.Equal(t, task.Success, h.Result.Outcomes[":independent"])
	assert.Empty(t, h.Result.NotAttempted)
}

func TestFinalizer_RunsAfterFailedTask(t *testing.T) {
	rec := testutil.NewActionRecorder()
	files := map[string]string{"build.hcl": `
task "integration" {
  finalized_by = ["stopServer"]
  action "record" {
    fail = "tests failed"
  }
}
task "stopServer" {
  action "record" {}
}
`}

	h := testutil.RunIntegrationTest(t, files, testutil.Options{Requested: []string{"integration"}, Recorder: rec})

	require.NoError(t, h.Err)
	assert.Equal(t, task.Failed, h.Result.Outcomes[":integration"])
	assert.Equal(t, task.Success, h.Result.Outcomes[":stopServer"])
	assert.Equal(t, []string{":integration", ":stopServer"}, rec.Order())
}

func TestDryRun_PrintsPlanWithoutExecuting(t *testing.T) {
	rec := testutil.NewActionRecorder()

	h := testutil.RunIntegrationTest(t, map[string]string{"build.hcl": chainHCL}, testutil.Options{
		Requested: []string{"jar"},
		DryRun:    true,
		Recorder:  rec,
	})

	require.NoError(t, h.Err)
	assert.Nil(t, h.Result)
	assert.Contains(t, h.LogOutput, ":compile SKIPPED\n:test SKIPPED\n:jar SKIPPED\n")
	assert.Empty(t, rec.Order())
}

func TestNoSource_AndRerunTasks(t *testing.T) {
	rec := testutil.NewActionRecorder()
	files := map[string]string{
		"build.hcl": `
task "docs" {
  inputs {
    files = ["docs/*.md"]
  }
  outputs = ["build/docs"]
  action "record" {}
}
task "compile" {
  inputs {
    files = ["src"]
  }
  outputs = ["build/compile.out"]
  action "record" {
    write_outputs = true
  }
}
`,
		"src/a.go": "package a",
	}

	h := testutil.RunIntegrationTest(t, files, testutil.Options{RerunTasks: true, Recorder: rec})
	require.NoError(t, h.Err)
	rerun, err := h.Rerun(context.Background())

	require.NoError(t, err)
	assert.Equal(t, task.NoSource, h.Result.Outcomes[":docs"])
	assert.Zero(t, rec.Calls(":docs"))
	assert.Equal(t, task.Success, rerun.Outcomes[":compile"], "rerun-tasks ignores up-to-date checks")
	assert.Equal(t, 2, rec.Calls(":compile"))
}

func TestModifiedInput_ReexecutesOnlyAffectedTasks(t *testing.T) {
	rec := testutil.NewActionRecorder()
	files := map[string]string{
		"build.hcl":     chainHCL,
		"src/Main.java": "class Main {}",
	}
	h := testutil.RunIntegrationTest(t, files, testutil.Options{Requested: []string{"compile"}, Recorder: rec})
	require.NoError(t, h.Err)

	require.NoError(t, os.WriteFile(filepath.Join(h.Dir, "src/Main.java"), []byte("class Main { int x; }"), 0o644))
	rerun, err := h.Rerun(context.Background())

	require.NoError(t, err)
	assert.Equal(t, task.Success, rerun.Outcomes[":compile"])
	assert.Equal(t, 2, rec.Calls(":compile"))
}

func TestSQLiteStore_PersistsAcrossProcesses(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"build.hcl":     chainHCL,
		"src/Main.java": "class Main {}",
	}
	first := testutil.RunIntegrationTest(t, files, testutil.Options{StoreBackend: "sqlite", Requested: []string{"compile"}})
	require.NoError(t, first.Err)
	require.NoError(t, first.App.Close(context.Background()))

	cfg := app.DefaultConfig()
	cfg.BuildPath = first.Dir
	cfg.Requested = []string{"compile"}
	cfg.Log.Level = "error"
	cfg, err := app.NewConfig(*cfg)
	require.NoError(t, err)
	rec := testutil.NewActionRecorder()

	// --- Act ---
	second, err := app.NewApp(context.Background(), &testutil.SafeBuffer{}, cfg, &testutil.RecorderModule{Recorder: rec})
	require.NoError(t, err)
	defer second.Close(context.Background())
	res, err := second.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(first.Dir, ".buildgrid", "fingerprints.db"))
	assert.Equal(t, task.UpToDate, res.Outcomes[":compile"])
	assert.Zero(t, rec.Calls(":compile"))
}

func TestFileAndExecModules_Pipeline(t *testing.T) {
	files := map[string]string{"build.hcl": `
task "generate" {
  outputs = ["gen/version.txt"]
  action "file" {
    op      = "write"
    path    = "gen/version.txt"
    content = "1.2.3"
  }
}
task "package" {
  depends_on = ["generate"]
  inputs {
    files = ["gen/version.txt"]
  }
  outputs = ["dist/version.txt"]
  action "exec" {
    command = "sh"
    args    = ["-c", "mkdir -p dist && cp gen/version.txt dist/version.txt"]
  }
}
`}

	h := testutil.RunIntegrationTest(t, files, testutil.Options{})

	require.NoError(t, h.Err)
	assert.Equal(t, coordinator.AllSucceeded, h.Result.Status)
	got, err := os.ReadFile(filepath.Join(h.Dir, "dist", "version.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", string(got))
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
