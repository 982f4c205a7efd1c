package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
	"github.com/specialistvlad/buildgridgo/internal/inmemoryfingerprints"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// compileTask declares src/*.txt as input and build/out.txt as output.
func compileTask(dir string) *task.Declaration {
	return &task.Declaration{
		Path:    taskid.MustParse(":compile"),
		WorkDir: dir,
		Inputs:  task.Inputs{Files: []string{"src/*.txt"}},
		Outputs: []string{"build/out.txt"},
	}
}

// execute simulates a successful run: it writes the output and records.
func execute(t *testing.T, e *Evaluator, d *task.Declaration, content string) {
	t.Helper()
	st, err := e.Evaluate(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, Execute, st.Verdict)
	writeFile(t, filepath.Join(d.WorkDir, "build", "out.txt"), content)
	require.NoError(t, e.Record(context.Background(), d, st))
}

func verdict(t *testing.T, e *Evaluator, d *task.Declaration) *State {
	t.Helper()
	st, err := e.Evaluate(context.Background(), d)
	require.NoError(t, err)
	return st
}

func TestEvaluate_FirstRunThenUpToDate(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	d := compileTask(dir)
	e := New(inmemoryfingerprints.New(), Options{BuildID: "b1"})

	// --- Act ---
	first := verdict(t, e, d)
	execute(t, e, d, "out")
	second := verdict(t, e, d)

	// --- Assert ---
	assert.Equal(t, Execute, first.Verdict)
	assert.Equal(t, []string{"no previous execution was recorded"}, first.Reasons)
	assert.Equal(t, []string{"src/a.txt"}, first.InputFiles)
	assert.Equal(t, UpToDate, second.Verdict)
	assert.Empty(t, second.Reasons)
}

func TestEvaluate_ContentAddressedRoundTrip(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	input := filepath.Join(dir, "src", "a.txt")
	writeFile(t, input, "original")
	d := compileTask(dir)
	e := New(inmemoryfingerprints.New(), Options{})
	execute(t, e, d, "out")

	// --- Act & Assert ---
	writeFile(t, input, "modified")
	changed := verdict(t, e, d)
	assert.Equal(t, Execute, changed.Verdict)
	assert.Contains(t, changed.Reasons, "input file src/a.txt changed")

	writeFile(t, input, "original")
	assert.Equal(t, UpToDate, verdict(t, e, d).Verdict, "reverting content must make the task up to date again")
}

func TestEvaluate_OutputTampering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	d := compileTask(dir)
	e := New(inmemoryfingerprints.New(), Options{})
	execute(t, e, d, "out")

	writeFile(t, filepath.Join(dir, "build", "out.txt"), "edited by hand")
	st := verdict(t, e, d)
	assert.Equal(t, Execute, st.Verdict)
	assert.Contains(t, st.Reasons, "output file build/out.txt changed")

	require.NoError(t, os.Remove(filepath.Join(dir, "build", "out.txt")))
	removed := verdict(t, e, d)
	assert.Equal(t, Execute, removed.Verdict)
	assert.Equal(t, []string{"output build/out.txt is missing"}, removed.Reasons)
}

func TestEvaluate_NewInputFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	d := compileTask(dir)
	e := New(inmemoryfingerprints.New(), Options{})
	execute(t, e, d, "out")

	writeFile(t, filepath.Join(dir, "src", "b.txt"), "b")

	st := verdict(t, e, d)
	assert.Equal(t, Execute, st.Verdict)
	assert.Contains(t, st.Reasons, "input file src/b.txt changed")
}

func TestEvaluate_PropertyChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	d := compileTask(dir)
	d.Inputs.Properties = map[string]cty.Value{"target": cty.StringVal("17")}
	e := New(inmemoryfingerprints.New(), Options{})
	execute(t, e, d, "out")

	d.Inputs.Properties = map[string]cty.Value{"target": cty.StringVal("21")}

	st := verdict(t, e, d)
	assert.Equal(t, Execute, st.Verdict)
	assert.Contains(t, st.Reasons, "input properties changed")
}

func TestEvaluate_NoSourceAndClean(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	d := compileTask(dir)
	store := inmemoryfingerprints.New()
	e := New(store, Options{CleanStaleOutputs: true})
	execute(t, e, d, "out")
	require.NoError(t, os.Remove(filepath.Join(dir, "src", "a.txt")))

	// --- Act ---
	st := verdict(t, e, d)
	require.NoError(t, e.Clean(context.Background(), d))

	// --- Assert ---
	assert.Equal(t, NoSource, st.Verdict)
	assert.Equal(t, task.NoSource, st.Verdict.Outcome())
	assert.NoFileExists(t, filepath.Join(dir, "build", "out.txt"))
	assert.Equal(t, 0, store.Len())
}

func TestClean_KeepsOutputsWithoutPolicy(t *testing.T) {
	dir := t.TempDir()
	d := compileTask(dir)
	writeFile(t, filepath.Join(dir, "build", "out.txt"), "out")
	e := New(inmemoryfingerprints.New(), Options{})

	require.NoError(t, e.Clean(context.Background(), d))

	assert.FileExists(t, filepath.Join(dir, "build", "out.txt"))
}

func TestEvaluate_WithoutDeclaredIO(t *testing.T) {
	// --- Arrange ---
	d := &task.Declaration{Path: taskid.MustParse(":hello"), WorkDir: t.TempDir()}
	e := New(inmemoryfingerprints.New(), Options{})
	first := verdict(t, e, d)
	require.NoError(t, e.Record(context.Background(), d, first))

	// --- Act ---
	again := verdict(t, e, d)

	// --- Assert ---
	assert.Equal(t, Execute, first.Verdict)
	assert.Equal(t, UpToDate, again.Verdict)
	assert.Empty(t, again.Reasons)
}

func TestEvaluate_MissingOutputExecutes(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	d := compileTask(dir)
	d.Outputs = []string{"build/out.txt", "build/report.txt"}
	e := New(inmemoryfingerprints.New(), Options{})
	first := verdict(t, e, d)
	writeFile(t, filepath.Join(dir, "build", "out.txt"), "out")
	require.NoError(t, e.Record(context.Background(), d, first))

	// --- Act ---
	again := verdict(t, e, d)

	// --- Assert ---
	assert.Equal(t, Execute, again.Verdict)
	assert.Equal(t, []string{"output build/report.txt is missing"}, again.Reasons)
}

func TestEvaluate_RerunAllExecutes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	d := compileTask(dir)
	store := inmemoryfingerprints.New()
	execute(t, New(store, Options{}), d, "out")

	st := verdict(t, New(store, Options{RerunAll: true}), d)

	assert.Equal(t, Execute, st.Verdict)
	assert.Equal(t, []string{"rerun of all tasks was requested"}, st.Reasons)
}

type brokenStore struct {
	fingerprint.Store
}

func (brokenStore) Load(context.Context, string) (*fingerprint.Fingerprint, error) {
	return nil, errors.New("disk on fire")
}

func TestEvaluate_StoreErrorForcesExecute(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "build", "out.txt"), "out")
	e := New(brokenStore{Store: inmemoryfingerprints.New()}, Options{})

	st, err := e.Evaluate(context.Background(), compileTask(dir))

	require.NoError(t, err)
	assert.Equal(t, Execute, st.Verdict)
	assert.Equal(t, []string{"stored fingerprint could not be read"}, st.Reasons)
}

func TestRecord_RequiresEvaluatedState(t *testing.T) {
	e := New(inmemoryfingerprints.New(), Options{})
	err := e.Record(context.Background(), compileTask(t.TempDir()), &State{Verdict: NoSource})
	assert.Error(t, err)
}
