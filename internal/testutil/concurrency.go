package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/task"
)

// ActionRecorder is a shared, self-contained action factory for execution
// tests. It records when each task's action ran and how many ran at once.
type ActionRecorder struct {
	mu         sync.Mutex
	order      []string
	records    map[string]*ExecutionRecord
	running    int
	maxRunning int
	calls      map[string]int
}

// NewActionRecorder creates an empty recorder.
func NewActionRecorder() *ActionRecorder {
	return &ActionRecorder{
		records: make(map[string]*ExecutionRecord),
		calls:   make(map[string]int),
	}
}

// Sleeper returns an action that records its execution under id and sleeps
// for d, returning early with the context error on cancellation.
func (r *ActionRecorder) Sleeper(id string, d time.Duration) task.Action {
	return task.ActionFunc(func(ctx context.Context, _ *task.ExecContext) error {
		r.begin(id)
		defer r.end(id)
		if d <= 0 {
			return nil
		}
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Recording returns an action that only records its execution.
func (r *ActionRecorder) Recording(id string) task.Action {
	return r.Sleeper(id, 0)
}

// Failing returns an action that records its execution and fails with err.
func (r *ActionRecorder) Failing(id string, err error) task.Action {
	if err == nil {
		err = errors.New("simulated failure")
	}
	return task.ActionFunc(func(ctx context.Context, _ *task.ExecContext) error {
		r.begin(id)
		defer r.end(id)
		return err
	})
}

// Panicking returns an action that records its execution and panics.
func (r *ActionRecorder) Panicking(id string) task.Action {
	return task.ActionFunc(func(ctx context.Context, _ *task.ExecContext) error {
		r.begin(id)
		defer r.end(id)
		panic("simulated panic in " + id)
	})
}

func (r *ActionRecorder) begin(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
	r.records[id] = &ExecutionRecord{Start: time.Now()}
	r.calls[id]++
	r.running++
	r.maxRunning = max(r.maxRunning, r.running)
}

func (r *ActionRecorder) end(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].End = time.Now()
	r.running--
}

// Order returns the ids in the order their actions started.
func (r *ActionRecorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Record returns the last execution record of id, or nil.
func (r *ActionRecorder) Record(id string) *ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id]
}

// Calls returns how many times the action of id ran.
func (r *ActionRecorder) Calls(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

// MaxConcurrent returns the highest number of actions that ran at once.
func (r *ActionRecorder) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxRunning
}

// Reset forgets all recorded executions.
func (r *ActionRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.records = make(map[string]*ExecutionRecord)
	r.calls = make(map[string]int)
	r.running, r.maxRunning = 0, 0
}
