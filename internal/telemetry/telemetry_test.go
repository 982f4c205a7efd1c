package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func TestSink_ExportsSpansAndMetrics(t *testing.T) {
	// --- Arrange ---
	out := &lockedBuffer{}
	tel, err := Setup(context.Background(), out)
	require.NoError(t, err)
	sink := tel.Sink()
	now := time.Now()

	// --- Act ---
	sink.Publish(context.Background(), events.Event{Kind: events.BuildStarted, BuildID: "b-1", Time: now})
	sink.Publish(context.Background(), events.Event{Kind: events.TaskStarted, Task: ":compile", Time: now})
	sink.Publish(context.Background(), events.Event{Kind: events.TaskFinished, Task: ":compile", Outcome: "SUCCESS", Duration: time.Second, Time: now.Add(time.Second)})
	sink.Publish(context.Background(), events.Event{Kind: events.TaskFinished, Task: ":jar", Outcome: "UP_TO_DATE", Time: now.Add(time.Second)})
	sink.Publish(context.Background(), events.Event{Kind: events.BuildFinished, Outcome: "AllSucceeded", Duration: time.Second, Time: now.Add(2 * time.Second)})
	slog.New(tel.Handler()).Info("bridged log line")
	require.NoError(t, sink.Close())
	require.NoError(t, tel.Shutdown(context.Background()))

	// --- Assert ---
	exported := out.String()
	assert.Contains(t, exported, `":compile"`)
	assert.Contains(t, exported, `":jar"`)
	assert.Contains(t, exported, "buildgrid.tasks")
	assert.Contains(t, exported, "buildgrid.task.duration")
	assert.Contains(t, exported, "bridged log line")
}

func TestSink_CloseEndsOpenSpans(t *testing.T) {
	out := &lockedBuffer{}
	tel, err := Setup(context.Background(), out)
	require.NoError(t, err)
	sink := tel.Sink()

	sink.Publish(context.Background(), events.Event{Kind: events.BuildStarted, Time: time.Now()})
	sink.Publish(context.Background(), events.Event{Kind: events.TaskStarted, Task: ":interrupted", Time: time.Now()})
	require.NoError(t, sink.Close())
	require.NoError(t, tel.Shutdown(context.Background()))

	assert.Contains(t, out.String(), `":interrupted"`)
	assert.Empty(t, sink.tasks)
}
