package events

import (
	"context"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
)

// LogSink writes task events to the context logger.
type LogSink struct{}

// Publish implements Sink.
func (LogSink) Publish(ctx context.Context, e Event) {
	logger := ctxlog.FromContext(ctx)
	switch e.Kind {
	case TaskStarted:
		logger.Info("▶️ Task started.", "task", e.Task, "reasons", e.Reasons)
	case TaskFinished:
		if e.Error != "" {
			logger.Error("❌ Task finished.", "task", e.Task, "outcome", e.Outcome, "duration", e.Duration, "error", e.Error)
			return
		}
		logger.Info("✅ Task finished.", "task", e.Task, "outcome", e.Outcome, "duration", e.Duration)
	case ResourceContention:
		logger.Debug("Task waiting for exclusive resource.", "task", e.Task, "resource", e.Resource)
	case EdgeDropped:
		logger.Warn("Ordering edge dropped.", "diagnostic", e.Message)
	}
}

// Close implements Sink.
func (LogSink) Close() error { return nil }
