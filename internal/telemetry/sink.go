package telemetry

import (
	"context"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Sink turns build events into spans and metric points.
type Sink struct {
	t *Telemetry

	mu       sync.Mutex
	buildCtx context.Context
	build    trace.Span
	tasks    map[string]trace.Span
}

var _ events.Sink = (*Sink)(nil)

// Sink returns an events.Sink recording into t.
func (t *Telemetry) Sink() *Sink {
	return &Sink{t: t, buildCtx: context.Background(), tasks: make(map[string]trace.Span)}
}

// Publish records e.
func (s *Sink) Publish(ctx context.Context, e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Kind {
	case events.BuildStarted:
		s.buildCtx, s.build = s.t.tracer.Start(context.Background(), "build",
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(attribute.String("build.id", e.BuildID)))
	case events.TaskStarted:
		_, span := s.t.tracer.Start(s.buildCtx, e.Task,
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(attribute.String("task.path", e.Task)))
		s.tasks[e.Task] = span
	case events.TaskFinished:
		span, ok := s.tasks[e.Task]
		if !ok {
			_, span = s.t.tracer.Start(s.buildCtx, e.Task,
				trace.WithTimestamp(e.Time),
				trace.WithAttributes(attribute.String("task.path", e.Task)))
		}
		delete(s.tasks, e.Task)
		span.SetAttributes(attribute.String("task.outcome", e.Outcome))
		if e.Error != "" {
			span.SetStatus(codes.Error, e.Error)
		}
		span.End(trace.WithTimestamp(e.Time))

		outcome := metric.WithAttributes(attribute.String("outcome", e.Outcome))
		s.t.taskCounter.Add(ctx, 1, outcome)
		if ok {
			s.t.taskDuration.Record(ctx, e.Duration.Seconds(), outcome)
		}
	case events.ResourceContention:
		if span, ok := s.tasks[e.Task]; ok {
			span.AddEvent("resource contention", trace.WithAttributes(attribute.String("resource", e.Resource)))
		} else if s.build != nil {
			s.build.AddEvent("resource contention", trace.WithAttributes(
				attribute.String("task.path", e.Task),
				attribute.String("resource", e.Resource)))
		}
	case events.EdgeDropped:
		if s.build != nil {
			s.build.AddEvent("edge dropped", trace.WithAttributes(attribute.String("edge", e.Message)))
		}
	case events.BuildFinished:
		s.t.buildTime.Add(ctx, e.Duration.Seconds(), metric.WithAttributes(attribute.String("status", e.Outcome)))
		if s.build != nil {
			s.build.SetAttributes(attribute.String("build.status", e.Outcome))
			s.build.End(trace.WithTimestamp(e.Time))
			s.build = nil
		}
	}
}

// Close ends any span left open by an interrupted build.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, span := range s.tasks {
		span.End()
		delete(s.tasks, id)
	}
	if s.build != nil {
		s.build.End()
		s.build = nil
	}
	return nil
}
