// Package localsession provides a concrete implementation of the
// session.Session and session.SessionFactory interfaces for local, in-process
// execution.
package localsession

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/specialistvlad/buildgridgo/internal/builder"
	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/evaluator"
	"github.com/specialistvlad/buildgridgo/internal/events"
	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
	"github.com/specialistvlad/buildgridgo/internal/graph"
	"github.com/specialistvlad/buildgridgo/internal/inmemorystore"
	"github.com/specialistvlad/buildgridgo/internal/inmemorytopology"
	"github.com/specialistvlad/buildgridgo/internal/localexecutor"
	"github.com/specialistvlad/buildgridgo/internal/plan"
	"github.com/specialistvlad/buildgridgo/internal/session"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// SessionFactory implements session.SessionFactory for local runs. The
// factory's store and sink are handed to every session it creates; closing
// the session closes them.
type SessionFactory struct {
	Store     fingerprint.Store
	Sink      events.Sink
	Resources map[string]int
	// RerunAll forces every task to execute.
	RerunAll          bool
	CleanStaleOutputs bool
	Stdout            io.Writer
}

var _ session.SessionFactory = (*SessionFactory)(nil)

// NewSession creates and configures a new local session.
func (f *SessionFactory) NewSession(ctx context.Context, decls []task.Declaration) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("localsession.SessionFactory.NewSession called", "tasks", len(decls))

	if f.Store == nil {
		return nil, errors.New("local session requires a fingerprint store")
	}
	sink := f.Sink
	if sink == nil {
		sink = events.Discard{}
	}
	return &Session{factory: f, decls: decls, sink: sink}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	factory *SessionFactory
	decls   []task.Declaration
	sink    events.Sink
}

// Plan builds the plan on a fresh graph. Each build gets its own task
// records, so outcomes never leak between runs.
func (s *Session) Plan(ctx context.Context, req session.Request) (*plan.Plan, error) {
	g := graph.New(inmemorytopology.New(), inmemorystore.New())
	b := builder.New(g)
	p, err := b.Build(ctx, s.decls, req.Requested,
		builder.WithExcluded(req.Excluded...),
		builder.WithResources(s.factory.Resources),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}
	return p, nil
}

// Execute plans and runs one build under a fresh build id.
func (s *Session) Execute(ctx context.Context, req session.Request) (*coordinator.Result, error) {
	buildID := uuid.NewString()
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("buildID", buildID))

	p, err := s.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	eval := evaluator.New(s.factory.Store, evaluator.Options{
		RerunAll:          s.factory.RerunAll,
		CleanStaleOutputs: s.factory.CleanStaleOutputs,
		BuildID:           buildID,
	})
	exec, err := localexecutor.New(eval, s.sink, localexecutor.Options{
		Parallelism:       req.Parallelism,
		ContinueOnFailure: req.ContinueOnFailure,
		BuildID:           buildID,
		Stdout:            s.factory.Stdout,
	})
	if err != nil {
		return nil, err
	}
	return exec.Run(ctx, p)
}

// Close closes the fingerprint store and the event sink.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Closing local session.")
	return errors.Join(s.factory.Store.Close(), s.sink.Close())
}
