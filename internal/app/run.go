package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/coordinator"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/session"
	"github.com/specialistvlad/buildgridgo/internal/watch"
)

// Run executes the configured build. In dry-run mode it prints the plan and
// returns a nil result. In watch mode it rebuilds after every relevant input
// change until ctx is cancelled and returns the last result.
func (a *App) Run(ctx context.Context) (*coordinator.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	switch {
	case a.config.DryRun:
		return nil, a.dryRun(ctx)
	case a.config.Watch:
		return a.watchLoop(ctx)
	default:
		return a.build(ctx)
	}
}

func (a *App) request() session.Request {
	return session.Request{
		Requested:         a.config.Requested,
		Excluded:          a.config.Excluded,
		Parallelism:       a.config.Build.Parallelism,
		ContinueOnFailure: a.config.Build.Continue,
	}
}

func (a *App) build(ctx context.Context) (*coordinator.Result, error) {
	a.logger.Info("🚀 Starting build...", "requested", a.config.Requested, "parallelism", a.config.Build.Parallelism)
	res, err := a.session.Execute(ctx, a.request())
	if err != nil {
		return nil, err
	}
	a.report(res)
	a.logger.Info("🏁 Build finished.", "status", res.Status.String(), "buildID", res.BuildID)
	return res, nil
}

// report prints the outcome of every task in plan order, the failures and
// the summary line.
func (a *App) report(res *coordinator.Result) {
	var sb strings.Builder
	for _, id := range res.Order {
		fmt.Fprintf(&sb, "> Task %s %s\n", id, res.Outcomes[id])
	}
	for _, f := range res.Failures {
		fmt.Fprintf(&sb, "\n* What went wrong:\n%s\n", f.Error())
	}
	if len(res.NotAttempted) > 0 {
		fmt.Fprintf(&sb, "\nNot attempted: %s\n", strings.Join(res.NotAttempted, ", "))
	}
	fmt.Fprintf(&sb, "\n%s\n", res.Summary())
	fmt.Fprint(a.outW, sb.String())
}

// dryRun prints the tasks that would run, in order, without running them.
func (a *App) dryRun(ctx context.Context) error {
	p, err := a.session.Plan(ctx, a.request())
	if err != nil {
		return err
	}
	var sb strings.Builder
	for _, id := range p.Order() {
		fmt.Fprintf(&sb, "%s SKIPPED\n", id)
	}
	for _, d := range p.Dropped {
		fmt.Fprintf(&sb, "warning: %s\n", d.String())
	}
	fmt.Fprintf(&sb, "\nDRY RUN: %d tasks planned\n", p.Len())
	fmt.Fprint(a.outW, sb.String())
	return nil
}

func (a *App) watchLoop(ctx context.Context) (*coordinator.Result, error) {
	var patterns []string
	for _, t := range a.workspace.Tasks {
		for _, f := range t.InputFiles {
			patterns = append(patterns, filepath.Join(t.Dir, filepath.FromSlash(f)))
		}
	}
	w, err := watch.New(ctx, a.workspace.InputDirs(), a.config.Watcher.Debounce, watch.UnderAny(patterns))
	if err != nil {
		return nil, err
	}
	defer w.Close()

	var last *coordinator.Result
	for {
		res, err := a.build(ctx)
		if err != nil {
			return last, err
		}
		last = res
		if ctx.Err() != nil {
			return last, nil
		}

		a.logger.Info("👀 Waiting for changes to input files...", "patterns", len(patterns))
		changed, err := w.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return last, nil
			}
			return last, err
		}
		a.logger.Info("🔁 Change detected, rebuilding.", "files", changed)
	}
}
