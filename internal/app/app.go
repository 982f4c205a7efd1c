package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/events"
	"github.com/specialistvlad/buildgridgo/internal/localsession"
	"github.com/specialistvlad/buildgridgo/internal/model"
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/internal/session"
	"github.com/specialistvlad/buildgridgo/internal/socketioevents"
	"github.com/specialistvlad/buildgridgo/internal/telemetry"
)

// ErrLoad marks failures to read, parse or resolve the build files.
var ErrLoad = errors.New("failed to load build files")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	workspace  *model.Workspace
	session    session.Session
	telemetry  *telemetry.Telemetry
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the build
// files, resolves their actions against the registered modules and opens the
// fingerprint store. With no modules given, the core modules are used.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	var tel *telemetry.Telemetry
	var extra []slog.Handler
	if cfg.Telemetry.Enabled {
		var err error
		tel, err = telemetry.Setup(ctx, os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to set up telemetry: %w", err)
		}
		extra = append(extra, tel.Handler())
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, outW, extra...)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{ctx: ctx, outW: outW, logger: logger, config: cfg, telemetry: tel}
	if err := a.load(ctx, modules); err != nil {
		if tel != nil {
			err = errors.Join(err, tel.Shutdown(ctx))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) load(ctx context.Context, modules []registry.Module) error {
	if len(modules) == 0 {
		modules = coreModules
	}
	a.registry = registry.New(modules...)
	a.logger.Debug("All Go modules registered.", "count", len(modules), "actions", a.registry.Types())

	ws, err := model.LoadWorkspace(ctx, a.config.BuildPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	a.workspace = ws
	decls, err := ws.Declarations(a.registry)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	a.logger.Info("Build files loaded.", "files", len(ws.Files), "tasks", len(decls))

	store, err := openStore(ctx, a.config)
	if err != nil {
		return fmt.Errorf("failed to open fingerprint store: %w", err)
	}
	a.logger.Debug("Fingerprint store opened.", "backend", a.config.Store.Backend)

	factory := &localsession.SessionFactory{
		Store:             store,
		Sink:              a.sinks(ctx),
		Resources:         a.config.Resources,
		RerunAll:          a.config.Build.RerunTasks,
		CleanStaleOutputs: a.config.Build.CleanStaleOutputs,
		Stdout:            a.outW,
	}
	sess, err := factory.NewSession(ctx, decls)
	if err != nil {
		return errors.Join(err, store.Close())
	}
	a.session = sess
	return nil
}

// sinks assembles the event sinks. Live event publishing is best effort: a
// server that cannot be reached is logged and skipped.
func (a *App) sinks(ctx context.Context) events.Sink {
	sinks := []events.Sink{events.LogSink{}}
	if url := a.config.Events.SocketIOURL; url != "" {
		sink, err := socketioevents.New(ctx, socketioevents.DialOptions{
			URL:       url,
			Namespace: a.config.Events.Namespace,
		}, a.config.Events.Event)
		if err != nil {
			a.logger.Warn("Live build events disabled.", "url", url, "error", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if a.telemetry != nil {
		sinks = append(sinks, a.telemetry.Sink())
	}
	return events.NewMulti(sinks...)
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Workspace returns the loaded build files.
func (a *App) Workspace() *model.Workspace {
	return a.workspace
}

// Close releases the session and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Close(ctx))
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
