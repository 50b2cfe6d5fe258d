// Package main provides runtime wiring for research runs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vinayprograms/researcher/internal/agent"
	"github.com/vinayprograms/researcher/internal/citation"
	"github.com/vinayprograms/researcher/internal/config"
	"github.com/vinayprograms/researcher/internal/llm"
	"github.com/vinayprograms/researcher/internal/logging"
	"github.com/vinayprograms/researcher/internal/report"
	"github.com/vinayprograms/researcher/internal/research"
	"github.com/vinayprograms/researcher/internal/session"
	"github.com/vinayprograms/researcher/internal/telemetry"
	"github.com/vinayprograms/researcher/internal/tools"
)

// runOptions are per-run overrides from the command line.
type runOptions struct {
	NoSave bool
}

// runtime holds the components shared by research runs.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	// progress receives a short feed of run events when logs go to a file.
	progress io.Writer

	// Components
	factory  llm.ProviderFactory
	registry *tools.Registry
	sessions *session.Manager
	reports  *report.Writer

	// Storage
	storagePath string

	// Cleanup
	closers []func()
}

// newRuntime creates a runtime from loaded configuration.
func newRuntime(cfg *config.Config, logger *logging.Logger) *runtime {
	return &runtime{
		cfg:         cfg,
		logger:      logger,
		storagePath: config.ExpandPath(cfg.Storage.Path),
	}
}

// setup initializes all runtime components. Returns error on failure.
func (rt *runtime) setup(ctx context.Context) error {
	if err := os.MkdirAll(rt.storagePath, 0755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	if err := rt.setupTelemetry(ctx); err != nil {
		return err
	}
	if rt.factory == nil {
		rt.factory = llm.NewProfileFactory(rt.cfg.ProviderConfig(""), rt.cfg.ProviderConfigs())
	}
	if rt.registry == nil {
		rt.setupRegistry()
	}
	if err := rt.setupSessions(); err != nil {
		return err
	}
	rt.reports = report.NewWriter(rt.reportsDir())
	return nil
}

// setupTelemetry installs the tracer provider when enabled.
func (rt *runtime) setupTelemetry(ctx context.Context) error {
	t := rt.cfg.Telemetry
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Endpoint:    t.Endpoint,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating telemetry exporter: %w", err)
	}
	if t.Enabled {
		rt.logger.Info("tracing enabled", map[string]interface{}{"service": t.ServiceName})
	}
	rt.addCloser(func() { shutdown(context.Background()) })
	return nil
}

// setupRegistry creates the sub-agent tool registry.
func (rt *runtime) setupRegistry() {
	w := rt.cfg.Web
	rt.registry = tools.NewRegistry(
		tools.NewWebSearch(tools.SearchConfig{
			Provider:          w.SearchProvider,
			APIKey:            rt.cfg.GetSearchAPIKey(),
			MaxResults:        w.MaxResults,
			RequestsPerSecond: w.RequestsPerSecond,
			Timeout:           rt.cfg.WebSearchTimeout(),
		}),
		tools.NewWebFetch(tools.FetchConfig{
			MaxBytes: w.FetchMaxBytes,
			Timeout:  rt.cfg.WebFetchTimeout(),
		}),
	)
}

// setupSessions opens the configured session store.
func (rt *runtime) setupSessions() error {
	store, err := openStore(rt.cfg, rt.storagePath)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	rt.sessions = session.NewManager(store)
	rt.addCloser(func() { rt.sessions.Close() })
	return nil
}

// openStore returns the session store selected by storage.session_store, or
// nil when sessions are disabled.
func openStore(cfg *config.Config, storagePath string) (session.Store, error) {
	switch cfg.Storage.SessionStore {
	case "none":
		return nil, nil
	case "sqlite":
		store, err := session.NewSQLiteStore(filepath.Join(storagePath, "sessions.db"))
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		return store, nil
	default:
		store, err := session.NewFileStore(filepath.Join(storagePath, "sessions"))
		if err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
		return store, nil
	}
}

// reportsDir resolves storage.reports_dir; relative paths are kept relative
// to the working directory.
func (rt *runtime) reportsDir() string {
	return config.ExpandPath(rt.cfg.Storage.ReportsDir)
}

// provider resolves the LLM for an agent role.
func (rt *runtime) provider(role string) (llm.Provider, error) {
	p, err := rt.factory.ForProfile(role)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider for %s: %w", role, err)
	}
	return p, nil
}

// controller builds a research controller wired to the role providers.
func (rt *runtime) controller(cb research.Callbacks, logger *logging.Logger) (*research.Controller, error) {
	lead, err := rt.provider(agent.RoleLead)
	if err != nil {
		return nil, err
	}
	sub, err := rt.provider(agent.RoleSubAgent)
	if err != nil {
		return nil, err
	}

	var citer research.Citer = citation.Formatter{}
	if rt.cfg.Research.CitationMode != config.CitationLocal {
		cp, err := rt.provider(agent.RoleCitation)
		if err != nil {
			return nil, err
		}
		citer = agent.NewCiter(cp)
	}

	return &research.Controller{
		Planner:       agent.NewPlanner(lead),
		SubAgent:      agent.NewSubAgent(sub, rt.registry, rt.cfg.Research.MaxToolTurns),
		Citer:         citer,
		MaxIterations: rt.cfg.Research.MaxIterations,
		MaxParallel:   rt.cfg.Research.MaxParallel,
		Logger:        logger.WithComponent("research"),
		Callbacks:     cb,
	}, nil
}

// research runs one query end to end: records the session, runs the
// controller and saves the report.
func (rt *runtime) research(ctx context.Context, query string, opts runOptions) (research.Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "researcher.query")
	defer span.End()
	logger := rt.logger
	if id := telemetry.TraceID(ctx); id != "" {
		logger = logger.WithTraceID(id)
	}

	var rec *session.Recorder
	if rt.sessions != nil {
		var err error
		rec, err = rt.sessions.Start(query)
		if err != nil {
			return research.Result{}, fmt.Errorf("creating session: %w", err)
		}
		logger.Info("session started", map[string]interface{}{"session": rec.Session().ID})
	}

	var cb research.Callbacks
	if rec != nil {
		cb = rec.Callbacks()
	}
	if rt.progress != nil {
		cb = research.Chain(cb, progressCallbacks(rt.progress))
	}

	finish := func(res research.Result, runErr error) {
		if rec == nil {
			return
		}
		if err := rec.Finish(res, runErr); err != nil {
			logger.Warn("failed to save session", map[string]interface{}{"error": err.Error()})
		}
	}

	ctrl, err := rt.controller(cb, logger)
	if err != nil {
		finish(research.Result{}, err)
		return research.Result{}, err
	}

	toolLog := logger.WithComponent("tools")
	ctx = agent.WithToolHook(ctx, func(e agent.ToolEvent) {
		toolLog.ToolCall(e.Role, e.Tool, e.Err)
		if rec != nil {
			rec.ToolCall(e.Role, e.Tool, e.Args, e.Err)
		}
	})

	res, runErr := ctrl.Run(ctx, query)
	finish(res, runErr)
	if runErr != nil {
		return res, runErr
	}

	if !opts.NoSave {
		var ropts []report.Option
		if rec != nil {
			ropts = append(ropts, report.WithSession(rec.Session().ID))
		}
		ropts = append(ropts, report.WithIterations(res.Iterations))
		path, err := rt.reports.Save(query, res.Report, ropts...)
		if err != nil {
			logger.Warn("failed to save report", map[string]interface{}{"error": err.Error()})
		} else {
			logger.Info("report saved", map[string]interface{}{"path": path})
		}
	}
	return res, nil
}

// cleanup runs all registered cleanup functions.
func (rt *runtime) cleanup() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// addCloser registers a cleanup function.
func (rt *runtime) addCloser(fn func()) {
	rt.closers = append(rt.closers, fn)
}
