// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package app assembles the Newswire components from configuration. An App
// is built once by main and owns every store, service and connection.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/newswire/internal/api"
	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/authz"
	"github.com/tomtom215/newswire/internal/bus"
	"github.com/tomtom215/newswire/internal/classify"
	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/database"
	"github.com/tomtom215/newswire/internal/dedup"
	"github.com/tomtom215/newswire/internal/ingest"
	"github.com/tomtom215/newswire/internal/intake"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/store"
	"github.com/tomtom215/newswire/internal/supervisor"
	ws "github.com/tomtom215/newswire/internal/websocket"
)

// App holds the assembled components.
type App struct {
	Config   *config.Config
	Store    store.Store
	Dedup    *dedup.Deduplicator
	Bus      *bus.Bus
	Pipeline *ingest.Pipeline
	Intake   *intake.Service
	Engine   *ws.Engine
	Poller   *ingest.Poller
	Tokens   *auth.TokenManager
	Enforcer *authz.Enforcer
	Router   *api.Router

	server  *http.Server
	closers []func() error
}

// New builds every component. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.Store, err = openStore(cfg); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	if a.Dedup, err = dedup.NewFromConfig(&cfg.Dedup); err != nil {
		return nil, fmt.Errorf("dedup: %w", err)
	}
	a.closers = append(a.closers, a.Dedup.Close)

	classifier, err := classify.NewFromConfig(&cfg.Ingest)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	if a.Bus, err = bus.New(ctx, &cfg.Bus); err != nil {
		return nil, fmt.Errorf("bus: %w", err)
	}
	a.closers = append(a.closers, a.Bus.Close)

	a.Pipeline = ingest.NewPipeline(ingest.PipelineDeps{
		Dedup:      a.Dedup,
		Classifier: classifier,
		Builder:    ingest.NewBuilder(a.Store),
		Emitter:    a.Bus,
	})

	if a.Intake, err = intake.New(&cfg.Intake, a.Store, a.Store, a.Pipeline); err != nil {
		return nil, fmt.Errorf("intake: %w", err)
	}

	if a.Engine, err = ws.New(&cfg.Distribution, &cfg.Pricing, ws.Deps{
		Alerts:      a.Store,
		Subscribers: a.Store,
		Receipts:    a.Store,
		Credits:     a.Intake,
	}); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	a.Bus.HandleRawItems("ingest-pipeline", a.Pipeline.HandleRawItem)
	a.Bus.HandleAlerts("distribution-engine", a.Engine.HandleAlert)

	sources, err := ingest.ParseFeeds(cfg.Ingest.Feeds, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("feeds: %w", err)
	}
	if len(sources) > 0 {
		a.Poller = ingest.NewPoller(sources, a.Bus, cfg.Ingest.PollInterval)
	}

	if a.Tokens, err = auth.NewTokenManager(&cfg.Security); err != nil {
		return nil, fmt.Errorf("tokens: %w", err)
	}
	if a.Enforcer, err = authz.NewEnforcer(authz.EnforcerConfig{
		PolicyPath: cfg.Security.PolicyPath,
		CacheTTL:   time.Minute,
	}); err != nil {
		return nil, fmt.Errorf("authz: %w", err)
	}
	a.closers = append(a.closers, func() error { a.Enforcer.Close(); return nil })

	if a.Router, err = api.NewRouter(api.Deps{
		Config:   cfg,
		Store:    a.Store,
		Intake:   a.Intake,
		Engine:   a.Engine,
		Tokens:   a.Tokens,
		Enforcer: a.Enforcer,
		Ingest:   a.Bus,
		Batch:    a.Pipeline,
		Dedup:    a.Dedup,
		Checks:   a.healthChecks(),
	}); err != nil {
		return nil, err
	}

	a.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           a.Router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	logging.Info().
		Str("database", cfg.Database.Backend).
		Str("bus", cfg.Bus.Backend).
		Str("price_per_alert", a.Engine.Price().String()).
		Int("feeds", len(sources)).
		Msg("Components initialized")
	return a, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Backend {
	case config.BackendMemory:
		logging.Warn().Msg("Using the in-memory store; all state is lost on restart")
		return store.NewMemory(), nil
	default:
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return db, nil
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"bus": func(context.Context) error {
			select {
			case <-a.Bus.Running():
				return nil
			default:
				return errors.New("router is not running")
			}
		},
	}
	if p, ok := a.Store.(pinger); ok {
		checks["database"] = p.Ping
	}
	return checks
}

// Handler returns the HTTP handler without starting the server.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Supervise adds every long-lived component to tree.
func (a *App) Supervise(tree *supervisor.Tree) {
	tree.AddIngestionService(supervisor.NewRunnerService(a.Bus))
	if a.Poller != nil {
		tree.AddIngestionService(a.Poller)
	}
	if gc, ok := a.Dedup.Persistent().(supervisor.GarbageCollector); ok {
		tree.AddIngestionService(supervisor.NewGCService("dedup-gc", gc, 10*time.Minute))
	}

	tree.AddDistributionService(a.Engine)
	tree.AddDistributionService(a.Intake)

	tree.AddAPIService(supervisor.NewHTTPServerService(a.server, 10*time.Second))
}

// Run supervises the app until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	a.Supervise(tree)

	logging.Info().Str("addr", a.server.Addr).Msg("Newswire listening")
	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
