// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/newswire/internal/logging"
)

// HTTPServer is the lifecycle of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server under supervision. On cancellation
// it shuts the server down within shutdownTimeout.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. A non-positive timeout means 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string { return "http-server" }

// Runner is a component that runs once until ctx is canceled, such as the
// event bus router.
type Runner interface {
	Run(ctx context.Context) error
	Close() error
	String() string
}

// RunnerService adapts a Runner. A runner cannot be restarted, so if it
// stops on its own the whole tree is terminated.
type RunnerService struct {
	runner Runner
}

// NewRunnerService wraps r.
func NewRunnerService(r Runner) *RunnerService {
	return &RunnerService{runner: r}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if closeErr := s.runner.Close(); closeErr != nil {
		logging.Warn().Err(closeErr).Str("component", s.runner.String()).Msg("Close failed")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	logging.Error().Err(err).Str("component", s.runner.String()).Msg("Runner stopped unexpectedly")
	return suture.ErrTerminateSupervisorTree
}

func (s *RunnerService) String() string { return s.runner.String() }

// GarbageCollector is a store with periodic value-log GC.
type GarbageCollector interface {
	RunGC() error
}

// GCService calls RunGC on an interval.
type GCService struct {
	name     string
	gc       GarbageCollector
	interval time.Duration
}

// NewGCService creates a GC loop. A non-positive interval means 10m.
func NewGCService(name string, gc GarbageCollector, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{name: name, gc: gc, interval: interval}
}

// Serve implements suture.Service.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.gc.RunGC(); err != nil {
				logging.Warn().Err(err).Str("component", g.name).Msg("Garbage collection failed")
			}
		}
	}
}

func (g *GCService) String() string { return g.name }
