// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockService runs until canceled, optionally failing its first maxFails
// starts.
type mockService struct {
	name       string
	startCount atomic.Int32
	failCount  atomic.Int32
	maxFails   int32
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	if m.maxFails > 0 && m.failCount.Add(1) <= m.maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewTreeDefaults(t *testing.T) {
	tree, err := NewTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("Root() = nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
	}
}

func TestTreeStartsEveryLayer(t *testing.T) {
	tree, _ := NewTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	services := map[string]*mockService{
		"ingestion":    {name: "ingestion"},
		"distribution": {name: "distribution"},
		"api":          {name: "api"},
	}
	tree.AddIngestionService(services["ingestion"])
	tree.AddDistributionService(services["distribution"])
	tree.AddAPIService(services["api"])

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	for layer, svc := range services {
		if svc.startCount.Load() < 1 {
			t.Errorf("%s service was not started", layer)
		}
	}
}

func TestTreeRestartsFailingService(t *testing.T) {
	tree, _ := NewTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := &mockService{name: "failing", maxFails: 2}
	stable := &mockService{name: "stable"}
	tree.AddIngestionService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	errCh := tree.ServeBackground(ctx)
	<-errCh

	if got := failing.startCount.Load(); got < 3 {
		t.Errorf("failing service started %d times, want at least 3", got)
	}
	if got := stable.startCount.Load(); got != 1 {
		t.Errorf("stable service started %d times, want 1", got)
	}
}

type fakeRunner struct {
	stopEarly bool
	closed    atomic.Bool
}

func (f *fakeRunner) Run(ctx context.Context) error {
	if f.stopEarly {
		return errors.New("router closed")
	}
	<-ctx.Done()
	return nil
}

func (f *fakeRunner) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeRunner) String() string { return "fake-runner" }

func TestRunnerService(t *testing.T) {
	t.Run("canceled", func(t *testing.T) {
		r := &fakeRunner{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewRunnerService(r).Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
		if !r.closed.Load() {
			t.Error("runner was not closed")
		}
	})

	t.Run("stopping early terminates the tree", func(t *testing.T) {
		r := &fakeRunner{stopEarly: true}
		tree, _ := NewTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
		tree.AddIngestionService(NewRunnerService(r))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		select {
		case <-tree.ServeBackground(ctx):
		case <-ctx.Done():
			t.Fatal("tree kept running after the runner stopped")
		}
		if ctx.Err() != nil {
			t.Error("tree stopped only because of the deadline")
		}
	})
}

type mockHTTPServer struct {
	mu       sync.Mutex
	listen   error
	stop     chan struct{}
	shutdown int
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listen != nil {
		return m.listen
	}
	<-m.stop
	return nil
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown++
	close(m.stop)
	return nil
}

func TestHTTPServerService(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		srv := &mockHTTPServer{stop: make(chan struct{})}
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()
		time.Sleep(20 * time.Millisecond)
		cancel()

		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
		if srv.shutdown != 1 {
			t.Errorf("Shutdown called %d times", srv.shutdown)
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		srv := &mockHTTPServer{listen: errors.New("address already in use")}
		err := NewHTTPServerService(srv, 0).Serve(context.Background())
		if err == nil {
			t.Fatal("Serve() error = nil")
		}
	})
}

type countingGC struct{ runs atomic.Int32 }

func (c *countingGC) RunGC() error {
	c.runs.Add(1)
	return nil
}

func TestGCService(t *testing.T) {
	gc := &countingGC{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = NewGCService("dedup-gc", gc, 10*time.Millisecond).Serve(ctx)
	if gc.runs.Load() < 2 {
		t.Errorf("RunGC ran %d times", gc.runs.Load())
	}
}
