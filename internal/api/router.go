// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/authz"
	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/ingest"
	"github.com/tomtom215/newswire/internal/intake"
	"github.com/tomtom215/newswire/internal/middleware"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
	ws "github.com/tomtom215/newswire/internal/websocket"
)

// RawPublisher pushes raw items onto the ingestion bus.
type RawPublisher interface {
	PublishRawItems(ctx context.Context, items []*models.RawItem) (int, error)
}

// BatchProcessor runs raw items through the pipeline synchronously.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, items []*models.RawItem) ingest.BatchResult
}

// SeenChecker answers whether a fingerprint is already recorded.
type SeenChecker interface {
	Seen(ctx context.Context, fp string) bool
}

// HealthCheck reports the health of one dependency. A nil error is healthy.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Config   *config.Config
	Store    store.Store
	Intake   *intake.Service
	Engine   *ws.Engine
	Tokens   *auth.TokenManager
	Enforcer *authz.Enforcer
	// Ingest may be nil, in which case queued POST /admin/ingest is unavailable.
	Ingest RawPublisher
	// Batch may be nil, in which case POST /admin/ingest?mode=sync is unavailable.
	Batch BatchProcessor
	// Dedup may be nil, in which case GET /admin/dedup is unavailable.
	Dedup SeenChecker
	// Checks are reported by GET /health, keyed by component name.
	Checks map[string]HealthCheck
}

// Router holds the handlers and builds the chi mux.
type Router struct {
	deps      Deps
	chi       *ChiMiddleware
	authn     *auth.Middleware
	authz     *authz.Middleware
	startTime time.Time
}

// NewRouter validates deps and creates the router.
func NewRouter(deps Deps) (*Router, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("api: config is required")
	case deps.Store == nil, deps.Intake == nil, deps.Engine == nil:
		return nil, errors.New("api: store, intake and engine are required")
	case deps.Tokens == nil, deps.Enforcer == nil:
		return nil, errors.New("api: token manager and enforcer are required")
	}

	return &Router{
		deps:      deps,
		chi:       NewChiMiddleware(ChiMiddlewareConfigFrom(&deps.Config.Security)),
		authn:     auth.NewMiddleware(deps.Tokens),
		authz:     authz.NewMiddleware(deps.Enforcer),
		startTime: time.Now(),
	}, nil
}

// Handler builds the route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.chi.CORS())
	r.Use(middleware.Metrics)

	r.Get("/health", rt.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.With(rt.authn.Authenticate).Get("/ws", rt.Stream)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.chi.RateLimit())
		r.Use(middleware.Compression)
		r.Use(rt.authn.Authenticate)
		r.Use(rt.authz.Authorize)

		r.Get("/channels", rt.ListChannels)
		r.Get("/stats", rt.Stats)

		r.Route("/subscribers", func(r chi.Router) {
			r.Post("/", rt.CreateSubscriber)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(requireOwner)
				r.Get("/", rt.GetSubscriber)
				r.Put("/channels", rt.UpdateSubscriberChannels)
				r.Post("/deposit", rt.Deposit)
				r.Post("/withdraw", rt.Withdraw)
				r.Post("/deactivate", rt.DeactivateSubscriber)
				r.Post("/reactivate", rt.ReactivateSubscriber)
				r.Get("/receipts", rt.SubscriberReceipts)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", rt.ListAlerts)
			r.Post("/publish", rt.PublishAlert)
			r.Get("/{id}/verify", rt.VerifyAlert)
		})

		r.Post("/publishers", rt.RegisterPublisher)
		r.Post("/publishers/self/withdraw-stake", rt.WithdrawStake)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/publishers/{id}", rt.GetPublisher)
			r.Post("/publishers/{id}/status", rt.SetPublisherStatus)
			r.Post("/publishers/{id}/slash", rt.SlashPublisher)
			r.Post("/ingest", rt.Ingest)
			r.Get("/dedup", rt.DedupStatus)
			r.Post("/alerts/dedupe", rt.DedupeAlerts)
		})
	})

	return r
}

// requireOwner rejects subscriber tokens for another subscriber's id.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.SubjectFrom(r.Context()).Owns(chi.URLParam(r, "id")) {
			respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "token does not grant access to this subscriber", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
