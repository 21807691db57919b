// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/newswire/internal/logging"
)

const healthCheckTimeout = 3 * time.Second

// Health reports component status. Any failing check makes the service
// degraded and the status 503.
//
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=HealthResponse}
// @Failure 503 {object} APIResponse{data=HealthResponse}
// @Router /health [get]
func (rt *Router) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(rt.deps.Checks))
	for name := range rt.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:      "healthy",
		Components:  make(map[string]string, len(names)),
		Connections: rt.deps.Engine.ConnectionCount(),
		Uptime:      time.Since(rt.startTime).Seconds(),
	}
	for _, name := range names {
		if err := rt.deps.Checks[name](ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("component", name).Msg("Health check failed")
			resp.Components[name] = "unhealthy: " + err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, &APIResponse{Success: status == http.StatusOK, Data: resp, Meta: meta(r)})
}

// Stats combines the live engine counters with store totals.
//
// @Summary Protocol statistics
// @Tags Stats
// @Produce json
// @Success 200 {object} APIResponse{data=StatsResponse}
// @Router /stats [get]
func (rt *Router) Stats(w http.ResponseWriter, r *http.Request) {
	protocol, err := rt.deps.Store.Stats(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, StatsResponse{Engine: rt.deps.Engine.Stats(), Protocol: protocol})
}
