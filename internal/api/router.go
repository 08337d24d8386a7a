// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/netsentry/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler, so the shared middleware package works
// with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router sets up HTTP routes using Chi.
type Router struct {
	handler    *Handler
	middleware *Middleware
	perfMon    *middleware.PerformanceMonitor
}

// NewRouter creates a router over the given handler and middleware factory.
func NewRouter(handler *Handler, m *Middleware) *Router {
	if m == nil {
		m = NewMiddleware(nil)
	}
	return &Router{
		handler:    handler,
		middleware: m,
		perfMon:    middleware.NewPerformanceMonitor(1000), // keep last 1000 requests
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	// Applied to ALL routes in order
	r.Use(RequestIDWithLogging())   // Add X-Request-ID header with logging context
	r.Use(chimiddleware.RealIP)     // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)  // Recover from panics
	r.Use(router.middleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// ========================
	// Health Endpoints
	// ========================
	// Permissive rate limiting (1000/min): orchestrator probes are frequent
	r.Route("/health", func(r chi.Router) {
		r.Use(router.middleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// Realtime Read Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.perfMon.Middleware)
		r.Use(chiMiddleware(middleware.Compression))

		r.Route("/realtime", func(r chi.Router) {
			r.Get("/data", router.handler.RealtimeData)
			r.Get("/status", router.handler.RealtimeStatus)
			r.Get("/anomalies", router.handler.RealtimeAnomalies)
			r.Get("/anomalies/history", router.handler.RealtimeAnomalyHistory)
			r.Get("/notifications", router.handler.RealtimeNotifications)
			r.Get("/timeline", router.handler.RealtimeTimeline)
			r.Get("/graph", router.handler.RealtimeGraph)
		})

		r.Get("/devices", router.handler.Devices)
	})

	// ========================
	// WebSocket Endpoint
	// ========================
	// No response-wrapping middleware here: the upgrade needs the raw
	// http.Hijacker. The hub records its own per-message metrics.
	r.With(router.middleware.RateLimitWebSocket()).Get("/api/v1/ws", router.handler.WebSocket)

	// ========================
	// Simulation Control Endpoints
	// ========================
	// Strict rate limiting (30/min): these mutate pipeline state
	r.Route("/api/v1/simulation", func(r chi.Router) {
		r.Use(router.middleware.RateLimitControl())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/start", router.handler.SimulationStart)
		r.Post("/stop", router.handler.SimulationStop)
		r.Post("/pause", router.handler.SimulationPause)
		r.Post("/resume", router.handler.SimulationResume)
		r.Post("/reset", router.handler.SimulationReset)
		r.Post("/speed", router.handler.SimulationSpeed)
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// PerformanceMonitor exposes the request performance monitor for tests and
// diagnostics.
func (router *Router) PerformanceMonitor() *middleware.PerformanceMonitor {
	return router.perfMon
}
