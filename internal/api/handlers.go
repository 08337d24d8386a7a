// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package api

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/netsentry/internal/analytics"
	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/database"
	"github.com/tomtom215/netsentry/internal/detection"
	"github.com/tomtom215/netsentry/internal/devices"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/models"
	"github.com/tomtom215/netsentry/internal/pipeline"
	"github.com/tomtom215/netsentry/internal/websocket"
	"github.com/tomtom215/netsentry/internal/window"
)

// serverVersion identifies the API build in health payloads.
const serverVersion = "1.0.0"

// Deps bundles the subsystems the HTTP surface reads from. Every field is
// required except DB, History, and Notifications, which may be nil when
// persistence is disabled; the corresponding endpoints then answer 503.
type Deps struct {
	DB            *database.DB
	Pipeline      *pipeline.Pipeline
	Window        *window.Store
	Engine        *detection.Engine
	History       detection.AnomalyStore
	Notifications detection.NotificationStore
	Devices       *devices.Registry
	Analytics     *analytics.Builder
	Hub           *websocket.Hub
}

// Handler processes HTTP requests for the realtime, device, simulation,
// and health endpoints.
type Handler struct {
	cfg       *config.Config
	db        *database.DB
	pipe      *pipeline.Pipeline
	window    *window.Store
	engine    *detection.Engine
	history   detection.AnomalyStore
	notifs    detection.NotificationStore
	devices   *devices.Registry
	analytics *analytics.Builder
	hub       *websocket.Hub
	startTime time.Time
}

// NewHandler creates the API handler over the live pipeline components.
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	return &Handler{
		cfg:       cfg,
		db:        deps.DB,
		pipe:      deps.Pipeline,
		window:    deps.Window,
		engine:    deps.Engine,
		history:   deps.History,
		notifs:    deps.Notifications,
		devices:   deps.Devices,
		analytics: deps.Analytics,
		hub:       deps.Hub,
		startTime: time.Now(),
	}
}

// Health handles comprehensive health check requests. Reports degraded when
// the database is unreachable or the classifier stream has fallen back to
// polling; neither takes the service out of rotation on its own.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	mode := "classifier"
	if h.cfg != nil && h.cfg.Simulator.Enabled {
		mode = "simulation"
	}

	status := "healthy"
	classifierDegraded := false
	if h.pipe != nil {
		if cs := h.pipe.Status().Classifier; cs != nil && cs.Degraded {
			classifierDegraded = true
		}
	}
	if !dbConnected || classifierDegraded {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"status":              status,
			"mode":                mode,
			"version":             serverVersion,
			"database_connected":  dbConnected,
			"classifier_degraded": classifierDegraded,
			"uptime":              time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 200 OK only when the database answers pings and the hub loop is
// accepting subscribers. A degraded classifier does not block readiness;
// the polling fallback still serves events.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	hubRunning := h.hub != nil && h.hub.Running()
	ready := dbConnected && hubRunning

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"database_connected": dbConnected,
			"hub_running":        hubRunning,
			"ready_to_serve":     ready,
			"uptime":             time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// WebSocket upgrades the connection and registers it with the hub. The
// subscriber receives its initial_data snapshot and then the live stream.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil || !h.hub.Running() {
		logging.Warn().Msg("WebSocket connection rejected: hub not running")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	subscriber := websocket.NewSubscriber(h.hub, conn)
	h.hub.Register <- subscriber
	subscriber.Start()
}

func (h *Handler) getUpgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Non-browser subscribers (collectors, probes) omit the Origin header;
	// the origin check only applies to browser contexts.
	if origin == "" {
		return true
	}

	// If config is nil, allow by default (fail open for tests/development)
	if h.cfg == nil {
		return true
	}

	for _, allowedOrigin := range h.cfg.Server.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	// Origin not in allowed list - sanitize origin to prevent log injection
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
