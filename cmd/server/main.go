// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/netsentry/internal/analytics"
	"github.com/tomtom215/netsentry/internal/api"
	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/database"
	"github.com/tomtom215/netsentry/internal/detection"
	"github.com/tomtom215/netsentry/internal/devices"
	"github.com/tomtom215/netsentry/internal/eventprocessor"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/models"
	"github.com/tomtom215/netsentry/internal/notify"
	"github.com/tomtom215/netsentry/internal/pipeline"
	"github.com/tomtom215/netsentry/internal/supervisor"
	"github.com/tomtom215/netsentry/internal/supervisor/services"
	ws "github.com/tomtom215/netsentry/internal/websocket"
	"github.com/tomtom215/netsentry/internal/window"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting NetSentry with supervisor tree")

	if cfg.Simulator.Enabled {
		logging.Info().
			Int("dataset_size", cfg.Simulator.DatasetSize).
			Float64("playback_speed", cfg.Simulator.PlaybackSpeed).
			Str("db_path", cfg.Database.Path).
			Msg("Configuration loaded (simulation mode)")
	} else {
		logging.Info().
			Str("classifier_url", cfg.Classifier.URL).
			Str("stream_url", cfg.Classifier.StreamURL).
			Str("db_path", cfg.Database.Path).
			Msg("Configuration loaded (classifier mode)")
	}

	// Initialize DuckDB for anomaly and notification history
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", db.Path()).Msg("Database initialized successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// History persistence. A schema failure degrades the history endpoints
	// rather than blocking ingestion: the pipeline and live fan-out keep
	// running from memory.
	var history detection.AnomalyStore
	var notifications detection.NotificationStore
	store := detection.NewDuckDBStore(db.Conn())
	if err := store.InitSchema(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to initialize history schema, continuing without persistence")
	} else {
		history = store
		notifications = store
		logging.Info().Msg("Anomaly history schema ready")
	}

	// Rolling window of recent events
	win, err := window.New(cfg.Window.Capacity, cfg.Window.MaxAge())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create rolling window")
	}

	// Detection engine with the three aggregate detectors
	engine := detection.NewEngine(history)
	engine.RegisterDetector(detection.NewAttackDetector())
	engine.RegisterDetector(detection.NewDDoSDetector(cfg.Detection.DDoSThreshold))
	engine.RegisterDetector(detection.NewVolumeSpikeDetector(cfg.Detection.VolumeSpikeThreshold))

	limiter := notify.NewLimiter(cfg.Notify)

	// WebSocket hub for live fan-out (created before the registry so
	// device updates have somewhere to go)
	hub := ws.NewHub(cfg.Broadcast)

	registry := devices.NewRegistry(0, func(device models.Device) {
		hub.BroadcastDeviceUpdate(&device)
	})

	// Optional notification mirror (requires build with -tags nats)
	var mirror pipeline.Mirror
	if cfg.NATS.Enabled {
		m, err := eventprocessor.NewMirror(cfg.NATS)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize notification mirror")
		}
		defer func() {
			if err := m.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing notification mirror")
			}
		}()
		mirror = m
		if m.Enabled() {
			logging.Info().
				Str("url", cfg.NATS.URL).
				Str("subject", cfg.NATS.Subject).
				Msg("Notification mirror enabled")
		} else {
			logging.Warn().Msg("NATS_ENABLED=true but binary was built without -tags nats, mirror disabled")
		}
	}

	// Assemble the producer path. Construction fails fast on invalid
	// source settings.
	pipe, err := pipeline.New(cfg, pipeline.Components{
		Window:        win,
		Engine:        engine,
		Limiter:       limiter,
		Hub:           hub,
		Devices:       registry,
		Notifications: notifications,
		Mirror:        mirror,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to assemble pipeline")
	}

	builder, err := analytics.NewBuilder(win)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create analytics builder")
	}

	handler := api.NewHandler(cfg, api.Deps{
		DB:            db,
		Pipeline:      pipe,
		Window:        win,
		Engine:        engine,
		History:       history,
		Notifications: notifications,
		Devices:       registry,
		Analytics:     builder,
		Hub:           hub,
	})

	router := api.NewRouter(handler, api.NewMiddlewareFromServer(&cfg.Server))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create structured logger for the supervisor using the slog adapter.
	// This bridges zerolog to slog for sutureslog compatibility.
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Data layer: the producer loop, plus the playback source driving it
	// in simulation mode. Playback starts idle; the control API starts it.
	tree.AddDataService(services.NewPipelineService(pipe))
	if sim := pipe.Simulator(); sim != nil {
		tree.AddDataService(services.NewSimulatorService(sim))
		logging.Info().Msg("Pipeline and simulator added to supervisor tree")
	} else {
		logging.Info().Msg("Pipeline added to supervisor tree")
	}

	// Messaging layer
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	logging.Info().Msg("WebSocket hub added to supervisor tree")

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("NetSentry stopped gracefully")
}
