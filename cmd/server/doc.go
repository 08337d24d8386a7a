// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

/*
Package main is the entry point for the NetSentry server.

NetSentry ingests classified industrial network traffic, keeps a bounded
rolling window of recent events, aggregates attack patterns into anomalies,
rate-limits user-facing notifications, and fans everything out to WebSocket
subscribers with a REST snapshot fallback.

# Application Architecture

The server runs under a Suture v4 supervision tree:

	RootSupervisor ("netsentry")
	├── DataSupervisor ("data-layer")
	│   ├── PipelineService (ingest, window, detection, fan-out)
	│   └── SimulatorService (simulation mode only)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml, and environment
 2. Logging: zerolog with JSON or console output
 3. Database: DuckDB store for anomaly and notification history
 4. Core components: rolling window, detection engine, rate limiter,
    WebSocket hub, device registry
 5. Pipeline: single producer path tying the components together
 6. HTTP server: Chi router with the middleware stack
 7. Supervisor tree: services added per layer, then ServeBackground

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority
wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_HOST=0.0.0.0
	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Rolling window
	WINDOW_CAPACITY=500
	WINDOW_MAX_AGE_SECONDS=30

	# Detection thresholds
	DDOS_THRESHOLD=5
	VOLUME_SPIKE_THRESHOLD=20

	# Notifications
	RATE_LIMIT_SECONDS=10
	ALLOWED_SEVERITIES=high,critical

	# Event source (choose one)
	SIMULATOR_ENABLED=true       # built-in dataset playback
	CLASSIFIER_ENABLED=false     # external classifier stream
	CLASSIFIER_URL=http://classifier:9000
	CLASSIFIER_STREAM_URL=ws://classifier:9000/stream

	# Persistence
	DUCKDB_PATH=netsentry.db

# Simulation Mode

With SIMULATOR_ENABLED=true the server generates its own weighted synthetic
dataset and plays it back through the full pipeline. Playback starts idle;
drive it through the control API:

	curl -X POST http://localhost:8080/api/v1/simulation/start
	curl -X POST http://localhost:8080/api/v1/simulation/speed -d '{"speed": 2.0}'
	curl -X POST http://localhost:8080/api/v1/simulation/stop

# Build Tags

Optional build tags enable additional functionality:

	go build ./cmd/server              # Standard build
	go build -tags nats ./cmd/server   # Enable the NATS notification mirror

With the nats tag and NATS_ENABLED=true, emitted notifications are also
published to a JetStream subject for external consumers. Without the tag
the mirror is a disabled stub.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Closes WebSocket subscriber connections
 3. Waits for in-flight requests (10s timeout)
 4. Stops the pipeline and simulator loops
 5. Closes the notification mirror and database
 6. Reports any services that failed to stop

# Example Usage

Simulation mode (default, no external dependencies):

	./netsentry

Classifier mode:

	export SIMULATOR_ENABLED=false
	export CLASSIFIER_ENABLED=true
	export CLASSIFIER_URL=http://classifier:9000
	export CLASSIFIER_STREAM_URL=ws://classifier:9000/stream
	./netsentry

With the NATS mirror:

	export NATS_ENABLED=true
	export NATS_URL=nats://nats:4222
	./netsentry   # built with -tags nats
*/
package main
