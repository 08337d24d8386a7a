// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

/*
Package supervisor provides process supervision for NetSentry using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running services in the application. It provides
Erlang/OTP-style supervision with automatic restart and failure isolation.

# Overview

The supervisor tree organizes services into three layers:

	RootSupervisor ("netsentry")
	├── DataSupervisor ("data-layer")
	│   ├── PipelineService
	│   └── SimulatorService (simulator mode only)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

This hierarchy ensures that:
  - A crash in the producer path restarts ingestion without dropping
    WebSocket subscribers
  - A hub restart does not stall ingestion; the rolling window keeps
    filling and the next initial_data snapshot reflects it
  - The API layer restarts independently of both

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

# Usage Example

Basic setup in main.go:

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddDataService(services.NewPipelineService(pipe))
	if sim := pipe.Simulator(); sim != nil {
	    tree.AddDataService(services.NewSimulatorService(sim))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	// Blocks until the context is canceled.
	if err := tree.Serve(ctx); err != nil {
	    log.Printf("Supervisor stopped: %v", err)
	}

Background operation:

	errCh := tree.ServeBackground(ctx)
	// ... remaining setup ...
	if err := <-errCh; err != nil {
	    log.Printf("Supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,              // Failures before backoff
	    FailureDecay:     30.0,             // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Zero values take suture's production defaults (5 failures, 30s decay,
15s backoff, 10s shutdown).

# Failure Handling

The supervisor uses a failure counter with exponential decay:

 1. Each service failure increments the counter
 2. The counter decays exponentially over FailureDecay seconds
 3. When the counter exceeds FailureThreshold, the supervisor enters backoff
 4. During backoff, restarts are delayed by FailureBackoff

A single crash restarts immediately. Five crashes in ten seconds trigger
the backoff delay. A service that crashes once and then runs stable for a
minute is back to a near-zero counter.

# Service Interface

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: service stopped cleanly, will not be restarted
  - Return error: service crashed, will be restarted
  - Context canceled: shutdown requested, return promptly

# What Is NOT Supervised

The DuckDB anomaly store is intentionally not supervised. It is an embedded
library whose connections are owned by the database package; a crash there
would require a process restart anyway.

The NATS mirror (build tag nats) is a publisher handle with no serve loop.
The composition root opens it at boot and closes it after the tree stops.

Classifier stream and poller goroutines are owned by the pipeline and
restart with it.

# Debugging Shutdown Issues

If services don't stop within the timeout:

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc)
	}

Common causes are goroutines that ignore context cancellation and network
I/O without deadlines.

# Thread Safety

The SupervisorTree is safe for concurrent use. Services can be added from
any goroutine and multiple services can crash simultaneously.

# See Also

  - internal/supervisor/services: Service wrappers
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
