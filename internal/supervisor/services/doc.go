// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

/*
Package services provides suture.Service wrappers for NetSentry components.

This package adapts application components to the suture v4 supervision
model, translating their native lifecycles (ListenAndServe, Run,
RunWithContext) into suture's context-aware Serve pattern.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

WebSocket Hub (WebSocketHubService):
  - Wraps websocket.Hub via RunWithContext
  - Subscriber cleanup happens inside the hub on shutdown

Event Pipeline (PipelineService):
  - Wraps the single producer loop (ingest, window, detection, fan-out)
  - A restart rebuilds the pipeline's source goroutines

Traffic Simulator (SimulatorService):
  - Wraps the dataset playback loop
  - Transport control state survives a restart, so playback resumes
    from the current position

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logger, config)

	tree.AddDataService(services.NewPipelineService(pipe))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	tree.Serve(ctx)

# Error Handling

Return values determine supervisor behavior:

	nil       -> service stopped cleanly, will not restart
	error     -> service crashed, supervisor will restart
	ctx.Err() -> shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer. Suture uses the name in log messages:

	INFO http-server: starting
	ERROR event-pipeline: restarting after failure

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
*/
package services
