// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package websocket implements the subscription broadcaster: a hub that
// fans classified events, anomalies, notifications, and device updates out
// to WebSocket subscribers.
//
// Message flow:
//
//	Pipeline -> Hub.broadcast -> per-subscriber send queue -> writePump -> conn
//
// Every subscriber walks the lifecycle connecting -> open -> (draining) ->
// closed. Registration queues one initial_data snapshot before any live
// message, on the hub loop, so a subscriber can never observe an anomaly
// for an event it has not seen. A subscriber whose bounded queue fills is
// moved to draining alone: the hub coalesces its traffic down to the
// newest message and forcibly closes it if it has not caught up within the
// configured grace period. Publishing never blocks on subscriber I/O; a
// full hub channel drops the oldest queued message instead of stalling the
// ingest path.
//
// Wire format is {"type": ..., "data": ...} with types classification,
// new_alert, notification, device_update, and initial_data, plus
// application-level ping/pong.
package websocket
