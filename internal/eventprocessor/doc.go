// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package eventprocessor mirrors emitted notifications to NATS JetStream
// for consumers outside the WebSocket fan-out.
//
// The mirror is optional twice over: it compiles to a disabled no-op
// unless the binary is built with -tags=nats, and even then it only runs
// when nats.enabled is set. Delivery is best effort behind a circuit
// breaker; a down broker degrades to logging and never slows the
// pipeline.
//
// Messages carry the notification JSON with the notification ID as
// Nats-Msg-Id, letting JetStream deduplicate redeliveries inside the
// stream's duplicate window.
package eventprocessor
