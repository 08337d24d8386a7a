// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package pipeline is the single producer path tying the system together.
//
// Flow:
//
//	Simulator ─┐
//	Stream ────┼─> Submit ─> intake queue ─> Ingest ─> Window.Append
//	Poller ────┘                                │
//	                                            ├─> classification broadcast
//	                                            ├─> device registry
//	                                            ├─> Engine.Scan ─> new_alert broadcasts
//	                                            └─> Limiter.Process ─> notification
//	                                                 (persist, broadcast, mirror)
//
// One goroutine consumes the intake queue, so window appends, detector
// scans, and limiter decisions happen strictly in arrival order. A
// subscriber always receives an event's classification before any alert
// derived from it.
//
// Sources never block: the intake queue drops (and counts) records when
// the consumer falls behind, and the broadcaster applies its own
// backpressure policy per subscriber downstream.
//
// The pipeline also owns the classifier degradation handoff. When the
// stream client exhausts its reconnect budget it signals the loop, which
// emits one switched-to-polling notification and starts the pull poller.
package pipeline
