// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package detection aggregates classified network events into attack
// anomalies using stateful detectors that scan the rolling event window.
//
// Detection Architecture:
//
//	Event Window -> Detection Engine -> Anomaly -> Notification Limiter
//	                  |                   |
//	                  v                   v
//	            Detectors           WebSocket Broadcast
//
// The engine runs its detectors against a snapshot of the rolling window
// after every ingested event. Detectors carry state between scans so that
// an anomaly already reported for the current window contents is not
// emitted again on the next scan.
//
// Detectors:
//   - Attack Detection: one anomaly per classified attack event, emitted
//     exactly once per event regardless of how many scans observe it
//   - Flood Detection: per-source anomaly when a single source IP
//     accumulates attack events past a threshold, re-emitted only while
//     the count keeps growing
//   - Volume Spike: single anomaly when the aggregate attack count in
//     the window crosses a threshold
//
// Anomalies are persisted to DuckDB for historical queries and retained
// in a bounded in-memory ring for snapshot delivery to new subscribers.
package detection
