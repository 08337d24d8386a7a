// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package ingest turns raw classified-traffic records into normalized
// events and provides every event source the pipeline can run on.
//
// Sources and flow:
//
//	Simulator ─────────┐
//	StreamClient ──────┼──> RawRecord ──> Adapter.Ingest ──> models.Event
//	Poller (degraded) ─┘
//
// The Adapter owns validation (required fields, confidence range),
// timestamp normalization to UTC, identifier and sequence assignment, and
// severity derivation. Malformed records produce a MalformedEventError,
// are counted and logged, and never halt a source.
//
// The StreamClient consumes the external classifier's WebSocket feed with
// a fixed-delay, capped reconnect policy. When the budget is exhausted it
// reports degradation exactly once and the Poller takes over, fetching
// recent records through a circuit-breaker-protected pull endpoint.
package ingest
