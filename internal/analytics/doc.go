// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package analytics derives dashboard views from the rolling window.
//
// Two read-only queries are served:
//
//   - Timeline: attack events grouped into per-minute buckets over a
//     bounded lookback, newest bucket first. Only attack traffic counts;
//     each bucket carries totals by attack type and by severity.
//   - Graph: a node/edge view of the newest window events. Nodes are
//     endpoint addresses with attack/normal participation counts. Edges
//     aggregate flows per source/target/protocol triple, accumulating
//     packet counts and keeping the most severe attack observation.
//
// Both queries are pure derivations over window snapshots. Nothing here
// mutates the window or retains state between calls, so results always
// reflect the window at query time and builds are safe from any
// goroutine.
package analytics
