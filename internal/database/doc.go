// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package database manages the DuckDB connection backing anomaly and
// notification history.
//
// The hot path never touches this package: ingest, aggregation, and
// broadcast all work off the in-memory rolling window. DuckDB holds only
// the durable trail the history API reads, so the connection is tuned for
// a modest write rate and analytical reads.
//
// Connection Pool Configuration:
//   - MaxOpenConns: Based on CPU count for parallelism
//   - MaxIdleConns: 2 for efficient connection reuse
//   - ConnMaxLifetime: 1 hour to prevent stale connections
//   - ConnMaxIdleTime: 5 minutes for idle connection cleanup
//
// Schema creation lives with the stores that own the tables; this package
// only opens, pings, checkpoints, and closes.
package database
