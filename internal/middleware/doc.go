// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

/*
Package middleware provides shared HTTP middleware for the API surface.

Three concerns live here:

  - Compression: gzip response bodies for clients that accept it, skipping
    WebSocket upgrades.
  - PrometheusMetrics: per-request instrumentation (active gauge, counters,
    duration histograms) feeding the /metrics endpoint.
  - PerformanceMonitor: a sliding window of recent request timings with
    percentile aggregation and slow-request logging.

Compression and PrometheusMetrics use the http.HandlerFunc middleware shape;
the api package adapts them to Chi's func(http.Handler) http.Handler with a
one-line shim. PerformanceMonitor.Middleware is Chi-compatible directly.

All three wrap the response writer to observe status codes or the body
stream, which hides http.Hijacker from downstream handlers. Routes that
upgrade to WebSocket must bypass them.
*/
package middleware
