// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package notify rate-limits the anomaly stream into user-facing
// notifications.
//
// The limiter evaluates one batch of anomalies per call and emits at most
// one notification, applying in order: a severity/category allow-set
// filter, high-volume suppression (one notice per episode instead of a
// storm), a global cooldown, and finally category grouping where the
// highest-severity group wins. One-at-a-time emission is deliberate;
// operators get a summary instead of a flood.
package notify
