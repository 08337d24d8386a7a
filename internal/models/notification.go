// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package models

import (
	"time"
)

// Notification is a rate-limited, user-facing decision to surface one or
// more anomalies. The limiter emits at most one per processing call.
//
// Invariant: two notifications for the same category are never emitted
// within the configured cooldown, except the single suppression notice.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Category  string    `json:"category,omitempty"`
	Count     int       `json:"count,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`

	// Suppressed marks the one notice emitted when high-volume suppression
	// engages instead of individual notifications.
	Suppressed bool `json:"suppressed,omitempty"`

	// RequiresAck marks dialog-worthy notifications (a category reaching the
	// critical-alert count) that the UI must hold until acknowledged.
	RequiresAck bool `json:"requires_ack,omitempty"`
}
