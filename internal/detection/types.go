// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"context"
	"time"

	"github.com/tomtom215/netsentry/internal/models"
)

// Detector is the interface that all window scanners implement.
// A detector receives the current window snapshot, applies its rule, and
// returns the anomalies raised by this scan. Detectors carry their own
// deduplication state across scans so that re-scanning an unchanged window
// produces no duplicates.
type Detector interface {
	// Kind returns the anomaly kind this detector raises.
	Kind() models.AnomalyKind

	// Scan evaluates the window snapshot and returns new anomalies.
	// The snapshot is ordered oldest first and must not be mutated.
	Scan(events []models.Event) []models.Anomaly

	// Reset clears accumulated deduplication state.
	Reset()

	// Enabled returns whether this detector is currently enabled.
	Enabled() bool

	// SetEnabled enables or disables the detector.
	SetEnabled(enabled bool)
}

// attackEvents returns the subset of events whose predicted class is not a
// benign sentinel, preserving snapshot order.
func attackEvents(events []models.Event) []models.Event {
	attacks := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.IsAttack() {
			attacks = append(attacks, e)
		}
	}
	return attacks
}

// AnomalyStore defines the interface for anomaly persistence.
type AnomalyStore interface {
	// SaveAnomaly persists a new anomaly.
	SaveAnomaly(ctx context.Context, anomaly *models.Anomaly) error

	// ListAnomalies retrieves anomalies with optional filtering.
	ListAnomalies(ctx context.Context, filter AnomalyFilter) ([]models.Anomaly, error)

	// CountAnomalies returns the count of anomalies matching the filter.
	CountAnomalies(ctx context.Context, filter AnomalyFilter) (int, error)
}

// AnomalyFilter defines filtering options for anomaly queries.
type AnomalyFilter struct {
	Kinds          []models.AnomalyKind `json:"kinds,omitempty"`
	Severities     []models.Severity    `json:"severities,omitempty"`
	SourceIP       string               `json:"source_ip,omitempty"`
	StartDate      *time.Time           `json:"start_date,omitempty"`
	EndDate        *time.Time           `json:"end_date,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	Offset         int                  `json:"offset,omitempty"`
	OrderBy        string               `json:"order_by,omitempty"`        // created_at, severity, kind
	OrderDirection string               `json:"order_direction,omitempty"` // asc, desc
}

// NotificationStore defines the interface for notification history persistence.
// The pipeline records every emitted notification here so the REST surface can
// serve history across restarts.
type NotificationStore interface {
	// SaveNotification persists an emitted notification.
	SaveNotification(ctx context.Context, n *models.Notification) error

	// ListNotifications retrieves notifications with optional filtering.
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
}

// NotificationFilter defines filtering options for notification queries.
type NotificationFilter struct {
	Severities []models.Severity `json:"severities,omitempty"`
	Category   string            `json:"category,omitempty"`
	Suppressed *bool             `json:"suppressed,omitempty"`
	StartDate  *time.Time        `json:"start_date,omitempty"`
	EndDate    *time.Time        `json:"end_date,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

// EngineMetrics tracks aggregation engine activity for the status surface.
type EngineMetrics struct {
	ScansRun         int64                        `json:"scans_run"`
	AnomaliesEmitted int64                        `json:"anomalies_emitted"`
	ByKind           map[models.AnomalyKind]int64 `json:"by_kind"`
	LastScanAt       time.Time                    `json:"last_scan_at"`
	LastScanDuration time.Duration                `json:"-"`
	DetectorEnabled  map[models.AnomalyKind]bool  `json:"detector_enabled"`
}
