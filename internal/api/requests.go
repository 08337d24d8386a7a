// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package api

// Request validation structs with go-playground/validator tags. Query
// parameters are parsed with defaults first, then validated, so the tags
// describe the post-default envelope.

// SnapshotRequest validates the query parameters for /realtime/data.
type SnapshotRequest struct {
	Limit int `validate:"min=1,max=1000"`
}

// AnomaliesRequest validates the query parameters for /realtime/anomalies.
// Limit 0 returns the whole in-memory ring.
type AnomaliesRequest struct {
	Limit int `validate:"min=0,max=1000"`
}

// HistoryRequest validates the query parameters for
// /realtime/anomalies/history.
//
// Fields:
//   - Limit/Offset: pagination over persisted anomalies
//   - Kinds, Severities: comma-separated filter lists
//   - SourceIP: exact source address match
//   - StartDate/EndDate: RFC 3339 time range
//   - OrderBy/OrderDirection: whitelisted ordering
type HistoryRequest struct {
	Limit          int    `validate:"min=1,max=1000"`
	Offset         int    `validate:"min=0,max=1000000"`
	Kinds          string // Comma-separated, unknown kinds match nothing
	Severities     string // Comma-separated, unknown values dropped
	SourceIP       string `validate:"omitempty,ip"`
	StartDate      string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndDate        string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	OrderBy        string `validate:"omitempty,oneof=created_at severity kind"`
	OrderDirection string `validate:"omitempty,oneof=asc desc ASC DESC"`
}

// NotificationsRequest validates the query parameters for
// /realtime/notifications.
type NotificationsRequest struct {
	Limit      int    `validate:"min=1,max=1000"`
	Offset     int    `validate:"min=0,max=1000000"`
	Severities string // Comma-separated, unknown values dropped
	Category   string `validate:"omitempty,max=64"`
	StartDate  string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndDate    string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// TimelineRequest validates the query parameters for /realtime/timeline.
type TimelineRequest struct {
	Minutes int `validate:"min=1,max=1440"`
}

// SpeedRequest validates the body of POST /simulation/speed. Values outside
// the playback envelope are clamped by the simulator, not rejected, so the
// validation only guards sign and presence.
type SpeedRequest struct {
	Speed float64 `json:"speed" validate:"required,gt=0"`
}
