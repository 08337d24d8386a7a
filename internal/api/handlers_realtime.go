// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/netsentry/internal/analytics"
	"github.com/tomtom215/netsentry/internal/detection"
	"github.com/tomtom215/netsentry/internal/models"
)

// RealtimeData serves the REST polling fallback: the last K window entries
// as a bare {"data": [...]} payload. Clients that cannot hold a WebSocket
// open poll this endpoint, so the shape stays fixed and unenveloped.
func (h *Handler) RealtimeData(w http.ResponseWriter, r *http.Request) {
	defaultLimit, maxLimit := h.limits()
	limit := clampLimit(getIntParam(r, "limit", defaultLimit), defaultLimit, maxLimit)

	req := SnapshotRequest{Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	events := h.window.Tail(limit)
	if events == nil {
		events = []models.Event{}
	}

	respondRaw(w, http.StatusOK, &models.SnapshotResponse{Data: events})
}

// RealtimeStatus reports the pipeline status snapshot: counters, window
// occupancy, subscriber states, classifier degradation, and simulator
// progress when playback is enabled.
func (h *Handler) RealtimeStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.pipe.Status()

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   status,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// RealtimeAnomalies lists recent anomalies from the in-memory ring, newest
// first. limit=0 returns the whole ring.
func (h *Handler) RealtimeAnomalies(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", 0)

	req := AnomaliesRequest{Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	anomalies := h.engine.Recent(limit)
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"anomalies": anomalies,
			"count":     len(anomalies),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// RealtimeAnomalyHistory lists persisted anomalies with filtering and
// pagination. Unknown severity values are dropped from the filter rather
// than rejected; unknown kinds simply match nothing.
func (h *Handler) RealtimeAnomalyHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	defaultLimit, maxLimit := h.limits()

	req := HistoryRequest{
		Limit:          clampLimit(getIntParam(r, "limit", defaultLimit), defaultLimit, maxLimit),
		Offset:         getIntParam(r, "offset", 0),
		Kinds:          r.URL.Query().Get("kinds"),
		Severities:     r.URL.Query().Get("severities"),
		SourceIP:       r.URL.Query().Get("source_ip"),
		StartDate:      r.URL.Query().Get("start_date"),
		EndDate:        r.URL.Query().Get("end_date"),
		OrderBy:        r.URL.Query().Get("order_by"),
		OrderDirection: r.URL.Query().Get("order_direction"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	filter := detection.AnomalyFilter{
		Kinds:          parseKinds(req.Kinds),
		Severities:     parseSeverities(req.Severities),
		SourceIP:       req.SourceIP,
		StartDate:      getTimeParam(r, "start_date"),
		EndDate:        getTimeParam(r, "end_date"),
		Limit:          req.Limit,
		Offset:         req.Offset,
		OrderBy:        req.OrderBy,
		OrderDirection: req.OrderDirection,
	}

	start := time.Now()
	anomalies, err := h.history.ListAnomalies(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query anomaly history", err)
		return
	}

	total, err := h.history.CountAnomalies(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count anomalies", err)
		return
	}

	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"anomalies": anomalies,
			"total":     total,
			"limit":     req.Limit,
			"offset":    req.Offset,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// RealtimeNotifications lists persisted notifications newest first.
func (h *Handler) RealtimeNotifications(w http.ResponseWriter, r *http.Request) {
	if !h.requireNotifications(w) {
		return
	}

	defaultLimit, maxLimit := h.limits()

	req := NotificationsRequest{
		Limit:      clampLimit(getIntParam(r, "limit", defaultLimit), defaultLimit, maxLimit),
		Offset:     getIntParam(r, "offset", 0),
		Severities: r.URL.Query().Get("severities"),
		Category:   r.URL.Query().Get("category"),
		StartDate:  r.URL.Query().Get("start_date"),
		EndDate:    r.URL.Query().Get("end_date"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	filter := detection.NotificationFilter{
		Severities: parseSeverities(req.Severities),
		Category:   req.Category,
		Suppressed: getBoolParam(r, "suppressed"),
		StartDate:  getTimeParam(r, "start_date"),
		EndDate:    getTimeParam(r, "end_date"),
		Limit:      req.Limit,
		Offset:     req.Offset,
	}

	start := time.Now()
	notifications, err := h.notifs.ListNotifications(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query notifications", err)
		return
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"notifications": notifications,
			"count":         len(notifications),
			"limit":         req.Limit,
			"offset":        req.Offset,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// RealtimeTimeline serves per-minute attack buckets over the last N minutes
// of the window, newest first.
func (h *Handler) RealtimeTimeline(w http.ResponseWriter, r *http.Request) {
	minutes := getIntParam(r, "minutes", analytics.DefaultTimelineMinutes)

	req := TimelineRequest{Minutes: minutes}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	buckets := h.analytics.Timeline(minutes)

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"timeline": buckets,
			"minutes":  minutes,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// RealtimeGraph serves the communication graph derived from the newest
// window entries: one node per endpoint, one aggregated edge per
// (source, target, protocol) flow.
func (h *Handler) RealtimeGraph(w http.ResponseWriter, r *http.Request) {
	graph := h.analytics.Graph()

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   graph,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// Devices lists every device the registry has seen, sorted by address.
func (h *Handler) Devices(w http.ResponseWriter, r *http.Request) {
	list := h.devices.List()
	if list == nil {
		list = []models.Device{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"devices": list,
			"count":   len(list),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// limits returns the configured (default, max) result counts.
func (h *Handler) limits() (int, int) {
	defaultLimit, maxLimit := 100, 1000
	if h.cfg != nil {
		if h.cfg.API.DefaultLimit > 0 {
			defaultLimit = h.cfg.API.DefaultLimit
		}
		if h.cfg.API.MaxLimit > 0 {
			maxLimit = h.cfg.API.MaxLimit
		}
	}
	return defaultLimit, maxLimit
}

// requireHistory answers 503 when anomaly persistence is not configured.
func (h *Handler) requireHistory(w http.ResponseWriter) bool {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Anomaly history is not available", nil)
		return false
	}
	return true
}

// requireNotifications answers 503 when notification persistence is not
// configured.
func (h *Handler) requireNotifications(w http.ResponseWriter) bool {
	if h.notifs == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Notification history is not available", nil)
		return false
	}
	return true
}

// parseSeverities converts a comma-separated severity list into the filter
// form, dropping unknown values.
func parseSeverities(value string) []models.Severity {
	parts := parseCommaSeparated(value)
	if len(parts) == 0 {
		return nil
	}

	var result []models.Severity
	for _, part := range parts {
		sev := models.Severity(part)
		if sev.Valid() {
			result = append(result, sev)
		}
	}
	return result
}

// parseKinds converts a comma-separated kind list into the filter form.
func parseKinds(value string) []models.AnomalyKind {
	parts := parseCommaSeparated(value)
	if len(parts) == 0 {
		return nil
	}

	result := make([]models.AnomalyKind, 0, len(parts))
	for _, part := range parts {
		result = append(result, models.AnomalyKind(part))
	}
	return result
}
