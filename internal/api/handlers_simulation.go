// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/netsentry/internal/ingest"
	"github.com/tomtom215/netsentry/internal/models"
)

// maxControlBodyBytes bounds simulation control request bodies.
const maxControlBodyBytes = 1 << 20 // 1 MB

// SimulationStart begins or restarts dataset playback.
func (h *Handler) SimulationStart(w http.ResponseWriter, r *http.Request) {
	sim, ok := h.requireSimulator(w)
	if !ok {
		return
	}

	sim.Start()
	h.respondSimulatorStatus(w, sim)
}

// SimulationStop halts playback. Progress is retained; start resumes from
// the current position.
func (h *Handler) SimulationStop(w http.ResponseWriter, r *http.Request) {
	sim, ok := h.requireSimulator(w)
	if !ok {
		return
	}

	sim.Stop()
	h.respondSimulatorStatus(w, sim)
}

// SimulationPause suspends playback at the current position.
func (h *Handler) SimulationPause(w http.ResponseWriter, r *http.Request) {
	sim, ok := h.requireSimulator(w)
	if !ok {
		return
	}

	sim.Pause()
	h.respondSimulatorStatus(w, sim)
}

// SimulationResume continues playback from the paused position.
func (h *Handler) SimulationResume(w http.ResponseWriter, r *http.Request) {
	sim, ok := h.requireSimulator(w)
	if !ok {
		return
	}

	sim.Resume()
	h.respondSimulatorStatus(w, sim)
}

// SimulationReset rewinds playback and clears all derived state: window,
// anomaly ring, limiter counters, and the device registry. Clients see a
// fresh session on their next snapshot.
func (h *Handler) SimulationReset(w http.ResponseWriter, r *http.Request) {
	sim, ok := h.requireSimulator(w)
	if !ok {
		return
	}

	h.pipe.Reset()
	h.respondSimulatorStatus(w, sim)
}

// SimulationSpeed sets the playback speed multiplier from a {"speed": x}
// body. Out-of-range values are clamped to the supported envelope and the
// applied value is returned.
func (h *Handler) SimulationSpeed(w http.ResponseWriter, r *http.Request) {
	sim, ok := h.requireSimulator(w)
	if !ok {
		return
	}

	var req SpeedRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxControlBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON with a numeric speed field", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	applied := sim.SetSpeed(req.Speed)

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"requested_speed": req.Speed,
			"applied_speed":   applied,
			"status":          sim.Status(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// requireSimulator answers 503 when the process runs against a live
// classifier instead of dataset playback.
func (h *Handler) requireSimulator(w http.ResponseWriter) (*ingest.Simulator, bool) {
	sim := h.pipe.Simulator()
	if sim == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Simulation mode is not enabled", nil)
		return nil, false
	}
	return sim, true
}

func (h *Handler) respondSimulatorStatus(w http.ResponseWriter, sim *ingest.Simulator) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   sim.Status(),
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
