// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/netsentry/internal/ingest"
)

func TestSimulationStart(t *testing.T) {
	tc := newTestComponents(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulation/start", nil)
	rec := httptest.NewRecorder()
	tc.handler.SimulationStart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	data := envelopeData(t, decodeEnvelope(t, rec))
	if data["is_running"] != true {
		t.Error("expected is_running true after start")
	}
	if data["total_rows"] != float64(200) {
		t.Errorf("expected total_rows 200, got %v", data["total_rows"])
	}
}

func TestSimulationStop(t *testing.T) {
	tc := newTestComponents(t, nil)
	sim := tc.pipe.Simulator()
	sim.Start()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulation/stop", nil)
	rec := httptest.NewRecorder()
	tc.handler.SimulationStop(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	data := envelopeData(t, decodeEnvelope(t, rec))
	if data["is_running"] != false {
		t.Error("expected is_running false after stop")
	}
}

func TestSimulationPauseResume(t *testing.T) {
	tc := newTestComponents(t, nil)
	tc.pipe.Simulator().Start()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulation/pause", nil)
	rec := httptest.NewRecorder()
	tc.handler.SimulationPause(rec, req)

	data := envelopeData(t, decodeEnvelope(t, rec))
	if data["is_paused"] != true {
		t.Error("expected is_paused true after pause")
	}
	if data["is_running"] != true {
		t.Error("pause must not stop the run")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/simulation/resume", nil)
	rec = httptest.NewRecorder()
	tc.handler.SimulationResume(rec, req)

	data = envelopeData(t, decodeEnvelope(t, rec))
	if data["is_paused"] != false {
		t.Error("expected is_paused false after resume")
	}
}

func TestSimulationResetClearsDerivedState(t *testing.T) {
	tc := newTestComponents(t, nil)
	seedWindow(tc, 5)
	tc.registry.Observe(windowEvent("r-1", "192.168.1.77", "ddos", time.Now().UTC()))

	if tc.window.Len() == 0 || tc.registry.Count() == 0 {
		t.Fatal("expected seeded state before reset")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulation/reset", nil)
	rec := httptest.NewRecorder()
	tc.handler.SimulationReset(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if tc.window.Len() != 0 {
		t.Errorf("expected window cleared, got %d events", tc.window.Len())
	}
	if tc.registry.Count() != 0 {
		t.Errorf("expected device registry cleared, got %d", tc.registry.Count())
	}
	if len(tc.engine.Recent(0)) != 0 {
		t.Error("expected anomaly ring cleared")
	}

	data := envelopeData(t, decodeEnvelope(t, rec))
	if data["current_row"] != float64(0) {
		t.Errorf("expected playback rewound, got row %v", data["current_row"])
	}
}

func TestSimulationSpeed(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantApplied float64
	}{
		{"in range", `{"speed": 2.5}`, 2.5},
		{"above max clamps", `{"speed": 50}`, ingest.MaxPlaybackSpeed},
		{"below min clamps", `{"speed": 0.01}`, ingest.MinPlaybackSpeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestComponents(t, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/simulation/speed", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			tc.handler.SimulationSpeed(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}

			data := envelopeData(t, decodeEnvelope(t, rec))
			if data["applied_speed"] != tt.wantApplied {
				t.Errorf("expected applied_speed %v, got %v", tt.wantApplied, data["applied_speed"])
			}

			if got := tc.pipe.Simulator().Status().PlaybackSpeed; got != tt.wantApplied {
				t.Errorf("expected simulator speed %v, got %v", tt.wantApplied, got)
			}
		})
	}
}

func TestSimulationSpeedRejectsBadBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"not json", "faster please", "INVALID_REQUEST"},
		{"empty body", "", "INVALID_REQUEST"},
		{"zero speed", `{"speed": 0}`, "VALIDATION_ERROR"},
		{"negative speed", `{"speed": -1}`, "VALIDATION_ERROR"},
		{"missing field", `{}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestComponents(t, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/simulation/speed", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			tc.handler.SimulationSpeed(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}

			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("expected %s, got %+v", tt.wantCode, resp.Error)
			}
		})
	}
}

func TestSimulationUnavailableInClassifierMode(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Simulator.Enabled = false
	tc := newTestComponents(t, cfg)

	endpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"start", tc.handler.SimulationStart},
		{"stop", tc.handler.SimulationStop},
		{"pause", tc.handler.SimulationPause},
		{"resume", tc.handler.SimulationResume},
		{"reset", tc.handler.SimulationReset},
		{"speed", tc.handler.SimulationSpeed},
	}

	for _, ep := range endpoints {
		t.Run(ep.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/simulation/"+ep.name, strings.NewReader(`{"speed": 2}`))
			rec := httptest.NewRecorder()
			ep.handler(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected 503, got %d", rec.Code)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != "SERVICE_UNAVAILABLE" {
				t.Errorf("expected SERVICE_UNAVAILABLE, got %+v", resp.Error)
			}
		})
	}
}
