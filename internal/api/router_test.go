// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"
)

func setupRouter(t *testing.T) (*Router, http.Handler, *testComponents) {
	t.Helper()

	tc := newTestComponents(t, nil)
	router := NewRouter(tc.handler, NewMiddlewareFromServer(&tc.cfg.Server))
	return router, router.Setup(), tc
}

func TestRouterRoutes(t *testing.T) {
	_, mux, _ := setupRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"liveness", http.MethodGet, "/health/live", "", http.StatusOK},
		{"snapshot", http.MethodGet, "/api/v1/realtime/data", "", http.StatusOK},
		{"status", http.MethodGet, "/api/v1/realtime/status", "", http.StatusOK},
		{"anomalies", http.MethodGet, "/api/v1/realtime/anomalies", "", http.StatusOK},
		{"history", http.MethodGet, "/api/v1/realtime/anomalies/history", "", http.StatusOK},
		{"notifications", http.MethodGet, "/api/v1/realtime/notifications", "", http.StatusOK},
		{"timeline", http.MethodGet, "/api/v1/realtime/timeline", "", http.StatusOK},
		{"graph", http.MethodGet, "/api/v1/realtime/graph", "", http.StatusOK},
		{"devices", http.MethodGet, "/api/v1/devices", "", http.StatusOK},
		{"sim start", http.MethodPost, "/api/v1/simulation/start", "", http.StatusOK},
		{"sim stop", http.MethodPost, "/api/v1/simulation/stop", "", http.StatusOK},
		{"sim pause", http.MethodPost, "/api/v1/simulation/pause", "", http.StatusOK},
		{"sim resume", http.MethodPost, "/api/v1/simulation/resume", "", http.StatusOK},
		{"sim reset", http.MethodPost, "/api/v1/simulation/reset", "", http.StatusOK},
		{"sim speed", http.MethodPost, "/api/v1/simulation/speed", `{"speed": 2}`, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"get on control route", http.MethodGet, "/api/v1/simulation/start", "", http.StatusMethodNotAllowed},
		{"post on read route", http.MethodPost, "/api/v1/realtime/data", "", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouterReadyReflectsHubState(t *testing.T) {
	_, mux, tc := setupRouter(t)
	tc.handler.db = openTestDatabase(t)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before hub start, got %d", rec.Code)
	}

	runHub(t, tc.hub)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after hub start, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterSecurityHeaders(t *testing.T) {
	_, mux, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/data", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
}

func TestRouterCompressesSnapshots(t *testing.T) {
	_, mux, tc := setupRouter(t)
	seedWindow(tc, 20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}

	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gr.Close()
	decoded, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.HasPrefix(string(decoded), `{"data":[`) {
		t.Errorf("unexpected payload prefix: %.40s", decoded)
	}
}

func TestRouterRecordsPerformance(t *testing.T) {
	router, mux, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	metrics := router.PerformanceMonitor().GetRecentMetrics(10)
	if len(metrics) == 0 {
		t.Fatal("expected request recorded in performance monitor")
	}
	if metrics[0].Path != "/api/v1/realtime/status" {
		t.Errorf("unexpected recorded path %q", metrics[0].Path)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	_, mux, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/realtime/data", nil)
	req.Header.Set("Origin", "http://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	// Wildcard config from the test server settings.
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard allow-origin, got %q", got)
	}
}

// TestRouterWebSocketUpgrade exercises the full stack end to end: the
// upgrade must reach a raw http.Hijacker, so the route stays outside every
// response-wrapping middleware group.
func TestRouterWebSocketUpgrade(t *testing.T) {
	_, mux, tc := setupRouter(t)
	runHub(t, tc.hub)

	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("websocket dial through router failed: %v", err)
	}
	defer conn.Close()

	// First frame is the initial_data snapshot.
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read initial message: %v", err)
	}

	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("invalid message JSON: %v", err)
	}
	if msg.Type != "initial_data" {
		t.Errorf("expected initial_data first, got %q", msg.Type)
	}
}

func TestRouterWebSocketUnavailableWhenHubStopped(t *testing.T) {
	_, mux, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when hub stopped, got %d", rec.Code)
	}
}
