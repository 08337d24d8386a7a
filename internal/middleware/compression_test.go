// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/netsentry/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func TestCompressionGzipsWhenAccepted(t *testing.T) {
	t.Parallel()

	body := strings.Repeat(`{"type":"classification","data":{}}`, 50)
	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("write failed: %v", err)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}

	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("failed to open gzip reader: %v", err)
	}
	defer gr.Close()

	decoded, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("failed to decompress body: %v", err)
	}
	if string(decoded) != body {
		t.Error("decompressed body does not match original")
	}
}

func TestCompressionSkippedWithoutAcceptHeader(t *testing.T) {
	t.Parallel()

	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("plain")); err != nil {
			t.Errorf("write failed: %v", err)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/data", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("expected no encoding, got %q", got)
	}
	if rec.Body.String() != "plain" {
		t.Errorf("expected raw body, got %q", rec.Body.String())
	}
}

func TestCompressionSkipsWebSocketUpgrade(t *testing.T) {
	t.Parallel()

	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("expected upgrade to bypass compression, got encoding %q", got)
	}
}

func TestCompressionPreservesStatusCode(t *testing.T) {
	t.Parallel()

	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		if _, err := w.Write([]byte(`{"status":"error"}`)); err != nil {
			t.Errorf("write failed: %v", err)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 through compression, got %d", rec.Code)
	}
}
