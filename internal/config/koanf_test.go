// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Window defaults
	if cfg.Window.Capacity != 500 {
		t.Errorf("Window.Capacity = %d, want 500", cfg.Window.Capacity)
	}
	if cfg.Window.MaxAgeSeconds != 30 {
		t.Errorf("Window.MaxAgeSeconds = %d, want 30", cfg.Window.MaxAgeSeconds)
	}

	// Detection defaults
	if cfg.Detection.DDoSThreshold != 5 {
		t.Errorf("Detection.DDoSThreshold = %d, want 5", cfg.Detection.DDoSThreshold)
	}
	if cfg.Detection.VolumeSpikeThreshold != 20 {
		t.Errorf("Detection.VolumeSpikeThreshold = %d, want 20", cfg.Detection.VolumeSpikeThreshold)
	}

	// Notification defaults
	if cfg.Notify.RateLimitSeconds != 10 {
		t.Errorf("Notify.RateLimitSeconds = %d, want 10", cfg.Notify.RateLimitSeconds)
	}
	if cfg.Notify.HighVolumeThreshold != 10 {
		t.Errorf("Notify.HighVolumeThreshold = %d, want 10", cfg.Notify.HighVolumeThreshold)
	}
	if len(cfg.Notify.AllowedSeverities) != 2 ||
		cfg.Notify.AllowedSeverities[0] != "high" ||
		cfg.Notify.AllowedSeverities[1] != "critical" {
		t.Errorf("Notify.AllowedSeverities = %v, want [high critical]", cfg.Notify.AllowedSeverities)
	}
	if len(cfg.Notify.AllowedCategories) != 0 {
		t.Errorf("Notify.AllowedCategories = %v, want empty", cfg.Notify.AllowedCategories)
	}
	if !cfg.Notify.SuppressHighVolume {
		t.Errorf("Notify.SuppressHighVolume should be true by default")
	}

	// Stream client defaults
	if cfg.Client.MaxReconnectAttempts != 5 {
		t.Errorf("Client.MaxReconnectAttempts = %d, want 5", cfg.Client.MaxReconnectAttempts)
	}
	if cfg.Client.ReconnectDelaySeconds != 3 {
		t.Errorf("Client.ReconnectDelaySeconds = %d, want 3", cfg.Client.ReconnectDelaySeconds)
	}

	// Broadcast defaults
	if cfg.Broadcast.QueueSize != 256 {
		t.Errorf("Broadcast.QueueSize = %d, want 256", cfg.Broadcast.QueueSize)
	}
	if cfg.Broadcast.DrainGraceSeconds != 5 {
		t.Errorf("Broadcast.DrainGraceSeconds = %d, want 5", cfg.Broadcast.DrainGraceSeconds)
	}

	// Simulator defaults (enabled)
	if !cfg.Simulator.Enabled {
		t.Errorf("Simulator.Enabled should be true by default")
	}
	if cfg.Simulator.PlaybackSpeed != 1.0 {
		t.Errorf("Simulator.PlaybackSpeed = %v, want 1.0", cfg.Simulator.PlaybackSpeed)
	}
	if cfg.Simulator.DatasetSize != 10000 {
		t.Errorf("Simulator.DatasetSize = %d, want 10000", cfg.Simulator.DatasetSize)
	}

	// Classifier defaults (disabled)
	if cfg.Classifier.Enabled {
		t.Errorf("Classifier.Enabled should be false by default")
	}
	if cfg.Classifier.Timeout != 10*time.Second {
		t.Errorf("Classifier.Timeout = %v, want 10s", cfg.Classifier.Timeout)
	}

	// NATS defaults (disabled)
	if cfg.NATS.Enabled {
		t.Errorf("NATS.Enabled should be false by default")
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q, want nats://127.0.0.1:4222", cfg.NATS.URL)
	}
	if cfg.NATS.Stream != "NETSENTRY" {
		t.Errorf("NATS.Stream = %q, want NETSENTRY", cfg.NATS.Stream)
	}

	// Database defaults
	if cfg.Database.Path != "netsentry.db" {
		t.Errorf("Database.Path = %q, want netsentry.db", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "2GB" {
		t.Errorf("Database.MaxMemory = %q, want 2GB", cfg.Database.MaxMemory)
	}

	// Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("Server.CORSOrigins = %v, want [*]", cfg.Server.CORSOrigins)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

// TestDefaultConfigValidates verifies that the defaults pass validation as-is
func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

// TestDurationHelpers verifies second-count fields convert correctly
func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.Window.MaxAge(); got != 30*time.Second {
		t.Errorf("Window.MaxAge() = %v, want 30s", got)
	}
	if got := cfg.Notify.Cooldown(); got != 10*time.Second {
		t.Errorf("Notify.Cooldown() = %v, want 10s", got)
	}
	if got := cfg.Client.ReconnectDelay(); got != 3*time.Second {
		t.Errorf("Client.ReconnectDelay() = %v, want 3s", got)
	}
	if got := cfg.Broadcast.DrainGrace(); got != 5*time.Second {
		t.Errorf("Broadcast.DrainGrace() = %v, want 5s", got)
	}
}

// TestLoadWithEnvOverrides verifies environment variables override defaults
func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("WINDOW_CAPACITY", "100")
	t.Setenv("DDOS_THRESHOLD", "8")
	t.Setenv("RATE_LIMIT_SECONDS", "20")
	t.Setenv("ALLOWED_SEVERITIES", "critical")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() failed: %v", err)
	}

	if cfg.Window.Capacity != 100 {
		t.Errorf("Window.Capacity = %d, want 100", cfg.Window.Capacity)
	}
	if cfg.Detection.DDoSThreshold != 8 {
		t.Errorf("Detection.DDoSThreshold = %d, want 8", cfg.Detection.DDoSThreshold)
	}
	if cfg.Notify.RateLimitSeconds != 20 {
		t.Errorf("Notify.RateLimitSeconds = %d, want 20", cfg.Notify.RateLimitSeconds)
	}
	if len(cfg.Notify.AllowedSeverities) != 1 || cfg.Notify.AllowedSeverities[0] != "critical" {
		t.Errorf("Notify.AllowedSeverities = %v, want [critical]", cfg.Notify.AllowedSeverities)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

// TestLoadSliceFromEnv verifies comma-separated env values become slices
func TestLoadSliceFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_SEVERITIES", "medium, high ,critical")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() failed: %v", err)
	}

	want := []string{"medium", "high", "critical"}
	if len(cfg.Notify.AllowedSeverities) != len(want) {
		t.Fatalf("AllowedSeverities = %v, want %v", cfg.Notify.AllowedSeverities, want)
	}
	for i, s := range want {
		if cfg.Notify.AllowedSeverities[i] != s {
			t.Errorf("AllowedSeverities[%d] = %q, want %q", i, cfg.Notify.AllowedSeverities[i], s)
		}
	}

	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v, want two entries", cfg.Server.CORSOrigins)
	}
}

// TestLoadWithConfigFile verifies YAML file values override defaults
func TestLoadWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
window:
  capacity: 250
  max_age_seconds: 60
notify:
  rate_limit_seconds: 5
server:
  port: 8888
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() failed: %v", err)
	}

	if cfg.Window.Capacity != 250 {
		t.Errorf("Window.Capacity = %d, want 250", cfg.Window.Capacity)
	}
	if cfg.Window.MaxAgeSeconds != 60 {
		t.Errorf("Window.MaxAgeSeconds = %d, want 60", cfg.Window.MaxAgeSeconds)
	}
	if cfg.Notify.RateLimitSeconds != 5 {
		t.Errorf("Notify.RateLimitSeconds = %d, want 5", cfg.Notify.RateLimitSeconds)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}

	// Untouched keys keep their defaults
	if cfg.Detection.DDoSThreshold != 5 {
		t.Errorf("Detection.DDoSThreshold = %d, want default 5", cfg.Detection.DDoSThreshold)
	}
}

// TestEnvOverridesConfigFile verifies precedence: ENV > file > defaults
func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
window:
  capacity: 250
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("WINDOW_CAPACITY", "75")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() failed: %v", err)
	}

	if cfg.Window.Capacity != 75 {
		t.Errorf("Window.Capacity = %d, want env override 75", cfg.Window.Capacity)
	}
}

// TestLoadRejectsInvalidEnv verifies validation failures surface at load time
func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("WINDOW_CAPACITY", "0")

	if _, err := LoadWithKoanf(); err == nil {
		t.Fatal("expected error for WINDOW_CAPACITY=0, got nil")
	}
}

// TestEnvTransformFunc verifies the env var to koanf path mapping
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"WINDOW_CAPACITY", "window.capacity"},
		{"WINDOW_MAX_AGE_SECONDS", "window.max_age_seconds"},
		{"DDOS_THRESHOLD", "detection.ddos_threshold"},
		{"RATE_LIMIT_SECONDS", "notify.rate_limit_seconds"},
		{"HIGH_VOLUME_THRESHOLD", "notify.high_volume_threshold"},
		{"SUPPRESS_HIGH_VOLUME", "notify.suppress_high_volume"},
		{"MAX_RECONNECT_ATTEMPTS", "client.max_reconnect_attempts"},
		{"BROADCAST_QUEUE_SIZE", "broadcast.queue_size"},
		{"SIMULATOR_SPEED", "simulator.playback_speed"},
		{"CLASSIFIER_STREAM_URL", "classifier.stream_url"},
		{"NATS_URL", "nats.url"},
		{"DUCKDB_PATH", "database.path"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"RANDOM_UNRELATED_VAR", ""}, // unmapped keys are skipped
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}
