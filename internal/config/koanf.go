// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/netsentry/config.yaml",
	"/etc/netsentry/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Capacity:      500,
			MaxAgeSeconds: 30,
		},
		Detection: DetectionConfig{
			DDoSThreshold:        5,
			VolumeSpikeThreshold: 20,
		},
		Notify: NotifyConfig{
			RateLimitSeconds:    10,
			HighVolumeThreshold: 10,
			AllowedSeverities:   []string{"high", "critical"},
			AllowedCategories:   []string{}, // empty = all categories allowed
			SuppressHighVolume:  true,
		},
		Client: ClientConfig{
			MaxReconnectAttempts:  5,
			ReconnectDelaySeconds: 3,
		},
		Broadcast: BroadcastConfig{
			QueueSize:         256,
			DrainGraceSeconds: 5,
		},
		Simulator: SimulatorConfig{
			Enabled:       true,
			PlaybackSpeed: 1.0,
			DatasetSize:   10000,
			ChunkSize:     10,
			RandomMode:    true,
		},
		Classifier: ClassifierConfig{
			Enabled:      false,
			URL:          "",
			StreamURL:    "",
			Timeout:      10 * time.Second,
			PullLimit:    100,
			PullInterval: 5 * time.Second,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			Stream:         "NETSENTRY",
			Subject:        "netsentry.notifications",
			ConnectTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "netsentry.db",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
		},
		API: APIConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// This function is the preferred way to load configuration and provides:
//   - Type-safe configuration unmarshaling
//   - Clear precedence: ENV > File > Defaults
//   - Support for nested configuration via koanf struct tags
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// WINDOW_CAPACITY -> window.capacity
	// DDOS_THRESHOLD -> detection.ddos_threshold
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"notify.allowed_severities",
	"notify.allowed_categories",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - WINDOW_CAPACITY -> window.capacity
//   - DDOS_THRESHOLD -> detection.ddos_threshold
//   - RATE_LIMIT_SECONDS -> notify.rate_limit_seconds
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Window mappings
		"window_capacity":        "window.capacity",
		"window_max_age_seconds": "window.max_age_seconds",

		// Detection mappings
		"ddos_threshold":         "detection.ddos_threshold",
		"volume_spike_threshold": "detection.volume_spike_threshold",

		// Notification mappings
		"rate_limit_seconds":    "notify.rate_limit_seconds",
		"high_volume_threshold": "notify.high_volume_threshold",
		"allowed_severities":    "notify.allowed_severities",
		"allowed_categories":    "notify.allowed_categories",
		"suppress_high_volume":  "notify.suppress_high_volume",

		// Stream client mappings
		"max_reconnect_attempts":  "client.max_reconnect_attempts",
		"reconnect_delay_seconds": "client.reconnect_delay_seconds",

		// Broadcast mappings
		"broadcast_queue_size":  "broadcast.queue_size",
		"broadcast_drain_grace": "broadcast.drain_grace_seconds",

		// Simulator mappings
		"simulator_enabled":      "simulator.enabled",
		"simulator_speed":        "simulator.playback_speed",
		"simulator_dataset_size": "simulator.dataset_size",
		"simulator_chunk_size":   "simulator.chunk_size",
		"simulator_random_mode":  "simulator.random_mode",

		// Classifier mappings
		"classifier_enabled":       "classifier.enabled",
		"classifier_url":           "classifier.url",
		"classifier_stream_url":    "classifier.stream_url",
		"classifier_timeout":       "classifier.timeout",
		"classifier_pull_limit":    "classifier.pull_limit",
		"classifier_pull_interval": "classifier.pull_interval",

		// NATS mappings
		"nats_enabled":         "nats.enabled",
		"nats_url":             "nats.url",
		"nats_stream":          "nats.stream",
		"nats_subject":         "nats.subject",
		"nats_connect_timeout": "nats.connect_timeout",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Server mappings
		"http_port":           "server.port",
		"http_host":           "server.host",
		"http_timeout":        "server.timeout",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",
		"disable_rate_limit":  "server.rate_limit_disabled",

		// API mappings
		"api_default_limit": "api.default_limit",
		"api_max_limit":     "api.max_limit",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage.
// This is useful for:
//   - Hot-reload scenarios (with proper mutex protection)
//   - Custom configuration sources
//   - Testing with mock configurations
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// Note: The caller is responsible for mutex protection when accessing
// configuration during reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
