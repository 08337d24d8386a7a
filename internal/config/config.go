// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment variables
// and config files. Provides centralized configuration for every component of
// the distribution core: the rolling window, the aggregation engine, the
// notification rate limiter, the broadcast hub, the event sources, persistence,
// and the HTTP server.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from
// multiple goroutines.
type Config struct {
	Window     WindowConfig     `koanf:"window"`
	Detection  DetectionConfig  `koanf:"detection"`
	Notify     NotifyConfig     `koanf:"notify"`
	Client     ClientConfig     `koanf:"client"`
	Broadcast  BroadcastConfig  `koanf:"broadcast"`
	Simulator  SimulatorConfig  `koanf:"simulator"`
	Classifier ClassifierConfig `koanf:"classifier"`
	NATS       NATSConfig       `koanf:"nats"`
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// WindowConfig bounds the rolling event window that feeds aggregation scans
// and snapshot responses.
//
// Environment Variables:
//   - WINDOW_CAPACITY: Maximum events retained (default: 500)
//   - WINDOW_MAX_AGE_SECONDS: Maximum event age relative to the newest
//     append (default: 30)
type WindowConfig struct {
	// Capacity is the maximum number of events held in the window.
	// The oldest event is evicted once the bound is exceeded.
	Capacity int `koanf:"capacity"`

	// MaxAgeSeconds evicts events older than this relative to the most
	// recently appended event's timestamp.
	MaxAgeSeconds int `koanf:"max_age_seconds"`
}

// MaxAge returns the age bound as a duration.
func (c WindowConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}

// DetectionConfig tunes the anomaly aggregation engine.
//
// Environment Variables:
//   - DDOS_THRESHOLD: Events from one source before a flood anomaly is
//     emitted (default: 5)
//   - VOLUME_SPIKE_THRESHOLD: Aggregate attack count in the window that
//     raises a volume spike anomaly (default: 20)
type DetectionConfig struct {
	// DDoSThreshold is the per-source event count at which a flood
	// (ddos_detection) anomaly is raised. Always reported as critical.
	DDoSThreshold int `koanf:"ddos_threshold"`

	// VolumeSpikeThreshold is the total attack event count in the window
	// above which a volume_spike anomaly is raised.
	VolumeSpikeThreshold int `koanf:"volume_spike_threshold"`
}

// NotifyConfig tunes the notification rate limiter between the aggregation
// engine and the broadcast hub.
//
// Environment Variables:
//   - RATE_LIMIT_SECONDS: Cooldown between notifications (default: 10)
//   - HIGH_VOLUME_THRESHOLD: Batch size that trips suppression (default: 10)
//   - ALLOWED_SEVERITIES: Comma-separated severities that may notify
//     (default: high,critical)
//   - ALLOWED_CATEGORIES: Comma-separated category allowlist, empty allows
//     all (default: empty)
//   - SUPPRESS_HIGH_VOLUME: Enable high-volume suppression (default: true)
type NotifyConfig struct {
	// RateLimitSeconds is the minimum interval between emitted notifications.
	RateLimitSeconds int `koanf:"rate_limit_seconds"`

	// HighVolumeThreshold is the per-call anomaly count at which suppression
	// engages. While suppressed, exactly one "high volume" notice is emitted.
	HighVolumeThreshold int `koanf:"high_volume_threshold"`

	// AllowedSeverities lists the severities that may produce notifications.
	AllowedSeverities []string `koanf:"allowed_severities"`

	// AllowedCategories restricts notifications to these categories.
	// An empty list allows every category.
	AllowedCategories []string `koanf:"allowed_categories"`

	// SuppressHighVolume toggles high-volume suppression entirely.
	SuppressHighVolume bool `koanf:"suppress_high_volume"`
}

// Cooldown returns the rate limit interval as a duration.
func (c NotifyConfig) Cooldown() time.Duration {
	return time.Duration(c.RateLimitSeconds) * time.Second
}

// ClientConfig governs reconnection behaviour of the classifier stream client.
//
// Environment Variables:
//   - MAX_RECONNECT_ATTEMPTS: Attempts before degrading to polling (default: 5)
//   - RECONNECT_DELAY_SECONDS: Fixed delay between attempts (default: 3)
type ClientConfig struct {
	// MaxReconnectAttempts bounds consecutive reconnection attempts after an
	// abnormal close. Exhausting the budget degrades the client to polling.
	MaxReconnectAttempts int `koanf:"max_reconnect_attempts"`

	// ReconnectDelaySeconds is the fixed (non-exponential) delay between
	// reconnection attempts.
	ReconnectDelaySeconds int `koanf:"reconnect_delay_seconds"`
}

// ReconnectDelay returns the reconnect backoff as a duration.
func (c ClientConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySeconds) * time.Second
}

// BroadcastConfig tunes per-subscriber fan-out queues in the WebSocket hub.
//
// Environment Variables:
//   - BROADCAST_QUEUE_SIZE: Per-subscriber send queue depth (default: 256)
//   - BROADCAST_DRAIN_GRACE: Seconds a draining subscriber may lag before
//     forced close (default: 5)
type BroadcastConfig struct {
	// QueueSize is the bounded depth of each subscriber's send queue.
	// A full queue marks the subscriber as draining instead of blocking
	// the broadcast path.
	QueueSize int `koanf:"queue_size"`

	// DrainGraceSeconds is how long a draining subscriber has to catch up
	// before it is force-closed.
	DrainGraceSeconds int `koanf:"drain_grace_seconds"`
}

// DrainGrace returns the drain grace period as a duration.
func (c BroadcastConfig) DrainGrace() time.Duration {
	return time.Duration(c.DrainGraceSeconds) * time.Second
}

// SimulatorConfig controls the built-in traffic simulator used when no
// external classifier is attached.
//
// Environment Variables:
//   - SIMULATOR_ENABLED: Run the simulator source (default: true)
//   - SIMULATOR_SPEED: Playback speed multiplier, clamped to [0.1, 10.0]
//     at runtime (default: 1.0)
//   - SIMULATOR_DATASET_SIZE: Synthetic dataset row count (default: 10000)
//   - SIMULATOR_CHUNK_SIZE: Rows emitted per playback tick (default: 10)
//   - SIMULATOR_RANDOM_MODE: Weighted random sampling instead of sequential
//     playback (default: true)
type SimulatorConfig struct {
	Enabled       bool    `koanf:"enabled"`
	PlaybackSpeed float64 `koanf:"playback_speed"`
	DatasetSize   int     `koanf:"dataset_size"`
	ChunkSize     int     `koanf:"chunk_size"`
	RandomMode    bool    `koanf:"random_mode"`
}

// ClassifierConfig connects NetSentry to an external traffic classifier.
// The stream URL is the primary mechanism; the base URL serves the pull
// fallback endpoint when streaming degrades.
//
// Environment Variables:
//   - CLASSIFIER_ENABLED: Attach to an external classifier (default: false)
//   - CLASSIFIER_URL: Base HTTP URL for the pull endpoint
//   - CLASSIFIER_STREAM_URL: WebSocket URL for the event stream
//   - CLASSIFIER_TIMEOUT: HTTP/handshake timeout (default: 10s)
//   - CLASSIFIER_PULL_LIMIT: Events per pull request (default: 100)
//   - CLASSIFIER_PULL_INTERVAL: Polling cadence in degraded mode (default: 5s)
type ClassifierConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url"`
	StreamURL    string        `koanf:"stream_url"`
	Timeout      time.Duration `koanf:"timeout"`
	PullLimit    int           `koanf:"pull_limit"`
	PullInterval time.Duration `koanf:"pull_interval"`
}

// NATSConfig mirrors emitted notifications onto a JetStream subject for
// external consumers. Optional; requires the nats build tag.
//
// Environment Variables:
//   - NATS_ENABLED: Enable the notification mirror (default: false)
//   - NATS_URL: NATS server URL (default: nats://127.0.0.1:4222)
//   - NATS_STREAM: JetStream stream name (default: NETSENTRY)
//   - NATS_SUBJECT: Subject notifications are published to
//     (default: netsentry.notifications)
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	Stream         string        `koanf:"stream"`
	Subject        string        `koanf:"subject"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// DatabaseConfig holds DuckDB settings for anomaly and notification history.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: netsentry.db)
//   - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
//   - DUCKDB_THREADS: Worker threads, 0 uses all cores (default: 0)
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8080)
//   - HTTP_TIMEOUT: Request timeout (default: 30s)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS: Requests per window per client (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Disable API rate limiting (default: false)
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// APIConfig holds pagination and response limits.
//
// Environment Variables:
//   - API_DEFAULT_LIMIT: Default result count for list endpoints (default: 100)
//   - API_MAX_LIMIT: Maximum result count per request (default: 1000)
type APIConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: Minimum level: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration using layered sources with the following priority:
//
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
