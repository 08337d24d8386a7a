// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package config

import (
	"fmt"
	"strings"
)

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks that required configuration is present and valid.
// Validation failures are fatal: the process must refuse to start rather
// than run with a nonsensical window or limiter.
func (c *Config) Validate() error {
	if err := c.validateWindow(); err != nil {
		return err
	}

	if err := c.validateDetection(); err != nil {
		return err
	}

	if err := c.validateNotify(); err != nil {
		return err
	}

	if err := c.validateClient(); err != nil {
		return err
	}

	if err := c.validateBroadcast(); err != nil {
		return err
	}

	if err := c.validateSimulator(); err != nil {
		return err
	}

	if err := c.validateClassifier(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

// Window limit constants
const (
	windowMaxCapacity = 1_000_000
	windowMaxAge      = 86400 // one day, in seconds
)

// validateWindow validates rolling window bounds
func (c *Config) validateWindow() error {
	if c.Window.Capacity < 1 {
		return &ValidationError{Field: "WINDOW_CAPACITY", Message: "must be at least 1"}
	}
	if c.Window.Capacity > windowMaxCapacity {
		return &ValidationError{Field: "WINDOW_CAPACITY", Message: fmt.Sprintf("must not exceed %d", windowMaxCapacity)}
	}
	if c.Window.MaxAgeSeconds < 1 {
		return &ValidationError{Field: "WINDOW_MAX_AGE_SECONDS", Message: "must be at least 1"}
	}
	if c.Window.MaxAgeSeconds > windowMaxAge {
		return &ValidationError{Field: "WINDOW_MAX_AGE_SECONDS", Message: fmt.Sprintf("must not exceed %d", windowMaxAge)}
	}
	return nil
}

// validateDetection validates aggregation engine thresholds
func (c *Config) validateDetection() error {
	if c.Detection.DDoSThreshold < 1 {
		return &ValidationError{Field: "DDOS_THRESHOLD", Message: "must be at least 1"}
	}
	if c.Detection.VolumeSpikeThreshold < 1 {
		return &ValidationError{Field: "VOLUME_SPIKE_THRESHOLD", Message: "must be at least 1"}
	}
	return nil
}

// validSeverities are the severity names accepted in the notification allowlist.
var validSeverities = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

// validateNotify validates notification limiter settings
func (c *Config) validateNotify() error {
	if c.Notify.RateLimitSeconds < 0 {
		return &ValidationError{Field: "RATE_LIMIT_SECONDS", Message: "must not be negative"}
	}
	if c.Notify.HighVolumeThreshold < 1 {
		return &ValidationError{Field: "HIGH_VOLUME_THRESHOLD", Message: "must be at least 1"}
	}
	for _, s := range c.Notify.AllowedSeverities {
		if !validSeverities[strings.ToLower(s)] {
			return &ValidationError{
				Field:   "ALLOWED_SEVERITIES",
				Message: fmt.Sprintf("unknown severity %q, expected low, medium, high, or critical", s),
			}
		}
	}
	return nil
}

// validateClient validates stream client reconnection settings
func (c *Config) validateClient() error {
	if c.Client.MaxReconnectAttempts < 0 {
		return &ValidationError{Field: "MAX_RECONNECT_ATTEMPTS", Message: "must not be negative"}
	}
	if c.Client.ReconnectDelaySeconds < 1 {
		return &ValidationError{Field: "RECONNECT_DELAY_SECONDS", Message: "must be at least 1"}
	}
	return nil
}

// validateBroadcast validates fan-out queue settings
func (c *Config) validateBroadcast() error {
	if c.Broadcast.QueueSize < 1 {
		return &ValidationError{Field: "BROADCAST_QUEUE_SIZE", Message: "must be at least 1"}
	}
	if c.Broadcast.DrainGraceSeconds < 0 {
		return &ValidationError{Field: "BROADCAST_DRAIN_GRACE", Message: "must not be negative"}
	}
	return nil
}

// validateSimulator validates simulator settings (only if enabled)
func (c *Config) validateSimulator() error {
	if !c.Simulator.Enabled {
		return nil
	}

	if c.Simulator.PlaybackSpeed <= 0 {
		return &ValidationError{Field: "SIMULATOR_SPEED", Message: "must be positive"}
	}
	if c.Simulator.DatasetSize < 1 {
		return &ValidationError{Field: "SIMULATOR_DATASET_SIZE", Message: "must be at least 1"}
	}
	if c.Simulator.ChunkSize < 1 {
		return &ValidationError{Field: "SIMULATOR_CHUNK_SIZE", Message: "must be at least 1"}
	}
	return nil
}

// validateClassifier validates classifier connection settings (only if enabled)
func (c *Config) validateClassifier() error {
	if !c.Classifier.Enabled {
		return nil
	}

	if c.Classifier.URL == "" {
		return &ValidationError{Field: "CLASSIFIER_URL", Message: "required when CLASSIFIER_ENABLED=true"}
	}
	if err := validateHTTPURL(c.Classifier.URL, "CLASSIFIER_URL"); err != nil {
		return &ValidationError{Field: "CLASSIFIER_URL", Message: err.Error()}
	}

	if c.Classifier.StreamURL != "" {
		if err := validateWSURL(c.Classifier.StreamURL, "CLASSIFIER_STREAM_URL"); err != nil {
			return &ValidationError{Field: "CLASSIFIER_STREAM_URL", Message: err.Error()}
		}
	}

	if c.Classifier.Timeout <= 0 {
		return &ValidationError{Field: "CLASSIFIER_TIMEOUT", Message: "must be positive"}
	}
	if c.Classifier.PullLimit < 1 {
		return &ValidationError{Field: "CLASSIFIER_PULL_LIMIT", Message: "must be at least 1"}
	}
	if c.Classifier.PullInterval <= 0 {
		return &ValidationError{Field: "CLASSIFIER_PULL_INTERVAL", Message: "must be positive"}
	}
	return nil
}

// validateNATS validates NATS mirror settings (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return &ValidationError{Field: "NATS_URL", Message: err.Error()}
	}
	if c.NATS.Stream == "" {
		return &ValidationError{Field: "NATS_STREAM", Message: "required when NATS_ENABLED=true"}
	}
	if c.NATS.Subject == "" {
		return &ValidationError{Field: "NATS_SUBJECT", Message: "required when NATS_ENABLED=true"}
	}
	return nil
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "HTTP_PORT", Message: "must be between 1 and 65535"}
	}
	if c.Server.Timeout <= 0 {
		return &ValidationError{Field: "HTTP_TIMEOUT", Message: "must be positive"}
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return &ValidationError{Field: "RATE_LIMIT_REQUESTS", Message: "must be at least 1"}
		}
		if c.Server.RateLimitWindow <= 0 {
			return &ValidationError{Field: "RATE_LIMIT_WINDOW", Message: "must be positive"}
		}
	}
	if c.API.DefaultLimit < 1 {
		return &ValidationError{Field: "API_DEFAULT_LIMIT", Message: "must be at least 1"}
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		return &ValidationError{Field: "API_MAX_LIMIT", Message: "must be at least API_DEFAULT_LIMIT"}
	}
	return nil
}

// validLogLevels are the accepted LOG_LEVEL values.
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return &ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("unknown level %q, expected trace, debug, info, warn, or error", c.Logging.Level),
		}
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "console" {
		return &ValidationError{
			Field:   "LOG_FORMAT",
			Message: fmt.Sprintf("unknown format %q, expected json or console", c.Logging.Format),
		}
	}
	return nil
}
