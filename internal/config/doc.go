// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

/*
Package config provides centralized configuration management for NetSentry.

This package handles loading, validation, and parsing of configuration for
all application components. It ensures consistent configuration across the
backend services and provides sensible defaults for optional settings.

# Configuration Sources

Configuration is loaded through Koanf v2 with layered precedence:

  - Built-in defaults (lowest priority)
  - YAML config file (config.yaml, or CONFIG_PATH override)
  - Environment variables (highest priority)

# Configuration Structure

The package organizes configuration into logical groups:

  - WindowConfig: Rolling event window bounds (capacity, max age)
  - DetectionConfig: Aggregation engine thresholds (flood, volume spike)
  - NotifyConfig: Notification rate limiter (cooldown, suppression, allowlists)
  - ClientConfig: Classifier stream reconnection policy
  - BroadcastConfig: Per-subscriber fan-out queue tuning
  - SimulatorConfig: Built-in traffic simulator playback
  - ClassifierConfig: External classifier stream and pull endpoints
  - NATSConfig: Optional JetStream notification mirror
  - DatabaseConfig: DuckDB persistence settings
  - ServerConfig: HTTP server, CORS, and API rate limiting
  - LoggingConfig: Log level and output format

# Validation

Load() validates the assembled configuration and returns a ValidationError
naming the offending field. A process with invalid configuration refuses to
start; there is no degraded fallback for a window with zero capacity or a
limiter with an unknown severity name.
*/
package config
