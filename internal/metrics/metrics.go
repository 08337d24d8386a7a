// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the NetSentry pipeline:
// - Ingest throughput and malformed-record drops
// - Rolling window occupancy
// - Anomaly detection and notification emission
// - WebSocket fan-out health (connections, drops, slow-client closes)
// - Classifier connectivity (reconnects, circuit breaker)
// - API endpoint latency and throughput
// - DuckDB persistence

var (
	// Ingest Metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_events_ingested_total",
			Help: "Total number of events accepted by the ingest adapter",
		},
		[]string{"source"}, // "simulator", "stream", "pull"
	)

	MalformedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_events_malformed_total",
			Help: "Total number of records dropped for failing validation",
		},
		[]string{"source"},
	)

	// Window Metrics
	WindowSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsentry_window_events",
			Help: "Current number of events held in the rolling window",
		},
	)

	// Detection Metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_anomalies_detected_total",
			Help: "Total number of anomalies emitted by the aggregation engine",
		},
		[]string{"kind"}, // "attack_detection", "ddos_detection", "volume_spike"
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netsentry_scan_duration_seconds",
			Help:    "Duration of aggregation scans over the rolling window",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// Notification Metrics
	NotificationsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_notifications_emitted_total",
			Help: "Total number of user-facing notifications emitted",
		},
	)

	NotificationsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_notifications_suppressed_total",
			Help: "Total number of processing calls muted by high-volume suppression or cooldown",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsentry_websocket_connections",
			Help: "Current number of active WebSocket subscribers",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages queued to subscribers",
		},
		[]string{"type"}, // "classification", "new_alert", "device_update", "initial_data"
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_websocket_messages_dropped_total",
			Help: "Total number of messages dropped due to subscriber backpressure",
		},
	)

	WSSlowClientsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_websocket_slow_clients_closed_total",
			Help: "Total number of subscribers force-closed after failing to drain",
		},
	)

	// Classifier Connectivity Metrics
	ClassifierReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_classifier_reconnects_total",
			Help: "Total number of reconnection attempts to the classifier stream",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netsentry_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netsentry_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsentry_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netsentry_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsentry_duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Simulator Metrics
	SimulatorEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_simulator_events_total",
			Help: "Total number of events generated by the built-in simulator",
		},
	)

	// Mirror Metrics (NATS, build tag: nats)
	MirrorPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_mirror_published_total",
			Help: "Total number of notifications mirrored to the message stream",
		},
	)
)

// RecordIngest records one accepted event from the named source.
func RecordIngest(source string) {
	EventsIngested.WithLabelValues(source).Inc()
}

// RecordMalformed records one dropped record from the named source.
func RecordMalformed(source string) {
	MalformedEvents.WithLabelValues(source).Inc()
}

// SetWindowSize updates the rolling window occupancy gauge.
func SetWindowSize(n int) {
	WindowSize.Set(float64(n))
}

// RecordAnomaly records one emitted anomaly of the given kind.
func RecordAnomaly(kind string) {
	AnomaliesDetected.WithLabelValues(kind).Inc()
}

// RecordScan records the duration of one aggregation scan.
func RecordScan(duration time.Duration) {
	ScanDuration.Observe(duration.Seconds())
}

// RecordNotification records an emitted notification.
func RecordNotification() {
	NotificationsEmitted.Inc()
}

// RecordSuppression records a muted processing call.
func RecordSuppression() {
	NotificationsSuppressed.Inc()
}

// RecordWSMessage records a message queued to a subscriber.
func RecordWSMessage(messageType string) {
	WSMessagesSent.WithLabelValues(messageType).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordMirrorPublish records a notification mirrored to the message stream.
func RecordMirrorPublish() {
	MirrorPublished.Inc()
}
