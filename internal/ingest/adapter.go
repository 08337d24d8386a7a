// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package ingest

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
)

// MalformedEventError reports a raw record that failed validation.
// Malformed records are dropped and logged; the stream continues.
type MalformedEventError struct {
	Field  string // Offending field name
	Reason string // Why the value was rejected
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event: %s: %s", e.Field, e.Reason)
}

// ConnectionLostError reports an unrecoverable stream transport failure
// after the reconnect budget has been exhausted.
type ConnectionLostError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("connection to %s lost after %d reconnect attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *ConnectionLostError) Unwrap() error {
	return e.Err
}

// RawRecord is one classified traffic observation as delivered by a source
// (classifier stream, pull endpoint, or the built-in simulator) before
// validation and normalization.
//
// Timestamp is deliberately untyped: classifiers report RFC3339 strings,
// ISO-8601 without zone, or epoch seconds, and the simulator hands over
// time.Time directly. The adapter normalizes all of them to UTC.
type RawRecord struct {
	ID             string             `json:"id,omitempty"`
	Timestamp      interface{}        `json:"timestamp"`
	SourceIP       string             `json:"source_ip"`
	DestinationIP  string             `json:"destination_ip,omitempty"`
	Protocol       string             `json:"protocol,omitempty"`
	PacketSize     int                `json:"packet_size,omitempty"`
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Severity       string             `json:"severity,omitempty"`
	AnomalyScore   *float64           `json:"anomaly_score,omitempty"`
	AttackType     string             `json:"attack_type,omitempty"`
	Features       map[string]float64 `json:"features,omitempty"`
}

// RecordHandler consumes raw records produced by a source. Implementations
// must not block for long; sources call the handler from their read loops.
type RecordHandler func(RawRecord)

// Adapter validates raw records and normalizes them into immutable Events.
// It assigns identifiers and a process-wide monotonic sequence so downstream
// consumers can order events independent of wall-clock skew between sources.
//
// Thread Safety: Safe for concurrent use from multiple sources.
type Adapter struct {
	source   string // label for metrics and logs
	seq      atomic.Uint64
	timeFunc func() time.Time
}

// NewAdapter creates an adapter for the named source ("simulator",
// "classifier", "pull").
func NewAdapter(source string) *Adapter {
	return &Adapter{
		source:   source,
		timeFunc: time.Now,
	}
}

// Ingest validates raw and converts it into a normalized Event.
//
// Validation rules:
//   - source_ip, timestamp, and predicted_class are required
//   - confidence must lie in [0,1]
//
// Normalization rules:
//   - timestamps are converted to UTC; string and epoch forms accepted
//   - a missing id gets a fresh UUID
//   - a missing severity is derived from confidence for attack classes
//     and defaults to low for benign traffic
//   - a missing anomaly score derives from confidence
//
// On failure the record is counted, logged at warn, and a
// MalformedEventError returned; the caller drops the record and continues.
func (a *Adapter) Ingest(raw RawRecord) (models.Event, error) {
	if raw.SourceIP == "" {
		return models.Event{}, a.reject("source_ip", "missing")
	}
	if raw.PredictedClass == "" {
		return models.Event{}, a.reject("predicted_class", "missing")
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return models.Event{}, a.reject("confidence", fmt.Sprintf("%v out of range [0,1]", raw.Confidence))
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return models.Event{}, a.reject("timestamp", err.Error())
	}

	event := models.Event{
		ID:             raw.ID,
		Sequence:       a.seq.Add(1),
		Timestamp:      ts.UTC(),
		SourceIP:       raw.SourceIP,
		DestinationIP:  raw.DestinationIP,
		Protocol:       raw.Protocol,
		PacketSize:     raw.PacketSize,
		PredictedClass: raw.PredictedClass,
		Confidence:     raw.Confidence,
		AnomalyScore:   raw.AnomalyScore,
		AttackType:     raw.AttackType,
		Features:       raw.Features,
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	event.Severity = models.Severity(raw.Severity)
	if !event.Severity.Valid() {
		if event.IsAttack() {
			event.Severity = models.SeverityFromConfidence(raw.Confidence)
		} else {
			event.Severity = models.SeverityLow
		}
	}

	if event.AttackType == "" && event.IsAttack() {
		event.AttackType = event.PredictedClass
	}

	if event.AnomalyScore == nil {
		score := raw.Confidence
		if event.IsAttack() {
			score = 1 - raw.Confidence
		}
		event.AnomalyScore = &score
	}

	metrics.RecordIngest(a.source)
	return event, nil
}

// Count returns the number of events the adapter has accepted.
func (a *Adapter) Count() uint64 {
	return a.seq.Load()
}

func (a *Adapter) reject(field, reason string) error {
	metrics.RecordMalformed(a.source)
	err := &MalformedEventError{Field: field, Reason: reason}
	logging.Warn().Str("source", a.source).Str("field", field).Str("reason", reason).Msg("Dropping malformed event")
	return err
}

// timestampLayouts are tried in order for string timestamps. RFC3339 covers
// the classifier's native output; the zone-less forms cover exported
// datasets that record local capture time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing")
	case time.Time:
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("zero time")
		}
		return t, nil
	case string:
		if t == "" {
			return time.Time{}, fmt.Errorf("missing")
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		// Epoch seconds serialized as a string
		if epoch, err := strconv.ParseFloat(t, 64); err == nil {
			return epochToTime(epoch)
		}
		return time.Time{}, fmt.Errorf("unrecognized format %q", t)
	case float64:
		return epochToTime(t)
	case int:
		return epochToTime(float64(t))
	case int64:
		return epochToTime(float64(t))
	case json.Number:
		epoch, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized format %q", t.String())
		}
		return epochToTime(epoch)
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

func epochToTime(epoch float64) (time.Time, error) {
	if epoch <= 0 {
		return time.Time{}, fmt.Errorf("epoch %v out of range", epoch)
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec), nil
}
