// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package models defines data structures shared across the NetSentry pipeline:
// classified traffic events, detected anomalies, rate-limited notifications,
// tracked devices, and API response envelopes.
package models

import (
	"time"
)

// Severity indicates the severity level of an event, anomaly, or notification.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRanks orders severities for comparison. Unknown values rank below low.
var severityRanks = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the numeric ordering of the severity (critical highest).
// Unknown severities rank 0, below low.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// Valid reports whether s is one of the four recognized severities.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Protocol constants for classified traffic observations.
// The classifier reports one of these per packet; anything else maps to Other.
const (
	ProtocolModbus = "Modbus"
	ProtocolTCP    = "TCP"
	ProtocolUDP    = "UDP"
	ProtocolICMP   = "ICMP"
	ProtocolOther  = "Other"
)

// Non-attack class sentinels. A predicted_class outside this set is an attack.
const (
	ClassNormal = "normal"
	ClassClean  = "clean"
)

// Event represents one classified network-traffic observation.
//
// Events are created by the ingest adapter, are immutable afterwards, and age
// out of the rolling window FIFO once it exceeds capacity or max age.
//
// Key fields:
//   - ID: Unique identifier assigned at ingest (UUID) unless the source
//     supplied one
//   - Sequence: Monotonic ingest counter; orders events within one process
//     run independent of wall-clock skew
//   - PredictedClass: Classifier label; "normal" and "clean" mark benign
//     traffic, anything else is an attack class
//   - Confidence: Model confidence in [0,1]
//   - Severity: Derived from confidence when the classifier omits it
//   - AnomalyScore: 1-confidence for attacks, confidence for benign traffic,
//     when the classifier does not provide its own score
type Event struct {
	ID             string    `json:"id"`
	Sequence       uint64    `json:"sequence,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	SourceIP       string    `json:"source_ip"`
	DestinationIP  string    `json:"destination_ip,omitempty"`
	Protocol       string    `json:"protocol,omitempty"`
	PacketSize     int       `json:"packet_size,omitempty"`
	PredictedClass string    `json:"predicted_class"`
	Confidence     float64   `json:"confidence"`
	Severity       Severity  `json:"severity,omitempty"`
	AnomalyScore   *float64  `json:"anomaly_score,omitempty"`
	AttackType     string    `json:"attack_type,omitempty"`

	// Features carries raw model feature values for debugging dashboards.
	Features map[string]float64 `json:"features,omitempty"`
}

// IsAttack reports whether the event's class is outside the benign sentinels.
func (e *Event) IsAttack() bool {
	return e.PredictedClass != ClassNormal && e.PredictedClass != ClassClean
}

// EffectiveSeverity returns the event's severity, defaulting attacks without
// an explicit severity to medium. Benign events default to low.
func (e *Event) EffectiveSeverity() Severity {
	if e.Severity.Valid() {
		return e.Severity
	}
	if e.IsAttack() {
		return SeverityMedium
	}
	return SeverityLow
}

// Category returns the grouping key for rate limiting: the attack type when
// known, otherwise the predicted class.
func (e *Event) Category() string {
	if e.AttackType != "" {
		return e.AttackType
	}
	return e.PredictedClass
}

// SeverityFromConfidence derives a severity from a model confidence score.
// Thresholds follow the classifier's reporting convention: above 0.9 is
// critical, above 0.7 high, above 0.5 medium, anything else low.
func SeverityFromConfidence(confidence float64) Severity {
	switch {
	case confidence > 0.9:
		return SeverityCritical
	case confidence > 0.7:
		return SeverityHigh
	case confidence > 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
