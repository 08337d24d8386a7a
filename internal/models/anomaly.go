// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package models

import (
	"time"
)

// AnomalyKind identifies the pattern a detector recognized.
type AnomalyKind string

const (
	// AnomalyAttackDetection is a single event carrying a non-benign class.
	AnomalyAttackDetection AnomalyKind = "attack_detection"

	// AnomalyDDoSDetection is a repeated-source flood: at least the configured
	// threshold of attack events from one source IP inside the window.
	AnomalyDDoSDetection AnomalyKind = "ddos_detection"

	// AnomalyVolumeSpike is an aggregate surge: total in-window attack count
	// at or above the configured spike threshold.
	AnomalyVolumeSpike AnomalyKind = "volume_spike"
)

// AnomalyDetails carries the structured evidence behind an anomaly.
// Field names are stable because the dashboard reads them directly.
type AnomalyDetails struct {
	AttackType    string   `json:"attackType,omitempty"`
	SourceIP      string   `json:"sourceIP,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	AttackCount   int      `json:"attackCount,omitempty"`
	MinConfidence float64  `json:"minConfidence,omitempty"`
	MaxConfidence float64  `json:"maxConfidence,omitempty"`

	// WindowSeconds is the aggregation span the evidence was collected over.
	WindowSeconds int `json:"windowSeconds,omitempty"`

	// EventID links an attack_detection anomaly back to its triggering event.
	EventID string `json:"eventId,omitempty"`
}

// Anomaly is a detected suspicious pattern derived from the rolling window.
//
// Anomalies are created by the aggregation engine, consumed by the
// notification limiter and the broadcaster, and kept in a capped recent
// list for dashboard history. They are never mutated after creation.
type Anomaly struct {
	ID        string         `json:"id"`
	Kind      AnomalyKind    `json:"kind"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   AnomalyDetails `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}

// Category returns the grouping key used by the notification limiter:
// the attack type when known, otherwise the anomaly kind.
func (a *Anomaly) Category() string {
	if a.Details.AttackType != "" {
		return a.Details.AttackType
	}
	return string(a.Kind)
}
