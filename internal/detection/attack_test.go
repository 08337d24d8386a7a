// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"testing"
	"time"

	"github.com/tomtom215/netsentry/internal/models"
)

func TestAttackDetectorEmitsPerAttackEvent(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	events := []models.Event{
		benignEvent("b1", "192.168.1.5", now),
		attackEvent("a1", "10.0.0.1", "mitm", now.Add(time.Second)),
		benignEvent("b2", "192.168.1.6", now.Add(2*time.Second)),
		attackEvent("a2", "10.0.0.2", "ddos", now.Add(3*time.Second)),
	}

	anomalies := d.Scan(events)
	if len(anomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got %d", len(anomalies))
	}

	first := anomalies[0]
	if first.Kind != models.AnomalyAttackDetection {
		t.Errorf("expected attack_detection, got %s", first.Kind)
	}
	if first.Details.EventID != "a1" {
		t.Errorf("expected event a1 first, got %s", first.Details.EventID)
	}
	if first.Details.SourceIP != "10.0.0.1" {
		t.Errorf("expected source 10.0.0.1, got %s", first.Details.SourceIP)
	}
	if first.Details.AttackType != "mitm" {
		t.Errorf("expected attack type mitm, got %s", first.Details.AttackType)
	}
	if first.Message != "mitm attack detected from 10.0.0.1" {
		t.Errorf("unexpected message: %s", first.Message)
	}
	if first.ID == "" {
		t.Error("expected anomaly ID assigned")
	}
}

func TestAttackDetectorIdempotentRescan(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	events := []models.Event{
		attackEvent("a1", "10.0.0.1", "mitm", now),
		attackEvent("a2", "10.0.0.2", "ddos", now.Add(time.Second)),
	}

	if got := len(d.Scan(events)); got != 2 {
		t.Fatalf("expected 2 anomalies on first scan, got %d", got)
	}
	if got := len(d.Scan(events)); got != 0 {
		t.Errorf("expected 0 anomalies on rescan, got %d", got)
	}
}

func TestAttackDetectorReportsOnlyNewEvents(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	e1 := attackEvent("a1", "10.0.0.1", "mitm", now)
	e2 := attackEvent("a2", "10.0.0.2", "ddos", now.Add(time.Second))

	d.Scan([]models.Event{e1})

	anomalies := d.Scan([]models.Event{e1, e2})
	if len(anomalies) != 1 {
		t.Fatalf("expected only the new event reported, got %d anomalies", len(anomalies))
	}
	if anomalies[0].Details.EventID != "a2" {
		t.Errorf("expected event a2, got %s", anomalies[0].Details.EventID)
	}
}

func TestAttackDetectorTimestampOrder(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	// Snapshot order differs from timestamp order
	events := []models.Event{
		attackEvent("late", "10.0.0.1", "mitm", now.Add(5*time.Second)),
		attackEvent("early", "10.0.0.2", "ddos", now),
		attackEvent("mid", "10.0.0.3", "scan", now.Add(2*time.Second)),
	}

	anomalies := d.Scan(events)
	if len(anomalies) != 3 {
		t.Fatalf("expected 3 anomalies, got %d", len(anomalies))
	}

	want := []string{"early", "mid", "late"}
	for i, id := range want {
		if anomalies[i].Details.EventID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, anomalies[i].Details.EventID)
		}
	}
}

func TestAttackDetectorSeverity(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	explicit := attackEvent("a1", "10.0.0.1", "mitm", now)
	explicit.Severity = models.SeverityCritical
	implicit := attackEvent("a2", "10.0.0.2", "ddos", now.Add(time.Second))

	anomalies := d.Scan([]models.Event{explicit, implicit})
	if len(anomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got %d", len(anomalies))
	}
	if anomalies[0].Severity != models.SeverityCritical {
		t.Errorf("expected explicit severity carried over, got %s", anomalies[0].Severity)
	}
	if anomalies[1].Severity != models.SeverityMedium {
		t.Errorf("expected default medium severity, got %s", anomalies[1].Severity)
	}
}

func TestAttackDetectorStateResetsWhenWindowClears(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	e := attackEvent("a1", "10.0.0.1", "mitm", now)
	d.Scan([]models.Event{e})

	// Window rotated to benign traffic only: dedup state is dropped
	d.Scan([]models.Event{benignEvent("b1", "192.168.1.5", now.Add(time.Minute))})

	anomalies := d.Scan([]models.Event{e})
	if len(anomalies) != 1 {
		t.Errorf("expected re-detection after state reset, got %d anomalies", len(anomalies))
	}
}

func TestAttackDetectorPrunesEvictedEvents(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	e1 := attackEvent("a1", "10.0.0.1", "mitm", now)
	e2 := attackEvent("a2", "10.0.0.2", "ddos", now.Add(time.Second))

	d.Scan([]models.Event{e1, e2})

	// e1 aged out; its dedup entry is pruned while e2's survives
	if got := len(d.Scan([]models.Event{e2})); got != 0 {
		t.Errorf("expected no anomalies after eviction prune, got %d", got)
	}

	d.mu.Lock()
	_, hasE1 := d.reported["a1"]
	_, hasE2 := d.reported["a2"]
	d.mu.Unlock()
	if hasE1 {
		t.Error("expected evicted event pruned from reported set")
	}
	if !hasE2 {
		t.Error("expected surviving event retained in reported set")
	}
}

func TestAttackDetectorReset(t *testing.T) {
	d := NewAttackDetector()
	now := time.Now()

	e := attackEvent("a1", "10.0.0.1", "mitm", now)
	d.Scan([]models.Event{e})
	d.Reset()

	if got := len(d.Scan([]models.Event{e})); got != 1 {
		t.Errorf("expected re-detection after reset, got %d anomalies", got)
	}
}

func TestAttackDetectorConfidenceDetails(t *testing.T) {
	d := NewAttackDetector()

	e := attackEvent("a1", "10.0.0.1", "mitm", time.Now())
	e.Confidence = 0.87

	anomalies := d.Scan([]models.Event{e})
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}
	details := anomalies[0].Details
	if details.MinConfidence != 0.87 || details.MaxConfidence != 0.87 {
		t.Errorf("expected confidence range [0.87, 0.87], got [%v, %v]",
			details.MinConfidence, details.MaxConfidence)
	}
	if details.AttackCount != 1 {
		t.Errorf("expected attack count 1, got %d", details.AttackCount)
	}
}
