// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/netsentry/internal/models"
)

// mixedAttacks builds n attack events spread across distinct sources.
func mixedAttacks(n, sources int, start time.Time) []models.Event {
	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		source := fmt.Sprintf("10.0.0.%d", i%sources+1)
		events = append(events, attackEvent(
			fmt.Sprintf("a%d", i), source, "scan", start.Add(time.Duration(i)*time.Second)))
	}
	return events
}

func TestVolumeSpikeBelowThreshold(t *testing.T) {
	d := NewVolumeSpikeDetector(10)

	if got := len(d.Scan(mixedAttacks(9, 3, time.Now()))); got != 0 {
		t.Errorf("expected no anomaly below threshold, got %d", got)
	}
}

func TestVolumeSpikeAtThreshold(t *testing.T) {
	d := NewVolumeSpikeDetector(10)

	anomalies := d.Scan(mixedAttacks(10, 3, time.Now()))
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly at threshold, got %d", len(anomalies))
	}

	a := anomalies[0]
	if a.Kind != models.AnomalyVolumeSpike {
		t.Errorf("expected volume_spike, got %s", a.Kind)
	}
	if a.Severity != models.SeverityHigh {
		t.Errorf("expected high severity, got %s", a.Severity)
	}
	if a.Details.AttackCount != 10 {
		t.Errorf("expected attack count 10, got %d", a.Details.AttackCount)
	}
	if len(a.Details.Sources) != 3 {
		t.Errorf("expected 3 distinct sources, got %d", len(a.Details.Sources))
	}
	if a.Message != "attack volume spike: 10 attack events from 3 sources in window" {
		t.Errorf("unexpected message: %s", a.Message)
	}
}

func TestVolumeSpikeCountsOnlyAttacks(t *testing.T) {
	d := NewVolumeSpikeDetector(5)
	now := time.Now()

	events := mixedAttacks(4, 2, now)
	for i := 0; i < 10; i++ {
		events = append(events, benignEvent(fmt.Sprintf("b%d", i), "192.168.1.5", now))
	}

	if got := len(d.Scan(events)); got != 0 {
		t.Errorf("expected benign events excluded from volume count, got %d anomalies", got)
	}
}

func TestVolumeSpikeNoReEmitWithoutGrowth(t *testing.T) {
	d := NewVolumeSpikeDetector(5)
	events := mixedAttacks(6, 2, time.Now())

	if got := len(d.Scan(events)); got != 1 {
		t.Fatalf("expected 1 anomaly on first scan, got %d", got)
	}
	if got := len(d.Scan(events)); got != 0 {
		t.Errorf("expected no re-emission for unchanged count, got %d", got)
	}
}

func TestVolumeSpikeReEmitsOnGrowth(t *testing.T) {
	d := NewVolumeSpikeDetector(5)
	now := time.Now()

	d.Scan(mixedAttacks(5, 2, now))

	anomalies := d.Scan(mixedAttacks(8, 2, now))
	if len(anomalies) != 1 {
		t.Fatalf("expected re-emission on grown count, got %d anomalies", len(anomalies))
	}
	if anomalies[0].Details.AttackCount != 8 {
		t.Errorf("expected updated count 8, got %d", anomalies[0].Details.AttackCount)
	}
}

func TestVolumeSpikeRearmsAfterDecay(t *testing.T) {
	d := NewVolumeSpikeDetector(5)
	now := time.Now()

	d.Scan(mixedAttacks(6, 2, now))

	// Attack volume ages out
	if got := len(d.Scan(mixedAttacks(2, 2, now))); got != 0 {
		t.Fatalf("expected no anomaly under threshold, got %d", got)
	}

	// A second spike of the same size fires again
	if got := len(d.Scan(mixedAttacks(6, 2, now.Add(time.Minute)))); got != 1 {
		t.Errorf("expected re-armed detector to fire, got %d anomalies", got)
	}
}

func TestVolumeSpikeSourcesFirstSeenOrder(t *testing.T) {
	d := NewVolumeSpikeDetector(3)
	now := time.Now()

	events := []models.Event{
		attackEvent("a1", "10.0.0.3", "scan", now),
		attackEvent("a2", "10.0.0.1", "scan", now),
		attackEvent("a3", "10.0.0.3", "scan", now),
		attackEvent("a4", "10.0.0.2", "scan", now),
	}

	anomalies := d.Scan(events)
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}

	want := []string{"10.0.0.3", "10.0.0.1", "10.0.0.2"}
	sources := anomalies[0].Details.Sources
	if len(sources) != len(want) {
		t.Fatalf("expected %d sources, got %d", len(want), len(sources))
	}
	for i, s := range want {
		if sources[i] != s {
			t.Errorf("source %d: expected %s, got %s", i, s, sources[i])
		}
	}
}

func TestVolumeSpikeReset(t *testing.T) {
	d := NewVolumeSpikeDetector(5)
	events := mixedAttacks(6, 2, time.Now())

	d.Scan(events)
	d.Reset()

	if got := len(d.Scan(events)); got != 1 {
		t.Errorf("expected re-detection after reset, got %d anomalies", got)
	}
}
