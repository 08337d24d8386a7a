// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/netsentry/internal/models"
)

// VolumeSpikeDetector raises a volume_spike anomaly when the aggregate attack
// count in the window reaches the configured threshold, independent of which
// sources are responsible. Like the flood detector it re-reports only on
// growth and re-arms once the count falls back under the threshold.
type VolumeSpikeDetector struct {
	mu        sync.Mutex
	enabled   bool
	threshold int

	// lastReported is the attack count at the last emission, 0 when the
	// detector is armed.
	lastReported int
}

// NewVolumeSpikeDetector creates a detector with the given aggregate threshold.
func NewVolumeSpikeDetector(threshold int) *VolumeSpikeDetector {
	return &VolumeSpikeDetector{
		enabled:   true,
		threshold: threshold,
	}
}

// Kind returns the anomaly kind.
func (d *VolumeSpikeDetector) Kind() models.AnomalyKind {
	return models.AnomalyVolumeSpike
}

// Scan counts attack events in the snapshot and raises at most one anomaly.
func (d *VolumeSpikeDetector) Scan(events []models.Event) []models.Anomaly {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled {
		return nil
	}

	attacks := attackEvents(events)
	count := len(attacks)

	if count < d.threshold {
		d.lastReported = 0
		return nil
	}
	if count <= d.lastReported {
		return nil
	}
	d.lastReported = count

	sources := uniqueSources(attacks)
	minConf, maxConf := confidenceRange(attacks)

	return []models.Anomaly{{
		ID:       uuid.NewString(),
		Kind:     models.AnomalyVolumeSpike,
		Severity: models.SeverityHigh,
		Message:  fmt.Sprintf("attack volume spike: %d attack events from %d sources in window", count, len(sources)),
		Details: models.AnomalyDetails{
			Sources:       sources,
			AttackCount:   count,
			MinConfidence: minConf,
			MaxConfidence: maxConf,
		},
		CreatedAt: time.Now().UTC(),
	}}
}

// uniqueSources returns the distinct source IPs in first-seen order.
func uniqueSources(attacks []models.Event) []string {
	seen := make(map[string]struct{}, len(attacks))
	sources := make([]string, 0, len(attacks))
	for _, e := range attacks {
		if _, ok := seen[e.SourceIP]; ok {
			continue
		}
		seen[e.SourceIP] = struct{}{}
		sources = append(sources, e.SourceIP)
	}
	return sources
}

// confidenceRange returns the min and max confidence across the events.
func confidenceRange(attacks []models.Event) (float64, float64) {
	if len(attacks) == 0 {
		return 0, 0
	}
	minConf, maxConf := attacks[0].Confidence, attacks[0].Confidence
	for _, e := range attacks[1:] {
		if e.Confidence < minConf {
			minConf = e.Confidence
		}
		if e.Confidence > maxConf {
			maxConf = e.Confidence
		}
	}
	return minConf, maxConf
}

// Reset re-arms the detector.
func (d *VolumeSpikeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastReported = 0
}

// Enabled returns whether this detector is currently enabled.
func (d *VolumeSpikeDetector) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *VolumeSpikeDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
