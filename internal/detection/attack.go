// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/netsentry/internal/models"
)

// AttackDetector raises one attack_detection anomaly per classified attack
// event. Events are deduplicated by id across scans: an event already
// reported never produces a second anomaly, so re-scanning an unchanged
// window is a no-op.
type AttackDetector struct {
	mu      sync.Mutex
	enabled bool

	// reported holds the ids of events already raised. Entries whose events
	// have aged out of the window are pruned each scan, bounding the set at
	// window capacity.
	reported map[string]struct{}
}

// NewAttackDetector creates a new per-event attack detector.
func NewAttackDetector() *AttackDetector {
	return &AttackDetector{
		enabled:  true,
		reported: make(map[string]struct{}),
	}
}

// Kind returns the anomaly kind.
func (d *AttackDetector) Kind() models.AnomalyKind {
	return models.AnomalyAttackDetection
}

// Scan raises anomalies for attack events not yet reported, in event
// timestamp order.
func (d *AttackDetector) Scan(events []models.Event) []models.Anomaly {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled {
		return nil
	}

	attacks := attackEvents(events)
	if len(attacks) == 0 {
		d.reported = make(map[string]struct{})
		return nil
	}

	// Prune ids that aged out of the window. An evicted event can never
	// reappear, so dropping it keeps the set bounded without risking a
	// duplicate report.
	current := make(map[string]struct{}, len(attacks))
	for _, e := range attacks {
		current[e.ID] = struct{}{}
	}
	for id := range d.reported {
		if _, ok := current[id]; !ok {
			delete(d.reported, id)
		}
	}

	fresh := make([]models.Event, 0, len(attacks))
	for _, e := range attacks {
		if _, ok := d.reported[e.ID]; ok {
			continue
		}
		d.reported[e.ID] = struct{}{}
		fresh = append(fresh, e)
	}

	if len(fresh) == 0 {
		return nil
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Timestamp.Before(fresh[j].Timestamp)
	})

	anomalies := make([]models.Anomaly, 0, len(fresh))
	for _, e := range fresh {
		anomalies = append(anomalies, newAttackAnomaly(e))
	}
	return anomalies
}

// newAttackAnomaly builds the anomaly record for a single attack event.
func newAttackAnomaly(e models.Event) models.Anomaly {
	attackType := e.Category()
	return models.Anomaly{
		ID:       uuid.NewString(),
		Kind:     models.AnomalyAttackDetection,
		Severity: e.EffectiveSeverity(),
		Message:  fmt.Sprintf("%s attack detected from %s", attackType, e.SourceIP),
		Details: models.AnomalyDetails{
			AttackType:    attackType,
			SourceIP:      e.SourceIP,
			EventID:       e.ID,
			AttackCount:   1,
			MinConfidence: e.Confidence,
			MaxConfidence: e.Confidence,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Reset clears the reported-event set.
func (d *AttackDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reported = make(map[string]struct{})
}

// Enabled returns whether this detector is currently enabled.
func (d *AttackDetector) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *AttackDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
