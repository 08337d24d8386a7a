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

// DDoSDetector raises a ddos_detection anomaly when one source accounts for
// at least threshold attack events inside the window. An ongoing flood is
// re-reported only when its event count has grown since the last report for
// that source; once a source falls back under the threshold its state is
// cleared so a fresh flood fires again.
type DDoSDetector struct {
	mu        sync.Mutex
	enabled   bool
	threshold int

	// lastReported maps source IP to the event count at the last emission.
	lastReported map[string]int
}

// NewDDoSDetector creates a flood detector with the given per-source threshold.
func NewDDoSDetector(threshold int) *DDoSDetector {
	return &DDoSDetector{
		enabled:      true,
		threshold:    threshold,
		lastReported: make(map[string]int),
	}
}

// Kind returns the anomaly kind.
func (d *DDoSDetector) Kind() models.AnomalyKind {
	return models.AnomalyDDoSDetection
}

// sourceGroup aggregates the attack events observed from one source.
type sourceGroup struct {
	source        string
	count         int
	attackType    string
	minConfidence float64
	maxConfidence float64
}

// Scan groups attack events by source and raises one anomaly per qualifying
// source, ordered by descending event count.
func (d *DDoSDetector) Scan(events []models.Event) []models.Anomaly {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled {
		return nil
	}

	groups := groupBySource(attackEvents(events))

	// Clear state for sources that dropped under the threshold so the next
	// flood from the same source is reported as new.
	for source := range d.lastReported {
		g, ok := groups[source]
		if !ok || g.count < d.threshold {
			delete(d.lastReported, source)
		}
	}

	qualifying := make([]sourceGroup, 0, len(groups))
	for _, g := range groups {
		if g.count < d.threshold {
			continue
		}
		if last, ok := d.lastReported[g.source]; ok && g.count <= last {
			continue
		}
		qualifying = append(qualifying, g)
	}

	if len(qualifying) == 0 {
		return nil
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		if qualifying[i].count != qualifying[j].count {
			return qualifying[i].count > qualifying[j].count
		}
		return qualifying[i].source < qualifying[j].source
	})

	anomalies := make([]models.Anomaly, 0, len(qualifying))
	for _, g := range qualifying {
		d.lastReported[g.source] = g.count
		anomalies = append(anomalies, newFloodAnomaly(g))
	}
	return anomalies
}

// groupBySource aggregates attack events per source IP.
func groupBySource(attacks []models.Event) map[string]sourceGroup {
	groups := make(map[string]sourceGroup)
	for _, e := range attacks {
		g, ok := groups[e.SourceIP]
		if !ok {
			g = sourceGroup{
				source:        e.SourceIP,
				attackType:    e.Category(),
				minConfidence: e.Confidence,
				maxConfidence: e.Confidence,
			}
		}
		g.count++
		if e.Confidence < g.minConfidence {
			g.minConfidence = e.Confidence
		}
		if e.Confidence > g.maxConfidence {
			g.maxConfidence = e.Confidence
		}
		groups[e.SourceIP] = g
	}
	return groups
}

// newFloodAnomaly builds the anomaly record for a qualifying source.
// Floods are always critical regardless of the underlying event severities.
func newFloodAnomaly(g sourceGroup) models.Anomaly {
	return models.Anomaly{
		ID:       uuid.NewString(),
		Kind:     models.AnomalyDDoSDetection,
		Severity: models.SeverityCritical,
		Message:  fmt.Sprintf("possible flood from %s: %d attack events in window", g.source, g.count),
		Details: models.AnomalyDetails{
			AttackType:    g.attackType,
			SourceIP:      g.source,
			AttackCount:   g.count,
			MinConfidence: g.minConfidence,
			MaxConfidence: g.maxConfidence,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Reset clears per-source flood state.
func (d *DDoSDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastReported = make(map[string]int)
}

// Enabled returns whether this detector is currently enabled.
func (d *DDoSDetector) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *DDoSDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
