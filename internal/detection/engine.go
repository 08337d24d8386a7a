// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
)

// recentAnomalyCap bounds the in-memory anomaly history handed to new
// subscribers and the realtime API.
const recentAnomalyCap = 100

// Engine coordinates window scans across registered detectors.
//
// Detectors run in registration order and each orders its own output, so a
// scan emits per-event detections first (timestamp order), then floods
// (descending count), then the volume aggregate. The engine retains a capped
// recent-anomalies list for subscriber snapshots and persists every anomaly
// to the store when one is configured.
type Engine struct {
	mu        sync.RWMutex
	enabled   bool
	detectors []Detector
	store     AnomalyStore

	recentMu sync.RWMutex
	recent   []models.Anomaly

	countersMu       sync.RWMutex
	scansRun         int64
	anomaliesEmitted int64
	byKind           map[models.AnomalyKind]int64
	lastScanAt       time.Time
	lastScanDuration time.Duration
}

// NewEngine creates an aggregation engine. The store may be nil, in which
// case anomalies are kept only in the capped in-memory history.
func NewEngine(store AnomalyStore) *Engine {
	return &Engine{
		enabled:   true,
		detectors: make([]Detector, 0, 3),
		store:     store,
		recent:    make([]models.Anomaly, 0, recentAnomalyCap),
		byKind:    make(map[models.AnomalyKind]int64),
	}
}

// RegisterDetector appends a detector. Registration order defines emission
// order within a scan.
func (e *Engine) RegisterDetector(detector Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.detectors = append(e.detectors, detector)
	logging.Info().Str("detector", string(detector.Kind())).Msg("registered detector")
}

// Scan evaluates the window snapshot with every enabled detector and returns
// the anomalies raised. An empty snapshot is a no-op. Persistence failures
// are logged and do not fail the scan.
func (e *Engine) Scan(ctx context.Context, events []models.Event) []models.Anomaly {
	if len(events) == 0 {
		return nil
	}

	detectors := e.enabledDetectors()
	if detectors == nil {
		return nil
	}

	start := time.Now()

	var anomalies []models.Anomaly
	for _, d := range detectors {
		anomalies = append(anomalies, d.Scan(events)...)
	}

	e.recordScan(start, anomalies)

	if len(anomalies) == 0 {
		return nil
	}

	e.retain(anomalies)
	e.persist(ctx, anomalies)

	return anomalies
}

// enabledDetectors returns the detectors to run, preserving registration
// order, or nil if the engine is disabled or nothing is registered.
func (e *Engine) enabledDetectors() []Detector {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enabled {
		return nil
	}

	detectors := make([]Detector, 0, len(e.detectors))
	for _, d := range e.detectors {
		if d.Enabled() {
			detectors = append(detectors, d)
		}
	}

	if len(detectors) == 0 {
		return nil
	}
	return detectors
}

// recordScan updates engine counters and instrumentation.
func (e *Engine) recordScan(start time.Time, anomalies []models.Anomaly) {
	elapsed := time.Since(start)
	metrics.RecordScan(elapsed)
	for _, a := range anomalies {
		metrics.RecordAnomaly(string(a.Kind))
	}

	e.countersMu.Lock()
	e.scansRun++
	e.anomaliesEmitted += int64(len(anomalies))
	for _, a := range anomalies {
		e.byKind[a.Kind]++
	}
	e.lastScanAt = time.Now()
	e.lastScanDuration = elapsed
	e.countersMu.Unlock()
}

// retain appends anomalies to the capped recent history, oldest dropped first.
func (e *Engine) retain(anomalies []models.Anomaly) {
	e.recentMu.Lock()
	defer e.recentMu.Unlock()

	e.recent = append(e.recent, anomalies...)
	if overflow := len(e.recent) - recentAnomalyCap; overflow > 0 {
		e.recent = append(e.recent[:0], e.recent[overflow:]...)
	}
}

// persist saves anomalies to the configured store.
func (e *Engine) persist(ctx context.Context, anomalies []models.Anomaly) {
	if e.store == nil {
		return
	}
	for i := range anomalies {
		if err := e.store.SaveAnomaly(ctx, &anomalies[i]); err != nil {
			logging.Error().Err(err).Str("anomaly_id", anomalies[i].ID).Msg("failed to save anomaly")
		}
	}
}

// Recent returns up to limit retained anomalies, newest first. A limit of
// zero or less returns the full retained history.
func (e *Engine) Recent(limit int) []models.Anomaly {
	e.recentMu.RLock()
	defer e.recentMu.RUnlock()

	n := len(e.recent)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]models.Anomaly, 0, n)
	for i := len(e.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, e.recent[i])
	}
	return out
}

// Reset clears detector deduplication state and the retained history.
// Used when playback restarts from a clean slate.
func (e *Engine) Reset() {
	e.mu.RLock()
	detectors := make([]Detector, len(e.detectors))
	copy(detectors, e.detectors)
	e.mu.RUnlock()

	for _, d := range detectors {
		d.Reset()
	}

	e.recentMu.Lock()
	e.recent = e.recent[:0]
	e.recentMu.Unlock()
}

// SetEnabled enables or disables the whole engine.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// Enabled returns whether the engine is enabled.
func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// Store exposes the configured anomaly store, nil when persistence is off.
func (e *Engine) Store() AnomalyStore {
	return e.store
}

// Metrics returns a copy of the engine counters.
func (e *Engine) Metrics() EngineMetrics {
	e.countersMu.RLock()
	byKind := make(map[models.AnomalyKind]int64, len(e.byKind))
	for k, v := range e.byKind {
		byKind[k] = v
	}
	m := EngineMetrics{
		ScansRun:         e.scansRun,
		AnomaliesEmitted: e.anomaliesEmitted,
		ByKind:           byKind,
		LastScanAt:       e.lastScanAt,
		LastScanDuration: e.lastScanDuration,
	}
	e.countersMu.RUnlock()

	e.mu.RLock()
	m.DetectorEnabled = make(map[models.AnomalyKind]bool, len(e.detectors))
	for _, d := range e.detectors {
		m.DetectorEnabled[d.Kind()] = d.Enabled()
	}
	e.mu.RUnlock()

	return m
}
