// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/netsentry/internal/models"
)

// mockAnomalyStore implements AnomalyStore for testing
type mockAnomalyStore struct {
	mu       sync.Mutex
	saved    []models.Anomaly
	failSave bool
}

func (m *mockAnomalyStore) SaveAnomaly(ctx context.Context, anomaly *models.Anomaly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("save failed")
	}
	m.saved = append(m.saved, *anomaly)
	return nil
}

func (m *mockAnomalyStore) ListAnomalies(ctx context.Context, filter AnomalyFilter) ([]models.Anomaly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Anomaly, len(m.saved))
	copy(out, m.saved)
	return out, nil
}

func (m *mockAnomalyStore) CountAnomalies(ctx context.Context, filter AnomalyFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved), nil
}

func (m *mockAnomalyStore) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// attackEvent builds a classified attack event for tests.
func attackEvent(id, sourceIP, class string, ts time.Time) models.Event {
	return models.Event{
		ID:             id,
		Timestamp:      ts,
		SourceIP:       sourceIP,
		PredictedClass: class,
		Confidence:     0.9,
	}
}

// benignEvent builds a normal-class event for tests.
func benignEvent(id, sourceIP string, ts time.Time) models.Event {
	return models.Event{
		ID:             id,
		Timestamp:      ts,
		SourceIP:       sourceIP,
		PredictedClass: models.ClassNormal,
		Confidence:     0.95,
	}
}

// newTestEngine builds an engine with the standard detector set registered
// in production order.
func newTestEngine(store AnomalyStore, ddosThreshold, volumeThreshold int) *Engine {
	engine := NewEngine(store)
	engine.RegisterDetector(NewAttackDetector())
	engine.RegisterDetector(NewDDoSDetector(ddosThreshold))
	engine.RegisterDetector(NewVolumeSpikeDetector(volumeThreshold))
	return engine
}

func TestEngineScanEmptyWindow(t *testing.T) {
	engine := newTestEngine(nil, 5, 20)

	anomalies := engine.Scan(context.Background(), nil)
	if anomalies != nil {
		t.Errorf("expected nil anomalies for empty window, got %d", len(anomalies))
	}

	m := engine.Metrics()
	if m.ScansRun != 0 {
		t.Errorf("expected no scans counted for empty window, got %d", m.ScansRun)
	}
}

func TestEngineScanBenignOnly(t *testing.T) {
	engine := newTestEngine(nil, 5, 20)
	now := time.Now()

	events := []models.Event{
		benignEvent("e1", "192.168.1.10", now),
		benignEvent("e2", "192.168.1.11", now.Add(time.Second)),
	}

	anomalies := engine.Scan(context.Background(), events)
	if len(anomalies) != 0 {
		t.Errorf("expected no anomalies for benign traffic, got %d", len(anomalies))
	}

	m := engine.Metrics()
	if m.ScansRun != 1 {
		t.Errorf("expected 1 scan counted, got %d", m.ScansRun)
	}
	if m.AnomaliesEmitted != 0 {
		t.Errorf("expected 0 anomalies counted, got %d", m.AnomaliesEmitted)
	}
}

func TestEngineScanOrdering(t *testing.T) {
	engine := newTestEngine(nil, 3, 100)
	now := time.Now()

	// Three attacks from one source trip the flood threshold; the per-event
	// detections must come first, then the flood.
	events := []models.Event{
		attackEvent("e1", "10.0.0.1", "ddos", now),
		attackEvent("e2", "10.0.0.1", "ddos", now.Add(time.Second)),
		attackEvent("e3", "10.0.0.1", "ddos", now.Add(2*time.Second)),
	}

	anomalies := engine.Scan(context.Background(), events)
	if len(anomalies) != 4 {
		t.Fatalf("expected 4 anomalies (3 attacks + 1 flood), got %d", len(anomalies))
	}

	for i := 0; i < 3; i++ {
		if anomalies[i].Kind != models.AnomalyAttackDetection {
			t.Errorf("anomaly %d: expected attack_detection, got %s", i, anomalies[i].Kind)
		}
	}
	if anomalies[3].Kind != models.AnomalyDDoSDetection {
		t.Errorf("expected flood anomaly last, got %s", anomalies[3].Kind)
	}

	// Per-event detections follow event timestamp order
	if anomalies[0].Details.EventID != "e1" || anomalies[2].Details.EventID != "e3" {
		t.Errorf("per-event anomalies out of timestamp order: %s, %s, %s",
			anomalies[0].Details.EventID, anomalies[1].Details.EventID, anomalies[2].Details.EventID)
	}
}

func TestEngineScanIdempotentRescan(t *testing.T) {
	engine := newTestEngine(nil, 3, 100)
	now := time.Now()

	events := []models.Event{
		attackEvent("e1", "10.0.0.1", "ddos", now),
		attackEvent("e2", "10.0.0.1", "ddos", now.Add(time.Second)),
		attackEvent("e3", "10.0.0.1", "ddos", now.Add(2*time.Second)),
	}

	first := engine.Scan(context.Background(), events)
	if len(first) != 4 {
		t.Fatalf("expected 4 anomalies on first scan, got %d", len(first))
	}

	// Unchanged window: every detector already reported its state
	second := engine.Scan(context.Background(), events)
	if len(second) != 0 {
		t.Errorf("expected no anomalies on rescan of unchanged window, got %d", len(second))
	}
}

func TestEngineScanPersists(t *testing.T) {
	store := &mockAnomalyStore{}
	engine := newTestEngine(store, 5, 20)
	now := time.Now()

	engine.Scan(context.Background(), []models.Event{
		attackEvent("e1", "10.0.0.1", "mitm", now),
	})

	if store.savedCount() != 1 {
		t.Errorf("expected 1 anomaly persisted, got %d", store.savedCount())
	}
}

func TestEngineScanPersistFailureNonFatal(t *testing.T) {
	store := &mockAnomalyStore{failSave: true}
	engine := newTestEngine(store, 5, 20)
	now := time.Now()

	anomalies := engine.Scan(context.Background(), []models.Event{
		attackEvent("e1", "10.0.0.1", "mitm", now),
	})

	if len(anomalies) != 1 {
		t.Errorf("expected anomaly returned despite persistence failure, got %d", len(anomalies))
	}
}

func TestEngineRecent(t *testing.T) {
	engine := newTestEngine(nil, 100, 100)
	now := time.Now()

	for i := 0; i < 5; i++ {
		engine.Scan(context.Background(), []models.Event{
			attackEvent(fmt.Sprintf("e%d", i), "10.0.0.1", "mitm", now.Add(time.Duration(i)*time.Second)),
		})
	}

	recent := engine.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent anomalies, got %d", len(recent))
	}
	// Newest first
	if recent[0].Details.EventID != "e4" {
		t.Errorf("expected newest anomaly first, got event %s", recent[0].Details.EventID)
	}

	all := engine.Recent(0)
	if len(all) != 5 {
		t.Errorf("expected all 5 anomalies with zero limit, got %d", len(all))
	}
}

func TestEngineRecentCapped(t *testing.T) {
	engine := newTestEngine(nil, 1000, 1000)
	now := time.Now()

	for i := 0; i < recentAnomalyCap+20; i++ {
		engine.Scan(context.Background(), []models.Event{
			attackEvent(fmt.Sprintf("e%d", i), "10.0.0.1", "mitm", now.Add(time.Duration(i)*time.Millisecond)),
		})
	}

	all := engine.Recent(0)
	if len(all) != recentAnomalyCap {
		t.Errorf("expected retained history capped at %d, got %d", recentAnomalyCap, len(all))
	}
	// The oldest entries were dropped
	if all[0].Details.EventID != fmt.Sprintf("e%d", recentAnomalyCap+19) {
		t.Errorf("expected newest anomaly first after overflow, got %s", all[0].Details.EventID)
	}
}

func TestEngineReset(t *testing.T) {
	engine := newTestEngine(nil, 3, 100)
	now := time.Now()

	events := []models.Event{
		attackEvent("e1", "10.0.0.1", "ddos", now),
		attackEvent("e2", "10.0.0.1", "ddos", now.Add(time.Second)),
		attackEvent("e3", "10.0.0.1", "ddos", now.Add(2*time.Second)),
	}

	engine.Scan(context.Background(), events)
	engine.Reset()

	if len(engine.Recent(0)) != 0 {
		t.Error("expected retained history cleared after reset")
	}

	// Detector state is cleared too, so the same window reports fresh
	anomalies := engine.Scan(context.Background(), events)
	if len(anomalies) != 4 {
		t.Errorf("expected full re-detection after reset, got %d anomalies", len(anomalies))
	}
}

func TestEngineDisabled(t *testing.T) {
	engine := newTestEngine(nil, 5, 20)
	engine.SetEnabled(false)

	anomalies := engine.Scan(context.Background(), []models.Event{
		attackEvent("e1", "10.0.0.1", "mitm", time.Now()),
	})
	if anomalies != nil {
		t.Errorf("expected nil anomalies from disabled engine, got %d", len(anomalies))
	}

	engine.SetEnabled(true)
	if !engine.Enabled() {
		t.Error("expected engine enabled after SetEnabled(true)")
	}
}

func TestEngineDetectorDisabled(t *testing.T) {
	engine := NewEngine(nil)
	attack := NewAttackDetector()
	attack.SetEnabled(false)
	engine.RegisterDetector(attack)

	anomalies := engine.Scan(context.Background(), []models.Event{
		attackEvent("e1", "10.0.0.1", "mitm", time.Now()),
	})
	if anomalies != nil {
		t.Errorf("expected nil anomalies with only detector disabled, got %d", len(anomalies))
	}

	m := engine.Metrics()
	if m.DetectorEnabled[models.AnomalyAttackDetection] {
		t.Error("expected metrics to report attack detector disabled")
	}
}

func TestEngineMetricsCounters(t *testing.T) {
	engine := newTestEngine(nil, 100, 100)
	now := time.Now()

	engine.Scan(context.Background(), []models.Event{
		attackEvent("e1", "10.0.0.1", "mitm", now),
		attackEvent("e2", "10.0.0.2", "ddos", now.Add(time.Second)),
	})

	m := engine.Metrics()
	if m.ScansRun != 1 {
		t.Errorf("expected 1 scan, got %d", m.ScansRun)
	}
	if m.AnomaliesEmitted != 2 {
		t.Errorf("expected 2 anomalies emitted, got %d", m.AnomaliesEmitted)
	}
	if m.ByKind[models.AnomalyAttackDetection] != 2 {
		t.Errorf("expected 2 attack_detection anomalies counted, got %d",
			m.ByKind[models.AnomalyAttackDetection])
	}
	if m.LastScanAt.IsZero() {
		t.Error("expected LastScanAt set")
	}
}

func TestEngineConcurrentScanAndRecent(t *testing.T) {
	engine := newTestEngine(&mockAnomalyStore{}, 5, 50)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				engine.Scan(context.Background(), []models.Event{
					attackEvent(fmt.Sprintf("w%d-e%d", worker, j), "10.0.0.1", "mitm", now),
				})
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				engine.Recent(10)
				engine.Metrics()
			}
		}()
	}
	wg.Wait()

	m := engine.Metrics()
	if m.ScansRun != 100 {
		t.Errorf("expected 100 scans counted, got %d", m.ScansRun)
	}
}
