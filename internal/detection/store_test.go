// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"github.com/google/uuid"
	"github.com/tomtom215/netsentry/internal/models"
)

// setupTestDB creates an in-memory DuckDB database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// setupTestStore creates a store with initialized schema.
func setupTestStore(t *testing.T) *DuckDBStore {
	t.Helper()
	store := NewDuckDBStore(setupTestDB(t))
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return store
}

// testAnomaly builds a persistable anomaly record.
func testAnomaly(kind models.AnomalyKind, severity models.Severity, sourceIP string, createdAt time.Time) *models.Anomaly {
	return &models.Anomaly{
		ID:       uuid.NewString(),
		Kind:     kind,
		Severity: severity,
		Message:  fmt.Sprintf("test anomaly from %s", sourceIP),
		Details: models.AnomalyDetails{
			AttackType:    "ddos",
			SourceIP:      sourceIP,
			AttackCount:   5,
			MinConfidence: 0.7,
			MaxConfidence: 0.95,
		},
		CreatedAt: createdAt,
	}
}

func TestSaveAndListAnomalies(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAnomaly(models.AnomalyDDoSDetection, models.SeverityCritical, "10.0.0.1", time.Now().UTC())
	if err := store.SaveAnomaly(ctx, a); err != nil {
		t.Fatalf("failed to save anomaly: %v", err)
	}

	anomalies, err := store.ListAnomalies(ctx, AnomalyFilter{})
	if err != nil {
		t.Fatalf("failed to list anomalies: %v", err)
	}
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}

	got := anomalies[0]
	if got.ID != a.ID {
		t.Errorf("expected ID %s, got %s", a.ID, got.ID)
	}
	if got.Kind != models.AnomalyDDoSDetection {
		t.Errorf("expected kind ddos_detection, got %s", got.Kind)
	}
	if got.Severity != models.SeverityCritical {
		t.Errorf("expected severity critical, got %s", got.Severity)
	}
	if got.Details.SourceIP != "10.0.0.1" {
		t.Errorf("expected details source 10.0.0.1, got %s", got.Details.SourceIP)
	}
	if got.Details.AttackCount != 5 {
		t.Errorf("expected details count 5, got %d", got.Details.AttackCount)
	}
	if got.Details.MaxConfidence != 0.95 {
		t.Errorf("expected max confidence 0.95, got %v", got.Details.MaxConfidence)
	}
}

func TestListAnomaliesFilterByKind(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyAttackDetection, models.SeverityMedium, "10.0.0.1", now))
	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyDDoSDetection, models.SeverityCritical, "10.0.0.2", now))
	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyVolumeSpike, models.SeverityHigh, "10.0.0.3", now))

	anomalies, err := store.ListAnomalies(ctx, AnomalyFilter{
		Kinds: []models.AnomalyKind{models.AnomalyDDoSDetection, models.AnomalyVolumeSpike},
	})
	if err != nil {
		t.Fatalf("failed to list anomalies: %v", err)
	}
	if len(anomalies) != 2 {
		t.Errorf("expected 2 anomalies, got %d", len(anomalies))
	}
	for _, a := range anomalies {
		if a.Kind == models.AnomalyAttackDetection {
			t.Errorf("attack_detection should have been filtered out")
		}
	}
}

func TestListAnomaliesFilterBySeverityAndSource(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyAttackDetection, models.SeverityMedium, "10.0.0.1", now))
	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyAttackDetection, models.SeverityCritical, "10.0.0.1", now))
	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyAttackDetection, models.SeverityCritical, "10.0.0.2", now))

	anomalies, err := store.ListAnomalies(ctx, AnomalyFilter{
		Severities: []models.Severity{models.SeverityCritical},
		SourceIP:   "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("failed to list anomalies: %v", err)
	}
	if len(anomalies) != 1 {
		t.Errorf("expected 1 anomaly, got %d", len(anomalies))
	}
}

func TestListAnomaliesDateRange(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_ = store.SaveAnomaly(ctx, testAnomaly(
			models.AnomalyAttackDetection, models.SeverityMedium, "10.0.0.1",
			base.Add(time.Duration(i)*time.Hour)))
	}

	start := base.Add(time.Hour)
	end := base.Add(3 * time.Hour)
	anomalies, err := store.ListAnomalies(ctx, AnomalyFilter{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("failed to list anomalies: %v", err)
	}
	if len(anomalies) != 3 {
		t.Errorf("expected 3 anomalies in range, got %d", len(anomalies))
	}
}

func TestListAnomaliesOrdering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_ = store.SaveAnomaly(ctx, testAnomaly(
			models.AnomalyAttackDetection, models.SeverityMedium, "10.0.0.1",
			base.Add(time.Duration(i)*time.Hour)))
	}

	// Default: created_at DESC
	anomalies, err := store.ListAnomalies(ctx, AnomalyFilter{})
	if err != nil {
		t.Fatalf("failed to list anomalies: %v", err)
	}
	if len(anomalies) != 3 {
		t.Fatalf("expected 3 anomalies, got %d", len(anomalies))
	}
	if !anomalies[0].CreatedAt.After(anomalies[2].CreatedAt) {
		t.Error("expected newest anomaly first by default")
	}

	// Explicit ascending
	anomalies, err = store.ListAnomalies(ctx, AnomalyFilter{
		OrderBy: "created_at", OrderDirection: "asc",
	})
	if err != nil {
		t.Fatalf("failed to list anomalies: %v", err)
	}
	if !anomalies[0].CreatedAt.Before(anomalies[2].CreatedAt) {
		t.Error("expected oldest anomaly first with ascending order")
	}

	// Unknown column falls back to the default instead of injecting
	if _, err := store.ListAnomalies(ctx, AnomalyFilter{
		OrderBy: "created_at; DROP TABLE anomalies",
	}); err != nil {
		t.Fatalf("expected whitelist fallback, got error: %v", err)
	}
}

func TestCountAnomalies(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyAttackDetection, models.SeverityMedium, "10.0.0.1", now))
	_ = store.SaveAnomaly(ctx, testAnomaly(models.AnomalyDDoSDetection, models.SeverityCritical, "10.0.0.1", now))

	count, err := store.CountAnomalies(ctx, AnomalyFilter{})
	if err != nil {
		t.Fatalf("failed to count anomalies: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	count, err = store.CountAnomalies(ctx, AnomalyFilter{
		Kinds: []models.AnomalyKind{models.AnomalyDDoSDetection},
	})
	if err != nil {
		t.Fatalf("failed to count filtered anomalies: %v", err)
	}
	if count != 1 {
		t.Errorf("expected filtered count 1, got %d", count)
	}
}

func TestListAnomaliesPagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		_ = store.SaveAnomaly(ctx, testAnomaly(
			models.AnomalyAttackDetection, models.SeverityMedium, "10.0.0.1",
			base.Add(time.Duration(i)*time.Minute)))
	}

	page, err := store.ListAnomalies(ctx, AnomalyFilter{Limit: 4, Offset: 8})
	if err != nil {
		t.Fatalf("failed to list page: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected 2 anomalies on final page, got %d", len(page))
	}
}

func TestGetAnomaly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAnomaly(models.AnomalyVolumeSpike, models.SeverityHigh, "10.0.0.1", time.Now().UTC())
	a.Details.Sources = []string{"10.0.0.1", "10.0.0.2"}
	if err := store.SaveAnomaly(ctx, a); err != nil {
		t.Fatalf("failed to save anomaly: %v", err)
	}

	got, err := store.GetAnomaly(ctx, a.ID)
	if err != nil {
		t.Fatalf("failed to get anomaly: %v", err)
	}
	if got == nil {
		t.Fatal("expected anomaly, got nil")
	}
	if len(got.Details.Sources) != 2 {
		t.Errorf("expected 2 sources in details, got %d", len(got.Details.Sources))
	}

	missing, err := store.GetAnomaly(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error for missing anomaly: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing anomaly")
	}
}

func TestSaveAndListNotifications(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n := &models.Notification{
		ID:          uuid.NewString(),
		Message:     "ddos: 5 anomalies detected",
		Severity:    models.SeverityCritical,
		Category:    "ddos",
		Count:       5,
		RequiresAck: true,
		EmittedAt:   time.Now().UTC(),
	}
	if err := store.SaveNotification(ctx, n); err != nil {
		t.Fatalf("failed to save notification: %v", err)
	}

	notifications, err := store.ListNotifications(ctx, NotificationFilter{})
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}

	got := notifications[0]
	if got.ID != n.ID {
		t.Errorf("expected ID %s, got %s", n.ID, got.ID)
	}
	if got.Category != "ddos" {
		t.Errorf("expected category ddos, got %s", got.Category)
	}
	if got.Count != 5 {
		t.Errorf("expected count 5, got %d", got.Count)
	}
	if !got.RequiresAck {
		t.Error("expected requires_ack preserved")
	}
	if got.Suppressed {
		t.Error("expected suppressed false")
	}
}

func TestListNotificationsFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	save := func(category string, severity models.Severity, suppressed bool) {
		t.Helper()
		err := store.SaveNotification(ctx, &models.Notification{
			ID:         uuid.NewString(),
			Message:    "test",
			Severity:   severity,
			Category:   category,
			Suppressed: suppressed,
			EmittedAt:  now,
		})
		if err != nil {
			t.Fatalf("failed to save notification: %v", err)
		}
	}

	save("ddos", models.SeverityCritical, false)
	save("mitm", models.SeverityHigh, false)
	save("high_volume", models.SeverityHigh, true)

	byCategory, err := store.ListNotifications(ctx, NotificationFilter{Category: "ddos"})
	if err != nil {
		t.Fatalf("failed to list by category: %v", err)
	}
	if len(byCategory) != 1 {
		t.Errorf("expected 1 notification for category ddos, got %d", len(byCategory))
	}

	suppressed := true
	bySuppressed, err := store.ListNotifications(ctx, NotificationFilter{Suppressed: &suppressed})
	if err != nil {
		t.Fatalf("failed to list by suppressed: %v", err)
	}
	if len(bySuppressed) != 1 {
		t.Errorf("expected 1 suppressed notification, got %d", len(bySuppressed))
	}

	bySeverity, err := store.ListNotifications(ctx, NotificationFilter{
		Severities: []models.Severity{models.SeverityHigh},
	})
	if err != nil {
		t.Fatalf("failed to list by severity: %v", err)
	}
	if len(bySeverity) != 2 {
		t.Errorf("expected 2 high notifications, got %d", len(bySeverity))
	}
}

func TestListNotificationsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_ = store.SaveNotification(ctx, &models.Notification{
			ID:        uuid.NewString(),
			Message:   fmt.Sprintf("notification %d", i),
			Severity:  models.SeverityHigh,
			Category:  "ddos",
			EmittedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	notifications, err := store.ListNotifications(ctx, NotificationFilter{})
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifications) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifications))
	}
	if notifications[0].Message != "notification 2" {
		t.Errorf("expected newest notification first, got %s", notifications[0].Message)
	}
}

func TestEngineWithDuckDBStore(t *testing.T) {
	store := setupTestStore(t)
	engine := newTestEngine(store, 3, 100)
	ctx := context.Background()
	now := time.Now()

	events := []models.Event{
		attackEvent("e1", "10.0.0.1", "ddos", now),
		attackEvent("e2", "10.0.0.1", "ddos", now.Add(time.Second)),
		attackEvent("e3", "10.0.0.1", "ddos", now.Add(2*time.Second)),
	}

	anomalies := engine.Scan(ctx, events)
	if len(anomalies) != 4 {
		t.Fatalf("expected 4 anomalies, got %d", len(anomalies))
	}

	count, err := store.CountAnomalies(ctx, AnomalyFilter{})
	if err != nil {
		t.Fatalf("failed to count persisted anomalies: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 persisted anomalies, got %d", count)
	}
}
