// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package detection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
)

// DuckDBStore implements AnomalyStore and NotificationStore using DuckDB as
// the backend storage.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a new DuckDB-backed store.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// InitSchema creates the anomaly and notification tables if they don't exist.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		// Detected anomalies
		`CREATE TABLE IF NOT EXISTS anomalies (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			source_ip TEXT,
			details JSON,
			created_at TIMESTAMP NOT NULL
		)`,

		// Emitted notifications
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			anomaly_count INTEGER DEFAULT 0,
			suppressed BOOLEAN DEFAULT false,
			requires_ack BOOLEAN DEFAULT false,
			emitted_at TIMESTAMP NOT NULL
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_anomalies_kind ON anomalies(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_severity ON anomalies(severity)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_source_ip ON anomalies(source_ip)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_created_at ON anomalies(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_emitted_at ON notifications(emitted_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_category ON notifications(category)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	// Force a checkpoint after creating tables to flush the WAL.
	// This prevents DuckDB WAL replay issues on restart.
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("failed to checkpoint after schema initialization")
	}

	return nil
}

// SaveAnomaly persists a new anomaly.
func (s *DuckDBStore) SaveAnomaly(ctx context.Context, anomaly *models.Anomaly) error {
	query := `INSERT INTO anomalies
		(id, kind, severity, message, source_ip, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	// Marshal details to []byte; the DuckDB driver rejects json.Marshaler
	// values but accepts raw bytes for JSON columns.
	details, err := json.Marshal(anomaly.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal anomaly details: %w", err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		anomaly.ID,
		string(anomaly.Kind),
		string(anomaly.Severity),
		anomaly.Message,
		anomaly.Details.SourceIP,
		details,
		anomaly.CreatedAt,
	)
	metrics.RecordDBQuery("insert", "anomalies", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert anomaly: %w", err)
	}

	return nil
}

// ListAnomalies retrieves anomalies with optional filtering.
// Security: query uses parameterized values (?) and ORDER BY columns are
// whitelisted via validAnomalyOrderColumns.
func (s *DuckDBStore) ListAnomalies(ctx context.Context, filter AnomalyFilter) ([]models.Anomaly, error) {
	query, args := s.buildAnomalyQuery(filter)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "anomalies", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

// buildAnomalyQuery constructs the SQL query and args for anomaly filtering.
func (s *DuckDBStore) buildAnomalyQuery(filter AnomalyFilter) (string, []interface{}) {
	query := `SELECT id, kind, severity, message, details, created_at
		FROM anomalies WHERE 1=1`
	args := make([]interface{}, 0)

	query, args = s.applyAnomalyFilters(query, args, filter)
	query = s.applyAnomalyOrdering(query, filter)
	query, args = applyPagination(query, args, filter.Limit, filter.Offset)

	return query, args
}

// applyAnomalyFilters adds WHERE clauses for anomaly filtering.
func (s *DuckDBStore) applyAnomalyFilters(query string, args []interface{}, filter AnomalyFilter) (string, []interface{}) {
	if len(filter.Kinds) > 0 {
		query += fmt.Sprintf(" AND kind IN (%s)", buildPlaceholders(len(filter.Kinds)))
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}

	if len(filter.Severities) > 0 {
		query += fmt.Sprintf(" AND severity IN (%s)", buildPlaceholders(len(filter.Severities)))
		for _, sev := range filter.Severities {
			args = append(args, string(sev))
		}
	}

	if filter.SourceIP != "" {
		query += " AND source_ip = ?"
		args = append(args, filter.SourceIP)
	}

	if filter.StartDate != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.StartDate)
	}

	if filter.EndDate != nil {
		query += " AND created_at <= ?"
		args = append(args, *filter.EndDate)
	}

	return query, args
}

// validAnomalyOrderColumns is a whitelist of columns that can be used for
// ordering anomalies. This prevents SQL injection by only allowing known
// safe column names.
var validAnomalyOrderColumns = map[string]bool{
	"id":         true,
	"kind":       true,
	"severity":   true,
	"source_ip":  true,
	"created_at": true,
}

// applyAnomalyOrdering adds the ORDER BY clause.
func (s *DuckDBStore) applyAnomalyOrdering(query string, filter AnomalyFilter) string {
	orderBy := "created_at"
	if filter.OrderBy != "" && validAnomalyOrderColumns[filter.OrderBy] {
		orderBy = filter.OrderBy
	}

	orderDir := "DESC"
	if filter.OrderDirection != "" {
		upperDir := strings.ToUpper(filter.OrderDirection)
		if upperDir == "ASC" || upperDir == "DESC" {
			orderDir = upperDir
		}
	}

	return query + fmt.Sprintf(" ORDER BY %s %s", orderBy, orderDir)
}

// CountAnomalies returns the count of anomalies matching the filter.
func (s *DuckDBStore) CountAnomalies(ctx context.Context, filter AnomalyFilter) (int, error) {
	query := `SELECT COUNT(*) FROM anomalies WHERE 1=1`
	args := make([]interface{}, 0)

	query, args = s.applyAnomalyFilters(query, args, filter)

	var count int
	start := time.Now()
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	metrics.RecordDBQuery("count", "anomalies", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count anomalies: %w", err)
	}

	return count, nil
}

// scanAnomalies scans rows into anomaly records.
func scanAnomalies(rows *sql.Rows) ([]models.Anomaly, error) {
	var anomalies []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		if err := scanAnomalyRow(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

// scanAnomalyRow scans a single anomaly row with JSON details handling.
func scanAnomalyRow(scanner interface {
	Scan(dest ...interface{}) error
}, a *models.Anomaly) error {
	var kind, severity string
	var details interface{} // DuckDB returns JSON as map[string]interface{}

	if err := scanner.Scan(
		&a.ID,
		&kind,
		&severity,
		&a.Message,
		&details,
		&a.CreatedAt,
	); err != nil {
		return err
	}

	a.Kind = models.AnomalyKind(kind)
	a.Severity = models.Severity(severity)

	// Round-trip details through JSON bytes back into the typed struct
	if details != nil {
		if detailBytes, err := json.Marshal(details); err == nil {
			_ = json.Unmarshal(detailBytes, &a.Details)
		}
	}

	return nil
}

// SaveNotification persists an emitted notification.
func (s *DuckDBStore) SaveNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications
		(id, message, severity, category, anomaly_count, suppressed, requires_ack, emitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.Message,
		string(n.Severity),
		n.Category,
		n.Count,
		n.Suppressed,
		n.RequiresAck,
		n.EmittedAt,
	)
	metrics.RecordDBQuery("insert", "notifications", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// ListNotifications retrieves notifications with optional filtering, newest first.
func (s *DuckDBStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	query := `SELECT id, message, severity, category, anomaly_count, suppressed, requires_ack, emitted_at
		FROM notifications WHERE 1=1`
	args := make([]interface{}, 0)

	if len(filter.Severities) > 0 {
		query += fmt.Sprintf(" AND severity IN (%s)", buildPlaceholders(len(filter.Severities)))
		for _, sev := range filter.Severities {
			args = append(args, string(sev))
		}
	}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}

	if filter.Suppressed != nil {
		query += " AND suppressed = ?"
		args = append(args, *filter.Suppressed)
	}

	if filter.StartDate != nil {
		query += " AND emitted_at >= ?"
		args = append(args, *filter.StartDate)
	}

	if filter.EndDate != nil {
		query += " AND emitted_at <= ?"
		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY emitted_at DESC"
	query, args = applyPagination(query, args, filter.Limit, filter.Offset)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "notifications", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// scanNotifications scans rows into notification records.
func scanNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var severity string
		if err := rows.Scan(
			&n.ID,
			&n.Message,
			&severity,
			&n.Category,
			&n.Count,
			&n.Suppressed,
			&n.RequiresAck,
			&n.EmittedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Severity = models.Severity(severity)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// GetAnomaly retrieves an anomaly by ID. Returns nil when not found.
func (s *DuckDBStore) GetAnomaly(ctx context.Context, id string) (*models.Anomaly, error) {
	query := `SELECT id, kind, severity, message, details, created_at
		FROM anomalies WHERE id = ?`

	a := &models.Anomaly{}
	err := scanAnomalyRow(s.db.QueryRowContext(ctx, query, id), a)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anomaly: %w", err)
	}

	return a, nil
}

// applyPagination adds LIMIT and OFFSET clauses.
func applyPagination(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	} else {
		query += " LIMIT 100"
	}

	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}

	return query, args
}

// buildPlaceholders creates a comma-separated string of ? placeholders.
func buildPlaceholders(count int) string {
	if count == 0 {
		return ""
	}
	placeholders := "?"
	for i := 1; i < count; i++ {
		placeholders += ", ?"
	}
	return placeholders
}
