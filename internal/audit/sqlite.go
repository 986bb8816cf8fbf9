// Package audit provides an optional log of report generations. Events hold
// the shape and outcome of a series only; no patient identity is stored.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tfg-report-server/internal/domain"
)

// SQLiteStore implements domain.AuditStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*domain.AuditEvent, error) {
	ev := &domain.AuditEvent{}
	var slope sql.NullFloat64
	var severity string

	err := s.Scan(
		&ev.ID, &ev.ReportID, &ev.RequestID, &ev.Source,
		&ev.MeasurementCount, &ev.SpanMonths, &slope, &severity,
		&ev.ProcessingTimeMs, &ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if slope.Valid {
		v := slope.Float64
		ev.SlopePerMonth = &v
	}
	ev.Severity = domain.Severity(severity)
	return ev, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL UNIQUE,
		request_id TEXT DEFAULT '',
		source TEXT NOT NULL,
		measurement_count INTEGER NOT NULL,
		span_months REAL NOT NULL,
		slope_per_month REAL,
		severity TEXT DEFAULT '',
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_report_events_severity ON report_events(severity);
	CREATE INDEX IF NOT EXISTS idx_report_events_created_at ON report_events(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record stores one generation event.
func (s *SQLiteStore) Record(ctx context.Context, ev *domain.AuditEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var slope interface{}
	if ev.SlopePerMonth != nil {
		slope = *ev.SlopePerMonth
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO report_events (
			report_id, request_id, source, measurement_count, span_months,
			slope_per_month, severity, processing_time_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ReportID,
		ev.RequestID,
		ev.Source,
		ev.MeasurementCount,
		ev.SpanMonths,
		slope,
		string(ev.Severity),
		ev.ProcessingTimeMs,
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	ev.ID = id
	return nil
}

// Get retrieves the event recorded for a report.
func (s *SQLiteStore) Get(ctx context.Context, reportID string) (*domain.AuditEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, request_id, source, measurement_count, span_months,
			slope_per_month, severity, processing_time_ms, created_at
		FROM report_events
		WHERE report_id = ?
	`, reportID)

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return ev, nil
}

// List returns events, newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, request_id, source, measurement_count, span_months,
			slope_per_month, severity, processing_time_ms, created_at
		FROM report_events
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.AuditEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// CountBySeverity returns the number of events per severity bucket.
func (s *SQLiteStore) CountBySeverity(ctx context.Context) (map[domain.Severity]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM report_events GROUP BY severity
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Severity]int64)
	for rows.Next() {
		var severity string
		var n int64
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[domain.Severity(severity)] = n
	}
	return counts, rows.Err()
}

// Prune deletes events created before the cutoff and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM report_events WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune: %w", err)
	}
	return result.RowsAffected()
}

// ExportJSON writes all events to writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
