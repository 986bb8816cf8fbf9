package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tfg-report-server/internal/domain"
)

// PostgresStore implements Store using PostgreSQL through the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection. The schema is expected to exist
// already (see MigrationRunner).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a pooled connection to databaseURL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Record stores one generation event.
func (s *PostgresStore) Record(ctx context.Context, ev *domain.AuditEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var slope interface{}
	if ev.SlopePerMonth != nil {
		slope = *ev.SlopePerMonth
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO report_events (
			report_id, request_id, source, measurement_count, span_months,
			slope_per_month, severity, processing_time_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
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
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get retrieves the event recorded for a report.
func (s *PostgresStore) Get(ctx context.Context, reportID string) (*domain.AuditEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, request_id, source, measurement_count, span_months,
			slope_per_month, severity, processing_time_ms, created_at
		FROM report_events
		WHERE report_id = $1
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
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, request_id, source, measurement_count, span_months,
			slope_per_month, severity, processing_time_ms, created_at
		FROM report_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
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
func (s *PostgresStore) CountBySeverity(ctx context.Context) (map[domain.Severity]int64, error) {
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
func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM report_events WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune: %w", err)
	}
	return result.RowsAffected()
}

// ExportJSON writes all events to writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
