package domain

import (
	"time"
)

// AuditEvent is a stored record of one report generation. It carries no
// patient identity, only the shape of the series and the outcome.
type AuditEvent struct {
	ID               int64     `json:"id,omitempty"`
	ReportID         string    `json:"report_id"`
	RequestID        string    `json:"request_id,omitempty"`
	Source           string    `json:"source"`
	MeasurementCount int       `json:"measurement_count"`
	SpanMonths       float64   `json:"span_months"`
	SlopePerMonth    *float64  `json:"slope_per_month,omitempty"`
	Severity         Severity  `json:"severity,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}
