// Package domain contains the core entities for estimated glomerular filtration rate
// (eGFR, "TFG") trend reporting: measurements, decline estimates, reference
// trajectories and the report artifact.
//
// Reference: KDIGO 2012 Clinical Practice Guideline for the Evaluation and
// Management of Chronic Kidney Disease. Kidney Int Suppl. 3(1):1-150.
package domain

import (
	"errors"
	"time"
)

// Severity is the clinical bucket derived from the monthly decline rate.
type Severity string

const (
	SeveritySlow     Severity = "slow"
	SeverityModerate Severity = "moderate"
	SeverityRapid    Severity = "rapid"
)

// Physiological bounds accepted at the input boundary.
const (
	MinTFGValue        = 0.0
	MaxTFGValue        = 150.0
	MinMeasurements    = 2
	MaxMeasurements    = 20
	MinPatientAge      = 0
	MaxPatientAge      = 120
	DaysPerMonth       = 30.44
	DefaultHorizon     = 60
	MonthsPerYear      = 12
	MeasurementDateFmt = "2006-01-02"
)

var (
	ErrInvalidSeverity = errors.New("invalid severity")
)

// IsValid reports whether s is one of the known severity buckets.
func (s Severity) IsValid() bool {
	switch s {
	case SeveritySlow, SeverityModerate, SeverityRapid:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity
func (s Severity) String() string {
	return string(s)
}

// Measurement is a single TFG observation. Value is in mL/min/1.73m².
type Measurement struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Day returns the measurement date truncated to the calendar day in UTC.
func (m Measurement) Day() time.Time {
	y, mo, d := m.Date.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// InRange reports whether the value lies in the accepted physiological domain.
func (m Measurement) InRange() bool {
	return m.Value >= MinTFGValue && m.Value <= MaxTFGValue
}

// DeclineEstimate holds the linear decline rate of a series and its severity.
type DeclineEstimate struct {
	SlopePerMonth float64  `json:"slope_per_month"`
	SlopePerYear  float64  `json:"slope_per_year"`
	Severity      Severity `json:"severity"`
}

// Point is one (month, value) sample of a curve.
type Point struct {
	Month float64 `json:"month"`
	Value float64 `json:"value"`
}

// ReferenceTrajectory is a canonical decline curve anchored at a patient baseline.
type ReferenceTrajectory struct {
	Label        Severity `json:"label"`
	RatePerMonth float64  `json:"rate_per_month"`
	Points       []Point  `json:"points"`
}

// Values returns the curve values in month order.
func (t ReferenceTrajectory) Values() []float64 {
	out := make([]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Value
	}
	return out
}

// Patient carries the free-text identity printed on the report. It is never
// interpreted by the core.
type Patient struct {
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Condition string `json:"condition"`
}

// ReportOptions toggles optional report content.
type ReportOptions struct {
	IncludeDeclineRate bool `json:"include_decline_rate"`
	StageAnnotations   bool `json:"stage_annotations"`
	HorizonMonths      int  `json:"horizon_months,omitempty"`
}

// DefaultReportOptions returns the options used when the caller sets none.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		IncludeDeclineRate: true,
		StageAnnotations:   false,
		HorizonMonths:      DefaultHorizon,
	}
}

// ReportRequest is the explicit input of one report generation.
type ReportRequest struct {
	Patient      Patient       `json:"patient"`
	Measurements []Measurement `json:"measurements"`
	Options      ReportOptions `json:"options"`
}

// Report is the terminal artifact of a generation. It lives only for the
// duration of one request.
type Report struct {
	ID           string                `json:"id"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Patient      Patient               `json:"patient"`
	Measurements []Measurement         `json:"measurements"`
	Months       []float64             `json:"months"`
	Estimate     *DeclineEstimate      `json:"estimate,omitempty"`
	Trajectories []ReferenceTrajectory `json:"trajectories"`
	Chart        []byte                `json:"-"`
	PDF          []byte                `json:"-"`
}

// Analysis is the numeric part of a report without rendered artifacts.
type Analysis struct {
	Measurements []Measurement         `json:"measurements"`
	Months       []float64             `json:"months"`
	Estimate     *DeclineEstimate      `json:"estimate"`
	Trajectories []ReferenceTrajectory `json:"trajectories"`
}
