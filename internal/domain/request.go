package domain

import (
	"fmt"
	"time"
)

// MeasurementBody is the wire form of a measurement. Dates are calendar days
// in YYYY-MM-DD form.
type MeasurementBody struct {
	Date  string   `json:"date" binding:"required,datetime=2006-01-02"`
	Value *float64 `json:"value" binding:"required"`
}

// PatientBody is the wire form of the patient identity.
type PatientBody struct {
	Name      string `json:"name" binding:"max=200"`
	Age       int    `json:"age" binding:"gte=0,lte=120"`
	Condition string `json:"condition" binding:"max=200"`
}

// OptionsBody is the wire form of ReportOptions. An absent
// include_decline_rate means true.
type OptionsBody struct {
	IncludeDeclineRate *bool `json:"include_decline_rate,omitempty"`
	StageAnnotations   bool  `json:"stage_annotations"`
	HorizonMonths      int   `json:"horizon_months" binding:"gte=0,lte=600"`
}

// ReportRequestBody is the JSON request accepted by the HTTP API, the MCP
// tools and the CLI input file.
type ReportRequestBody struct {
	Patient      PatientBody       `json:"patient"`
	Measurements []MeasurementBody `json:"measurements" binding:"max=20,dive"`
	Options      *OptionsBody      `json:"options,omitempty"`
}

// DeclineRequestBody asks for the decline estimate of a bare series.
type DeclineRequestBody struct {
	Measurements []MeasurementBody `json:"measurements" binding:"max=20,dive"`
}

// CurvesRequestBody asks for the reference curves at a baseline.
type CurvesRequestBody struct {
	Baseline      *float64 `json:"baseline" binding:"required,gte=0,lte=150"`
	HorizonMonths int      `json:"horizon_months" binding:"gte=0,lte=600"`
}

// ToDomain converts the wire form into a ReportRequest. Range checks are left
// to the pipeline; only shape errors are reported here.
func (b *ReportRequestBody) ToDomain() (*ReportRequest, error) {
	measurements, err := ParseMeasurements(b.Measurements)
	if err != nil {
		return nil, err
	}

	opts := DefaultReportOptions()
	if b.Options != nil {
		if b.Options.IncludeDeclineRate != nil {
			opts.IncludeDeclineRate = *b.Options.IncludeDeclineRate
		}
		opts.StageAnnotations = b.Options.StageAnnotations
		opts.HorizonMonths = b.Options.HorizonMonths
	}
	if opts.HorizonMonths == 0 {
		opts.HorizonMonths = DefaultHorizon
	}

	return &ReportRequest{
		Patient: Patient{
			Name:      b.Patient.Name,
			Age:       b.Patient.Age,
			Condition: b.Patient.Condition,
		},
		Measurements: measurements,
		Options:      opts,
	}, nil
}

// ParseMeasurements converts wire measurements, reporting the first malformed
// entry by index.
func ParseMeasurements(in []MeasurementBody) ([]Measurement, error) {
	out := make([]Measurement, 0, len(in))
	for i, m := range in {
		date, err := time.Parse(MeasurementDateFmt, m.Date)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("measurements[%d].date", i),
				"must be a date in YYYY-MM-DD form", m.Date)
		}
		if m.Value == nil {
			return nil, NewValidationError(fmt.Sprintf("measurements[%d].value", i), "is required", nil)
		}
		out = append(out, Measurement{Date: date, Value: *m.Value})
	}
	return out, nil
}
