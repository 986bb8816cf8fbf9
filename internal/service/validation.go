package service

import (
	"fmt"

	"github.com/tfg-report-server/internal/domain"
)

// ValidateRequest range-bounds a report request at the input boundary. This is
// the only validation the pipeline performs; identity strings are free text.
func ValidateRequest(req *domain.ReportRequest) error {
	if req == nil {
		return domain.NewValidationError("request", "is required", nil)
	}

	n := len(req.Measurements)
	if n < domain.MinMeasurements {
		return &domain.InsufficientDataError{Count: n, Required: domain.MinMeasurements}
	}
	if n > domain.MaxMeasurements {
		return domain.NewValidationError("measurements",
			fmt.Sprintf("at most %d measurements are accepted", domain.MaxMeasurements), n)
	}

	for i, m := range req.Measurements {
		if m.Date.IsZero() {
			return domain.NewValidationError(fmt.Sprintf("measurements[%d].date", i), "is required", nil)
		}
		if !m.InRange() {
			return domain.NewValidationError(fmt.Sprintf("measurements[%d].value", i),
				fmt.Sprintf("must be between %.0f and %.0f", domain.MinTFGValue, domain.MaxTFGValue), m.Value)
		}
	}

	age := req.Patient.Age
	if age < domain.MinPatientAge || age > domain.MaxPatientAge {
		return domain.NewValidationError("patient.age",
			fmt.Sprintf("must be between %d and %d", domain.MinPatientAge, domain.MaxPatientAge), age)
	}

	if req.Options.HorizonMonths < 0 {
		return domain.NewValidationError("options.horizon_months", "must be non-negative", req.Options.HorizonMonths)
	}
	return nil
}
