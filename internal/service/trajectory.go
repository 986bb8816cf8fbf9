package service

import (
	"fmt"

	"github.com/tfg-report-server/internal/domain"
)

// TrajectoryModeler generates the reference decline curves anchored at a
// patient's baseline value
type TrajectoryModeler struct {
	rates domain.ReferenceRates
}

// NewTrajectoryModeler creates a new trajectory modeler
func NewTrajectoryModeler(rates domain.ReferenceRates) *TrajectoryModeler {
	return &TrajectoryModeler{rates: rates}
}

// BuildReferenceCurves returns the slow, moderate and rapid curves, in that
// order, with one point per integer month in [0, horizonMonths]. Values are
// not clamped at zero.
func (m *TrajectoryModeler) BuildReferenceCurves(baseline float64, horizonMonths int) ([]domain.ReferenceTrajectory, error) {
	if horizonMonths < 0 {
		return nil, domain.NewValidationError("horizon_months",
			fmt.Sprintf("must be non-negative, got %d", horizonMonths), horizonMonths)
	}

	specs := []struct {
		label domain.Severity
		rate  float64
	}{
		{domain.SeveritySlow, m.rates.Slow},
		{domain.SeverityModerate, m.rates.Moderate},
		{domain.SeverityRapid, m.rates.Rapid},
	}

	curves := make([]domain.ReferenceTrajectory, 0, len(specs))
	for _, spec := range specs {
		points := make([]domain.Point, horizonMonths+1)
		for month := 0; month <= horizonMonths; month++ {
			points[month] = domain.Point{
				Month: float64(month),
				Value: baseline - spec.rate*float64(month),
			}
		}
		curves = append(curves, domain.ReferenceTrajectory{
			Label:        spec.label,
			RatePerMonth: spec.rate,
			Points:       points,
		})
	}
	return curves, nil
}
