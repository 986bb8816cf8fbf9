package service

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/tfg-report-server/internal/domain"
)

// TrendEstimator fits a linear decline rate to a TFG series and classifies it
type TrendEstimator struct {
	logger     *logrus.Logger
	thresholds domain.SeverityThresholds
}

// NewTrendEstimator creates a new trend estimator
func NewTrendEstimator(logger *logrus.Logger, thresholds domain.SeverityThresholds) *TrendEstimator {
	return &TrendEstimator{
		logger:     logger,
		thresholds: thresholds,
	}
}

// BuildTimeAxis returns a date-sorted copy of the series and the elapsed months
// of each measurement since the earliest one. The input slice is not modified.
func BuildTimeAxis(series []domain.Measurement) ([]domain.Measurement, []float64) {
	sorted := slices.Clone(series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day().Before(sorted[j].Day())
	})

	months := make([]float64, len(sorted))
	if len(sorted) == 0 {
		return sorted, months
	}

	start := sorted[0].Day()
	for i, m := range sorted {
		days := m.Day().Sub(start).Hours() / 24
		months[i] = days / domain.DaysPerMonth
	}
	return sorted, months
}

// EstimateDecline fits value = a*time + b over all points by ordinary least
// squares. timeAxis must already be sorted; it is not re-sorted here.
func (e *TrendEstimator) EstimateDecline(timeAxis, values []float64) (*domain.DeclineEstimate, error) {
	if len(timeAxis) != len(values) {
		return nil, domain.NewValidationError("values",
			fmt.Sprintf("length %d does not match time axis length %d", len(values), len(timeAxis)), len(values))
	}
	if len(timeAxis) < domain.MinMeasurements {
		return nil, &domain.InsufficientDataError{Count: len(timeAxis), Required: domain.MinMeasurements}
	}
	if isConstant(timeAxis) {
		return nil, &domain.DegenerateTimeAxisError{Count: len(timeAxis)}
	}

	_, slope := stat.LinearRegression(timeAxis, values, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return nil, &domain.DegenerateTimeAxisError{Count: len(timeAxis)}
	}

	estimate := &domain.DeclineEstimate{
		SlopePerMonth: slope,
		SlopePerYear:  slope * domain.MonthsPerYear,
		Severity:      e.Classify(slope),
	}

	e.logger.WithFields(logrus.Fields{
		"points":          len(timeAxis),
		"slope_per_month": estimate.SlopePerMonth,
		"severity":        estimate.Severity,
	}).Debug("Decline estimated")

	return estimate, nil
}

// Classify maps a monthly slope to a severity. Improving series (positive
// slope) fall in the slow bucket.
func (e *TrendEstimator) Classify(slopePerMonth float64) domain.Severity {
	switch {
	case slopePerMonth < e.thresholds.Rapid:
		return domain.SeverityRapid
	case slopePerMonth < e.thresholds.Moderate:
		return domain.SeverityModerate
	default:
		return domain.SeveritySlow
	}
}

func isConstant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
