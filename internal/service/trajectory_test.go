package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfg-report-server/internal/domain"
)

func TestTrajectoryModeler_BuildReferenceCurves(t *testing.T) {
	modeler := NewTrajectoryModeler(domain.DefaultReferenceRates())

	curves, err := modeler.BuildReferenceCurves(60, domain.DefaultHorizon)

	require.NoError(t, err)
	require.Len(t, curves, 3)

	wantLabels := []domain.Severity{domain.SeveritySlow, domain.SeverityModerate, domain.SeverityRapid}
	wantRates := []float64{0.33, 0.83, 1.25}
	for i, c := range curves {
		assert.Equal(t, wantLabels[i], c.Label)
		assert.Equal(t, wantRates[i], c.RatePerMonth)
		require.Len(t, c.Points, 61)
		assert.Equal(t, 60.0, c.Points[0].Value, "curves start at the baseline")
		for m, p := range c.Points {
			assert.Equal(t, float64(m), p.Month)
			assert.InDelta(t, 60-wantRates[i]*float64(m), p.Value, 1e-9)
		}
	}

	// Rapid reaches -15 at month 60; values are not clamped.
	assert.InDelta(t, -15.0, curves[2].Points[60].Value, 1e-9)
}

func TestTrajectoryModeler_ShortHorizon(t *testing.T) {
	modeler := NewTrajectoryModeler(domain.DefaultReferenceRates())

	curves, err := modeler.BuildReferenceCurves(100, 2)
	require.NoError(t, err)
	require.Len(t, curves, 3)

	want := [][]float64{
		{100, 99.67, 99.34},
		{100, 99.17, 98.34},
		{100, 98.75, 97.5},
	}
	for i, c := range curves {
		require.Len(t, c.Points, 3)
		for m, p := range c.Points {
			assert.InDelta(t, want[i][m], p.Value, 1e-9)
		}
	}
}

func TestTrajectoryModeler_CurvesAreOrdered(t *testing.T) {
	modeler := NewTrajectoryModeler(domain.DefaultReferenceRates())

	curves, err := modeler.BuildReferenceCurves(85, 24)
	require.NoError(t, err)

	slow, moderate, rapid := curves[0].Values(), curves[1].Values(), curves[2].Values()
	for m := 1; m <= 24; m++ {
		assert.Greater(t, slow[m], moderate[m], "month %d", m)
		assert.Greater(t, moderate[m], rapid[m], "month %d", m)
	}
}

func TestTrajectoryModeler_HorizonBounds(t *testing.T) {
	modeler := NewTrajectoryModeler(domain.DefaultReferenceRates())

	t.Run("zero horizon yields the baseline only", func(t *testing.T) {
		curves, err := modeler.BuildReferenceCurves(42, 0)

		require.NoError(t, err)
		for _, c := range curves {
			require.Len(t, c.Points, 1)
			assert.Equal(t, domain.Point{Month: 0, Value: 42}, c.Points[0])
		}
	})

	t.Run("negative horizon is rejected", func(t *testing.T) {
		_, err := modeler.BuildReferenceCurves(42, -1)

		var validation *domain.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, "horizon_months", validation.Field)
	})
}
