package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfg-report-server/internal/domain"
)

func testCurves(baseline float64, horizon int) []domain.ReferenceTrajectory {
	rates := []struct {
		label domain.Severity
		rate  float64
	}{
		{domain.SeveritySlow, 0.33},
		{domain.SeverityModerate, 0.83},
		{domain.SeverityRapid, 1.25},
	}
	curves := make([]domain.ReferenceTrajectory, 0, len(rates))
	for _, r := range rates {
		points := make([]domain.Point, horizon+1)
		for m := range points {
			points[m] = domain.Point{Month: float64(m), Value: baseline - r.rate*float64(m)}
		}
		curves = append(curves, domain.ReferenceTrajectory{Label: r.label, RatePerMonth: r.rate, Points: points})
	}
	return curves
}

func defaultOptions() ModelOptions {
	return ModelOptions{YMin: 0, YMax: 100, StageLines: []float64{60, 30}}
}

func TestBuildModel(t *testing.T) {
	months := []float64{0, 6, 12}
	values := []float64{62, 57, 51}

	model := BuildModel(months, values, testCurves(62, 60), defaultOptions())

	assert.Equal(t, Title, model.Title)
	assert.Equal(t, XAxisLabel, model.XLabel)
	assert.Equal(t, YAxisLabel, model.YLabel)
	assert.Equal(t, 0.0, model.YMin)
	assert.Equal(t, 100.0, model.YMax)
	assert.Equal(t, 60.0, model.XMax)
	assert.Equal(t, []float64{60, 30}, model.StageLines)
	assert.Empty(t, model.Annotations)

	require.Len(t, model.Series, 4)
	assert.Equal(t, "Lento (~4 mL/ano)", model.Series[0].Name)
	assert.Equal(t, LineDashed, model.Series[0].Style)
	assert.Equal(t, "Moderado (~10 mL/ano)", model.Series[1].Name)
	assert.Equal(t, LineSolid, model.Series[1].Style)
	assert.Equal(t, "Rápido (~15 mL/ano)", model.Series[2].Name)
	assert.Equal(t, LineDotted, model.Series[2].Style)

	patient := model.Series[3]
	assert.Equal(t, PatientLabel, patient.Name)
	assert.Equal(t, LineMarked, patient.Style)
	assert.Equal(t, months, patient.X)
	assert.Equal(t, values, patient.Y)
}

func TestBuildModel_Idempotent(t *testing.T) {
	months := []float64{0, 3.2, 9.9}
	values := []float64{45, 44, 40}
	curves := testCurves(45, 24)

	first := BuildModel(months, values, curves, defaultOptions())
	second := BuildModel(months, values, curves, defaultOptions())

	assert.Equal(t, first, second)
}

func TestBuildModel_DoesNotAliasInput(t *testing.T) {
	months := []float64{0, 6}
	values := []float64{50, 48}

	model := BuildModel(months, values, testCurves(50, 12), defaultOptions())
	values[0] = 1

	assert.Equal(t, 50.0, model.Series[3].Y[0])
}

func TestBuildModel_XMaxCoversLongSeries(t *testing.T) {
	months := []float64{0, 30, 84.5}
	values := []float64{70, 60, 40}

	model := BuildModel(months, values, testCurves(70, 60), defaultOptions())

	assert.Equal(t, 84.5, model.XMax)
}

func TestBuildModel_YRangeFallback(t *testing.T) {
	model := BuildModel([]float64{0, 1}, []float64{50, 49}, nil, ModelOptions{})

	assert.Equal(t, 0.0, model.YMin)
	assert.Equal(t, 100.0, model.YMax)
	require.Len(t, model.Series, 1)
}

func TestBuildModel_StageAnnotations(t *testing.T) {
	opts := defaultOptions()
	opts.StageLines = []float64{60, 30, 20}
	opts.StageAnnotations = true

	model := BuildModel([]float64{0, 12}, []float64{62, 50}, testCurves(62, 60), opts)

	require.Len(t, model.Annotations, 3)
	assert.Equal(t, Annotation{X: 60, Y: 60, Label: "G3a"}, model.Annotations[0])
	assert.Equal(t, Annotation{X: 60, Y: 30, Label: "G4"}, model.Annotations[1])
	assert.Equal(t, "20", model.Annotations[2].Label)
}

func assertWithinDisplay(t *testing.T, model Model) {
	t.Helper()
	for _, s := range model.Series {
		require.Len(t, s.Y, len(s.X))
		require.Len(t, s.Marks, len(s.X))
		for _, y := range s.Y {
			assert.GreaterOrEqual(t, y, model.YMin, "series %q", s.Name)
			assert.LessOrEqual(t, y, model.YMax, "series %q", s.Name)
		}
	}
}

func TestBuildModel_ClipsLowBaseline(t *testing.T) {
	model := BuildModel([]float64{0, 6, 12}, []float64{40, 36, 31}, testCurves(40, 60), defaultOptions())

	assertWithinDisplay(t, model)
	require.Len(t, model.Series, 4)

	rapid := model.Series[2]
	assert.Equal(t, "Rápido (~15 mL/ano)", rapid.Name)
	last := len(rapid.X) - 1
	assert.Equal(t, 32.0, rapid.X[last], "rapid curve reaches zero at month 32")
	assert.Equal(t, 0.0, rapid.Y[last])

	moderate := model.Series[1]
	last = len(moderate.X) - 1
	assert.InDelta(t, 40/0.83, moderate.X[last], 1e-9, "moderate curve is cut between months")
	assert.Equal(t, 0.0, moderate.Y[last])
	assert.False(t, moderate.Marks[last])
	assert.True(t, moderate.Marks[0])

	slow := model.Series[0]
	assert.Len(t, slow.X, 61, "slow curve stays inside")
	assert.Equal(t, 60.0, model.XMax)
}

func TestBuildModel_ClipsHighBaseline(t *testing.T) {
	model := BuildModel([]float64{0, 6, 12}, []float64{120, 95, 80}, testCurves(140, 60), defaultOptions())

	assertWithinDisplay(t, model)
	require.Len(t, model.Series, 4)

	slow := model.Series[0]
	assert.Equal(t, "Lento (~4 mL/ano)", slow.Name, "fully hidden curve keeps its legend entry")
	assert.Empty(t, slow.X)

	moderate := model.Series[1]
	assert.InDelta(t, 40/0.83, moderate.X[0], 1e-9)
	assert.Equal(t, 100.0, moderate.Y[0])
	assert.False(t, moderate.Marks[0])

	rapid := model.Series[2]
	assert.Equal(t, 32.0, rapid.X[0])
	assert.Equal(t, 100.0, rapid.Y[0])
	assert.Equal(t, 60.0, rapid.X[len(rapid.X)-1])

	patient := model.Series[3]
	assert.Equal(t, PatientLabel, patient.Name)
	require.Len(t, patient.X, 3)
	assert.InDelta(t, 4.8, patient.X[0], 1e-9)
	assert.Equal(t, []float64{100, 95, 80}, patient.Y)
	assert.Equal(t, []bool{false, true, true}, patient.Marks)
}

func TestBuildModel_SplitsSeriesLeavingAndReentering(t *testing.T) {
	model := BuildModel([]float64{0, 2, 4}, []float64{90, 110, 90}, nil, defaultOptions())

	assertWithinDisplay(t, model)
	require.Len(t, model.Series, 2)

	first, second := model.Series[0], model.Series[1]
	assert.Equal(t, PatientLabel, first.Name)
	assert.Empty(t, second.Name, "continuation runs are not listed in the legend")
	assert.Equal(t, []float64{0, 1}, first.X)
	assert.Equal(t, []float64{90, 100}, first.Y)
	assert.Equal(t, []bool{true, false}, first.Marks)
	assert.Equal(t, []float64{3, 4}, second.X)
	assert.Equal(t, []float64{100, 90}, second.Y)
	assert.Equal(t, []bool{false, true}, second.Marks)
}

func TestClipToRange(t *testing.T) {
	tests := []struct {
		name     string
		x, y     []float64
		wantRuns int
	}{
		{"inside", []float64{0, 1, 2}, []float64{10, 20, 30}, 1},
		{"all above", []float64{0, 1}, []float64{120, 130}, 0},
		{"all below", []float64{0, 1}, []float64{-5, -1}, 0},
		{"single point inside", []float64{3}, []float64{50}, 1},
		{"single point outside", []float64{3}, []float64{150}, 0},
		{"touches bound from outside", []float64{0, 1}, []float64{120, 100}, 1},
		{"crosses both bounds", []float64{0, 1}, []float64{150, -50}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := clipToRange(tt.x, tt.y, 0, 100)

			require.Len(t, runs, tt.wantRuns)
			for _, r := range runs {
				for _, y := range r.y {
					assert.GreaterOrEqual(t, y, 0.0)
					assert.LessOrEqual(t, y, 100.0)
				}
			}
		})
	}

	runs := clipToRange([]float64{0, 1}, []float64{150, -50}, 0, 100)
	assert.InDelta(t, 0.25, runs[0].x[0], 1e-9)
	assert.InDelta(t, 0.75, runs[0].x[1], 1e-9)
	assert.Equal(t, []float64{100, 0}, runs[0].y)
}
