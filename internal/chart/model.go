// Package chart builds the TFG comparison chart. Model construction is pure
// data so it can be checked without a graphics backend; Renderer turns a
// Model into a PNG.
package chart

import (
	"fmt"
	"math"

	"github.com/tfg-report-server/internal/domain"
)

// LineStyle distinguishes the drawn series.
type LineStyle string

const (
	LineDashed LineStyle = "dashed"
	LineSolid  LineStyle = "solid"
	LineDotted LineStyle = "dotted"
	LineMarked LineStyle = "marked"
	LineGuide  LineStyle = "guide"
)

const defaultYMax = 100.0

// Fixed labels printed on the chart.
const (
	Title        = "Evolução da TFG estimada"
	XAxisLabel   = "Meses desde o primeiro exame"
	YAxisLabel   = "TFG (mL/min/1.73m²)"
	PatientLabel = "Paciente"
)

var severityLabels = map[domain.Severity]string{
	domain.SeveritySlow:     "Lento",
	domain.SeverityModerate: "Moderado",
	domain.SeverityRapid:    "Rápido",
}

var stageNames = map[float64]string{
	60: "G3a",
	45: "G3b",
	30: "G4",
	15: "G5",
}

// Series is one drawn line. A line clipped into several runs is stored as
// several Series; only the first carries the Name. Marks flags the points that
// are input data, as opposed to points interpolated at a display bound.
type Series struct {
	Name  string
	Style LineStyle
	X     []float64
	Y     []float64
	Marks []bool
}

// Annotation is a text label placed at a data coordinate.
type Annotation struct {
	X     float64
	Y     float64
	Label string
}

// Model is the complete numeric content of a chart.
type Model struct {
	Title       string
	XLabel      string
	YLabel      string
	XMin        float64
	XMax        float64
	YMin        float64
	YMax        float64
	Series      []Series
	StageLines  []float64
	Annotations []Annotation
}

// ModelOptions controls the fixed display contract.
type ModelOptions struct {
	YMin             float64
	YMax             float64
	StageLines       []float64
	StageAnnotations bool
}

// BuildModel lays out the reference curves and the patient series on one set
// of axes. months and values must be the sorted patient series. Every series
// is clipped to [YMin, YMax]; a series with no visible part keeps an empty
// entry so it is still listed in the legend.
func BuildModel(months, values []float64, curves []domain.ReferenceTrajectory, opts ModelOptions) Model {
	yMax := opts.YMax
	if yMax <= opts.YMin {
		yMax = defaultYMax
	}

	model := Model{
		Title:      Title,
		XLabel:     XAxisLabel,
		YLabel:     YAxisLabel,
		YMin:       opts.YMin,
		YMax:       yMax,
		StageLines: append([]float64(nil), opts.StageLines...),
	}

	styles := map[domain.Severity]LineStyle{
		domain.SeveritySlow:     LineDashed,
		domain.SeverityModerate: LineSolid,
		domain.SeverityRapid:    LineDotted,
	}

	for _, c := range curves {
		x := make([]float64, len(c.Points))
		y := make([]float64, len(c.Points))
		for i, p := range c.Points {
			x[i] = p.Month
			y[i] = p.Value
			model.XMax = math.Max(model.XMax, p.Month)
		}
		model.addClipped(curveLabel(c), styles[c.Label], x, y)
	}

	for _, m := range months {
		model.XMax = math.Max(model.XMax, m)
	}
	model.addClipped(PatientLabel, LineMarked, months, values)

	if model.XMax == model.XMin {
		model.XMax = model.XMin + 1
	}

	if opts.StageAnnotations {
		for _, y := range model.StageLines {
			name, ok := stageNames[y]
			if !ok {
				name = fmt.Sprintf("%.0f", y)
			}
			model.Annotations = append(model.Annotations, Annotation{X: model.XMax, Y: y, Label: name})
		}
	}

	return model
}

func (m *Model) addClipped(name string, style LineStyle, x, y []float64) {
	runs := clipToRange(x, y, m.YMin, m.YMax)
	if len(runs) == 0 {
		m.Series = append(m.Series, Series{Name: name, Style: style})
		return
	}
	for i, run := range runs {
		s := Series{Style: style, X: run.x, Y: run.y, Marks: run.marks}
		if i == 0 {
			s.Name = name
		}
		m.Series = append(m.Series, s)
	}
}

type run struct {
	x, y  []float64
	marks []bool
}

func (r *run) add(x, y float64, mark bool) {
	r.x = append(r.x, x)
	r.y = append(r.y, y)
	r.marks = append(r.marks, mark)
}

// clipToRange splits the polyline (x, y) into the runs lying within [lo, hi].
// A segment crossing a bound is cut at the interpolated crossing point.
func clipToRange(x, y []float64, lo, hi float64) []run {
	inside := func(v float64) bool { return v >= lo && v <= hi }

	var runs []run
	var cur run
	flush := func() {
		if len(cur.x) > 0 {
			runs = append(runs, cur)
		}
		cur = run{}
	}

	if len(x) == 1 && inside(y[0]) {
		cur.add(x[0], y[0], true)
	}
	for i := 1; i < len(x); i++ {
		x0, x1 := x[i-1], x[i]
		t0, ya, t1, yb, ok := segmentWindow(y[i-1], y[i], lo, hi)
		if !ok {
			flush()
			continue
		}
		if t0 > 0 {
			flush()
		}
		if len(cur.x) == 0 {
			cur.add(lerp(x0, x1, t0), ya, t0 == 0 || t0 == 1)
		}
		if t1 > t0 {
			cur.add(lerp(x0, x1, t1), yb, t1 == 1)
		}
		if t1 < 1 {
			flush()
		}
	}
	flush()
	return runs
}

// segmentWindow returns the parameter interval [t0, t1] within [0, 1] where
// the segment from y0 to y1 lies inside [lo, hi], with the y value at each
// end. A cut end takes the exact bound value.
func segmentWindow(y0, y1, lo, hi float64) (t0, ya, t1, yb float64, ok bool) {
	if y0 == y1 {
		return 0, y0, 1, y1, y0 >= lo && y0 <= hi
	}
	t0, ya, t1, yb = 0, y0, 1, y1
	enter, exit := (lo-y0)/(y1-y0), (hi-y0)/(y1-y0)
	enterY, exitY := lo, hi
	if enter > exit {
		enter, exit = exit, enter
		enterY, exitY = exitY, enterY
	}
	if enter > 0 {
		t0, ya = enter, enterY
	}
	if exit < 1 {
		t1, yb = exit, exitY
	}
	return t0, ya, t1, yb, t0 <= t1
}

func lerp(a, b, t float64) float64 {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return a + t*(b-a)
}

// curveLabel names a curve by its bucket and annualised rate, e.g. "Lento (~4 mL/ano)".
func curveLabel(c domain.ReferenceTrajectory) string {
	name, ok := severityLabels[c.Label]
	if !ok {
		name = c.Label.String()
	}
	return fmt.Sprintf("%s (~%.0f mL/ano)", name, c.RatePerMonth*domain.MonthsPerYear)
}
