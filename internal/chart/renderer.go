package chart

import (
	"bytes"
	"fmt"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/tfg-report-server/internal/domain"
)

var (
	colorSlow     = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	colorModerate = drawing.Color{R: 44, G: 160, B: 44, A: 255}
	colorRapid    = drawing.Color{R: 255, G: 127, B: 14, A: 255}
	colorPatient  = drawing.Color{R: 214, G: 39, B: 40, A: 255}
	colorGuide    = drawing.Color{R: 128, G: 128, B: 128, A: 255}
	colorGrid     = drawing.Color{R: 220, G: 220, B: 220, A: 255}
)

const (
	yTickCount     = 5
	legendFontSize = 8.0
	// legend box padding, line sample and text gap added to the widest label
	legendChrome = 45
)

// Renderer draws chart models to PNG with go-chart.
type Renderer struct {
	width  int
	height int
	dpi    float64
}

// NewRenderer creates a renderer for the configured raster size.
func NewRenderer(cfg domain.ChartConfig) *Renderer {
	w, h := cfg.PixelSize()
	return &Renderer{width: w, height: h, dpi: cfg.DPI}
}

// Render encodes the model as a PNG image.
func (r *Renderer) Render(model Model) ([]byte, error) {
	if len(model.Series) == 0 {
		return nil, domain.NewRenderError("chart", fmt.Errorf("model has no series"))
	}

	graph := r.chart(model)
	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, domain.NewRenderError("chart", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) chart(model Model) *gochart.Chart {
	series := make([]gochart.Series, 0, len(model.Series)+len(model.StageLines)+1)
	for _, line := range model.StageLines {
		series = append(series, gochart.ContinuousSeries{
			XValues: []float64{model.XMin, model.XMax},
			YValues: []float64{line, line},
			Style:   seriesStyle(LineGuide),
		})
	}
	for _, s := range model.Series {
		if len(s.X) == 0 {
			// Nothing visible: a single undotted point keeps the legend entry.
			series = append(series, gochart.ContinuousSeries{
				Name:    s.Name,
				XValues: []float64{model.XMin},
				YValues: []float64{model.YMax},
				Style:   legendOnlyStyle(s.Style),
			})
			continue
		}
		style := seriesStyle(s.Style)
		if style.DotWidth > 0 && s.Marks != nil {
			style.DotWidthProvider = markedDots(s.Marks, style.DotWidth)
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    s.Name,
			XValues: s.X,
			YValues: s.Y,
			Style:   style,
		})
	}
	if len(model.Annotations) > 0 {
		values := make([]gochart.Value2, len(model.Annotations))
		for i, a := range model.Annotations {
			values[i] = gochart.Value2{XValue: a.X, YValue: a.Y, Label: a.Label}
		}
		series = append(series, gochart.AnnotationSeries{Annotations: values})
	}

	grid := gochart.Style{StrokeColor: colorGrid, StrokeWidth: 1}
	graph := &gochart.Chart{
		Title:      model.Title,
		Width:      r.width,
		Height:     r.height,
		DPI:        r.dpi,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: gochart.XAxis{
			Name:           model.XLabel,
			Range:          &gochart.ContinuousRange{Min: model.XMin, Max: model.XMax},
			GridMajorStyle: grid,
		},
		YAxis: gochart.YAxis{
			Name:           model.YLabel,
			Range:          &gochart.ContinuousRange{Min: model.YMin, Max: model.YMax},
			Ticks:          yTicks(model.YMin, model.YMax),
			GridMajorStyle: grid,
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{legendTopRight(graph)}
	return graph
}

// yTicks splits [lo, hi] into yTickCount equal steps: 0, 20, ... 100 on the
// default range.
func yTicks(lo, hi float64) []gochart.Tick {
	step := (hi - lo) / yTickCount
	ticks := make([]gochart.Tick, 0, yTickCount+1)
	for i := 0; i <= yTickCount; i++ {
		v := lo + float64(i)*step
		ticks = append(ticks, gochart.Tick{Value: v, Label: fmt.Sprintf("%.0f", v)})
	}
	return ticks
}

// markedDots draws dots on measured points only, not on points added where a
// line was cut at the display bound.
func markedDots(marks []bool, width float64) gochart.SizeProvider {
	return func(_, _ gochart.Range, index int, _, _ float64) float64 {
		if index < len(marks) && marks[index] {
			return width
		}
		return 0
	}
}

// legendTopRight draws the standard legend against the top right corner of
// the plot, away from the baseline where every curve starts.
func legendTopRight(c *gochart.Chart) gochart.Renderable {
	legend := gochart.Legend(c)
	return func(r gochart.Renderer, cb gochart.Box, defaults gochart.Style) {
		r.SetFont(defaults.GetFont())
		r.SetFontSize(legendFontSize)
		width := 0
		for _, s := range c.Series {
			if name := s.GetName(); name != "" {
				if w := r.MeasureText(name).Width(); w > width {
					width = w
				}
			}
		}
		box := cb
		box.Left = gochart.MaxInt(cb.Left, cb.Right-width-legendChrome)
		legend(r, box, defaults)
	}
}

func legendOnlyStyle(style LineStyle) gochart.Style {
	s := seriesStyle(style)
	s.DotWidth = 0
	s.DotColor = drawing.Color{}
	return s
}

func seriesStyle(style LineStyle) gochart.Style {
	switch style {
	case LineDashed:
		return gochart.Style{StrokeColor: colorSlow, StrokeWidth: 1.5, StrokeDashArray: []float64{8, 5}}
	case LineDotted:
		return gochart.Style{StrokeColor: colorRapid, StrokeWidth: 1.5, StrokeDashArray: []float64{2, 4}}
	case LineMarked:
		return gochart.Style{
			StrokeColor: colorPatient,
			StrokeWidth: 2.5,
			DotColor:    colorPatient,
			DotWidth:    4,
		}
	case LineGuide:
		return gochart.Style{StrokeColor: colorGuide, StrokeWidth: 0.5, StrokeDashArray: []float64{6, 4}}
	default:
		return gochart.Style{StrokeColor: colorModerate, StrokeWidth: 1.5}
	}
}
