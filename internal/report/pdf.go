// Package report composes the single-page TFG evolution report.
package report

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/tfg-report-server/internal/domain"
)

// Fixed report labels.
const (
	ReportTitle = "Relatório de Evolução da TFG"
	FileName    = "relatorio_tfg.pdf"
	creator     = "tfg-report-server"
)

// Page layout in points, measured from the top-left corner of an A4 page.
const (
	marginLeft   = 50.0
	titleY       = 42.0
	identityY    = 72.0
	lineSpacing  = 20.0
	statsY       = 142.0
	chartX       = 40.0
	chartY       = 212.0
	chartWidth   = 520.0
	chartHeight  = 300.0
	chartImgName = "chart"
)

var severityText = map[domain.Severity]string{
	domain.SeverityRapid:    "Progressão rápida",
	domain.SeverityModerate: "Progressão moderada",
	domain.SeveritySlow:     "Progressão lenta",
}

// Composer writes reports as PDF documents.
type Composer struct {
	now func() time.Time
}

// NewComposer creates a new report composer
func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

// Compose lays out the title, the identity lines, the decline statistics and
// the chart image on one A4 page and returns the encoded document.
func (c *Composer) Compose(r *domain.Report) ([]byte, error) {
	if r == nil {
		return nil, domain.NewRenderError("pdf", fmt.Errorf("report is nil"))
	}
	if len(r.Chart) == 0 {
		return nil, domain.NewRenderError("pdf", fmt.Errorf("report has no chart image"))
	}

	generatedAt := r.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = c.now()
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(ReportTitle, true)
	pdf.SetCreator(creator, true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(marginLeft, titleY, tr(ReportTitle))

	pdf.SetFont("Helvetica", "", 12)
	for i, line := range IdentityLines(r.Patient) {
		pdf.Text(marginLeft, identityY+float64(i)*lineSpacing, tr(line))
	}

	for i, line := range SummaryLines(r.Estimate) {
		pdf.Text(marginLeft, statsY+float64(i)*lineSpacing, tr(line))
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(chartImgName, opts, bytes.NewReader(r.Chart))
	pdf.ImageOptions(chartImgName, chartX, chartY, chartWidth, chartHeight, false, opts, 0, "")

	if pdf.Err() {
		return nil, domain.NewRenderError("pdf", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, domain.NewRenderError("pdf", err)
	}
	return buf.Bytes(), nil
}

// IdentityLines returns the three patient identity lines.
func IdentityLines(p domain.Patient) []string {
	return []string{
		fmt.Sprintf("Nome: %s", p.Name),
		fmt.Sprintf("Idade: %d", p.Age),
		fmt.Sprintf("Doença de Base: %s", p.Condition),
	}
}

// SummaryLines returns the decline statistic lines followed by the severity
// sentence. A nil estimate yields no lines.
func SummaryLines(e *domain.DeclineEstimate) []string {
	if e == nil {
		return nil
	}
	return []string{
		fmt.Sprintf("Declínio médio mensal: %.2f mL/min/mês", e.SlopePerMonth),
		fmt.Sprintf("Declínio médio anual: %.2f mL/min/ano", e.SlopePerYear),
		SeveritySentence(e),
	}
}

// SeveritySentence describes the progression, e.g.
// "Progressão rápida: perda de 1.00 mL/min/mês".
func SeveritySentence(e *domain.DeclineEstimate) string {
	label, ok := severityText[e.Severity]
	if !ok {
		label = e.Severity.String()
	}
	return fmt.Sprintf("%s: perda de %.2f mL/min/mês", label, math.Abs(e.SlopePerMonth))
}
