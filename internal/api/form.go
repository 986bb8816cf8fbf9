package api

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/middleware"
	"github.com/tfg-report-server/internal/report"
	"github.com/tfg-report-server/internal/service"
)

//go:embed templates/form.html
var templateFS embed.FS

const (
	formTemplate = "form.html"
	defaultAge   = 60
)

var formTemplates = template.Must(template.ParseFS(templateFS, "templates/"+formTemplate))

// formRow is one date/value input pair.
type formRow struct {
	Date  string
	Value string
}

// formView is the data rendered into the entry form.
type formView struct {
	Title            string
	Error            string
	Name             string
	Age              int
	Condition        string
	Rows             []formRow
	IncludeDecline   bool
	StageAnnotations bool
	MinRows          int
	MaxRows          int
}

type formQuery struct {
	Rows int `form:"linhas" binding:"omitempty,gte=2,lte=20"`
}

// reportForm is the posted entry form.
type reportForm struct {
	Name             string   `form:"nome" binding:"max=200"`
	Age              int      `form:"idade" binding:"gte=0,lte=120"`
	Condition        string   `form:"doenca" binding:"max=200"`
	Dates            []string `form:"data"`
	Values           []string `form:"tfg"`
	IncludeDecline   bool     `form:"incluir_declinio"`
	StageAnnotations bool     `form:"estagios"`
}

func (s *Server) newFormView(rows int) formView {
	return formView{
		Title:          report.ReportTitle,
		Age:            defaultAge,
		Rows:           make([]formRow, rows),
		IncludeDecline: true,
		MinRows:        domain.MinMeasurements,
		MaxRows:        domain.MaxMeasurements,
	}
}

// handleForm renders the entry form with the requested number of rows.
func (s *Server) handleForm(c *gin.Context) {
	rows := s.configManager.GetServerConfig().FormRows
	var q formQuery
	if err := c.ShouldBindQuery(&q); err == nil && q.Rows > 0 {
		rows = q.Rows
	}
	c.HTML(http.StatusOK, formTemplate, s.newFormView(rows))
}

// handleFormReport generates a report from the posted form and returns it as
// a PDF download. Failures re-render the form with the submitted values.
func (s *Server) handleFormReport(c *gin.Context) {
	var form reportForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderFormError(c, form, err)
		return
	}

	measurements, err := form.measurements()
	if err != nil {
		s.renderFormError(c, form, err)
		return
	}

	opts := domain.DefaultReportOptions()
	opts.IncludeDeclineRate = form.IncludeDecline
	opts.StageAnnotations = form.StageAnnotations

	ctx := service.WithRequestID(c.Request.Context(), c.GetString(middleware.RequestIDKey))
	r, err := s.pipeline.Generate(ctx, &domain.ReportRequest{
		Patient:      domain.Patient{Name: form.Name, Age: form.Age, Condition: form.Condition},
		Measurements: measurements,
		Options:      opts,
	})
	if err != nil {
		s.logger.WithError(err).WithField("request_id", c.GetString(middleware.RequestIDKey)).Warn("Form report failed")
		s.renderFormError(c, form, err)
		return
	}

	writePDF(c, r.PDF)
}

func (s *Server) renderFormError(c *gin.Context, form reportForm, err error) {
	status, _ := classify(err)
	rows := len(form.Dates)
	if len(form.Values) > rows {
		rows = len(form.Values)
	}
	if rows < domain.MinMeasurements {
		rows = domain.MinMeasurements
	}

	view := s.newFormView(rows)
	view.Error = formMessage(err)
	view.Name = form.Name
	view.Age = form.Age
	view.Condition = form.Condition
	view.IncludeDecline = form.IncludeDecline
	view.StageAnnotations = form.StageAnnotations
	for i := range view.Rows {
		view.Rows[i] = formRow{Date: at(form.Dates, i), Value: at(form.Values, i)}
	}
	c.HTML(status, formTemplate, view)
}

// measurements converts the posted rows. Rows left entirely blank are skipped;
// decimal commas are accepted.
func (f reportForm) measurements() ([]domain.Measurement, error) {
	n := len(f.Dates)
	if len(f.Values) > n {
		n = len(f.Values)
	}

	out := make([]domain.Measurement, 0, n)
	for i := 0; i < n; i++ {
		rawDate := strings.TrimSpace(at(f.Dates, i))
		rawValue := strings.TrimSpace(at(f.Values, i))
		if rawDate == "" && rawValue == "" {
			continue
		}

		date, err := time.Parse(domain.MeasurementDateFmt, rawDate)
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("exame %d", i+1), "data inválida", rawDate)
		}
		value, err := strconv.ParseFloat(strings.Replace(rawValue, ",", ".", 1), 64)
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("exame %d", i+1), "valor de TFG inválido", rawValue)
		}
		out = append(out, domain.Measurement{Date: date, Value: value})
	}
	return out, nil
}

func at(xs []string, i int) string {
	if i < len(xs) {
		return xs[i]
	}
	return ""
}

func writePDF(c *gin.Context, doc []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(http.StatusOK, "application/pdf", doc)
}
