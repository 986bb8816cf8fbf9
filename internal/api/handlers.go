package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/middleware"
	"github.com/tfg-report-server/internal/report"
	"github.com/tfg-report-server/internal/service"
)

// DeclineResponse is returned by POST /api/v1/decline.
type DeclineResponse struct {
	Estimate     *domain.DeclineEstimate `json:"estimate"`
	Summary      []string                `json:"summary"`
	Measurements []domain.Measurement    `json:"measurements"`
	Months       []float64               `json:"months"`
}

// CurvesResponse is returned by POST /api/v1/curves.
type CurvesResponse struct {
	Baseline     float64                      `json:"baseline"`
	Trajectories []domain.ReferenceTrajectory `json:"trajectories"`
}

// ReportResponse is the JSON form of a generated report.
type ReportResponse struct {
	Report   *domain.Report `json:"report"`
	Summary  []string       `json:"summary"`
	FileName string         `json:"file_name"`
	PDF      string         `json:"pdf_base64"`
	Chart    string         `json:"chart_base64"`
}

// handleDecline estimates the decline of a bare series.
func (s *Server) handleDecline(c *gin.Context) {
	var body domain.DeclineRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	measurements, err := domain.ParseMeasurements(body.Measurements)
	if err != nil {
		respondError(c, err)
		return
	}

	analysis, err := s.pipeline.Analyze(c.Request.Context(), &domain.ReportRequest{
		Measurements: measurements,
		Options:      domain.DefaultReportOptions(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeclineResponse{
		Estimate:     analysis.Estimate,
		Summary:      report.SummaryLines(analysis.Estimate),
		Measurements: analysis.Measurements,
		Months:       analysis.Months,
	})
}

// handleCurves returns the reference trajectories for a baseline.
func (s *Server) handleCurves(c *gin.Context) {
	var body domain.CurvesRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	curves, err := s.pipeline.ReferenceCurves(*body.Baseline, body.HorizonMonths)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CurvesResponse{Baseline: *body.Baseline, Trajectories: curves})
}

// handleChart renders only the comparison chart.
func (s *Server) handleChart(c *gin.Context) {
	req, ok := s.bindReportRequest(c)
	if !ok {
		return
	}

	png, err := s.pipeline.Chart(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// handleReport generates the full report. The PDF is returned as a download
// unless the caller prefers JSON.
func (s *Server) handleReport(c *gin.Context) {
	req, ok := s.bindReportRequest(c)
	if !ok {
		return
	}

	ctx := service.WithRequestID(c.Request.Context(), c.GetString(middleware.RequestIDKey))
	r, err := s.pipeline.Generate(ctx, req)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", c.GetString(middleware.RequestIDKey)).Warn("Report generation failed")
		respondError(c, err)
		return
	}

	switch c.NegotiateFormat("application/pdf", gin.MIMEJSON) {
	case gin.MIMEJSON:
		c.JSON(http.StatusOK, ReportResponse{
			Report:   r,
			Summary:  report.SummaryLines(r.Estimate),
			FileName: report.FileName,
			PDF:      base64.StdEncoding.EncodeToString(r.PDF),
			Chart:    base64.StdEncoding.EncodeToString(r.Chart),
		})
	default:
		writePDF(c, r.PDF)
	}
}

func (s *Server) bindReportRequest(c *gin.Context) (*domain.ReportRequest, bool) {
	var body domain.ReportRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return nil, false
	}
	req, err := body.ToDomain()
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return req, true
}
