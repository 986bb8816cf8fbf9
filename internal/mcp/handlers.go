package mcp

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/report"
	"github.com/tfg-report-server/internal/service"
)

// MeasurementParam is one TFG observation.
type MeasurementParam struct {
	Date  string  `json:"date" jsonschema:"measurement date in YYYY-MM-DD form"`
	Value float64 `json:"value" jsonschema:"TFG in mL/min/1.73m2, between 0 and 150"`
}

// EstimateDeclineParams defines parameters for estimate_tfg_decline tool
type EstimateDeclineParams struct {
	Measurements []MeasurementParam `json:"measurements" jsonschema:"two to twenty measurements in any order"`
}

// EstimateDeclineResult defines the result structure for estimate_tfg_decline tool
type EstimateDeclineResult struct {
	SlopePerMonth float64   `json:"slope_per_month"`
	SlopePerYear  float64   `json:"slope_per_year"`
	Severity      string    `json:"severity"`
	Summary       []string  `json:"summary,omitempty"`
	Months        []float64 `json:"months,omitempty"`
}

// GenerateReportParams defines parameters for generate_tfg_report tool
type GenerateReportParams struct {
	PatientName        string             `json:"patient_name,omitempty" jsonschema:"patient name printed on the report"`
	PatientAge         int                `json:"patient_age,omitempty" jsonschema:"patient age in years"`
	Condition          string             `json:"condition,omitempty" jsonschema:"underlying disease printed on the report"`
	Measurements       []MeasurementParam `json:"measurements" jsonschema:"two to twenty measurements in any order"`
	IncludeDeclineRate *bool              `json:"include_decline_rate,omitempty" jsonschema:"print the decline statistics (default true)"`
	StageAnnotations   bool               `json:"stage_annotations,omitempty" jsonschema:"label the CKD stage guide lines"`
}

// GenerateReportResult defines the result structure for generate_tfg_report tool
type GenerateReportResult struct {
	ReportID      string   `json:"report_id"`
	GeneratedAt   string   `json:"generated_at"`
	FileName      string   `json:"file_name"`
	Summary       []string `json:"summary,omitempty"`
	Severity      string   `json:"severity,omitempty"`
	SlopePerMonth *float64 `json:"slope_per_month,omitempty"`
	PDFBase64     string   `json:"pdf_base64"`
}

func toBodies(in []MeasurementParam) []domain.MeasurementBody {
	out := make([]domain.MeasurementBody, len(in))
	for i, m := range in {
		v := m.Value
		out[i] = domain.MeasurementBody{Date: m.Date, Value: &v}
	}
	return out
}

// handleEstimateDecline handles the estimate_tfg_decline tool invocation
func (s *Server) handleEstimateDecline(ctx context.Context, req *mcp.CallToolRequest, params EstimateDeclineParams) (*mcp.CallToolResult, EstimateDeclineResult, error) {
	s.logger.WithField("tool", ToolEstimateDecline).Info("Tool invoked")

	measurements, err := domain.ParseMeasurements(toBodies(params.Measurements))
	if err != nil {
		return errorResult("Invalid measurements", err), EstimateDeclineResult{}, nil
	}

	analysis, err := s.pipeline.Analyze(ctx, &domain.ReportRequest{
		Measurements: measurements,
		Options:      domain.DefaultReportOptions(),
	})
	if err != nil {
		return errorResult("Decline estimation failed", err), EstimateDeclineResult{}, nil
	}

	summary := report.SummaryLines(analysis.Estimate)
	result := EstimateDeclineResult{
		SlopePerMonth: analysis.Estimate.SlopePerMonth,
		SlopePerYear:  analysis.Estimate.SlopePerYear,
		Severity:      analysis.Estimate.Severity.String(),
		Summary:       summary,
		Months:        analysis.Months,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: strings.Join(summary, "\n")},
		},
	}, result, nil
}

// handleGenerateReport handles the generate_tfg_report tool invocation
func (s *Server) handleGenerateReport(ctx context.Context, req *mcp.CallToolRequest, params GenerateReportParams) (*mcp.CallToolResult, GenerateReportResult, error) {
	s.logger.WithField("tool", ToolGenerateReport).Info("Tool invoked")

	body := domain.ReportRequestBody{
		Patient: domain.PatientBody{
			Name:      params.PatientName,
			Age:       params.PatientAge,
			Condition: params.Condition,
		},
		Measurements: toBodies(params.Measurements),
		Options: &domain.OptionsBody{
			IncludeDeclineRate: params.IncludeDeclineRate,
			StageAnnotations:   params.StageAnnotations,
		},
	}
	reportReq, err := body.ToDomain()
	if err != nil {
		return errorResult("Invalid report request", err), GenerateReportResult{}, nil
	}

	r, err := s.pipeline.Generate(service.WithRequestID(ctx, uuid.New().String()), reportReq)
	if err != nil {
		return errorResult("Report generation failed", err), GenerateReportResult{}, nil
	}

	result := GenerateReportResult{
		ReportID:    r.ID,
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		FileName:    report.FileName,
		Summary:     report.SummaryLines(r.Estimate),
		PDFBase64:   base64.StdEncoding.EncodeToString(r.PDF),
	}
	text := "Relatório gerado: " + report.FileName
	if r.Estimate != nil {
		slope := r.Estimate.SlopePerMonth
		result.SlopePerMonth = &slope
		result.Severity = r.Estimate.Severity.String()
		text += "\n" + strings.Join(result.Summary, "\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
			&mcp.ImageContent{Data: r.Chart, MIMEType: "image/png"},
		},
	}, result, nil
}
