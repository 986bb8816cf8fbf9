package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tfg-report-server/internal/cache"
	"github.com/tfg-report-server/internal/chart"
	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/report"
)

// ChartRenderer encodes a chart model as a raster image
type ChartRenderer interface {
	Render(model chart.Model) ([]byte, error)
}

// ReportComposer lays a report out as a document
type ReportComposer interface {
	Compose(r *domain.Report) ([]byte, error)
}

type requestIDKey struct{}

// WithRequestID attaches a request ID that is copied onto audit events.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ReportService runs the measurement-to-report pipeline
type ReportService struct {
	logger     *logrus.Logger
	estimator  *TrendEstimator
	modeler    *TrajectoryModeler
	renderer   ChartRenderer
	composer   ReportComposer
	chartCache domain.ChartCache
	auditStore domain.AuditStore
	clinical   domain.ClinicalConfig
	chartCfg   domain.ChartConfig
	source     string
	now        func() time.Time
}

// ReportServiceOption is a functional option for ReportService.
type ReportServiceOption func(*ReportService)

// WithChartCache sets the cache consulted before rendering a chart.
func WithChartCache(c domain.ChartCache) ReportServiceOption {
	return func(s *ReportService) {
		s.chartCache = c
	}
}

// WithAuditStore sets the store that records generation events.
func WithAuditStore(store domain.AuditStore) ReportServiceOption {
	return func(s *ReportService) {
		s.auditStore = store
	}
}

// WithRenderer replaces the chart renderer.
func WithRenderer(r ChartRenderer) ReportServiceOption {
	return func(s *ReportService) {
		s.renderer = r
	}
}

// WithComposer replaces the report composer.
func WithComposer(c ReportComposer) ReportServiceOption {
	return func(s *ReportService) {
		s.composer = c
	}
}

// WithSource labels audit events with the surface that produced them.
func WithSource(source string) ReportServiceOption {
	return func(s *ReportService) {
		s.source = source
	}
}

// NewReportService creates a new report service
func NewReportService(logger *logrus.Logger, cfg *domain.Config, opts ...ReportServiceOption) *ReportService {
	s := &ReportService{
		logger:    logger,
		estimator: NewTrendEstimator(logger, cfg.Clinical.SeverityThresholds()),
		modeler:   NewTrajectoryModeler(cfg.Clinical.ReferenceRates()),
		renderer:  chart.NewRenderer(cfg.Chart),
		composer:  report.NewComposer(),
		clinical:  cfg.Clinical,
		chartCfg:  cfg.Chart,
		source:    "api",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pipelineState carries the numeric results shared by Analyze and Generate.
type pipelineState struct {
	sorted   []domain.Measurement
	months   []float64
	values   []float64
	estimate *domain.DeclineEstimate
	curves   []domain.ReferenceTrajectory
}

// Analyze computes the decline estimate and the reference curves without
// rendering anything.
func (s *ReportService) Analyze(ctx context.Context, req *domain.ReportRequest) (*domain.Analysis, error) {
	state, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.Analysis{
		Measurements: state.sorted,
		Months:       state.months,
		Estimate:     state.estimate,
		Trajectories: state.curves,
	}, nil
}

// Generate runs the whole pipeline. Either every artifact is produced or an
// error is returned and no report.
func (s *ReportService) Generate(ctx context.Context, req *domain.ReportRequest) (*domain.Report, error) {
	start := s.now()

	state, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	png, err := s.RenderChart(ctx, state.months, state.values, state.curves, req.Options)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &domain.Report{
		ID:           uuid.New().String(),
		GeneratedAt:  start,
		Patient:      req.Patient,
		Measurements: state.sorted,
		Months:       state.months,
		Trajectories: state.curves,
		Chart:        png,
	}
	if req.Options.IncludeDeclineRate {
		r.Estimate = state.estimate
	}

	doc, err := s.composer.Compose(r)
	if err != nil {
		return nil, fmt.Errorf("failed to compose report: %w", err)
	}
	r.PDF = doc

	elapsed := s.now().Sub(start)
	s.record(ctx, r, state, elapsed)

	s.logger.WithFields(logrus.Fields{
		"report_id":       r.ID,
		"measurements":    len(state.sorted),
		"severity":        state.estimate.Severity,
		"processing_time": elapsed,
		"pdf_bytes":       len(r.PDF),
	}).Info("TFG report generated")

	return r, nil
}

// RenderChart builds the chart model and returns it encoded as PNG, using the
// chart cache when one is configured.
func (s *ReportService) RenderChart(ctx context.Context, months, values []float64, curves []domain.ReferenceTrajectory, opts domain.ReportOptions) ([]byte, error) {
	model := chart.BuildModel(months, values, curves, chart.ModelOptions{
		YMin:             s.chartCfg.YMin,
		YMax:             s.chartCfg.YMax,
		StageLines:       s.clinical.StageLines,
		StageAnnotations: opts.StageAnnotations,
	})

	var key string
	if s.chartCache != nil {
		w, h := s.chartCfg.PixelSize()
		key = cache.Key(model, w, h, s.chartCfg.DPI)
		if png, ok := s.chartCache.Get(key); ok {
			s.logger.WithField("cache_key", key).Debug("Chart cache hit")
			return png, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	png, err := s.renderer.Render(model)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	if s.chartCache != nil {
		s.chartCache.Add(key, png)
	}
	return png, nil
}

// Chart runs the numeric pipeline and returns only the encoded chart.
func (s *ReportService) Chart(ctx context.Context, req *domain.ReportRequest) ([]byte, error) {
	state, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.RenderChart(ctx, state.months, state.values, state.curves, req.Options)
}

// ReferenceCurves exposes the trajectory modeler with the configured rates.
func (s *ReportService) ReferenceCurves(baseline float64, horizonMonths int) ([]domain.ReferenceTrajectory, error) {
	if horizonMonths == 0 {
		horizonMonths = s.clinical.HorizonMonths
	}
	return s.modeler.BuildReferenceCurves(baseline, horizonMonths)
}

func (s *ReportService) compute(ctx context.Context, req *domain.ReportRequest) (*pipelineState, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sorted, months := BuildTimeAxis(req.Measurements)
	values := make([]float64, len(sorted))
	for i, m := range sorted {
		values[i] = m.Value
	}

	// The degenerate axis check lives in the estimator, so it runs even when
	// the decline rate is left off the report.
	estimate, err := s.estimator.EstimateDecline(months, values)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate decline: %w", err)
	}

	horizon := req.Options.HorizonMonths
	if horizon == 0 {
		horizon = s.clinical.HorizonMonths
	}
	curves, err := s.modeler.BuildReferenceCurves(values[0], horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference curves: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"measurements": len(sorted),
		"span_months":  months[len(months)-1],
		"horizon":      horizon,
	}).Debug("Series analyzed")

	return &pipelineState{
		sorted:   sorted,
		months:   months,
		values:   values,
		estimate: estimate,
		curves:   curves,
	}, nil
}

func (s *ReportService) record(ctx context.Context, r *domain.Report, state *pipelineState, elapsed time.Duration) {
	if s.auditStore == nil {
		return
	}

	ev := &domain.AuditEvent{
		ReportID:         r.ID,
		RequestID:        requestIDFrom(ctx),
		Source:           s.source,
		MeasurementCount: len(state.sorted),
		SpanMonths:       state.months[len(state.months)-1],
		ProcessingTimeMs: elapsed.Milliseconds(),
		CreatedAt:        r.GeneratedAt.UTC(),
	}
	if r.Estimate != nil {
		slope := r.Estimate.SlopePerMonth
		ev.SlopePerMonth = &slope
		ev.Severity = r.Estimate.Severity
	}

	if err := s.auditStore.Record(ctx, ev); err != nil {
		s.logger.WithError(err).WithField("report_id", r.ID).Warn("Failed to record audit event")
	}
}
