package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfg-report-server/internal/config"
	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/service"
)

func newTestServer(t *testing.T, mutate func(cfg *domain.Config)) *Server {
	t.Helper()
	t.Chdir(t.TempDir())

	manager, err := config.NewManager()
	require.NoError(t, err)
	cfg := manager.GetConfig()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	svc := service.NewReportService(logger, cfg)
	return NewServer(manager, logger, svc)
}

func doJSON(t *testing.T, s *Server, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr), w.Body.String())
	return apiErr
}

const reportBody = `{
	"patient": {"name": "Maria Souza", "age": 60, "condition": "Nefropatia diabética"},
	"measurements": [
		{"date": "2024-01-01", "value": 60},
		{"date": "2024-07-01", "value": 54},
		{"date": "2025-01-01", "value": 48}
	]
}`

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestForm(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		path     string
		wantRows int
	}{
		{"default rows", "/", 5},
		{"requested rows", "/?linhas=3", 3},
		{"out of range falls back", "/?linhas=50", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			assert.Equal(t, tt.wantRows, strings.Count(body, `name="data"`))
			assert.Contains(t, body, `name="idade" min="0" max="120" value="60"`)
			assert.Contains(t, body, "Relatório de Evolução da TFG")
		})
	}
}

func postForm(s *Server, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestFormReport(t *testing.T) {
	s := newTestServer(t, nil)

	values := url.Values{
		"nome":             {"João da Silva"},
		"idade":            {"67"},
		"doenca":           {"Hipertensão"},
		"data":             {"2023-01-15", "2023-08-15", "", "2024-02-15"},
		"tfg":              {"58", "52,5", "", "47"},
		"incluir_declinio": {"true"},
	}

	w := postForm(s, values)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="relatorio_tfg.pdf"`)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestFormReport_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		values  url.Values
		message string
	}{
		{
			name:    "single measurement",
			values:  url.Values{"nome": {"Ana"}, "idade": {"50"}, "data": {"2024-01-01", ""}, "tfg": {"60", ""}},
			message: "Informe pelo menos 2 exames.",
		},
		{
			name:    "same date",
			values:  url.Values{"idade": {"50"}, "data": {"2024-01-01", "2024-01-01"}, "tfg": {"60", "58"}},
			message: "Os exames precisam ter datas diferentes.",
		},
		{
			name:    "unparseable value",
			values:  url.Values{"idade": {"50"}, "data": {"2024-01-01", "2024-03-01"}, "tfg": {"60", "abc"}},
			message: "exame 2",
		},
		{
			name:    "age out of range",
			values:  url.Values{"idade": {"130"}, "data": {"2024-01-01", "2024-03-01"}, "tfg": {"60", "58"}},
			message: "Dados do paciente inválidos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(s, tt.values)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestDecline(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, "/api/v1/decline", `{"measurements":[
		{"date":"2025-01-01","value":48},
		{"date":"2024-01-01","value":60}
	]}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp DeclineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Estimate)
	assert.InDelta(t, -12/(366/domain.DaysPerMonth), resp.Estimate.SlopePerMonth, 1e-9)
	assert.Equal(t, domain.SeverityRapid, resp.Estimate.Severity)
	assert.Len(t, resp.Summary, 3)
	assert.Equal(t, 60.0, resp.Measurements[0].Value, "series is returned sorted")
	assert.Equal(t, 0.0, resp.Months[0])
}

func TestDecline_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"single measurement", `{"measurements":[{"date":"2024-01-01","value":60}]}`, domain.ErrInsufficientData},
		{"no measurements", `{"measurements":[]}`, domain.ErrInsufficientData},
		{"same date", `{"measurements":[{"date":"2024-01-01","value":60},{"date":"2024-01-01","value":58}]}`, domain.ErrDegenerateTimeAxis},
		{"bad date", `{"measurements":[{"date":"01/01/2024","value":60},{"date":"2024-02-01","value":58}]}`, domain.ErrValidation},
		{"missing value", `{"measurements":[{"date":"2024-01-01"},{"date":"2024-02-01","value":58}]}`, domain.ErrValidation},
		{"value out of range", `{"measurements":[{"date":"2024-01-01","value":200},{"date":"2024-02-01","value":58}]}`, domain.ErrValidation},
		{"malformed json", `{"measurements":`, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, "/api/v1/decline", tt.body, "X-Request-ID", "req-42")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			apiErr := decodeAPIError(t, w)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, "req-42", apiErr.RequestID)
		})
	}
}

func TestCurves(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, "/api/v1/curves", `{"baseline":100,"horizon_months":2}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp CurvesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Trajectories, 3)

	want := [][]float64{
		{100, 99.67, 99.34},
		{100, 99.17, 98.34},
		{100, 98.75, 97.5},
	}
	for i, curve := range resp.Trajectories {
		got := curve.Values()
		require.Len(t, got, 3)
		for m := range got {
			assert.InDelta(t, want[i][m], got[m], 1e-9)
		}
	}

	missing := doJSON(t, s, "/api/v1/curves", `{"horizon_months":2}`)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Equal(t, domain.ErrValidation, decodeAPIError(t, missing).Code)
}

func TestChart(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, "/api/v1/chart", reportBody)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1500, img.Bounds().Dx())
}

func TestReport(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("pdf download", func(t *testing.T) {
		w := doJSON(t, s, "/api/v1/reports", reportBody)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("json envelope", func(t *testing.T) {
		w := doJSON(t, s, "/api/v1/reports", reportBody, "Accept", "application/json")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp ReportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "relatorio_tfg.pdf", resp.FileName)
		require.NotNil(t, resp.Report)
		assert.NotEmpty(t, resp.Report.ID)
		require.NotNil(t, resp.Report.Estimate)
		assert.Len(t, resp.Summary, 3)

		doc, err := base64.StdEncoding.DecodeString(resp.PDF)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	})

	t.Run("decline rate disabled", func(t *testing.T) {
		body := strings.Replace(reportBody, `"measurements"`, `"options":{"include_decline_rate":false},"measurements"`, 1)
		w := doJSON(t, s, "/api/v1/reports", body, "Accept", "application/json")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp ReportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Nil(t, resp.Report.Estimate)
		assert.Empty(t, resp.Summary)
	})

	t.Run("patient age rejected by binding", func(t *testing.T) {
		body := strings.Replace(reportBody, `"age": 60`, `"age": 130`, 1)
		w := doJSON(t, s, "/api/v1/reports", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		apiErr := decodeAPIError(t, w)
		assert.Equal(t, domain.ErrValidation, apiErr.Code)
		assert.Contains(t, apiErr.Details, "Age")
	})
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *domain.Config) {
		cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	})

	first := doJSON(t, s, "/api/v1/curves", `{"baseline":80}`)
	second := doJSON(t, s, "/api/v1/curves", `{"baseline":80}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, domain.ErrRateLimit, decodeAPIError(t, second).Code)

	health := httptest.NewRecorder()
	s.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code, "health is never limited")
}
