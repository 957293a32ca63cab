package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/scanpaie/internal/application/service"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/garyjia/scanpaie/internal/payroll"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockScanService struct {
	analyzeReq  service.AnalyzeRequest
	importReq   service.ImportRequest
	importBody  string
	listArgs    [3]interface{}
	err         error
	record      *entity.AnalysisRecord
	importCalls int
	bothCalls   int
}

func (m *mockScanService) Analyze(ctx context.Context, req service.AnalyzeRequest) (*entity.AnalysisRecord, error) {
	m.analyzeReq = req
	return m.record, m.err
}

func (m *mockScanService) readImport(req service.ImportRequest) {
	m.importReq = req
	body, _ := io.ReadAll(req.Content)
	m.importBody = string(body)
}

func (m *mockScanService) ImportPayroll(ctx context.Context, req service.ImportRequest) (*payroll.ImportResult, error) {
	m.importCalls++
	m.readImport(req)
	if m.err != nil {
		return nil, m.err
	}
	return &payroll.ImportResult{Filename: req.Filename, Total: 2, Success: 2}, nil
}

func (m *mockScanService) ImportAndAnalyze(ctx context.Context, req service.ImportRequest) (*service.ImportAnalysis, error) {
	m.bothCalls++
	m.readImport(req)
	if m.err != nil {
		return nil, m.err
	}
	return &service.ImportAnalysis{
		Import:   &payroll.ImportResult{Filename: req.Filename, Total: 2, Success: 2},
		Analysis: m.record,
	}, nil
}

func (m *mockScanService) GetAnalysis(ctx context.Context, id string) (*entity.AnalysisRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *mockScanService) ListAnalyses(ctx context.Context, companyID string, limit, offset int) ([]*entity.AnalysisRecord, error) {
	m.listArgs = [3]interface{}{companyID, limit, offset}
	if m.err != nil {
		return nil, m.err
	}
	if m.record == nil {
		return nil, nil
	}
	return []*entity.AnalysisRecord{m.record}, nil
}

func (m *mockScanService) SeveritySummary(ctx context.Context, companyID string) (map[entity.Severity]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return map[entity.Severity]int{
		entity.SeverityCritical: 1,
		entity.SeverityHigh:     2,
		entity.SeverityMedium:   0,
		entity.SeverityLow:      0,
	}, nil
}

type mockHealth struct{ err error }

func (m *mockHealth) Health(ctx context.Context) error { return m.err }

func sampleRecord() *entity.AnalysisRecord {
	return &entity.AnalysisRecord{
		ID:         "an-1",
		CompanyID:  "acme",
		Period:     "2024-01",
		EntryCount: 1,
		Analysis: &entity.ScanPaieAnalysis{
			TotalAnomalies:   1,
			OverallRiskScore: 60,
			Anomalies:        []entity.Anomaly{{ID: "salary_spike_e1", Type: entity.AnomalySalarySpike, Severity: entity.SeverityHigh}},
		},
	}
}

func newTestServer(svc service.ScanService, health HealthChecker) *Server {
	return NewServer(DefaultServerConfig(), svc, health, &mockLogger{})
}

func doRequest(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantStatus int
		wantOK     bool
	}{
		{name: "no checker", wantStatus: http.StatusOK, wantOK: true},
		{name: "healthy db", health: &mockHealth{}, wantStatus: http.StatusOK, wantOK: true},
		{name: "db down", health: &mockHealth{err: errors.New("closed")}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockScanService{}, tt.health)
			w, resp := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOK, resp.Success)
		})
	}
}

func TestAnalyze(t *testing.T) {
	svc := &mockScanService{record: sampleRecord()}
	s := newTestServer(svc, nil)

	body := `{"company_id":"acme","period":"2024-01","entries":[{"id":"e1","employee":{"id":"E1","first_name":"Marie","last_name":"Dupont","position":"Développeur"},"gross_salary":9000,"working_days":22}],"baseline_period":"2023-12"}`
	req := httptest.NewRequest(http.MethodPost, "/api/scanpaie/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w, resp := doRequest(t, s, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "acme", svc.analyzeReq.CompanyID)
	assert.Equal(t, "2023-12", svc.analyzeReq.BaselinePeriod)
	require.Len(t, svc.analyzeReq.Entries, 1)
	assert.Equal(t, 9000.0, svc.analyzeReq.Entries[0].GrossSalary)
	assert.Equal(t, "Dupont", svc.analyzeReq.Entries[0].Employee.LastName)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "an-1", data["id"])
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "malformed json", body: `{"entries":`, wantStatus: http.StatusBadRequest, wantError: "invalid request body"},
		{
			name:       "invalid entry",
			body:       `{"company_id":"acme","entries":[]}`,
			err:        fmt.Errorf("failed to analyze payroll: %w", &entity.InvalidEntryError{Index: 0, Field: "id", Reason: "is required"}),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid payroll entry 0: id is required",
		},
		{name: "missing company", body: `{}`, err: entity.ErrCompanyRequired, wantStatus: http.StatusBadRequest, wantError: "company id is required"},
		{name: "storage failure", body: `{"company_id":"acme"}`, err: errors.New("disk full"), wantStatus: http.StatusInternalServerError, wantError: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockScanService{err: tt.err}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/scanpaie/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w, resp := doRequest(t, s, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantError)
		})
	}
}

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/payroll/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportPayroll(t *testing.T) {
	svc := &mockScanService{}
	s := newTestServer(svc, nil)

	req := multipartUpload(t, map[string]string{"company_id": "acme", "period": "2024-01"}, "paie.csv", "matricule;nom\n")
	w, resp := doRequest(t, s, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, svc.importCalls)
	assert.Zero(t, svc.bothCalls)
	assert.Equal(t, "acme", svc.importReq.CompanyID)
	assert.Equal(t, "2024-01", svc.importReq.Period)
	assert.Equal(t, "paie.csv", svc.importReq.Filename)
	assert.Equal(t, "matricule;nom\n", svc.importBody)
}

func TestImportPayroll_WithAnalysis(t *testing.T) {
	svc := &mockScanService{record: sampleRecord()}
	s := newTestServer(svc, nil)

	req := multipartUpload(t, map[string]string{"company_id": "acme", "analyze": "true", "baseline_period": "2023-12"}, "paie.xlsx", "x")
	w, resp := doRequest(t, s, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.bothCalls)
	assert.Equal(t, "2023-12", svc.importReq.BaselinePeriod)

	data := resp.Data.(map[string]interface{})
	assert.Contains(t, data, "import")
	assert.Contains(t, data, "analysis")
}

func TestImportPayroll_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		err        error
		wantStatus int
	}{
		{
			name: "missing file",
			req: func(t *testing.T) *http.Request {
				return multipartUpload(t, map[string]string{"company_id": "acme"}, "", "")
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad analyze flag",
			req: func(t *testing.T) *http.Request {
				return multipartUpload(t, map[string]string{"company_id": "acme", "analyze": "maybe"}, "a.csv", "x")
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unsupported format",
			req: func(t *testing.T) *http.Request {
				return multipartUpload(t, map[string]string{"company_id": "acme"}, "a.pdf", "x")
			},
			err:        fmt.Errorf("failed to parse payroll file: %w", payroll.ErrUnsupportedFormat),
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing columns",
			req: func(t *testing.T) *http.Request {
				return multipartUpload(t, map[string]string{"company_id": "acme"}, "a.csv", "x")
			},
			err:        fmt.Errorf("failed to parse payroll file: %w: gross_salary", payroll.ErrMissingColumns),
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartUpload(t, map[string]string{"company_id": "acme"}, "a.csv", "x")
			},
			err:        fmt.Errorf("failed to parse payroll file: %w", payroll.ErrFileTooLarge),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockScanService{err: tt.err}, nil)
			w, resp := doRequest(t, s, tt.req(t))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestListAnalyses(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantArgs   [3]interface{}
		wantStatus int
	}{
		{name: "defaults", query: "", wantArgs: [3]interface{}{"", 20, 0}, wantStatus: http.StatusOK},
		{name: "explicit", query: "?company_id=acme&limit=5&offset=10", wantArgs: [3]interface{}{"acme", 5, 10}, wantStatus: http.StatusOK},
		{name: "clamped", query: "?limit=500&offset=-3", wantArgs: [3]interface{}{"", 100, 0}, wantStatus: http.StatusOK},
		{name: "bad limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockScanService{}
			s := newTestServer(svc, nil)

			w, resp := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/scanpaie/analyses"+tt.query, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantArgs, svc.listArgs)
			data := resp.Data.(map[string]interface{})
			assert.Equal(t, []interface{}{}, data["analyses"])
			assert.Equal(t, float64(tt.wantArgs[1].(int)), data["limit"])
			assert.Equal(t, float64(tt.wantArgs[2].(int)), data["offset"])
		})
	}
}

func TestGetAnalysis(t *testing.T) {
	s := newTestServer(&mockScanService{record: sampleRecord()}, nil)
	w, resp := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/scanpaie/analyses/an-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	notFound := newTestServer(&mockScanService{err: fmt.Errorf("%w: missing", entity.ErrAnalysisNotFound)}, nil)
	w, resp = doRequest(t, notFound, httptest.NewRequest(http.MethodGet, "/api/scanpaie/analyses/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "analysis not found", resp.Error)
}

func TestSeveritySummary(t *testing.T) {
	s := newTestServer(&mockScanService{}, nil)
	w, resp := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/scanpaie/summary?company_id=acme", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "acme", data["company_id"])
	assert.Equal(t, map[string]interface{}{"critical": 1.0, "high": 2.0, "medium": 0.0, "low": 0.0}, data["by_severity"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&mockScanService{}, nil)
	doRequest(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scanpaie_http_requests_total")
}
