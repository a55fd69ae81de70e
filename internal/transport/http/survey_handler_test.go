package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "exitsurvey/internal/errors"
	"exitsurvey/internal/middleware"
	"exitsurvey/internal/report"
	"exitsurvey/internal/services"
	"exitsurvey/internal/shared/testutil"
	"exitsurvey/internal/survey"
)

const testSessionID = "6f1c1f8e-5b7a-4c1e-9d0a-3f2b1c4d5e6f"

// MockSurveyService is a mock implementation of SurveyServiceInterface
type MockSurveyService struct {
	mock.Mock
}

func (m *MockSurveyService) Upload(ctx context.Context, name string, r io.Reader) (*services.SessionSummary, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionSummary), args.Error(1)
}

func (m *MockSurveyService) Session(ctx context.Context, id string) (*services.SessionSummary, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionSummary), args.Error(1)
}

func (m *MockSurveyService) Metric(ctx context.Context, id, name string) (survey.AggregateResult, error) {
	args := m.Called(id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(survey.AggregateResult), args.Error(1)
}

func (m *MockSurveyService) Report(ctx context.Context, id string) (*report.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

func (m *MockSurveyService) ExportCSV(ctx context.Context, id, name string, w io.Writer) error {
	args := m.Called(id, name)
	if body := args.String(1); body != "" {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(0)
}

func (m *MockSurveyService) Canonical(ctx context.Context, id string, w io.Writer) error {
	args := m.Called(id)
	if body := args.String(1); body != "" {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(0)
}

func (m *MockSurveyService) Delete(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func newSurveyRouter(t *testing.T, svc SurveyServiceInterface, maxBody int64) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := middleware.NewValidationMiddleware(logger, errorHandler, maxBody)

	r := chi.NewRouter()
	r.Mount("/api/surveys", NewSurveyHandler(svc, validation, errorHandler, logger).Routes())
	return r
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func problemType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	typ, _ := body["type"].(string)
	return typ
}

func TestSurveyHandler_Upload(t *testing.T) {
	svc := new(MockSurveyService)
	summary := &services.SessionSummary{ID: testSessionID, FileName: "export.xlsx", Respondents: 5, Columns: 42}
	svc.On("Upload", "export.xlsx", []byte("workbook")).Return(summary, nil)

	body, contentType := multipartBody(t, "file", "export.xlsx", []byte("workbook"))
	req := httptest.NewRequest(http.MethodPost, "/api/surveys", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newSurveyRouter(t, svc, 1<<20).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/surveys/"+testSessionID, rec.Header().Get("Location"))
	var got services.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testSessionID, got.ID)
	assert.Equal(t, 5, got.Respondents)
	svc.AssertExpectations(t)
}

func TestSurveyHandler_UploadRejected(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(svc *MockSurveyService)
		build       func(t *testing.T) (io.Reader, string)
		maxBody     int64
		wantStatus  int
		wantProblem string
	}{
		{
			name: "missing file field",
			build: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "upload", "export.xlsx", []byte("x"))
			},
			maxBody:     1 << 20,
			wantStatus:  http.StatusBadRequest,
			wantProblem: apierrors.TypeValidation,
		},
		{
			name: "wrong content type",
			build: func(t *testing.T) (io.Reader, string) {
				return bytes.NewBufferString("{}"), "application/json"
			},
			maxBody:     1 << 20,
			wantStatus:  http.StatusUnsupportedMediaType,
			wantProblem: "/errors/unsupported-media-type",
		},
		{
			name: "body over the limit",
			build: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "file", "export.xlsx", bytes.Repeat([]byte("x"), 512))
			},
			maxBody:     64,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantProblem: apierrors.TypePayloadTooLarge,
		},
		{
			name: "unsupported format",
			setup: func(svc *MockSurveyService) {
				svc.On("Upload", "export.csv", mock.Anything).
					Return(nil, &survey.UnsupportedFormatError{Name: "export.csv", Supported: []string{".xls", ".xlsx"}})
			},
			build: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "file", "export.csv", []byte("a,b"))
			},
			maxBody:     1 << 20,
			wantStatus:  http.StatusUnsupportedMediaType,
			wantProblem: apierrors.TypeSurveyUnsupportedFormat,
		},
		{
			name: "schema mismatch",
			setup: func(svc *MockSurveyService) {
				svc.On("Upload", "export.xlsx", mock.Anything).
					Return(nil, fmt.Errorf("normalize: %w", &survey.SchemaError{Question: "Q12", Message: "missing"}))
			},
			build: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "file", "export.xlsx", []byte("x"))
			},
			maxBody:     1 << 20,
			wantStatus:  http.StatusUnprocessableEntity,
			wantProblem: apierrors.TypeSurveySchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSurveyService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			body, contentType := tt.build(t)
			req := httptest.NewRequest(http.MethodPost, "/api/surveys", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			newSurveyRouter(t, svc, tt.maxBody).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantProblem, problemType(t, rec))
			svc.AssertExpectations(t)
		})
	}
}

func TestSurveyHandler_SessionRoutes(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		setup       func(svc *MockSurveyService)
		wantStatus  int
		wantProblem string
	}{
		{
			name:   "session summary",
			method: http.MethodGet,
			path:   "/api/surveys/" + testSessionID,
			setup: func(svc *MockSurveyService) {
				svc.On("Session", testSessionID).Return(&services.SessionSummary{ID: testSessionID}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "malformed id",
			method:      http.MethodGet,
			path:        "/api/surveys/not-a-uuid",
			wantStatus:  http.StatusBadRequest,
			wantProblem: apierrors.TypeValidation,
		},
		{
			name:   "unknown session",
			method: http.MethodGet,
			path:   "/api/surveys/" + testSessionID + "/report",
			setup: func(svc *MockSurveyService) {
				svc.On("Report", testSessionID).Return(nil, services.ErrSessionNotFound)
			},
			wantStatus:  http.StatusNotFound,
			wantProblem: apierrors.TypeSessionNotFound,
		},
		{
			name:   "unknown metric",
			method: http.MethodGet,
			path:   "/api/surveys/" + testSessionID + "/metrics/weather",
			setup: func(svc *MockSurveyService) {
				svc.On("Metric", testSessionID, "weather").Return(nil, &report.UnknownMetricError{Name: "weather"})
			},
			wantStatus:  http.StatusNotFound,
			wantProblem: apierrors.TypeMetricNotFound,
		},
		{
			name:   "missing column",
			method: http.MethodGet,
			path:   "/api/surveys/" + testSessionID + "/metrics/program",
			setup: func(svc *MockSurveyService) {
				svc.On("Metric", testSessionID, "program").Return(nil, &survey.ColumnNotFoundError{Question: "Q3", Metric: "program"})
			},
			wantStatus:  http.StatusUnprocessableEntity,
			wantProblem: apierrors.TypeSurveyColumnNotFound,
		},
		{
			name:   "deadline",
			method: http.MethodGet,
			path:   "/api/surveys/" + testSessionID + "/report",
			setup: func(svc *MockSurveyService) {
				svc.On("Report", testSessionID).Return(nil, context.DeadlineExceeded)
			},
			wantStatus:  http.StatusGatewayTimeout,
			wantProblem: apierrors.TypeTimeout,
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			path:   "/api/surveys/" + testSessionID,
			setup: func(svc *MockSurveyService) {
				svc.On("Delete", testSessionID).Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSurveyService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			rec := httptest.NewRecorder()
			newSurveyRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantProblem != "" {
				assert.Equal(t, tt.wantProblem, problemType(t, rec))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestSurveyHandler_GetMetricJSON(t *testing.T) {
	svc := new(MockSurveyService)
	counts := &survey.CategoryCounts{Question: "Q2", Items: []survey.CategoryCount{{Label: "35-44", Count: 5}}}
	svc.On("Metric", testSessionID, "age").Return(counts, nil)

	rec := httptest.NewRecorder()
	newSurveyRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surveys/"+testSessionID+"/metrics/age", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(survey.ResultCategoryCounts), body["kind"])
	svc.AssertExpectations(t)
}

func TestSurveyHandler_GetMetricCSV(t *testing.T) {
	svc := new(MockSurveyService)
	svc.On("ExportCSV", testSessionID, "industry").Return(nil, "label,count\nТехнологии,5\n")

	rec := httptest.NewRecorder()
	newSurveyRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surveys/"+testSessionID+"/metrics/industry.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="industry.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Технологии,5")
	svc.AssertExpectations(t)
}

func TestSurveyHandler_CSVErrorLeavesNoPartialBody(t *testing.T) {
	svc := new(MockSurveyService)
	svc.On("ExportCSV", testSessionID, "industry").Return(services.ErrSessionNotFound, "label,count\n")

	rec := httptest.NewRecorder()
	newSurveyRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surveys/"+testSessionID+"/metrics/industry.csv", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "label,count")
	assert.Equal(t, apierrors.TypeSessionNotFound, problemType(t, rec))
}

func TestSurveyHandler_GetCanonical(t *testing.T) {
	svc := new(MockSurveyService)
	svc.On("Canonical", testSessionID).Return(nil, "PK")

	rec := httptest.NewRecorder()
	newSurveyRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surveys/"+testSessionID+"/canonical.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("Content-Length"))
	assert.Equal(t, "PK", rec.Body.String())
}

func TestSurveyHandler_GetReport(t *testing.T) {
	svc := new(MockSurveyService)
	rep := &report.Report{Title: "Сгенерированный отчет по EMBA", NPS: 40, GeneratedAt: time.Unix(0, 0).UTC()}
	svc.On("Report", testSessionID).Return(rep, nil)

	rec := httptest.NewRecorder()
	newSurveyRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surveys/"+testSessionID+"/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(40), body["nps"])
	assert.Equal(t, rep.Title, body["title"])
}
