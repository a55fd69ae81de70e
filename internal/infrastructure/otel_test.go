package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exitsurvey/internal/shared/testutil"
)

func TestInitializeOTel_MetricsOnly(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	providers, err := InitializeOTel(nil, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Tracer)
	assert.Nil(t, providers.TracerProvider)
	require.NotNil(t, providers.PrometheusHTTP)
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.TraceExporter = "jaeger"
	_, err := InitializeOTel(cfg, nil)
	assert.Error(t, err)
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.TraceExporter = "stdout"
	providers, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, providers.TracerProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestSurveyMetrics_ExportedToPrometheus(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := NewSurveyMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordUpload(ctx, m, 2048, 5, 30*time.Millisecond, nil)
	RecordExtraction(ctx, m, "age", time.Millisecond, nil)
	RecordExtraction(ctx, m, "nps_industry", time.Millisecond, errors.New("boom"))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "survey_uploads_total")
	assert.Contains(t, text, "survey_respondents_total")
	assert.Contains(t, text, `metric="nps_industry"`)
	assert.Contains(t, text, "survey_extraction_errors_total")
	assert.Contains(t, text, "go_goroutines")
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordUpload(context.Background(), nil, 1, 1, time.Second, nil)
		RecordExtraction(context.Background(), nil, "age", time.Second, nil)
		RecordError(context.Background(), errors.New("no span"))
	})
}
