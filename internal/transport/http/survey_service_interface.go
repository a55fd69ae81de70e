package http

import (
	"context"
	"io"

	"exitsurvey/internal/report"
	"exitsurvey/internal/services"
	"exitsurvey/internal/survey"
)

// SurveyServiceInterface defines the survey operations the handlers need
type SurveyServiceInterface interface {
	Upload(ctx context.Context, name string, r io.Reader) (*services.SessionSummary, error)
	Session(ctx context.Context, id string) (*services.SessionSummary, error)
	Metric(ctx context.Context, id, name string) (survey.AggregateResult, error)
	Report(ctx context.Context, id string) (*report.Report, error)
	ExportCSV(ctx context.Context, id, name string, w io.Writer) error
	Canonical(ctx context.Context, id string, w io.Writer) error
	Delete(ctx context.Context, id string) error
}

var _ SurveyServiceInterface = (*services.SurveyService)(nil)
