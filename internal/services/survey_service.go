package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"exitsurvey/internal/exporter"
	"exitsurvey/internal/infrastructure"
	"exitsurvey/internal/report"
	"exitsurvey/internal/session"
	"exitsurvey/internal/survey"
)

// DefaultMaxUploadBytes caps uploads when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// SessionSummary describes a stored upload.
type SessionSummary struct {
	ID          string    `json:"session_id"`
	FileName    string    `json:"file_name"`
	Instrument  string    `json:"instrument"`
	CreatedAt   time.Time `json:"created_at"`
	Respondents int       `json:"respondents"`
	Columns     int       `json:"columns"`
	Metrics     []string  `json:"metrics"`
}

// SurveyService provides the survey upload and extraction operations
type SurveyService struct {
	inst       *survey.Instrument
	registry   *survey.Registry
	normalizer *survey.Normalizer
	store      *session.Store
	builder    *report.Builder
	csvWriter  *exporter.CSVWriter
	metrics    *infrastructure.SurveyMetrics
	tracer     trace.Tracer
	maxUpload  int64
	logger     *slog.Logger
}

// SurveyOption configures a SurveyService.
type SurveyOption func(*SurveyService)

// WithMetrics records uploads and extractions on m.
func WithMetrics(m *infrastructure.SurveyMetrics) SurveyOption {
	return func(s *SurveyService) { s.metrics = m }
}

// WithTracer sets the tracer for service spans.
func WithTracer(t trace.Tracer) SurveyOption {
	return func(s *SurveyService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMaxUploadBytes limits the size of an uploaded export.
func WithMaxUploadBytes(n int64) SurveyOption {
	return func(s *SurveyService) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// NewSurveyService creates a new survey service
func NewSurveyService(inst *survey.Instrument, store *session.Store, logger *slog.Logger, opts ...SurveyOption) *SurveyService {
	if logger == nil {
		logger = slog.Default()
	}
	if inst == nil {
		inst = survey.DefaultInstrument()
	}
	s := &SurveyService{
		inst:      inst,
		registry:  survey.NewRegistry(inst),
		store:     store,
		tracer:    otel.Tracer(infrastructure.MeterName),
		maxUpload: DefaultMaxUploadBytes,
		logger:    logger.With(slog.String("service", "survey")),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.normalizer = survey.NewNormalizer(inst, logger)
	s.builder = report.NewBuilder(
		report.WithLogger(logger),
		report.WithMetrics(s.metrics),
		report.WithTracer(s.tracer),
	)
	s.csvWriter = exporter.NewCSVWriter(logger)

	s.logger.Info("SurveyService initialized",
		slog.String("instrument", inst.Version),
		slog.Int64("max_upload_bytes", s.maxUpload))
	return s
}

// Instrument returns the instrument uploads are normalized against.
func (s *SurveyService) Instrument() *survey.Instrument { return s.inst }

// Upload reads, normalizes and validates an export and stores it as a new
// session.
func (s *SurveyService) Upload(ctx context.Context, name string, r io.Reader) (*SessionSummary, error) {
	ctx, span := s.tracer.Start(ctx, "survey.upload", trace.WithAttributes(attribute.String("file.name", name)))
	defer span.End()
	start := time.Now()

	summary, size, err := s.upload(ctx, name, r)
	respondents := 0
	if summary != nil {
		respondents = summary.Respondents
	}
	infrastructure.RecordUpload(ctx, s.metrics, size, respondents, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "survey upload rejected",
			slog.String("file_name", name),
			slog.Int64("size", size),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "survey uploaded",
		slog.String("session_id", summary.ID),
		slog.String("file_name", name),
		slog.Int64("size", size),
		slog.Int("respondents", summary.Respondents),
		slog.Int("columns", summary.Columns),
		slog.Duration("duration", time.Since(start)))
	return summary, nil
}

func (s *SurveyService) upload(ctx context.Context, name string, r io.Reader) (*SessionSummary, int64, error) {
	if err := survey.CheckFormat(name); err != nil {
		return nil, 0, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	size := int64(len(data))
	if err != nil {
		return nil, size, fmt.Errorf("failed to read upload: %w", err)
	}
	if size == 0 {
		return nil, 0, ErrEmptyUpload
	}
	if size > s.maxUpload {
		return nil, size, fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, s.maxUpload)
	}

	raw, err := survey.ReadWorkbook(bytes.NewReader(data), name)
	if err != nil {
		return nil, size, err
	}
	table, err := s.normalizer.Normalize(ctx, raw)
	if err != nil {
		return nil, size, err
	}
	if err := s.registry.Validate(table); err != nil {
		return nil, size, err
	}

	ext := survey.NewExtractor(table, s.inst,
		survey.WithLogger(s.logger),
		survey.WithRegistry(s.registry))
	sess := s.store.Put(name, table, ext)
	return s.summarize(sess), size, nil
}

// Session returns the summary of a stored upload.
func (s *SurveyService) Session(ctx context.Context, id string) (*SessionSummary, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.summarize(sess), nil
}

// Metric computes one named metric for a session.
func (s *SurveyService) Metric(ctx context.Context, id, name string) (survey.AggregateResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.builder.Metric(ctx, sess.Extractor, name)
}

// Report builds the full report manifest for a session.
func (s *SurveyService) Report(ctx context.Context, id string) (*report.Report, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(ctx, sess.Extractor)
}

// ExportCSV writes one metric as CSV to w.
func (s *SurveyService) ExportCSV(ctx context.Context, id, name string, w io.Writer) error {
	result, err := s.Metric(ctx, id, name)
	if err != nil {
		return err
	}
	headers, rows, err := exporter.Flatten(result)
	if err != nil {
		return fmt.Errorf("failed to flatten %s: %w", name, err)
	}
	return s.csvWriter.Write(w, headers, rows)
}

// Canonical writes the session's normalized table as a workbook to w.
func (s *SurveyService) Canonical(ctx context.Context, id string, w io.Writer) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	return survey.WriteWorkbook(w, sess.Table)
}

// Delete removes a session.
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	if !s.store.Delete(id) {
		return ErrSessionNotFound
	}
	s.logger.InfoContext(ctx, "survey session deleted", slog.String("session_id", id))
	return nil
}

func (s *SurveyService) get(id string) (*session.Session, error) {
	sess, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *SurveyService) summarize(sess *session.Session) *SessionSummary {
	return &SessionSummary{
		ID:          sess.ID,
		FileName:    sess.FileName,
		Instrument:  s.inst.Version,
		CreatedAt:   sess.CreatedAt,
		Respondents: sess.Table.Len(),
		Columns:     sess.Table.Width(),
		Metrics:     report.MetricNames(),
	}
}
