package report

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"exitsurvey/internal/infrastructure"
	"exitsurvey/internal/survey"
)

// Section is one chart of the report.
type Section struct {
	ID     string                 `json:"id"`
	Title  string                 `json:"title"`
	Chart  ChartKind              `json:"chart"`
	XAxis  string                 `json:"x_axis,omitempty"`
	YAxis  string                 `json:"y_axis,omitempty"`
	Result survey.AggregateResult `json:"result"`
}

// Report is the ordered manifest handed to the document renderer.
type Report struct {
	Title       string              `json:"title"`
	Instrument  string              `json:"instrument"`
	Cohort      string              `json:"cohort"`
	Respondents int                 `json:"respondents"`
	GeneratedAt time.Time           `json:"generated_at"`
	CSI         *survey.ScalarIndex `json:"csi"`
	NPS         int                 `json:"nps"`
	Sections    []Section           `json:"sections"`
}

// Section returns the section with the given ID.
func (r *Report) Section(id string) (Section, bool) {
	for _, s := range r.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Builder runs the report's extractions.
type Builder struct {
	logger  *slog.Logger
	metrics *infrastructure.SurveyMetrics
	tracer  trace.Tracer
	limit   int
	now     func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics records each extraction on m.
func WithMetrics(m *infrastructure.SurveyMetrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithTracer sets the tracer used for section spans.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) {
		if t != nil {
			b.tracer = t
		}
	}
}

// WithConcurrency caps the number of sections computed at once.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.limit = n
		}
	}
}

// NewBuilder returns a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger: slog.Default(),
		tracer: otel.Tracer(infrastructure.MeterName),
		limit:  runtime.GOMAXPROCS(0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(slog.String("component", "report"))
	return b
}

// Build computes every section once, concurrently, and assembles them in
// report order. The headline CSI and NPS are derived from the overall
// satisfaction and industry comparison sections rather than recomputed.
func (b *Builder) Build(ctx context.Context, ext *survey.Extractor) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := b.tracer.Start(ctx, "report.build")
	defer span.End()
	start := time.Now()

	sections := make([]Section, len(definitions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, d := range definitions {
		g.Go(func() error {
			s, err := b.compute(gctx, ext, d)
			if err != nil {
				return err
			}
			sections[i] = *s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		b.logger.ErrorContext(ctx, "report build failed", slog.String("error", err.Error()))
		return nil, err
	}

	inst := ext.Instrument()
	rep := &Report{
		Title:       "Сгенерированный отчет по " + inst.Cohort,
		Instrument:  inst.Version,
		Cohort:      inst.Cohort,
		Respondents: ext.Table().Len(),
		GeneratedAt: b.now().UTC(),
		Sections:    sections,
	}

	overall, _ := rep.Section(SectionOverall)
	csi, err := survey.SatisfactionIndex(overall.Result.(*survey.PerRespondentSeries))
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", MetricCSI, err)
	}
	rep.CSI = csi

	industry, _ := rep.Section(SectionIndustryNPS)
	if local, ok := industry.Result.(*survey.NpsComparison).Local(); ok {
		rep.NPS = local.Score
	}

	b.logger.InfoContext(ctx, "report built",
		slog.Int("sections", len(rep.Sections)),
		slog.Int("respondents", rep.Respondents),
		slog.Float64("csi", csi.Value),
		slog.Int("nps", rep.NPS),
		slog.Duration("duration", time.Since(start)))
	return rep, nil
}

// Section computes a single report section.
func (b *Builder) Section(ctx context.Context, ext *survey.Extractor, id string) (*Section, error) {
	d, ok := lookup(id)
	if !ok {
		return nil, &UnknownMetricError{Name: id}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.compute(ctx, ext, d)
}

// Metric computes one named metric: a section result or one of the scalar
// metrics.
func (b *Builder) Metric(ctx context.Context, ext *survey.Extractor, name string) (survey.AggregateResult, error) {
	switch name {
	case MetricCSI:
		return b.measure(ctx, name, func() (survey.AggregateResult, error) {
			series, err := ext.OverallSatisfaction()
			if err != nil {
				return nil, err
			}
			idx, err := ext.SatisfactionIndex(series)
			if err != nil {
				return nil, err
			}
			return idx, nil
		})
	case MetricNPS:
		return b.measure(ctx, name, func() (survey.AggregateResult, error) {
			score, err := ext.NetPromoterScore()
			if err != nil {
				return nil, err
			}
			return &survey.ScalarIndex{Label: "NPS", Value: float64(score)}, nil
		})
	}
	s, err := b.Section(ctx, ext, name)
	if err != nil {
		return nil, err
	}
	return s.Result, nil
}

func (b *Builder) compute(ctx context.Context, ext *survey.Extractor, d definition) (*Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := b.measure(ctx, d.id, func() (survey.AggregateResult, error) { return d.extract(ext) })
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", d.id, err)
	}
	title := d.title
	if c, ok := result.(*survey.NpsComparison); ok && title == "" {
		title = c.Title
	}
	return &Section{ID: d.id, Title: title, Chart: d.chart, XAxis: d.xAxis, YAxis: d.yAxis, Result: result}, nil
}

func (b *Builder) measure(ctx context.Context, name string, fn func() (survey.AggregateResult, error)) (survey.AggregateResult, error) {
	ctx, span := b.tracer.Start(ctx, "report.metric", trace.WithAttributes(attribute.String("metric", name)))
	defer span.End()

	start := time.Now()
	result, err := fn()
	duration := time.Since(start)
	infrastructure.RecordExtraction(ctx, b.metrics, name, duration, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		b.logger.WarnContext(ctx, "extraction failed",
			slog.String("metric", name),
			slog.String("error", err.Error()))
		return nil, err
	}
	b.logger.DebugContext(ctx, "extraction complete",
		slog.String("metric", name),
		slog.Duration("duration", duration))
	return result, nil
}
