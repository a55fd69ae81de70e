package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"exitsurvey/internal/config"
	"exitsurvey/internal/exporter"
	"exitsurvey/internal/infrastructure"
	"exitsurvey/internal/report"
	"exitsurvey/internal/survey"
)

// CanonicalFile is the normalized workbook written next to the report.
const CanonicalFile = "canonical.xlsx"

type options struct {
	in         string
	out        string
	instrument string
	metric     string
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "", "survey platform export (.xls or .xlsx)")
	flag.StringVar(&opts.out, "out", "report", "output directory")
	flag.StringVar(&opts.instrument, "instrument", "", "instrument YAML overriding the built-in questionnaire")
	flag.StringVar(&opts.metric, "metric", "", "write only this metric as CSV")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := infrastructure.InitializeLogger(config.LoggingConfig{Level: *level})

	if opts.in == "" {
		logger.Error("Missing required flag", slog.String("flag", "-in"))
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	written, err := run(ctx, opts, logger)
	if err != nil {
		logger.Error("Survey report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

// run reads and normalizes the export, writes the canonical workbook and
// then either the full report or the single requested metric.
func run(ctx context.Context, opts options, logger *slog.Logger) ([]string, error) {
	inst := survey.DefaultInstrument()
	if opts.instrument != "" {
		loaded, err := survey.LoadInstrument(opts.instrument)
		if err != nil {
			return nil, fmt.Errorf("failed to load instrument: %w", err)
		}
		inst = loaded
	}

	raw, err := readExport(opts.in)
	if err != nil {
		return nil, err
	}

	table, err := survey.NewNormalizer(inst, logger).Normalize(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", filepath.Base(opts.in), err)
	}
	if err := survey.NewRegistry(inst).Validate(table); err != nil {
		return nil, fmt.Errorf("validate %s: %w", filepath.Base(opts.in), err)
	}
	logger.InfoContext(ctx, "Export normalized",
		slog.String("file", opts.in),
		slog.Int("respondents", table.Len()),
		slog.Int("columns", table.Width()))

	if err := os.MkdirAll(opts.out, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	canonical := filepath.Join(opts.out, CanonicalFile)
	if err := writeCanonical(canonical, table); err != nil {
		return nil, err
	}
	written := []string{canonical}

	ext := survey.NewExtractor(table, inst, survey.WithLogger(logger))
	builder := report.NewBuilder(report.WithLogger(logger))

	if opts.metric != "" {
		path, err := writeMetric(ctx, builder, ext, opts.out, opts.metric, logger)
		if err != nil {
			return written, err
		}
		return append(written, path), nil
	}

	rep, err := builder.Build(ctx, ext)
	if err != nil {
		return written, fmt.Errorf("build report: %w", err)
	}
	files, err := exporter.NewReportExporter(logger).ExportReport(ctx, opts.out, rep)
	return append(written, files...), err
}

func readExport(path string) (*survey.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()
	return survey.ReadWorkbook(f, filepath.Base(path))
}

func writeCanonical(path string, table *survey.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := survey.WriteWorkbook(f, table); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writeMetric(ctx context.Context, builder *report.Builder, ext *survey.Extractor, dir, name string, logger *slog.Logger) (string, error) {
	result, err := builder.Metric(ctx, ext, name)
	if err != nil {
		return "", err
	}
	headers, rows, err := exporter.Flatten(result)
	if err != nil {
		return "", fmt.Errorf("metric %s: %w", name, err)
	}
	path := filepath.Join(dir, name+".csv")
	if err := exporter.NewCSVWriter(logger).WriteSimpleCSV(path, headers, rows); err != nil {
		return "", fmt.Errorf("metric %s: %w", name, err)
	}
	return path, nil
}
