package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"exitsurvey/internal/report"
)

// ManifestFile is the name of the JSON manifest ExportReport writes.
const ManifestFile = "report.json"

// ReportExporter writes report manifests to disk.
type ReportExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewReportExporter creates a new report exporter
func NewReportExporter(logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &ReportExporter{
		csvWriter: NewCSVWriter(logger),
		logger:    logger,
	}
}

// SectionFile is the CSV file name of the i-th section (zero based).
func SectionFile(i int, id string) string {
	return fmt.Sprintf("%02d_%s.csv", i+1, id)
}

// ExportReport writes one CSV per section, numbered in report order, and the
// JSON manifest into dir. It returns the written paths.
func (e *ReportExporter) ExportReport(ctx context.Context, dir string, rep *report.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := make([]string, 0, len(rep.Sections)+1)
	for i, s := range rep.Sections {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		headers, rows, err := Flatten(s.Result)
		if err != nil {
			return written, fmt.Errorf("section %s: %w", s.ID, err)
		}
		path := filepath.Join(dir, SectionFile(i, s.ID))
		if err := e.csvWriter.WriteSimpleCSV(path, headers, rows); err != nil {
			return written, fmt.Errorf("section %s: %w", s.ID, err)
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, ManifestFile)
	if err := WriteJSONFile(path, rep); err != nil {
		return written, err
	}
	written = append(written, path)

	e.logger.InfoContext(ctx, "report exported",
		slog.String("dir", dir),
		slog.Int("files", len(written)))
	return written, nil
}

// WriteJSONFile writes v as indented JSON.
func WriteJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
