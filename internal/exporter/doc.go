// Package exporter writes survey aggregates as CSV and JSON.
//
// CSVWriter is the low-level writer: UTF-8 CSV with an optional BOM so Excel
// opens Cyrillic labels correctly. Flatten turns any aggregate into a header
// and rows, and ExportReport writes a whole report manifest to a directory:
//
//	rep, _ := report.NewBuilder().Build(ctx, ext)
//	files, err := exporter.NewReportExporter(nil).ExportReport(ctx, "out", rep)
package exporter
