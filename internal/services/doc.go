// Package services implements the business logic layer between the HTTP
// handlers and the survey core.
//
// SurveyService owns the upload lifecycle: an export is read, normalized and
// validated against the instrument, then kept in the session store so that
// metrics, the report manifest and the canonical workbook can be requested
// against it until it goes idle.
//
//	svc := services.NewSurveyService(inst, store, logger,
//	    services.WithMetrics(metrics),
//	    services.WithMaxUploadBytes(cfg.Survey.MaxUploadBytes))
//	summary, err := svc.Upload(ctx, "export.xlsx", file)
//	result, err := svc.Metric(ctx, summary.ID, report.SectionAge)
//
// Services return the survey package's typed errors unchanged (wrapped with
// %w) plus the sentinels in errors.go; internal/errors maps both to HTTP
// problems.
package services
