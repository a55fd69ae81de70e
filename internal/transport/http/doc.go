// Package http exposes the survey service over a small JSON/CSV API.
//
// Handlers only parse and validate requests, call the service, and format
// responses. Errors are rendered as RFC 7807 problem details through
// internal/errors:
//
//	{
//	    "type": "/errors/survey/schema",
//	    "title": "Survey Schema Mismatch",
//	    "status": 422,
//	    "detail": "schema error [Q12] column \"Q12.1 NPS\": ...",
//	    "instance": "/api/surveys",
//	    "trace_id": "..."
//	}
//
// Routes:
//
//	POST   /api/surveys                          upload a workbook (multipart field "file")
//	GET    /api/surveys/{id}                     session summary
//	DELETE /api/surveys/{id}                     drop the session
//	GET    /api/surveys/{id}/metrics/{metric}    one aggregate as JSON
//	GET    /api/surveys/{id}/metrics/{metric}.csv  the same aggregate as CSV
//	GET    /api/surveys/{id}/report              every section in report order
//	GET    /api/surveys/{id}/canonical.xlsx      the normalized table
//	GET    /api/health, /api/health/live, /api/health/ready, /api/version
package http
