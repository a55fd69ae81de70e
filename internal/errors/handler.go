package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"

	"exitsurvey/internal/infrastructure"
	"exitsurvey/internal/report"
	"exitsurvey/internal/services"
	"exitsurvey/internal/survey"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       infrastructure.WithComponent(logger, "error_handler"),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) && r.Context().Err() == context.Canceled {
		h.logger.InfoContext(r.Context(), "request canceled by client",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("type", problem.Type),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", string(debug.Stack()))
	}

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			instance,
		)
	}
	if errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			StatusClientClosedRequest,
			TypeCanceled,
			"Client Closed Request",
			"The request was canceled before processing finished",
			instance,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var (
		schemaErr      *survey.SchemaError
		columnErr      *survey.ColumnNotFoundError
		dataTypeErr    *survey.DataTypeError
		emptyErr       *survey.EmptyDatasetError
		unsupportedErr *survey.UnsupportedFormatError
		unknownMetric  *report.UnknownMetricError
	)

	switch {
	case errors.As(err, &unsupportedErr):
		return NewProblemDetails(
			http.StatusUnsupportedMediaType,
			TypeSurveyUnsupportedFormat,
			"Unsupported File Format",
			err.Error(),
			instance,
		).WithExtension("file_name", unsupportedErr.Name).
			WithExtension("supported", unsupportedErr.Supported)

	case errors.As(err, &schemaErr):
		problem := NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeSurveySchema,
			"Survey Schema Mismatch",
			err.Error(),
			instance,
		)
		if schemaErr.Question != "" {
			problem.WithExtension("question", schemaErr.Question)
		}
		if schemaErr.Column != "" {
			problem.WithExtension("column", schemaErr.Column)
		}
		return problem

	case errors.As(err, &columnErr):
		problem := NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeSurveyColumnNotFound,
			"Survey Column Not Found",
			err.Error(),
			instance,
		).WithExtension("question", columnErr.Question)
		if columnErr.Metric != "" {
			problem.WithExtension("metric", columnErr.Metric)
		}
		return problem

	case errors.As(err, &dataTypeErr):
		problem := NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeSurveyDataType,
			"Invalid Survey Value",
			err.Error(),
			instance,
		).WithExtension("column", dataTypeErr.Column).
			WithExtension("expected", dataTypeErr.Expected)
		if dataTypeErr.Row >= 0 {
			problem.WithExtension("row", dataTypeErr.Row)
		}
		return problem

	case errors.As(err, &emptyErr):
		problem := NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeSurveyEmptyDataset,
			"No Respondents",
			err.Error(),
			instance,
		)
		if emptyErr.Stage != "" {
			problem.WithExtension("stage", emptyErr.Stage)
		}
		return problem

	case errors.As(err, &unknownMetric):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeMetricNotFound,
			"Metric Not Found",
			err.Error(),
			instance,
		).WithExtension("metrics", report.MetricNames())

	case errors.Is(err, services.ErrSessionNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeSessionNotFound,
			"Session Not Found",
			"The survey session does not exist or has expired",
			instance,
		)

	case errors.Is(err, services.ErrUploadTooLarge):
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			err.Error(),
			instance,
		)

	case errors.Is(err, services.ErrEmptyUpload), errors.Is(err, services.ErrInvalidInput):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Bad Request",
			err.Error(),
			instance,
		)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			instance,
		)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic responds with a 500 problem for a recovered panic.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	_ = render.Render(w, r, problem)
}

// JSON helper for consistent JSON responses
func (h *ErrorHandler) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
