package middleware

import (
	"encoding/json"
	"net/http"

	apierrors "exitsurvey/internal/errors"
)

// Problem is the RFC 7807 body middleware writes before a request reaches
// the router's error handler.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
	Code   string `json:"error_code,omitempty"`
}

func writeProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// ProblemFromStatus creates a Problem from an HTTP status code
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	var problemType string

	switch status {
	case http.StatusBadRequest:
		problemType = "/errors/validation"
	case http.StatusNotFound:
		problemType = "/errors/not-found"
	case http.StatusRequestEntityTooLarge:
		problemType = "/errors/payload-too-large"
	case http.StatusUnsupportedMediaType:
		problemType = "/errors/unsupported-media-type"
	case http.StatusTooManyRequests:
		problemType = "/errors/rate-limit"
	case http.StatusInternalServerError:
		problemType = "/errors/internal"
	case http.StatusServiceUnavailable:
		problemType = "/errors/service-unavailable"
	case http.StatusGatewayTimeout:
		problemType = "/errors/timeout"
	default:
		problemType = "/errors/unknown"
	}

	return Problem{
		Type:   problemType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}

// ProblemFromAPIError creates a Problem carrying err's status, message and
// error code.
func ProblemFromAPIError(err *apierrors.APIError, traceID string) Problem {
	p := ProblemFromStatus(err.StatusCode, err.Message, traceID)
	p.Code = err.ErrorCode
	return p
}
