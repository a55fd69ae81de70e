package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "exitsurvey/internal/errors"
	"exitsurvey/internal/middleware"
	"exitsurvey/internal/services"
)

const (
	csvSuffix        = ".csv"
	contentTypeCSV   = "text/csv; charset=utf-8"
	contentTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multipartMemory  = 8 << 20
	uploadFormField  = "file"
	canonicalXLSName = "canonical.xlsx"
)

type sessionIDKey struct{}

// uploadParams is validated before the workbook is read.
type uploadParams struct {
	FileName string `json:"file_name" validate:"required,filename,max=255"`
}

// sessionParams is validated for every session-scoped route.
type sessionParams struct {
	ID string `json:"session_id" validate:"required,uuid"`
}

// metricParams is validated for the metric routes. Unknown names are left to
// the service so they surface as 404.
type metricParams struct {
	Metric string `json:"metric" validate:"required,max=64"`
}

// SurveyHandler handles survey upload and extraction requests
type SurveyHandler struct {
	service      SurveyServiceInterface
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(service SurveyServiceInterface, validation *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SurveyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SurveyHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "survey")),
	}
}

// Routes returns the survey routes, mounted under /api/surveys.
func (h *SurveyHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.validation.LimitBody, middleware.ContentTypeValidator("multipart/form-data")).
		Post("/", h.Upload)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Get("/metrics/{metric}", h.GetMetric)
		r.Get("/report", h.GetReport)
		r.Get("/"+canonicalXLSName, h.GetCanonical)
	})

	return r
}

// SessionCtx validates the {id} parameter and stores it in the context.
func (h *SurveyHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := sessionParams{ID: chi.URLParam(r, "id")}
		if err := h.validation.ValidateStruct(params); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDKey{}, params.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey{}).(string)
	return id
}

// Upload handles POST /api/surveys
func (h *SurveyHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, fmt.Errorf("%w: limit %d bytes", services.ErrUploadTooLarge, tooLarge.Limit))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadFormField, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	if err := h.validation.ValidateStruct(uploadParams{FileName: header.Filename}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "survey upload received",
		slog.String("file_name", header.Filename),
		slog.Int64("size", header.Size))

	summary, err := h.service.Upload(ctx, header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/surveys/"+summary.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

// GetSession handles GET /api/surveys/{id}
func (h *SurveyHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Session(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// DeleteSession handles DELETE /api/surveys/{id}
func (h *SurveyHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), sessionID(r)); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMetric handles GET /api/surveys/{id}/metrics/{metric} and its .csv
// variant.
func (h *SurveyHandler) GetMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "metric")
	asCSV := strings.HasSuffix(name, csvSuffix)
	name = strings.TrimSuffix(name, csvSuffix)

	if err := h.validation.ValidateStruct(metricParams{Metric: name}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if asCSV {
		h.writeCSV(w, r, name)
		return
	}

	result, err := h.service.Metric(r.Context(), sessionID(r), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *SurveyHandler) writeCSV(w http.ResponseWriter, r *http.Request, name string) {
	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), sessionID(r), name, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeAttachment(w, contentTypeCSV, name+csvSuffix, buf.Bytes())
}

// GetReport handles GET /api/surveys/{id}/report
func (h *SurveyHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Report(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rep)
}

// GetCanonical handles GET /api/surveys/{id}/canonical.xlsx
func (h *SurveyHandler) GetCanonical(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.Canonical(r.Context(), sessionID(r), &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeAttachment(w, contentTypeXLSX, canonicalXLSName, buf.Bytes())
}

// writeAttachment sends a fully built file so a failure never leaves a
// half-written download behind.
func writeAttachment(w http.ResponseWriter, contentType, fileName string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
