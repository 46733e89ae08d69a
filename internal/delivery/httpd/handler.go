package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/service"
)

// ReadinessCheck checks one dependency for /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Limits struct {
	MaxRequestSize int64
	ImportMaxSize  int64
}

type Handler struct {
	formService       service.FormService
	fieldService      service.FieldService
	submissionService service.SubmissionService
	exportService     service.ExportService
	checks            []ReadinessCheck
	limits            Limits
	logger            zerolog.Logger
}

func NewHandler(
	formService service.FormService,
	fieldService service.FieldService,
	submissionService service.SubmissionService,
	exportService service.ExportService,
	checks []ReadinessCheck,
	limits Limits,
	logger zerolog.Logger,
) *Handler {
	if limits.MaxRequestSize <= 0 {
		limits.MaxRequestSize = 32 << 20
	}
	if limits.ImportMaxSize <= 0 {
		limits.ImportMaxSize = 10 << 20
	}

	return &Handler{
		formService:       formService,
		fieldService:      fieldService,
		submissionService: submissionService,
		exportService:     exportService,
		checks:            checks,
		limits:            limits,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/ready", h.ReadyCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/forms", func(r chi.Router) {
			r.Get("/", h.ListForms)
			r.Post("/", h.CreateForm)
			r.Get("/{id}", h.GetForm)
			r.Put("/{id}", h.UpdateForm)
			r.Patch("/{id}", h.UpdateForm)
			r.Delete("/{id}", h.DeleteForm)

			r.Get("/{id}/submissions", h.ListSubmissions)
			r.Get("/{id}/export-submissions", h.ExportSubmissions)
			r.Get("/{id}/export-submissions/excel", h.ExportSubmissionsExcel)
			r.Post("/{id}/import-submissions", h.ImportSubmissionsExcel)

			r.Get("/{id}/fields", h.ListFields)
			r.Post("/{id}/fields", h.CreateField)
			r.Post("/{id}/fields/reorder", h.ReorderFields)
		})

		api.Route("/fields", func(r chi.Router) {
			r.Get("/{id}", h.GetField)
			r.Put("/{id}", h.UpdateField)
			r.Patch("/{id}", h.UpdateField)
			r.Delete("/{id}", h.DeleteField)
			r.Post("/{id}/duplicate", h.DuplicateField)
		})

		api.Route("/public/forms", func(r chi.Router) {
			r.Get("/", h.ListOpenForms)
			r.Get("/{id}", h.GetPublicForm)
			r.Post("/{id}/submit", h.SubmitForm)
			r.Get("/{id}/submissions/{submissionId}", h.GetPublicSubmission)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "form-service",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	services := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Warn().Err(err).Str("dependency", c.Name).Msg("Readiness check failed")
			services[c.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		services[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":    state,
		"services":  services,
		"timestamp": time.Now().UTC(),
	})
}

// pathID reads a UUID route parameter. Anything that is not a UUID cannot
// name a stored row, so it is reported as notFound.
func pathID(w http.ResponseWriter, r *http.Request, param string, notFound error) (string, bool) {
	id := chi.URLParam(r, param)
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, notFoundMessage(notFound))
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *models.ValidationError
	var importErr *models.ImportError

	switch {
	case errors.As(err, &validationErr):
		writeValidationError(w, validationErr)
	case errors.Is(err, models.ErrFormNotFound),
		errors.Is(err, models.ErrFieldNotFound),
		errors.Is(err, models.ErrSubmissionNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, models.ErrFormClosed):
		writeError(w, http.StatusBadRequest, "This form is not currently accepting submissions")
	case errors.As(err, &importErr):
		h.requestLogger(r).Error().Err(err).Msg("Import failed")
		writeError(w, http.StatusInternalServerError, "Import failed: "+importErr.PublicMessage())
	default:
		h.requestLogger(r).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// requestLogger prefers the logger RequestLogger stored in the context.
func (h *Handler) requestLogger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.logger
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrFieldNotFound):
		return "Field not found"
	case errors.Is(err, models.ErrSubmissionNotFound):
		return "Submission not found"
	default:
		return "Form not found"
	}
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeValidationError(w http.ResponseWriter, verr *models.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"success": false,
		"error":   http.StatusText(http.StatusUnprocessableEntity),
		"message": "Validation failed",
		"errors":  verr.Errors,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeSuccessMessage(w, http.StatusOK, data, "")
}

func writeSuccessMessage(w http.ResponseWriter, status int, data interface{}, message string) {
	response := map[string]interface{}{
		"success": true,
	}
	if data != nil {
		response["data"] = data
	}
	if message != "" {
		response["message"] = message
	}
	writeJSON(w, status, response)
}
