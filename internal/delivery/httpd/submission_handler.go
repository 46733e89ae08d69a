package httpd

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/pkg/spreadsheet"
)

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	page := getIntQueryParam(r, "page", 1)
	perPage := getIntQueryParam(r, "per_page", 0)

	resp, err := h.submissionService.ListSubmissions(r.Context(), formID, page, perPage)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, resp)
}

func (h *Handler) ExportSubmissions(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	export, err := h.exportService.ExportSubmissions(r.Context(), formID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, export)
}

func (h *Handler) ExportSubmissionsExcel(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	export, err := h.exportService.ExportSubmissionsExcel(r.Context(), formID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Content)
}

func (h *Handler) ImportSubmissionsExcel(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.ImportMaxSize+1<<20)
	if err := r.ParseMultipartForm(h.limits.ImportMaxSize); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		verr := models.NewValidationError()
		verr.Add("file", "The file field is required.")
		writeValidationError(w, verr)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		verr := models.NewValidationError()
		verr.Add("file", "The file must be a file of type: xlsx.")
		writeValidationError(w, verr)
		return
	}
	if header.Size > h.limits.ImportMaxSize {
		verr := models.NewValidationError()
		verr.Add("file", "The file is too large.")
		writeValidationError(w, verr)
		return
	}

	resp, err := h.exportService.ImportSubmissionsExcel(r.Context(), formID, file)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusOK, resp, "Submissions imported successfully")
}
