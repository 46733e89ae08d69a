package httpd

import (
	"net/http"

	"github.com/aya15elsheikh/forms/internal/models"
)

func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	fields, err := h.fieldService.ListFields(r.Context(), formID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, fields)
}

func (h *Handler) CreateField(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	var req models.CreateFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	field, err := h.fieldService.CreateField(r.Context(), formID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusCreated, field, "Field created successfully")
}

func (h *Handler) GetField(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := pathID(w, r, "id", models.ErrFieldNotFound)
	if !ok {
		return
	}

	field, err := h.fieldService.GetField(r.Context(), fieldID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, field)
}

func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := pathID(w, r, "id", models.ErrFieldNotFound)
	if !ok {
		return
	}

	var req models.UpdateFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	field, err := h.fieldService.UpdateField(r.Context(), fieldID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusOK, field, "Field updated successfully")
}

func (h *Handler) DeleteField(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := pathID(w, r, "id", models.ErrFieldNotFound)
	if !ok {
		return
	}

	if err := h.fieldService.DeleteField(r.Context(), fieldID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusOK, nil, "Field deleted successfully")
}

func (h *Handler) ReorderFields(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	var req models.ReorderFieldsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields, err := h.fieldService.ReorderFields(r.Context(), formID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusOK, fields, "Fields reordered successfully")
}

func (h *Handler) DuplicateField(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := pathID(w, r, "id", models.ErrFieldNotFound)
	if !ok {
		return
	}

	field, err := h.fieldService.DuplicateField(r.Context(), fieldID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusCreated, field, "Field duplicated successfully")
}
