package httpd

import (
	"net/http"

	"github.com/aya15elsheikh/forms/internal/models"
)

func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.formService.ListForms(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, forms)
}

func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	form, err := h.formService.GetForm(r.Context(), formID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, form)
}

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFormRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	form, err := h.formService.CreateForm(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusCreated, form, "Form created successfully")
}

func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	var req models.UpdateFormRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	form, err := h.formService.UpdateForm(r.Context(), formID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusOK, form, "Form updated successfully")
}

func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	if err := h.formService.DeleteForm(r.Context(), formID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusOK, nil, "Form deleted successfully")
}
