package httpd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/aya15elsheikh/forms/internal/models"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

func (h *Handler) ListOpenForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.formService.ListOpenForms(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, forms)
}

func (h *Handler) GetPublicForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	form, err := h.formService.GetPublicForm(r.Context(), formID)
	if errors.Is(err, models.ErrFormClosed) {
		writeError(w, http.StatusNotFound, "Form is not available")
		return
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, form)
}

func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxRequestSize)
	input, err := parseSubmission(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	resp, err := h.submissionService.Submit(r.Context(), formID, input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccessMessage(w, http.StatusCreated, resp, "Application submitted successfully")
}

func (h *Handler) GetPublicSubmission(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(w, r, "id", models.ErrFormNotFound)
	if !ok {
		return
	}
	submissionID, ok := pathID(w, r, "submissionId", models.ErrSubmissionNotFound)
	if !ok {
		return
	}

	resp, err := h.submissionService.GetPublicSubmission(r.Context(), formID, submissionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, resp)
}

// parseSubmission accepts a JSON object, a urlencoded form or a multipart form.
// In forms, a key ending in "[]" or sent more than once becomes a list.
func parseSubmission(r *http.Request) (*models.SubmissionInput, error) {
	input := &models.SubmissionInput{
		Values: map[string]any{},
		Files:  map[string]*models.UploadedFile{},
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
		input.Values = formValues(r.MultipartForm.Value)
		for key, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			file, err := readUpload(headers[0])
			if err != nil {
				return nil, err
			}
			input.Files[strings.TrimSuffix(key, "[]")] = file
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		input.Values = formValues(r.PostForm)
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return input, nil
		}
		if err := json.Unmarshal(body, &input.Values); err != nil {
			return nil, fmt.Errorf("failed to decode submission: %w", err)
		}
	}

	return input, nil
}

func formValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vs := range values {
		name := strings.TrimSuffix(key, "[]")
		if name != key || len(vs) > 1 {
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			out[name] = list
			continue
		}
		if len(vs) == 1 {
			out[name] = vs[0]
		}
	}
	return out
}

func readUpload(header *multipart.FileHeader) (*models.UploadedFile, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &models.UploadedFile{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     content,
	}, nil
}
