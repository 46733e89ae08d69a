package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/repository/fake"
	"github.com/aya15elsheikh/forms/internal/service"
	"github.com/aya15elsheikh/forms/pkg/spreadsheet"
)

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

type testServer struct {
	router http.Handler
	blobs  *fake.BlobStore
}

func newTestServer(t *testing.T, checks ...ReadinessCheck) *testServer {
	t.Helper()

	store := fake.NewStore()
	blobs := fake.NewBlobStore()
	cache := fake.NewFormCache()
	pub := &fake.Publisher{}
	logger := zerolog.Nop()

	h := NewHandler(
		service.NewFormService(store.Forms(), store.Fields(), cache, logger),
		service.NewFieldService(store.Forms(), store.Fields(), cache, logger),
		service.NewSubmissionService(store.Forms(), store.Fields(), store.Submissions(), cache, blobs, pub,
			service.SubmissionConfig{UploadPrefix: "form_uploads", MaxFileSize: 2 << 20}, logger),
		service.NewExportService(store.Forms(), store.Fields(), store.Submissions(), cache, blobs, pub, logger),
		checks,
		Limits{},
		logger,
	)

	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return &testServer{router: router, blobs: blobs}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func (s *testServer) doJSON(t *testing.T, method, path string, payload any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	return s.do(t, method, path, "application/json", body)
}

func (s *testServer) createForm(t *testing.T, payload map[string]any) string {
	t.Helper()
	rec, env := s.doJSON(t, http.MethodPost, "/api/v1/forms", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create form: status %d, body %s", rec.Code, rec.Body.String())
	}
	var form struct {
		ID string `json:"id"`
	}
	json.Unmarshal(env.Data, &form)
	return form.ID
}

func (s *testServer) createField(t *testing.T, formID string, payload map[string]any) {
	t.Helper()
	rec, _ := s.doJSON(t, http.MethodPost, "/api/v1/forms/"+formID+"/fields", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create field: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_FormLifecycle(t *testing.T) {
	s := newTestServer(t)

	formID := s.createForm(t, map[string]any{"title": "Enrolment"})

	rec, env := s.doJSON(t, http.MethodGet, "/api/v1/forms/"+formID, nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("get form: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, env = s.doJSON(t, http.MethodPost, "/api/v1/forms", map[string]any{"title": ""})
	if rec.Code != http.StatusUnprocessableEntity || len(env.Errors["title"]) == 0 {
		t.Errorf("empty title: status %d, errors %v", rec.Code, env.Errors)
	}

	rec, _ = s.doJSON(t, http.MethodPatch, "/api/v1/forms/"+formID, map[string]any{"is_active": false})
	if rec.Code != http.StatusOK {
		t.Errorf("patch form: status %d", rec.Code)
	}

	rec, _ = s.doJSON(t, http.MethodGet, "/api/v1/public/forms/"+formID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("public get of inactive form: status %d, want 404", rec.Code)
	}

	rec, _ = s.doJSON(t, http.MethodPost, "/api/v1/public/forms/"+formID+"/submit", map[string]any{"student_email": "a@b.co"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("submit to inactive form: status %d, want 400", rec.Code)
	}

	rec, _ = s.doJSON(t, http.MethodDelete, "/api/v1/forms/"+formID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete form: status %d", rec.Code)
	}
	rec, _ = s.doJSON(t, http.MethodGet, "/api/v1/forms/"+formID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted form: status %d, want 404", rec.Code)
	}
}

func TestHandler_NotFound(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/forms/not-a-uuid"},
		{http.MethodGet, "/api/v1/forms/5b0c2b9e-7a1f-4c1e-9a55-2f3f0f6e1d11"},
		{http.MethodGet, "/api/v1/fields/5b0c2b9e-7a1f-4c1e-9a55-2f3f0f6e1d11"},
		{http.MethodPost, "/api/v1/fields/5b0c2b9e-7a1f-4c1e-9a55-2f3f0f6e1d11/duplicate"},
	}

	for _, tt := range tests {
		rec, env := s.doJSON(t, tt.method, tt.path, nil)
		if rec.Code != http.StatusNotFound || env.Success {
			t.Errorf("%s %s: status %d, want 404", tt.method, tt.path, rec.Code)
		}
	}
}

func TestHandler_SubmitJSON(t *testing.T) {
	s := newTestServer(t)
	formID := s.createForm(t, map[string]any{"title": "Feedback"})
	s.createField(t, formID, map[string]any{"label": "Contact", "type": "email", "required": true})
	s.createField(t, formID, map[string]any{"label": "Colours", "type": "checkbox", "options": []string{"red", "blue"}})

	rec, env := s.doJSON(t, http.MethodPost, "/api/v1/public/forms/"+formID+"/submit", map[string]any{
		"student_email": "ann@example.com",
		"contact":       "not-an-email",
		"colours":       []string{"red", "green"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid submit: status %d, body %s", rec.Code, rec.Body.String())
	}
	if len(env.Errors["contact"]) == 0 || len(env.Errors["colours"]) == 0 {
		t.Errorf("errors = %v, want contact and colours", env.Errors)
	}

	rec, env = s.doJSON(t, http.MethodPost, "/api/v1/public/forms/"+formID+"/submit", map[string]any{
		"student_email": "ann@example.com",
		"contact":       "ann@work.example.com",
		"colours":       []string{"red"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid submit: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		SubmissionID string `json:"submission_id"`
	}
	json.Unmarshal(env.Data, &created)

	rec, env = s.doJSON(t, http.MethodGet, "/api/v1/public/forms/"+formID+"/submissions/"+created.SubmissionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get submission: status %d", rec.Code)
	}
	var got struct {
		FormData map[string]any `json:"form_data"`
	}
	json.Unmarshal(env.Data, &got)
	if got.FormData["contact"] != "ann@work.example.com" {
		t.Errorf("form_data = %v", got.FormData)
	}
}

func TestHandler_SubmitMultipart(t *testing.T) {
	s := newTestServer(t)
	formID := s.createForm(t, map[string]any{"title": "Application"})
	s.createField(t, formID, map[string]any{"label": "Colours", "type": "checkbox", "options": []string{"red", "blue"}})
	s.createField(t, formID, map[string]any{"label": "CV", "type": "file", "required": true})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("student_email", "ann@example.com")
	mw.WriteField("colours[]", "red")
	mw.WriteField("colours[]", "blue")
	part, _ := mw.CreateFormFile("cv", "cv.txt")
	part.Write([]byte("curriculum vitae"))
	mw.Close()

	rec, _ := s.do(t, http.MethodPost, "/api/v1/public/forms/"+formID+"/submit", mw.FormDataContentType(), body.Bytes())
	if rec.Code != http.StatusCreated {
		t.Fatalf("multipart submit: status %d, body %s", rec.Code, rec.Body.String())
	}
	if s.blobs.Len() != 1 {
		t.Errorf("stored %d blobs, want 1", s.blobs.Len())
	}

	rec, env := s.doJSON(t, http.MethodGet, "/api/v1/forms/"+formID+"/submissions?page=1&per_page=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list submissions: status %d", rec.Code)
	}
	if strings.Contains(string(env.Data), `"path"`) {
		t.Error("submission listing leaks the storage path")
	}
	if !strings.Contains(string(env.Data), `"url":"http://files.test/form_uploads/`) {
		t.Errorf("submission listing lacks file url: %s", env.Data)
	}
}

func TestHandler_ExcelExportAndImport(t *testing.T) {
	s := newTestServer(t)
	formID := s.createForm(t, map[string]any{"title": "Survey"})
	s.createField(t, formID, map[string]any{"label": "Answer", "type": "text"})

	rec, _ := s.doJSON(t, http.MethodPost, "/api/v1/public/forms/"+formID+"/submit", map[string]any{
		"student_email": "ann@example.com",
		"answer":        "yes",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/forms/"+formID+"/export-submissions/excel", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("excel export: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != spreadsheet.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Survey_submissions.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	workbook := rec.Body.Bytes()

	upload := func(name string, content []byte) (*httptest.ResponseRecorder, envelope) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("file", name)
		part.Write(content)
		mw.Close()
		return s.do(t, http.MethodPost, "/api/v1/forms/"+formID+"/import-submissions", mw.FormDataContentType(), body.Bytes())
	}

	rec, env := upload("submissions.csv", []byte("a,b\n"))
	if rec.Code != http.StatusUnprocessableEntity || len(env.Errors["file"]) == 0 {
		t.Errorf("csv import: status %d, errors %v", rec.Code, env.Errors)
	}

	rec, env = upload("broken.xlsx", []byte("not a zip"))
	if rec.Code != http.StatusInternalServerError || !strings.HasPrefix(env.Message, "Import failed") {
		t.Errorf("broken import: status %d, message %q", rec.Code, env.Message)
	}

	rec, env = upload("export.xlsx", workbook)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: status %d, body %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Imported int `json:"imported"`
	}
	json.Unmarshal(env.Data, &result)
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
}

func TestHandler_Ready(t *testing.T) {
	s := newTestServer(t,
		ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
		ReadinessCheck{Name: "minio", Check: func(context.Context) error { return errors.New("down") }},
	)

	rec, _ := s.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health: status %d", rec.Code)
	}

	rec, _ = s.do(t, http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with failing dependency: status %d, want 503", rec.Code)
	}
}
