package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/repository/fake"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store *fake.Store
	blobs *fake.BlobStore
	cache *fake.FormCache
	pub   *fake.Publisher

	forms   FormService
	fields  FieldService
	subs    SubmissionService
	exports ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store: fake.NewStore(),
		blobs: fake.NewBlobStore(),
		cache: fake.NewFormCache(),
		pub:   &fake.Publisher{},
	}
	logger := zerolog.Nop()
	clock := func() time.Time { return testNow }

	forms := NewFormService(env.store.Forms(), env.store.Fields(), env.cache, logger).(*formService)
	forms.now = clock
	env.forms = forms

	fields := NewFieldService(env.store.Forms(), env.store.Fields(), env.cache, logger).(*fieldService)
	fields.now = clock
	env.fields = fields

	subs := NewSubmissionService(
		env.store.Forms(), env.store.Fields(), env.store.Submissions(),
		env.cache, env.blobs, env.pub,
		SubmissionConfig{UploadPrefix: "form_uploads", MaxFileSize: 2 << 20, DefaultPageSize: 20, MaxPageSize: 100},
		logger,
	).(*submissionService)
	subs.now = clock
	env.subs = subs

	exports := NewExportService(
		env.store.Forms(), env.store.Fields(), env.store.Submissions(),
		env.cache, env.blobs, env.pub, logger,
	).(*exportService)
	exports.now = clock
	env.exports = exports

	return env
}

func (e *testEnv) createForm(t *testing.T, req *models.CreateFormRequest) *models.Form {
	t.Helper()
	form, err := e.forms.CreateForm(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateForm: %v", err)
	}
	return form
}

func (e *testEnv) openForm(t *testing.T) *models.Form {
	t.Helper()
	return e.createForm(t, &models.CreateFormRequest{Title: "Course Feedback"})
}

func (e *testEnv) addField(t *testing.T, formID, label string, typ models.FieldType, required bool, options ...string) *models.Field {
	t.Helper()
	field, err := e.fields.CreateField(context.Background(), formID, &models.CreateFieldRequest{
		Label:    label,
		Type:     string(typ),
		Required: &required,
		Options:  options,
	})
	if err != nil {
		t.Fatalf("CreateField(%q): %v", label, err)
	}
	return field
}

func ptr[T any](v T) *T { return &v }
