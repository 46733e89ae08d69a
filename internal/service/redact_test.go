package service

import (
	"reflect"
	"testing"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/repository/fake"
)

func TestRedactorData(t *testing.T) {
	r := NewRedactor(fake.NewBlobStore())

	stored := map[string]any{
		"full_name": "Ann",
		"colours":   []any{"red"},
		"cv": map[string]any{
			models.FileKeyOriginalName: "cv.pdf",
			models.FileKeyPath:         "form_uploads/1_cv.pdf",
			models.FileKeySize:         float64(10),
			models.FileKeyMimeType:     "application/pdf",
		},
		"meta": map[string]any{"source": "import"},
		"none": nil,
	}

	got := r.Data(stored)

	want := map[string]any{
		"full_name": "Ann",
		"colours":   []any{"red"},
		"cv":        map[string]any{models.FileKeyURL: "http://files.test/form_uploads/1_cv.pdf"},
		"meta":      map[string]any{"source": "import"},
		"none":      nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Data() = %#v\nwant %#v", got, want)
	}

	cv := stored["cv"].(map[string]any)
	if _, ok := cv[models.FileKeyPath]; !ok {
		t.Error("redaction modified the stored descriptor")
	}
	if _, ok := cv[models.FileKeyURL]; ok {
		t.Error("redaction added url to the stored descriptor")
	}
}
