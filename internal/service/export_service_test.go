package service

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/pkg/spreadsheet"
)

func TestFlattenValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"list", []any{"red", "blue"}, "red, blue"},
		{"json array string", `["a","b"]`, "a, b"},
		{"bracketed text", "[draft] notes", "[draft] notes"},
		{"integral number", float64(42), "42"},
		{"fractional number", 2.50, "2.5"},
		{"bool", true, "true"},
		{"redacted file", map[string]any{"url": "http://files.test/x.pdf"}, "http://files.test/x.pdf"},
		{"other object", map[string]any{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenValue(tt.value); got != tt.want {
				t.Errorf("flattenValue(%#v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestExportService_ExportSubmissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	form := env.openForm(t)
	env.addField(t, form.ID, "CV", models.FieldTypeFile, false)

	if _, err := env.subs.Submit(ctx, form.ID, &models.SubmissionInput{
		Values: map[string]any{StudentEmailKey: "ann@example.com", StudentNameKey: "Ann"},
		Files: map[string]*models.UploadedFile{
			"cv": {FileName: "cv.txt", ContentType: "text/plain", Size: 2, Content: []byte("hi")},
		},
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	export, err := env.exports.ExportSubmissions(ctx, form.ID)
	if err != nil {
		t.Fatalf("ExportSubmissions: %v", err)
	}
	if export.FormTitle != form.Title || len(export.Submissions) != 1 {
		t.Fatalf("export = %+v", export)
	}
	cv := export.Submissions[0].Data["cv"].(map[string]any)
	if _, ok := cv[models.FileKeyPath]; ok {
		t.Error("JSON export leaks the storage path")
	}
	if url, _ := cv[models.FileKeyURL].(string); !strings.HasPrefix(url, "http://files.test/form_uploads/") {
		t.Errorf("url = %q", url)
	}
}

func TestExportService_ExcelRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	form := env.openForm(t)
	env.addField(t, form.ID, "Full Name", models.FieldTypeText, true)
	env.addField(t, form.ID, "Colours", models.FieldTypeCheckbox, false, "red", "blue")
	env.addField(t, form.ID, "Age", models.FieldTypeNumber, false)
	env.addField(t, form.ID, "Agree", models.FieldTypeCheckbox, false, "Yes", "Yes, definitely", "No")

	inputs := []map[string]any{
		{StudentEmailKey: "ann@example.com", StudentNameKey: "Ann", "full_name": "Ann Smith", "colours": []any{"red", "blue"}, "age": float64(21), "agree": []any{"Yes, definitely"}},
		{StudentEmailKey: "bob@example.com", "full_name": "Bob", "colours": []any{"blue"}, "age": "34", "agree": []any{"No", "Yes"}},
	}
	for _, values := range inputs {
		if _, err := env.subs.Submit(ctx, form.ID, &models.SubmissionInput{Values: values}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	workbook, err := env.exports.ExportSubmissionsExcel(ctx, form.ID)
	if err != nil {
		t.Fatalf("ExportSubmissionsExcel: %v", err)
	}
	if workbook.FileName != "Course Feedback_submissions.xlsx" {
		t.Errorf("FileName = %q", workbook.FileName)
	}

	rows, err := spreadsheet.Read(bytes.NewReader(workbook.Content))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	wantHeader := []string{"Submission ID", "Student Name", "Student Email", "Full Name", "Colours", "Age", "Agree"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %q, want %q", rows[0], wantHeader)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}

	other := env.createForm(t, &models.CreateFormRequest{Title: "Copy Target"})
	env.addField(t, other.ID, "Full Name", models.FieldTypeText, true)
	env.addField(t, other.ID, "Colours", models.FieldTypeCheckbox, false, "red", "blue")
	env.addField(t, other.ID, "Age", models.FieldTypeNumber, false)
	env.addField(t, other.ID, "Agree", models.FieldTypeCheckbox, false, "Yes", "Yes, definitely", "No")

	result, err := env.exports.ImportSubmissionsExcel(ctx, other.ID, bytes.NewReader(workbook.Content))
	if err != nil {
		t.Fatalf("ImportSubmissionsExcel: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}

	original, _ := env.exports.ExportSubmissions(ctx, form.ID)
	imported, _ := env.exports.ExportSubmissions(ctx, other.ID)
	if len(imported.Submissions) != 2 {
		t.Fatalf("imported %d submissions, want 2", len(imported.Submissions))
	}
	byEmail := make(map[string]models.ExportedSubmission, len(imported.Submissions))
	for _, s := range imported.Submissions {
		byEmail[s.StudentEmail] = s
	}
	for _, want := range original.Submissions {
		got, ok := byEmail[want.StudentEmail]
		if !ok {
			t.Errorf("no imported row for %q", want.StudentEmail)
			continue
		}
		if !reflect.DeepEqual(got.Data, want.Data) {
			t.Errorf("%s data = %#v\nwant %#v", want.StudentEmail, got.Data, want.Data)
		}
	}

	var bob models.ExportedSubmission
	for _, s := range imported.Submissions {
		if s.StudentEmail == "bob@example.com" {
			bob = s
		}
	}
	if bob.StudentName == nil || *bob.StudentName != "Imported" {
		t.Errorf("missing name should default to Imported, got %v", bob.StudentName)
	}
	if len(env.pub.Imported) != 1 || env.pub.Imported[0].Count != 2 {
		t.Errorf("imported events = %+v", env.pub.Imported)
	}
}

func TestSplitCheckboxCell(t *testing.T) {
	options := []string{"Yes", "Yes, definitely", "No", "Maybe, later"}

	tests := []struct {
		name string
		cell string
		want []any
	}{
		{"single", "No", []any{"No"}},
		{"option with comma", "Yes, definitely", []any{"Yes, definitely"}},
		{"shorter prefix option", "Yes, No", []any{"Yes", "No"}},
		{"mixed", "Maybe, later, Yes, definitely, No", []any{"Maybe, later", "Yes, definitely", "No"}},
		{"unknown text falls back to commas", "red, Yes, blue", []any{"red", "Yes", "blue"}},
		{"loose spacing", " No ,Yes ", []any{"No", "Yes"}},
		{"only separators", " , ,", []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitCheckboxCell(tt.cell, options); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitCheckboxCell(%q) = %#v, want %#v", tt.cell, got, tt.want)
			}
		})
	}
}

func TestExportService_ImportDefaultsAndBlankRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	form := env.openForm(t)
	env.addField(t, form.ID, "Full Name", models.FieldTypeText, false)

	content, err := spreadsheet.Write("Sheet1", [][]string{
		{" Full Name ", "Unknown Column"},
		{"Ann", "x"},
		{"", ""},
		{"", "only unknown"},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := env.exports.ImportSubmissionsExcel(ctx, form.ID, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ImportSubmissionsExcel: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("Imported = %d, want 2 (blank row skipped)", result.Imported)
	}

	export, _ := env.exports.ExportSubmissions(ctx, form.ID)
	for _, s := range export.Submissions {
		if s.StudentEmail != importDefaultEmail {
			t.Errorf("email = %q, want default", s.StudentEmail)
		}
	}
	names := map[any]int{}
	for _, s := range export.Submissions {
		names[s.Data["full_name"]]++
	}
	if !reflect.DeepEqual(names, map[any]int{"Ann": 1, nil: 1}) {
		t.Errorf("full_name values = %v, want Ann and <nil> once each", names)
	}
}

func TestExportService_ImportIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	form := env.openForm(t)

	content, err := spreadsheet.Write("Sheet1", [][]string{
		{"Student Email"},
		{"a@example.com"},
		{"b@example.com"},
		{"c@example.com"},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	env.store.FailBatchAt = 1
	_, err = env.exports.ImportSubmissionsExcel(ctx, form.ID, bytes.NewReader(content))

	var ierr *models.ImportError
	if !errors.As(err, &ierr) {
		t.Fatalf("ImportSubmissionsExcel() = %v, want *ImportError", err)
	}
	if ierr.Row != 3 {
		t.Errorf("Row = %d, want 3", ierr.Row)
	}
	if strings.Contains(ierr.PublicMessage(), "insert rejected") {
		t.Error("public message leaks the internal cause")
	}
	if n := env.store.SubmissionCount(form.ID); n != 0 {
		t.Errorf("stored %d submissions after failed import, want 0", n)
	}
}

func TestExportService_ImportRejectsNonWorkbook(t *testing.T) {
	env := newTestEnv(t)
	form := env.openForm(t)

	_, err := env.exports.ImportSubmissionsExcel(context.Background(), form.ID, strings.NewReader("id,name\n1,Ann\n"))
	var ierr *models.ImportError
	if !errors.As(err, &ierr) {
		t.Fatalf("ImportSubmissionsExcel() = %v, want *ImportError", err)
	}
}
