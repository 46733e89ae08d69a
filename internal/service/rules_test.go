package service

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aya15elsheikh/forms/internal/models"
)

func testField(name, label string, typ models.FieldType, required bool, options ...string) models.Field {
	return models.Field{Name: name, Label: label, Type: typ, Required: required, Options: options}
}

func TestRuleSetValidate(t *testing.T) {
	fields := []models.Field{
		testField("contact", "Contact", models.FieldTypeEmail, false),
		testField("age", "Age", models.FieldTypeNumber, false),
		testField("colours", "Colours", models.FieldTypeCheckbox, false, "red", " blue"),
		testField("size", "Size", models.FieldTypeSelect, false, "S", "M", "L"),
		testField("anything", "Anything", models.FieldTypeRadio, false),
		testField("born", "Born", models.FieldTypeDate, false),
		testField("bio", "Bio", models.FieldTypeText, true),
	}
	rules := BuildRules(fields, RuleLimits{MaxFileSize: 1024})

	base := func(extra map[string]any) *models.SubmissionInput {
		values := map[string]any{
			StudentEmailKey: "ann@example.com",
			"bio":           "hello",
		}
		for k, v := range extra {
			values[k] = v
		}
		return &models.SubmissionInput{Values: values}
	}

	tests := []struct {
		name       string
		input      *models.SubmissionInput
		wantFields []string
		wantMsg    map[string]string
	}{
		{
			name:  "minimal valid",
			input: base(nil),
		},
		{
			name: "all optional values valid",
			input: base(map[string]any{
				"contact":  "bob@example.com",
				"age":      "12.5",
				"colours":  []any{"red", "blue"},
				"size":     "M",
				"anything": "whatever",
				"born":     "2001-02-03",
			}),
		},
		{
			name:       "invalid email",
			input:      base(map[string]any{"contact": "not-an-email"}),
			wantFields: []string{"contact"},
			wantMsg:    map[string]string{"contact": "The Contact must be a valid email address."},
		},
		{
			name:       "checkbox value outside options",
			input:      base(map[string]any{"colours": []any{"red", "green"}}),
			wantFields: []string{"colours"},
			wantMsg:    map[string]string{"colours": "The selected Colours is invalid."},
		},
		{
			name:       "checkbox scalar",
			input:      base(map[string]any{"colours": "red"}),
			wantFields: []string{"colours"},
			wantMsg:    map[string]string{"colours": "The Colours must be an array."},
		},
		{
			name:       "missing student email",
			input:      &models.SubmissionInput{Values: map[string]any{"bio": "x"}},
			wantFields: []string{StudentEmailKey},
			wantMsg:    map[string]string{StudentEmailKey: "The student email field is required."},
		},
		{
			name:       "blank required text",
			input:      base(map[string]any{"bio": "   "}),
			wantFields: []string{"bio"},
			wantMsg:    map[string]string{"bio": "The Bio field is required."},
		},
		{
			name:  "empty optional number skips type check",
			input: base(map[string]any{"age": ""}),
		},
		{
			name: "every failure reported",
			input: &models.SubmissionInput{Values: map[string]any{
				StudentEmailKey: "nope",
				"age":           "abc",
				"size":          "XL",
				"born":          "yesterday",
			}},
			wantFields: []string{"age", "bio", "born", "size", StudentEmailKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Validate(tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if got := verr.Fields(); !reflect.DeepEqual(got, tt.wantFields) {
				t.Errorf("failing fields = %v, want %v", got, tt.wantFields)
			}
			for field, msg := range tt.wantMsg {
				if got := verr.Errors[field]; len(got) != 1 || got[0] != msg {
					t.Errorf("%s messages = %q, want [%q]", field, got, msg)
				}
			}
		})
	}
}

func TestRuleSetValidate_StudentEmailAlwaysRequired(t *testing.T) {
	rules := BuildRules(nil, RuleLimits{})

	err := rules.Validate(&models.SubmissionInput{Values: map[string]any{}})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want *ValidationError", err)
	}
	if _, ok := verr.Errors[StudentEmailKey]; !ok {
		t.Errorf("expected %s error, got %v", StudentEmailKey, verr.Errors)
	}

	if err := rules.Validate(&models.SubmissionInput{Values: map[string]any{StudentEmailKey: "a@b.co"}}); err != nil {
		t.Errorf("Validate() with only email = %v, want nil", err)
	}
}

func TestRuleSetValidate_Files(t *testing.T) {
	fields := []models.Field{
		testField("cv", "CV", models.FieldTypeFile, true),
	}
	rules := BuildRules(fields, RuleLimits{MaxFileSize: 1024})

	tests := []struct {
		name    string
		files   map[string]*models.UploadedFile
		values  map[string]any
		wantErr string
	}{
		{
			name:  "within limit",
			files: map[string]*models.UploadedFile{"cv": {FileName: "cv.pdf", Size: 512}},
		},
		{
			name:    "missing",
			wantErr: "The CV field is required.",
		},
		{
			name:    "too large",
			files:   map[string]*models.UploadedFile{"cv": {FileName: "cv.pdf", Size: 4096}},
			wantErr: "The CV must not be greater than 1 kilobytes.",
		},
		{
			name:    "text instead of file",
			values:  map[string]any{"cv": "cv.pdf"},
			wantErr: "The CV must be a file.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]any{StudentEmailKey: "ann@example.com"}
			for k, v := range tt.values {
				values[k] = v
			}
			err := rules.Validate(&models.SubmissionInput{Values: values, Files: tt.files})

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if got := verr.Errors["cv"]; len(got) != 1 || got[0] != tt.wantErr {
				t.Errorf("cv messages = %q, want [%q]", got, tt.wantErr)
			}
		})
	}
}

func TestCheckDate(t *testing.T) {
	valid := []string{"2025-06-10", "2025-06-10T12:30:00Z", "2025-06-10 12:30:00", "2025-06-10T12:30"}
	for _, v := range valid {
		if msg := checkDate("Date", v, nil); msg != "" {
			t.Errorf("checkDate(%q) = %q, want pass", v, msg)
		}
	}

	invalid := []any{"10/06/2025", "tomorrow", 20250610.0}
	for _, v := range invalid {
		if msg := checkDate("Date", v, nil); msg == "" {
			t.Errorf("checkDate(%v) passed, want failure", v)
		}
	}
}
