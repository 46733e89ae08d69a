package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Data Transfer Objects

type CreateFormRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description *string    `json:"description"`
	IsActive    *bool      `json:"is_active"`
	OpensAt     *time.Time `json:"opens_at"`
	ClosesAt    *time.Time `json:"closes_at"`
}

// OptionalTime distinguishes an absent JSON key from an explicit null.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// UpdateFormRequest leaves absent keys untouched.
type UpdateFormRequest struct {
	Title       *string      `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string      `json:"description"`
	IsActive    *bool        `json:"is_active"`
	OpensAt     OptionalTime `json:"opens_at"`
	ClosesAt    OptionalTime `json:"closes_at"`
}

type CreateFieldRequest struct {
	Label       string   `json:"label" validate:"required,max=255"`
	Type        string   `json:"type" validate:"required,oneof=text email number textarea select radio checkbox file date"`
	Required    *bool    `json:"required"`
	Placeholder *string  `json:"placeholder" validate:"omitempty,max=255"`
	HelpText    *string  `json:"help_text"`
	Options     []string `json:"options" validate:"omitempty,dive,max=255"`
}

type UpdateFieldRequest struct {
	Label       string    `json:"label" validate:"required,max=255"`
	Type        string    `json:"type" validate:"required,oneof=text email number textarea select radio checkbox file date"`
	Required    *bool     `json:"required"`
	Placeholder *string   `json:"placeholder" validate:"omitempty,max=255"`
	HelpText    *string   `json:"help_text"`
	Options     *[]string `json:"options" validate:"omitempty,dive,max=255"`
}

type ReorderFieldsRequest struct {
	Fields []string `json:"fields" validate:"required,min=1,unique,dive,uuid"`
}

// SubmissionInput is the raw public submission: scalar or list values keyed
// by input name, plus uploaded files keyed by input name.
type SubmissionInput struct {
	Values map[string]any
	Files  map[string]*UploadedFile
}

type SubmitResponse struct {
	SubmissionID string    `json:"submission_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type FormSummary struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields,omitempty"`
}

type SubmissionsResponse struct {
	Form        FormSummary  `json:"form"`
	Submissions []Submission `json:"submissions"`
	Total       int          `json:"total"`
	Page        int          `json:"page"`
	PerPage     int          `json:"per_page"`
	LastPage    int          `json:"last_page"`
}

type PublicSubmissionResponse struct {
	ID           string         `json:"id"`
	StudentEmail string         `json:"student_email"`
	StudentName  *string        `json:"student_name,omitempty"`
	FormData     map[string]any `json:"form_data"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	Form         FormSummary    `json:"form"`
}

type ExportedSubmission struct {
	ID           string         `json:"id"`
	StudentName  *string        `json:"student_name"`
	StudentEmail string         `json:"student_email"`
	Data         map[string]any `json:"data"`
	SubmittedAt  time.Time      `json:"submitted_at"`
}

type ExportResponse struct {
	FormTitle   string               `json:"form_title"`
	Submissions []ExportedSubmission `json:"submissions"`
}

type ExcelExport struct {
	FileName string
	Content  []byte
}

type ImportResponse struct {
	Imported int `json:"imported"`
}
