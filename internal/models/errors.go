package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrFormNotFound       = errors.New("form not found")
	ErrFieldNotFound      = errors.New("field not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrFormClosed         = errors.New("form is not available at this time")
)

// ValidationError carries every failing field with its messages.
type ValidationError struct {
	Errors map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Errors: make(map[string][]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Errors[field] = append(e.Errors[field], message)
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// Fields returns the failing field names, sorted.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, f := range e.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Errors[f], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OrNil returns nil when nothing was recorded so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// ImportError aborts a spreadsheet import. Message is safe to show to the
// caller; Cause is only logged.
type ImportError struct {
	Row     int
	Message string
	Cause   error
}

func (e *ImportError) Error() string {
	msg := e.Message
	if e.Row > 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("import failed: %s: %v", msg, e.Cause)
	}
	return "import failed: " + msg
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// PublicMessage is the text returned over HTTP.
func (e *ImportError) PublicMessage() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return e.Message
}
