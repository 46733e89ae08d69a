package models

import (
	"time"
)

type Form struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	OpensAt     *time.Time `json:"opens_at" db:"opens_at"`
	ClosesAt    *time.Time `json:"closes_at" db:"closes_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the form accepts submissions at now.
// Both window bounds are inclusive.
func (f *Form) IsOpen(now time.Time) bool {
	if !f.IsActive {
		return false
	}
	if f.OpensAt != nil && now.Before(*f.OpensAt) {
		return false
	}
	if f.ClosesAt != nil && now.After(*f.ClosesAt) {
		return false
	}
	return true
}

type FormWithStats struct {
	Form
	IsOpen           bool `json:"is_open"`
	FieldsCount      int  `json:"fields_count" db:"fields_count"`
	SubmissionsCount int  `json:"submissions_count" db:"submissions_count"`
}

type FormWithFields struct {
	Form
	IsOpen bool    `json:"is_open"`
	Fields []Field `json:"fields"`
}

// PublicForm is the schema view served to end users.
type PublicForm struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OpensAt     *time.Time `json:"opens_at"`
	ClosesAt    *time.Time `json:"closes_at"`
	IsOpen      bool       `json:"is_open"`
	Fields      []Field    `json:"fields,omitempty"`
}

// FormSchema is a form together with its fields in display order.
type FormSchema struct {
	Form   Form    `json:"form"`
	Fields []Field `json:"fields"`
}
