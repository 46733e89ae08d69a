package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeFile     FieldType = "file"
	FieldTypeDate     FieldType = "date"
)

func (ft FieldType) String() string {
	return string(ft)
}

func IsValidFieldType(t string) bool {
	switch FieldType(t) {
	case FieldTypeText, FieldTypeEmail, FieldTypeNumber, FieldTypeTextarea,
		FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox, FieldTypeFile, FieldTypeDate:
		return true
	default:
		return false
	}
}

type Field struct {
	ID          string    `json:"id" db:"id"`
	FormID      string    `json:"form_id" db:"form_id"`
	Label       string    `json:"label" db:"label"`
	Name        string    `json:"name" db:"name"`
	Type        FieldType `json:"type" db:"type"`
	Options     []string  `json:"options" db:"options"`
	Required    bool      `json:"required" db:"required"`
	Placeholder string    `json:"placeholder" db:"placeholder"`
	HelpText    string    `json:"help_text" db:"help_text"`
	Order       int       `json:"order" db:"order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TrimmedOptions returns the option list with surrounding whitespace removed,
// preserving order.
func (f *Field) TrimmedOptions() []string {
	out := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		out = append(out, strings.TrimSpace(o))
	}
	return out
}

// DeriveFieldName turns a display label into the machine name used as the
// submission data key: lower case, ASCII, words joined with "_".
func DeriveFieldName(label string) string {
	name := slug.Make(label)
	name = strings.ReplaceAll(name, "-", "_")
	return strings.Trim(name, "_")
}
