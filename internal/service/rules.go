package service

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aya15elsheikh/forms/internal/models"
)

const (
	StudentEmailKey = "student_email"
	StudentNameKey  = "student_name"

	maxTextLength     = 1000
	maxTextareaLength = 5000
	maxStudentLength  = 255
)

// dateLayouts are the accepted shapes of a date field value.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// check inspects a non-empty input and returns a message, or "" when it passes.
type check func(label string, value any, file *models.UploadedFile) string

// Rule validates a single input key.
type Rule struct {
	Key      string
	Label    string
	Required bool
	File     bool
	Checks   []check
}

// RuleSet is the ordered rule list of one form.
type RuleSet []Rule

type RuleLimits struct {
	MaxFileSize int64
}

type ruleBuilder func(field models.Field, limits RuleLimits) []check

// typeRules maps each field type to the checks applied after presence.
var typeRules = map[models.FieldType]ruleBuilder{
	models.FieldTypeEmail: func(models.Field, RuleLimits) []check {
		return []check{checkEmail}
	},
	models.FieldTypeNumber: func(models.Field, RuleLimits) []check {
		return []check{checkNumeric}
	},
	models.FieldTypeDate: func(models.Field, RuleLimits) []check {
		return []check{checkDate}
	},
	models.FieldTypeFile: func(_ models.Field, limits RuleLimits) []check {
		return []check{checkFile(limits.MaxFileSize)}
	},
	models.FieldTypeText: func(models.Field, RuleLimits) []check {
		return []check{checkString, checkMaxLength(maxTextLength)}
	},
	models.FieldTypeTextarea: func(models.Field, RuleLimits) []check {
		return []check{checkString, checkMaxLength(maxTextareaLength)}
	},
	models.FieldTypeSelect: func(f models.Field, _ RuleLimits) []check {
		return []check{checkIn(f.TrimmedOptions())}
	},
	models.FieldTypeRadio: func(f models.Field, _ RuleLimits) []check {
		return []check{checkIn(f.TrimmedOptions())}
	},
	models.FieldTypeCheckbox: func(f models.Field, _ RuleLimits) []check {
		return []check{checkEachIn(f.TrimmedOptions())}
	},
}

// BuildRules derives the rule set of a form from its fields. The student
// email and name rules are always present.
func BuildRules(fields []models.Field, limits RuleLimits) RuleSet {
	rules := make(RuleSet, 0, len(fields)+2)
	rules = append(rules,
		Rule{
			Key:      StudentEmailKey,
			Label:    "student email",
			Required: true,
			Checks:   []check{checkString, checkEmail, checkMaxLength(maxStudentLength)},
		},
		Rule{
			Key:    StudentNameKey,
			Label:  "student name",
			Checks: []check{checkString, checkMaxLength(maxStudentLength)},
		},
	)

	for _, f := range fields {
		rule := Rule{
			Key:      f.Name,
			Label:    f.Label,
			Required: f.Required,
			File:     f.Type == models.FieldTypeFile,
		}
		if build, ok := typeRules[f.Type]; ok {
			rule.Checks = build(f, limits)
		}
		rules = append(rules, rule)
	}
	return rules
}

// Validate applies every rule and reports all failing keys together.
func (rs RuleSet) Validate(in *models.SubmissionInput) error {
	verr := models.NewValidationError()

	for _, rule := range rs {
		value := in.Values[rule.Key]
		var file *models.UploadedFile
		if rule.File {
			file = in.Files[rule.Key]
		}

		if file == nil && isEmpty(value) {
			if rule.Required {
				verr.Add(rule.Key, fmt.Sprintf("The %s field is required.", rule.Label))
			}
			continue
		}

		for _, c := range rule.Checks {
			if msg := c(rule.Label, value, file); msg != "" {
				verr.Add(rule.Key, msg)
				break
			}
		}
	}

	return verr.OrNil()
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

func checkString(label string, value any, _ *models.UploadedFile) string {
	if _, ok := value.(string); !ok {
		return fmt.Sprintf("The %s must be a string.", label)
	}
	return ""
}

func checkMaxLength(max int) check {
	return func(label string, value any, _ *models.UploadedFile) string {
		s, _ := value.(string)
		if utf8.RuneCountInString(s) > max {
			return fmt.Sprintf("The %s must not be greater than %d characters.", label, max)
		}
		return ""
	}
}

func checkEmail(label string, value any, _ *models.UploadedFile) string {
	s, ok := value.(string)
	if !ok || !isEmail(s) {
		return fmt.Sprintf("The %s must be a valid email address.", label)
	}
	return ""
}

func checkNumeric(label string, value any, _ *models.UploadedFile) string {
	if _, ok := toNumber(value); !ok {
		return fmt.Sprintf("The %s must be a number.", label)
	}
	return ""
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func checkDate(label string, value any, _ *models.UploadedFile) string {
	s, ok := value.(string)
	if ok {
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return ""
			}
		}
	}
	return fmt.Sprintf("The %s is not a valid date.", label)
}

func checkFile(maxSize int64) check {
	return func(label string, _ any, file *models.UploadedFile) string {
		if file == nil {
			return fmt.Sprintf("The %s must be a file.", label)
		}
		if maxSize > 0 && file.Size > maxSize {
			return fmt.Sprintf("The %s must not be greater than %d kilobytes.", label, maxSize/1024)
		}
		return ""
	}
}

// checkIn requires a scalar value listed in options. An empty option list
// accepts anything.
func checkIn(options []string) check {
	return func(label string, value any, _ *models.UploadedFile) string {
		if len(options) == 0 {
			return ""
		}
		s, ok := scalarString(value)
		if !ok || !slices.Contains(options, s) {
			return fmt.Sprintf("The selected %s is invalid.", label)
		}
		return ""
	}
}

func checkEachIn(options []string) check {
	return func(label string, value any, _ *models.UploadedFile) string {
		items, ok := toList(value)
		if !ok {
			return fmt.Sprintf("The %s must be an array.", label)
		}
		if len(options) == 0 {
			return ""
		}
		for _, item := range items {
			s, ok := scalarString(item)
			if !ok || !slices.Contains(options, s) {
				return fmt.Sprintf("The selected %s is invalid.", label)
			}
		}
		return ""
	}
}

func toList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
