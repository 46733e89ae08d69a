package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aya15elsheikh/forms/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs the struct tags of a request DTO and converts failures
// into a per-field ValidationError keyed by JSON name.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := models.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fieldKey(fe), tagMessage(fe))
	}
	return verr
}

func fieldKey(fe validator.FieldError) string {
	// Namespace is "CreateFieldRequest.options[1]"; drop the struct name.
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not be greater than %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid":
		return "must be a valid id"
	case "unique":
		return "must not contain duplicates"
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed on the %s rule", fe.Tag())
	}
}

func isEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}
