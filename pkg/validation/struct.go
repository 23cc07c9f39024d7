package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct checks `validate` struct tags and reports every failing field.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	out := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			out = append(out, fmt.Errorf("%s: field is required", field))
		case "min", "gte":
			out = append(out, fmt.Errorf("%s: must be at least %s", field, param))
		case "max", "lte":
			out = append(out, fmt.Errorf("%s: must not exceed %s", field, param))
		case "gt":
			out = append(out, fmt.Errorf("%s: must be greater than %s", field, param))
		case "oneof":
			out = append(out, fmt.Errorf("%s: must be one of [%s]", field, param))
		default:
			out = append(out, fmt.Errorf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return errors.Join(out...)
}
