package common

import (
	stderrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/alchemorsel/planner/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Validator validates command structs
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the engine's custom tags registered
func NewValidator() *Validator {
	validate := validator.New()

	// Register custom validators
	_ = validate.RegisterValidation("printable", validatePrintable)

	return &Validator{validate: validate}
}

// Struct validates s and returns an INVALID_ARGUMENT error listing every
// failing field.
func (v *Validator) Struct(s interface{}) *errors.AppError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewInvalidArgumentError("", err.Error()).WithCause(err)
	}

	out := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, errors.ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: messageFor(fe),
		})
	}
	return errors.NewValidationErrors(out).WithCause(err)
}

func messageFor(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "printable":
		return fmt.Sprintf("%s contains control characters", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// validatePrintable rejects free text carrying control characters
func validatePrintable(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
