package library

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidationError reports the first invalid input field.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "max":
		return fmt.Sprintf("%s is too long", e.Field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", e.Field, e.Rule)
	}
}

// Normalize trims the input and validates it.
func (in CreateAuthorInput) Normalize() (CreateAuthorInput, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	return in, validateStruct(in)
}

func (in CreateBookInput) Normalize() (CreateBookInput, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.AuthorID = strings.TrimSpace(in.AuthorID)
	return in, validateStruct(in)
}

func validateStruct(value any) error {
	err := validatorInstance().Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Field: lowerFirst(fieldErrs[0].Field()), Rule: fieldErrs[0].Tag()}
	}
	return err
}

func lowerFirst(value string) string {
	if value == "" {
		return value
	}
	if value == "AuthorID" {
		return "authorId"
	}
	return strings.ToLower(value[:1]) + value[1:]
}
