// Package validation checks client input and collects field-level messages.
package validation

import (
	"strings"
	"unicode/utf8"

	"feedql/internal/models"

	"github.com/go-playground/validator/v10"
)

// InvalidInput is the top-level message of every input validation failure.
const InvalidInput = "Invalid input."

var validate = validator.New(validator.WithRequiredStructEnabled())

// Email reports whether s is a well-formed address.
func Email(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// MinLength reports whether s, ignoring surrounding whitespace, has at least n characters.
func MinLength(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

// NotEmpty reports whether s contains anything besides whitespace.
func NotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Fields accumulates violated rules in the order they were checked.
type Fields struct {
	errs []models.FieldError
}

// Check records message when ok is false.
func (f *Fields) Check(ok bool, message string) {
	if !ok {
		f.errs = append(f.errs, models.FieldError{Message: message})
	}
}

// Len returns the number of recorded violations.
func (f *Fields) Len() int { return len(f.errs) }

// Err returns a 422 AppError carrying every violation, or nil.
func (f *Fields) Err() error {
	if len(f.errs) == 0 {
		return nil
	}
	return models.NewValidationError(InvalidInput, f.errs...)
}
