package pricing

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel behind every ValidationError so callers
// can test with errors.Is without knowing the field.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
