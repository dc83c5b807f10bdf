// Package apperr holds the validation error shared by every workflow.
package apperr

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError through errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a rejected input field. Workflows return it before
// touching the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
