package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError is a user-facing validation failure that aborts the
// triggering operation.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// Invalidf builds a ValidationError.
func Invalidf(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a ValidationError or a
// blocking rule violation.
func IsValidation(err error) bool {
	var v ValidationError
	if errors.As(err, &v) {
		return true
	}
	var r RuleViolationError
	return errors.As(err, &r)
}
