package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the services. Wrap them with %w and test with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("insufficient permissions")
	ErrConflict          = errors.New("conflict")
)

// ValidationError describes bad input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid returns a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Confirmed reports whether the typed confirmation matches ConfirmDelete.
func Confirmed(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), ConfirmDelete)
}
