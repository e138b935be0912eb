package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected at the boundary.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a row does not exist for the user.
	ErrNotFound = errors.New("not found")

	// ErrCalculation marks a failed tax calculation. Stored buckets are
	// untouched when it is returned.
	ErrCalculation = errors.New("tax calculation failed")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError builds an ErrNotFound for the given entity and id.
func NotFoundError(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}
