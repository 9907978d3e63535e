package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when a required collaborator (schema
	// provider, generator, retriever) is missing from the engine wiring.
	ErrNotConfigured = errors.New("engine not configured")
)

// ValidationError represents a caller-input fault, as opposed to a pipeline
// or infrastructure failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
