package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange signals an empty or inverted interval (start >= end).
	ErrInvalidRange = errors.New("invalid range")
	// ErrValidation signals a malformed request.
	ErrValidation = errors.New("validation error")
	// ErrSourceEntityMissing signals that an entity to index no longer exists in the source of truth.
	ErrSourceEntityMissing = errors.New("source entity missing")
	// ErrIndexWriteFailure signals a failed or partial write to the index store.
	ErrIndexWriteFailure = errors.New("index write failure")
	// ErrSearchTimeout signals that a search pipeline was cancelled before completion.
	ErrSearchTimeout = errors.New("search timed out")
	// ErrDocumentNotFound signals a missing index document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument signals an index document that violates its invariants.
	ErrInvalidDocument = errors.New("invalid document")
)

// FieldError is a validation failure on a single request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// NewFieldError creates a validation error for the given field.
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
