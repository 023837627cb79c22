package models

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a failed resolution. Recoverable: the caller can
// escalate to the decision channel or skip the record.
var ErrNotFound = errors.New("not found")

// ErrAmbiguousMatch signals more than one exact candidate. Recoverable by
// escalation only; the resolver never picks one arbitrarily.
var ErrAmbiguousMatch = errors.New("ambiguous match")

// NotFoundError wraps ErrNotFound with lookup context.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for name=%q", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound builds a NotFoundError for the given record kind and query.
func NewNotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

// AmbiguousMatchError wraps ErrAmbiguousMatch with the colliding candidates.
type AmbiguousMatchError struct {
	Kind       string
	Name       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("multiple %s records found for name=%q: %v", e.Kind, e.Name, e.Candidates)
}

func (e *AmbiguousMatchError) Unwrap() error { return ErrAmbiguousMatch }

// NewAmbiguousMatch builds an AmbiguousMatchError.
func NewAmbiguousMatch(kind, name string, candidates []string) error {
	return &AmbiguousMatchError{Kind: kind, Name: name, Candidates: candidates}
}

// ValidationError signals a record that violates a structural invariant.
// Fatal for the record, never coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ErrStopProcessing aborts the current record. Callers catch it at the
// per-record boundary, log it and move on to the next record.
var ErrStopProcessing = errors.New("stop processing")

// StopProcessing wraps a cause in ErrStopProcessing.
func StopProcessing(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrStopProcessing)
}
