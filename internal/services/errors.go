package services

import (
	"errors"

	"github.com/varunSalat/Blog-backed/internal/store"
)

var (
	// ErrAccessDenied is returned when the registration access text does not match.
	ErrAccessDenied = errors.New("access denied")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a user, post or object does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidCredentials is returned by Login on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for missing, malformed or foreign tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports a rejected field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// fromStoreError turns uniqueness violations into validation errors and
// passes everything else through.
func fromStoreError(err error) error {
	var dup *store.DuplicateError
	if errors.As(err, &dup) {
		return invalid(dup.Field, "already exists")
	}
	return err
}
