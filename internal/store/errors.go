package store

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate")

// DuplicateError names the field whose uniqueness was violated.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return "duplicate value"
	}
	return e.Field + " already exists"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// translateError maps driver errors onto the store's error values.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return &DuplicateError{Field: constraintField(pqErr.Constraint)}
	}
	return err
}

// constraintField turns "posts_title_key" into "title".
func constraintField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if _, rest, ok := strings.Cut(name, "_"); ok {
		return rest
	}
	return name
}
