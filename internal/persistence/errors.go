package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConstraintViolation is returned when a write is rejected by a NOT NULL or CHECK constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrUnavailable is returned when the storage engine cannot be reached.
	ErrUnavailable = errors.New("persistence: storage unavailable")
)
