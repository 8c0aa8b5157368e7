package database

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition is returned when a status update would violate
	// the task lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
