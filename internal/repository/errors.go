package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a version row insert loses to a
	// concurrent writer for the same (tenant, type, id, version)
	ErrConflict = errors.New("conflict: version already written")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
