package resource

import "errors"

var (
	// ErrNotFound indicates no current version exists for the key. A key
	// whose latest version is deleted reads as not found.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict indicates a concurrent writer claimed the next version id
	// first. The operation is not retried.
	ErrConflict = errors.New("resource version conflict")
	// ErrInvalidInput indicates a malformed write request.
	ErrInvalidInput = errors.New("invalid resource input")
)
