package bundle

import "errors"

var (
	// ErrMalformedBundle indicates a bundle that could not be parsed at
	// all; the whole import aborts with nothing applied.
	ErrMalformedBundle = errors.New("malformed bundle")
	// ErrTooManyEntries indicates a bundle over the configured entry cap.
	ErrTooManyEntries = errors.New("bundle exceeds entry limit")
	// ErrInvalidQuery indicates malformed export filters, rejected before
	// any store access.
	ErrInvalidQuery = errors.New("invalid export query")
)
