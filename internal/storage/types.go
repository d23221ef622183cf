package storage

import "errors"

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation indicates that input was rejected before any write was
	// attempted. Local to the call, never fatal to the process.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates the backing store could not be reached.
	// The resilient wrapper converts persistent occurrences of this into a
	// degradation to the in-memory fallback.
	ErrUnavailable = errors.New("feedback store unavailable")
)
