package errors

import "errors"

var (
	ErrNotFound = errors.New("booking request not found")

	// ErrStaleState means the request left the expected status before the update applied.
	ErrStaleState = errors.New("booking request status changed concurrently")
)
