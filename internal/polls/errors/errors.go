package errors

import "errors"

var (
	ErrNotFound     = errors.New("poll not found")
	ErrSlotNotFound = errors.New("poll time slot not found")

	// ErrStaleState means the poll left the expected status before the update applied.
	ErrStaleState = errors.New("poll status changed concurrently")
)
