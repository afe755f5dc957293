package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrNotCancellable = errors.New("booking is not in a cancellable state")

	ErrLockHeld = errors.New("booking lock is held by another commit")

	ErrInvalidTimeRange = errors.New("end time must be after start time")
)
