package errors

import "errors"

var (
	ErrRuleNotFound = errors.New("availability rule not found")

	ErrEventTypeNotFound = errors.New("event type not found")

	ErrInvalidTimeRange = errors.New("start time must be before end time")
)
