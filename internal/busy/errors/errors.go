package errors

import "errors"

var (
	ErrFeedUnreachable = errors.New("calendar feed could not be fetched")

	ErrInvalidFeed = errors.New("calendar feed is not valid iCalendar")
)
