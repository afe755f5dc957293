package model

import "fmt"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled},
	BookingCancelled: {},
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return contains(bookingTransitions[s], next)
}

type RequestStatus string

const (
	RequestPendingConfirmation RequestStatus = "pending_confirmation"
	RequestPendingHostApproval RequestStatus = "pending_host_approval"
	RequestConfirmed           RequestStatus = "confirmed"
	RequestDeclined            RequestStatus = "declined"
	RequestExpired             RequestStatus = "expired"
	RequestCancelled           RequestStatus = "cancelled"
)

// Requests only move forward; terminal states have no outgoing edges.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPendingConfirmation: {RequestPendingHostApproval, RequestConfirmed, RequestDeclined, RequestExpired, RequestCancelled},
	RequestPendingHostApproval: {RequestConfirmed, RequestDeclined, RequestExpired, RequestCancelled},
	RequestConfirmed:           {},
	RequestDeclined:            {},
	RequestExpired:             {},
	RequestCancelled:           {},
}

func (s RequestStatus) Valid() bool {
	_, ok := requestTransitions[s]
	return ok
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return contains(requestTransitions[s], next)
}

func (s RequestStatus) IsTerminal() bool {
	edges, ok := requestTransitions[s]
	return ok && len(edges) == 0
}

func (s RequestStatus) IsPending() bool {
	return s == RequestPendingConfirmation || s == RequestPendingHostApproval
}

type PollStatus string

const (
	PollActive    PollStatus = "active"
	PollClosed    PollStatus = "closed"
	PollFinalized PollStatus = "finalized"
)

var pollTransitions = map[PollStatus][]PollStatus{
	PollActive:    {PollClosed, PollFinalized},
	PollClosed:    {PollFinalized},
	PollFinalized: {},
}

func (s PollStatus) Valid() bool {
	_, ok := pollTransitions[s]
	return ok
}

func (s PollStatus) CanTransitionTo(next PollStatus) bool {
	return contains(pollTransitions[s], next)
}

func ParseRequestStatus(raw string) (RequestStatus, error) {
	s := RequestStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown request status %q", raw)
	}
	return s, nil
}

func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return s, nil
}

func ParsePollStatus(raw string) (PollStatus, error) {
	s := PollStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown poll status %q", raw)
	}
	return s, nil
}

// TransitionError is returned when a mutation would take an entity along an edge
// that is not in its transition table.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
