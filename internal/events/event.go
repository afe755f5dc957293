// Package events carries scheduling notifications to whoever delivers email, SMS or webhooks.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	BookingConfirmed Type = "booking.confirmed"
	BookingCancelled Type = "booking.cancelled"

	RequestSubmitted        Type = "booking_request.submitted"
	RequestAwaitingApproval Type = "booking_request.awaiting_approval"
	RequestConfirmed        Type = "booking_request.confirmed"
	RequestDeclined         Type = "booking_request.declined"
	RequestExpired          Type = "booking_request.expired"
	RequestCancelled        Type = "booking_request.cancelled"

	PollCreated   Type = "poll.created"
	PollVoted     Type = "poll.voted"
	PollClosed    Type = "poll.closed"
	PollFinalized Type = "poll.finalized"
)

const SchemaVersion = "1"

type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	OwnerID     string    `json:"owner_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload,omitempty"`
}

func New(eventType Type, aggregateID, ownerID string, at time.Time, payload any) Event {
	return Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateID: aggregateID,
		OwnerID:     ownerID,
		OccurredAt:  at.UTC(),
		Payload:     payload,
	}
}
