package model

import (
	"time"
)

type Attendee struct {
	Name  string `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Email string `json:"email" bson:"email" validate:"required,email"`
}

type Booking struct {
	ID          string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid"`
	OwnerID     string        `json:"owner_id" bson:"owner_id" validate:"required,min=1,max=100"`
	EventTypeID string        `json:"event_type_id,omitempty" bson:"event_type_id,omitempty"`
	RequestID   string        `json:"request_id,omitempty" bson:"request_id,omitempty"`
	PollID      string        `json:"poll_id,omitempty" bson:"poll_id,omitempty"`
	Title       string        `json:"title,omitempty" bson:"title,omitempty" validate:"omitempty,max=200"`
	GuestName   string        `json:"guest_name" bson:"guest_name" validate:"required,min=1,max=100"`
	GuestEmail  string        `json:"guest_email" bson:"guest_email" validate:"required,email"`
	Attendees   []Attendee    `json:"attendees,omitempty" bson:"attendees,omitempty" validate:"omitempty,max=200,dive"`
	StartTime   time.Time     `json:"start_time" bson:"start_time" validate:"required"`
	EndTime     time.Time     `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status      BookingStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

type BookingFilter struct {
	OwnerID string
	Status  BookingStatus
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}
