package model

import "time"

type BookingRequest struct {
	ID                     string            `json:"id" bson:"_id"`
	OwnerID                string            `json:"owner_id" bson:"owner_id"`
	EventTypeID            string            `json:"event_type_id" bson:"event_type_id"`
	GuestName              string            `json:"guest_name" bson:"guest_name"`
	GuestEmail             string            `json:"guest_email" bson:"guest_email"`
	StartTime              time.Time         `json:"start_time" bson:"start_time"`
	EndTime                time.Time         `json:"end_time" bson:"end_time"`
	Answers                map[string]string `json:"answers,omitempty" bson:"answers,omitempty"`
	Status                 RequestStatus     `json:"status" bson:"status"`
	ConfirmationToken      string            `json:"-" bson:"confirmation_token"`
	ConfirmationExpiresAt  time.Time         `json:"confirmation_expires_at" bson:"confirmation_expires_at"`
	ConfirmationConsumedAt *time.Time        `json:"confirmation_consumed_at,omitempty" bson:"confirmation_consumed_at,omitempty"`
	ApprovalToken          string            `json:"-" bson:"approval_token,omitempty"`
	ApprovalExpiresAt      *time.Time        `json:"approval_expires_at,omitempty" bson:"approval_expires_at,omitempty"`
	ApprovalConsumedAt     *time.Time        `json:"approval_consumed_at,omitempty" bson:"approval_consumed_at,omitempty"`
	DecidedAt              *time.Time        `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
	DeclineReason          string            `json:"decline_reason,omitempty" bson:"decline_reason,omitempty"`
	ConflictingBookingIDs  []string          `json:"conflicting_booking_ids,omitempty" bson:"conflicting_booking_ids,omitempty"`
	BookingID              string            `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	CreatedAt              time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at" bson:"updated_at"`
}

func (r BookingRequest) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

// BookingRequestInput is the guest-submitted payload for a new request.
type BookingRequestInput struct {
	OwnerID     string            `json:"owner_id" validate:"required,min=1,max=100"`
	EventTypeID string            `json:"event_type_id" validate:"required,uuid"`
	GuestName   string            `json:"guest_name" validate:"required,min=1,max=100"`
	GuestEmail  string            `json:"guest_email" validate:"required,email"`
	StartTime   time.Time         `json:"start_time" validate:"required"`
	Answers     map[string]string `json:"answers,omitempty" validate:"omitempty,max=20"`
	// PhoneRegion is the ISO 3166 region used for phone answers given without a country code.
	PhoneRegion string `json:"phone_region,omitempty" validate:"omitempty,len=2,alpha"`
}

// RequestState is what token redemption and cancellation report back to the caller.
type RequestState struct {
	RequestID             string        `json:"request_id"`
	Status                RequestStatus `json:"status"`
	BookingID             string        `json:"booking_id,omitempty"`
	DeclineReason         string        `json:"decline_reason,omitempty"`
	ConflictingBookingIDs []string      `json:"conflicting_booking_ids,omitempty"`
	AlreadyProcessed      bool          `json:"already_processed"`
	DecidedAt             *time.Time    `json:"decided_at,omitempty"`
	ApprovalToken         string        `json:"-"`
}

func StateOf(r *BookingRequest, alreadyProcessed bool) RequestState {
	return RequestState{
		RequestID:             r.ID,
		Status:                r.Status,
		BookingID:             r.BookingID,
		DeclineReason:         r.DeclineReason,
		ConflictingBookingIDs: r.ConflictingBookingIDs,
		AlreadyProcessed:      alreadyProcessed,
		DecidedAt:             r.DecidedAt,
	}
}

// SubmittedRequest carries the freshly issued confirmation token to the caller exactly once.
type SubmittedRequest struct {
	Request           *BookingRequest `json:"request"`
	ConfirmationToken string          `json:"confirmation_token"`
}
