package model

import "time"

type PollNotificationSettings struct {
	NotifyOnVote              bool `json:"notify_on_vote" bson:"notify_on_vote"`
	NotifyOnFinalize          bool `json:"notify_on_finalize" bson:"notify_on_finalize"`
	ReminderBeforeDeadlineMin *int `json:"reminder_before_deadline_min,omitempty" bson:"reminder_before_deadline_min,omitempty" validate:"omitempty,min=1,max=10080"`
}

type Poll struct {
	ID                     string                   `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid"`
	OwnerID                string                   `json:"owner_id" bson:"owner_id" validate:"required,min=1,max=100"`
	Title                  string                   `json:"title" bson:"title" validate:"required,min=2,max=200"`
	Description            string                   `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	OrganizerName          string                   `json:"organizer_name" bson:"organizer_name" validate:"required,min=1,max=100"`
	OrganizerEmail         string                   `json:"organizer_email" bson:"organizer_email" validate:"required,email"`
	DurationMin            int                      `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=1440"`
	TimeZone               string                   `json:"time_zone,omitempty" bson:"time_zone" validate:"omitempty,time_zone"`
	Deadline               *time.Time               `json:"deadline,omitempty" bson:"deadline,omitempty"`
	MaxVotesPerParticipant int                      `json:"max_votes_per_participant" bson:"max_votes_per_participant" validate:"min=1,max=50"`
	AllowAnonymous         bool                     `json:"allow_anonymous" bson:"allow_anonymous"`
	Status                 PollStatus               `json:"status" bson:"status"`
	SelectedSlotID         string                   `json:"selected_slot_id,omitempty" bson:"selected_slot_id,omitempty"`
	BookingID              string                   `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	Notifications          PollNotificationSettings `json:"notifications" bson:"notifications"`
	VoteRevision           int64                    `json:"-" bson:"vote_revision"`
	CreatedAt              time.Time                `json:"created_at" bson:"created_at"`
	UpdatedAt              time.Time                `json:"updated_at" bson:"updated_at"`
}

type PollTimeSlot struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	PollID    string    `json:"poll_id" bson:"poll_id"`
	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	VoteCount int       `json:"vote_count" bson:"vote_count"`
	Available bool      `json:"available" bson:"available"`
}

func (s PollTimeSlot) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

type PollVote struct {
	ID               string    `json:"id" bson:"_id"`
	PollID           string    `json:"poll_id" bson:"poll_id"`
	SlotID           string    `json:"slot_id" bson:"slot_id"`
	ParticipantID    string    `json:"participant_id" bson:"participant_id"`
	ParticipantName  string    `json:"participant_name,omitempty" bson:"participant_name,omitempty"`
	ParticipantEmail string    `json:"participant_email,omitempty" bson:"participant_email,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// Participant identifies a voter. In anonymous polls only the email is used, and only as hash input.
type Participant struct {
	Name      string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Anonymous bool   `json:"anonymous"`
}

type PollInput struct {
	Poll  Poll           `json:"poll" validate:"required"`
	Slots []PollTimeSlot `json:"slots" validate:"required,min=1,max=100,dive"`
}

// PollDetails is a poll together with its slots ordered by start time.
type PollDetails struct {
	Poll  *Poll          `json:"poll"`
	Slots []PollTimeSlot `json:"slots"`
}
