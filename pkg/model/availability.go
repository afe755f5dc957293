package model

import "time"

type AvailabilityRule struct {
	ID                string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid"`
	OwnerID           string    `json:"owner_id" bson:"owner_id" validate:"required,min=1,max=100"`
	DayOfWeek         int       `json:"day_of_week" bson:"day_of_week" validate:"min=0,max=6"`
	StartTime         string    `json:"start_time" bson:"start_time" validate:"required,valid_time_range"`
	EndTime           string    `json:"end_time" bson:"end_time" validate:"required,valid_time_range"`
	TimeZone          string    `json:"time_zone,omitempty" bson:"time_zone" validate:"omitempty,time_zone"`
	BufferMin         int       `json:"buffer_min" bson:"buffer_min" validate:"min=0,max=480"`
	MaxBookingsPerDay *int      `json:"max_bookings_per_day,omitempty" bson:"max_bookings_per_day,omitempty" validate:"omitempty,min=1,max=500"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

func (r AvailabilityRule) Weekday() time.Weekday {
	return time.Weekday(r.DayOfWeek)
}

type QuestionType string

const (
	QuestionText   QuestionType = "text"
	QuestionEmail  QuestionType = "email"
	QuestionPhone  QuestionType = "phone"
	QuestionChoice QuestionType = "choice"
)

type EventQuestion struct {
	Key      string       `json:"key" bson:"key" validate:"required,min=1,max=50"`
	Label    string       `json:"label" bson:"label" validate:"required,min=1,max=200"`
	Type     QuestionType `json:"type" bson:"type" validate:"required,oneof=text email phone choice"`
	Required bool         `json:"required" bson:"required"`
	Options  []string     `json:"options,omitempty" bson:"options,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
}

type EventType struct {
	ID                   string          `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid"`
	OwnerID              string          `json:"owner_id" bson:"owner_id" validate:"required,min=1,max=100"`
	Name                 string          `json:"name" bson:"name" validate:"required,min=2,max=100"`
	DurationMin          int             `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=1440"`
	BufferBeforeMin      int             `json:"buffer_before_min" bson:"buffer_before_min" validate:"min=0,max=480"`
	BufferAfterMin       int             `json:"buffer_after_min" bson:"buffer_after_min" validate:"min=0,max=480"`
	MinimumNoticeMin     int             `json:"minimum_notice_min" bson:"minimum_notice_min" validate:"min=0"`
	MaximumAdvanceMin    int             `json:"maximum_advance_min" bson:"maximum_advance_min" validate:"min=0"`
	BookingHorizonDays   int             `json:"booking_horizon_days" bson:"booking_horizon_days" validate:"required,min=1,max=730"`
	RequiresConfirmation bool            `json:"requires_confirmation" bson:"requires_confirmation"`
	Questions            []EventQuestion `json:"questions,omitempty" bson:"questions,omitempty" validate:"omitempty,max=20,dive"`
	CreatedAt            time.Time       `json:"created_at" bson:"created_at" validate:"omitempty"`
}

func (e EventType) Duration() time.Duration {
	return time.Duration(e.DurationMin) * time.Minute
}

func (e EventType) Padding() (before, after time.Duration) {
	return time.Duration(e.BufferBeforeMin) * time.Minute, time.Duration(e.BufferAfterMin) * time.Minute
}

func (e EventType) MinimumNotice() time.Duration {
	return time.Duration(e.MinimumNoticeMin) * time.Minute
}

func (e EventType) MaximumAdvance() time.Duration {
	return time.Duration(e.MaximumAdvanceMin) * time.Minute
}

func (e EventType) Horizon() time.Duration {
	return time.Duration(e.BookingHorizonDays) * 24 * time.Hour
}
