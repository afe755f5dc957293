package model

import "time"

// BusyBlock is time reported busy by an external calendar.
type BusyBlock struct {
	ID          string    `json:"id" bson:"_id"`
	OwnerID     string    `json:"owner_id" bson:"owner_id"`
	Source      string    `json:"source" bson:"source"`
	ExternalUID string    `json:"external_uid,omitempty" bson:"external_uid,omitempty"`
	Summary     string    `json:"summary,omitempty" bson:"summary,omitempty"`
	StartTime   time.Time `json:"start_time" bson:"start_time"`
	EndTime     time.Time `json:"end_time" bson:"end_time"`
	ImportedAt  time.Time `json:"imported_at" bson:"imported_at"`
}

func (b BusyBlock) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// FeedImport is one external calendar to import for an owner. Exactly one of URL or ICS is set.
type FeedImport struct {
	OwnerID  string `json:"owner_id" validate:"required,min=1,max=100"`
	Source   string `json:"source" validate:"required,min=1,max=100"`
	URL      string `json:"url,omitempty" validate:"omitempty,url,max=2048"`
	ICS      string `json:"ics,omitempty"`
	TimeZone string `json:"time_zone,omitempty" validate:"omitempty,time_zone"`
}

// FeedBatch is the payload of a calendar-sync message.
type FeedBatch struct {
	Imports []FeedImport `json:"imports" validate:"required,min=1,max=50,dive"`
}

type ImportResult struct {
	OwnerID  string `json:"owner_id"`
	Source   string `json:"source"`
	Imported int    `json:"imported"`
}
