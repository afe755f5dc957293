// Package conflicts decides whether a candidate interval collides with an owner's confirmed
// bookings or externally reported busy time.
package conflicts

import (
	"strings"
	"time"

	"rendezvous/pkg/model"
)

const busyPrefix = "busy:"

// Padding is the buffer an event type keeps free around each of its meetings.
type Padding struct {
	Before time.Duration
	After  time.Duration
}

func PaddingOf(et *model.EventType) Padding {
	if et == nil {
		return Padding{}
	}
	before, after := et.Padding()
	return Padding{Before: before, After: after}
}

func Overlaps(a, b model.Interval) bool {
	return a.Overlaps(b)
}

// HasConflict reports whether candidate, widened by padding, overlaps any confirmed booking of
// ownerID or any of ownerID's busy blocks.
func HasConflict(ownerID string, candidate model.Interval, padding Padding, bookings []model.Booking, busy []model.BusyBlock) bool {
	padded := candidate.Pad(padding.Before, padding.After)
	for i := range bookings {
		if counts(ownerID, &bookings[i]) && padded.Overlaps(bookings[i].Interval()) {
			return true
		}
	}
	for i := range busy {
		if busy[i].OwnerID == ownerID && padded.Overlaps(busy[i].Interval()) {
			return true
		}
	}
	return false
}

// FindConflicts returns the ids of everything candidate collides with, bookings first in input
// order, then busy blocks as "busy:<id>". A nil result means no conflict.
func FindConflicts(ownerID string, candidate model.Interval, padding Padding, bookings []model.Booking, busy []model.BusyBlock) []string {
	padded := candidate.Pad(padding.Before, padding.After)

	var ids []string
	for i := range bookings {
		if counts(ownerID, &bookings[i]) && padded.Overlaps(bookings[i].Interval()) {
			ids = append(ids, bookings[i].ID)
		}
	}
	for i := range busy {
		if busy[i].OwnerID == ownerID && padded.Overlaps(busy[i].Interval()) {
			ids = append(ids, busyPrefix+busy[i].ID)
		}
	}
	return ids
}

// BookingIDs drops busy-block references from a conflict list.
func BookingIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, busyPrefix) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func counts(ownerID string, b *model.Booking) bool {
	return b.OwnerID == ownerID && b.Status == model.BookingConfirmed
}
