package service

import (
	"fmt"
	"sort"
	"time"

	"rendezvous/pkg/locale"
	"rendezvous/pkg/model"
	"rendezvous/pkg/validation"

	apperrors "rendezvous/pkg/errors"
)

// Calculator turns weekly rules into concrete bookable slots. It is pure: every input, including
// the current instant, is passed in.
type Calculator struct {
	maxSlots int
}

func NewCalculator(maxSlots int) *Calculator {
	return &Calculator{maxSlots: maxSlots}
}

type dayRules struct {
	windows []model.Interval
	gap     time.Duration
	cap     *int
	start   time.Time
	end     time.Time
}

type parsedRule struct {
	rule     model.AvailabilityRule
	loc      *time.Location
	startMin int
	endMin   int
}

// ComputeSlots returns the slots of eventType that ownerID can still offer inside
// [rangeStart, rangeEnd), sorted by start and capped at the calculator's slot limit.
func (c *Calculator) ComputeSlots(
	ownerID string,
	eventType *model.EventType,
	rules []model.AvailabilityRule,
	bookings []model.Booking,
	busy []model.BusyBlock,
	now, rangeStart, rangeEnd time.Time,
) ([]model.Slot, error) {
	if err := checkEventType(eventType); err != nil {
		return nil, err
	}
	if !rangeStart.Before(rangeEnd) {
		return nil, apperrors.Validation("Invalid date range", map[string]any{"error": "range start must be before range end"})
	}
	parsed, err := parseRules(ownerID, rules)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	lo := latest(rangeStart.UTC(), now.Add(eventType.MinimumNotice()))
	hi := earliest(rangeEnd.UTC(), now.Add(eventType.Horizon()))
	if eventType.MaximumAdvanceMin > 0 {
		hi = earliest(hi, now.Add(eventType.MaximumAdvance()))
	}
	if !lo.Before(hi) || len(parsed) == 0 {
		return []model.Slot{}, nil
	}

	confirmed := ownerBookings(ownerID, bookings)
	exclusions := exclusionZones(ownerID, eventType, confirmed, busy)
	duration := eventType.Duration()

	byZone := map[string][]parsedRule{}
	var zones []string
	for _, p := range parsed {
		name := p.loc.String()
		if _, seen := byZone[name]; !seen {
			zones = append(zones, name)
		}
		byZone[name] = append(byZone[name], p)
	}
	sort.Strings(zones)

	var slots []model.Slot
	for _, zone := range zones {
		group := byZone[zone]
		loc := group[0].loc
		for _, day := range expandDays(group, loc, lo, hi) {
			remaining := -1
			if day.cap != nil {
				remaining = *day.cap - countStarting(confirmed, day.start, day.end)
				if remaining <= 0 {
					continue
				}
			}

			var daySlots []model.Slot
			for _, window := range day.windows {
				for _, free := range subtract(window, exclusions) {
					daySlots = append(daySlots, walk(free, duration, day.gap, lo, hi)...)
				}
			}
			if remaining >= 0 && len(daySlots) > remaining {
				daySlots = daySlots[:remaining]
			}
			slots = append(slots, daySlots...)
		}
	}

	slots = sortAndDropOverlaps(slots)
	if c.maxSlots > 0 && len(slots) > c.maxSlots {
		slots = slots[:c.maxSlots]
	}
	return slots, nil
}

func checkEventType(et *model.EventType) error {
	if et == nil {
		return apperrors.Validation("Event type is required", nil)
	}
	var verrs validation.ValidationErrors
	if et.DurationMin <= 0 {
		verrs = append(verrs, validation.ValidationError{Field: "DurationMin", Message: "DurationMin must be positive"})
	}
	if et.BookingHorizonDays < 1 {
		verrs = append(verrs, validation.ValidationError{Field: "BookingHorizonDays", Message: "BookingHorizonDays must be at least 1"})
	}
	if et.BufferBeforeMin < 0 || et.BufferAfterMin < 0 || et.MinimumNoticeMin < 0 || et.MaximumAdvanceMin < 0 {
		verrs = append(verrs, validation.ValidationError{Field: "EventType", Message: "buffers and notice periods cannot be negative"})
	}
	if len(verrs) > 0 {
		return validation.ToAppError("Invalid event type", verrs)
	}
	return nil
}

func parseRules(ownerID string, rules []model.AvailabilityRule) ([]parsedRule, error) {
	parsed := make([]parsedRule, 0, len(rules))
	var verrs validation.ValidationErrors

	for i, r := range rules {
		if r.OwnerID != "" && r.OwnerID != ownerID {
			continue
		}
		field := fmt.Sprintf("rules[%d]", i)

		startMin, err := validation.ParseClock(r.StartTime)
		if err != nil {
			verrs = append(verrs, validation.ValidationError{Field: field + ".start_time", Message: err.Error()})
			continue
		}
		endMin, err := validation.ParseClock(r.EndTime)
		if err != nil {
			verrs = append(verrs, validation.ValidationError{Field: field + ".end_time", Message: err.Error()})
			continue
		}
		if startMin >= endMin {
			verrs = append(verrs, validation.ValidationError{Field: field, Message: "start_time must be before end_time"})
			continue
		}
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			verrs = append(verrs, validation.ValidationError{Field: field + ".day_of_week", Message: "day_of_week must be between 0 and 6"})
			continue
		}
		if r.BufferMin < 0 {
			verrs = append(verrs, validation.ValidationError{Field: field + ".buffer_min", Message: "buffer_min cannot be negative"})
			continue
		}
		if r.MaxBookingsPerDay != nil && *r.MaxBookingsPerDay < 1 {
			verrs = append(verrs, validation.ValidationError{Field: field + ".max_bookings_per_day", Message: "max_bookings_per_day must be at least 1"})
			continue
		}
		loc, err := locale.Resolve(r.TimeZone)
		if err != nil {
			verrs = append(verrs, validation.ValidationError{Field: field + ".time_zone", Message: err.Error()})
			continue
		}

		parsed = append(parsed, parsedRule{rule: r, loc: loc, startMin: startMin, endMin: endMin})
	}

	if len(verrs) > 0 {
		return nil, validation.ToAppError("Invalid availability rules", verrs)
	}
	return parsed, nil
}

// expandDays builds, for every local date touching [lo, hi), the union of that weekday's windows.
func expandDays(group []parsedRule, loc *time.Location, lo, hi time.Time) []dayRules {
	first := lo.In(loc)
	last := hi.In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	stop := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)

	var days []dayRules
	for !day.After(stop) {
		next := day.AddDate(0, 0, 1)
		d := dayRules{start: day.UTC(), end: next.UTC()}

		for _, p := range group {
			if p.rule.Weekday() != day.Weekday() {
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), p.startMin/60, p.startMin%60, 0, 0, loc)
			end := time.Date(day.Year(), day.Month(), day.Day(), p.endMin/60, p.endMin%60, 0, 0, loc)
			if !start.Before(end) {
				continue
			}
			d.windows = append(d.windows, model.NewInterval(start, end))

			if gap := time.Duration(p.rule.BufferMin) * time.Minute; gap > d.gap {
				d.gap = gap
			}
			if p.rule.MaxBookingsPerDay != nil && (d.cap == nil || *p.rule.MaxBookingsPerDay < *d.cap) {
				v := *p.rule.MaxBookingsPerDay
				d.cap = &v
			}
		}

		if len(d.windows) > 0 {
			d.windows = merge(d.windows)
			days = append(days, d)
		}
		day = next
	}
	return days
}

func ownerBookings(ownerID string, bookings []model.Booking) []model.Booking {
	out := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.OwnerID == ownerID && b.Status == model.BookingConfirmed {
			out = append(out, b)
		}
	}
	return out
}

// exclusionZones widens every blocker by the event type's buffers, mirroring the padding the
// conflict check applies to a candidate.
func exclusionZones(ownerID string, et *model.EventType, bookings []model.Booking, busy []model.BusyBlock) []model.Interval {
	before, after := et.Padding()
	zones := make([]model.Interval, 0, len(bookings)+len(busy))
	for _, b := range bookings {
		zones = append(zones, model.Interval{Start: b.StartTime.Add(-after), End: b.EndTime.Add(before)})
	}
	for _, b := range busy {
		if b.OwnerID == ownerID {
			zones = append(zones, model.Interval{Start: b.StartTime.Add(-after), End: b.EndTime.Add(before)})
		}
	}
	return merge(zones)
}

func merge(intervals []model.Interval) []model.Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]model.Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := []model.Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// subtract removes the sorted, merged exclusions from window.
func subtract(window model.Interval, exclusions []model.Interval) []model.Interval {
	free := []model.Interval{window}
	for _, ex := range exclusions {
		if !ex.Start.Before(window.End) {
			break
		}
		var next []model.Interval
		for _, f := range free {
			if !f.Overlaps(ex) {
				next = append(next, f)
				continue
			}
			if f.Start.Before(ex.Start) {
				next = append(next, model.Interval{Start: f.Start, End: ex.Start})
			}
			if ex.End.Before(f.End) {
				next = append(next, model.Interval{Start: ex.End, End: f.End})
			}
		}
		free = next
	}
	return free
}

func walk(free model.Interval, duration, gap time.Duration, lo, hi time.Time) []model.Slot {
	var slots []model.Slot
	for t := free.Start; !t.Add(duration).After(free.End); t = t.Add(duration + gap) {
		end := t.Add(duration)
		if t.Before(lo) || end.After(hi) {
			continue
		}
		slots = append(slots, model.Slot{Start: t, End: end})
	}
	return slots
}

func countStarting(bookings []model.Booking, from, to time.Time) int {
	n := 0
	for _, b := range bookings {
		if !b.StartTime.Before(from) && b.StartTime.Before(to) {
			n++
		}
	}
	return n
}

// sortAndDropOverlaps orders slots by start and keeps each one only if it starts at or after the
// end of the last kept slot. Rules in different zones can produce windows that overlap in UTC.
func sortAndDropOverlaps(slots []model.Slot) []model.Slot {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start.Equal(slots[j].Start) {
			return slots[i].End.Before(slots[j].End)
		}
		return slots[i].Start.Before(slots[j].Start)
	})

	out := make([]model.Slot, 0, len(slots))
	for _, s := range slots {
		if n := len(out); n > 0 && s.Start.Before(out[n-1].End) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
