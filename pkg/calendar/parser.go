package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"rendezvous/pkg/locale"
	"rendezvous/pkg/model"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

var ErrNotICalendar = errors.New("payload is not an iCalendar document")

// maxInstances caps how many occurrences one recurring event may expand to.
const maxInstances = 5000

// Event is one busy interval read from a feed. Recurring events yield one Event per instance.
type Event struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
}

func (e Event) Interval() model.Interval {
	return model.NewInterval(e.Start, e.End)
}

// ParseBusy decodes an iCalendar document and returns the busy intervals overlapping window,
// sorted by start. Cancelled and transparent events are skipped. Floating times are read in
// defaultLoc.
func ParseBusy(data []byte, window model.Interval, defaultLoc *time.Location) ([]Event, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(string(data)))
	if !strings.HasPrefix(trimmed, "BEGIN:VCALENDAR") {
		return nil, ErrNotICalendar
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}

	decoder := ical.NewDecoder(bytes.NewReader(data))
	var events []Event

	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		parsed, err := parseCalendar(cal.Component, window, defaultLoc)
		if err != nil {
			return nil, err
		}
		events = append(events, parsed...)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].UID < events[j].UID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func parseCalendar(cal *ical.Component, window model.Interval, loc *time.Location) ([]Event, error) {
	var masters []*ical.Component
	overrides := map[string][]time.Time{}
	var events []Event

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		normalizeTimezones(comp)

		if recurrenceID := comp.Props.Get(ical.PropRecurrenceID); recurrenceID != nil {
			uid := propValue(comp, ical.PropUID)
			if t, err := recurrenceID.DateTime(loc); err == nil {
				overrides[uid] = append(overrides[uid], t)
			}
			if ev, ok := parseSingle(comp, loc); ok && isBusy(comp) && overlaps(ev, window) {
				ev.UID = instanceUID(ev.UID, ev.Start)
				events = append(events, ev)
			}
			continue
		}
		masters = append(masters, comp)
	}

	for _, comp := range masters {
		if !isBusy(comp) {
			continue
		}
		base, ok := parseSingle(comp, loc)
		if !ok {
			continue
		}

		rruleProp := comp.Props.Get(ical.PropRecurrenceRule)
		if rruleProp == nil {
			if overlaps(base, window) {
				events = append(events, base)
			}
			continue
		}

		instances, err := expandRecurring(comp, base, rruleProp.Value, overrides[base.UID], window, loc)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", base.UID, err)
		}
		events = append(events, instances...)
	}

	return events, nil
}

func parseSingle(comp *ical.Component, loc *time.Location) (Event, bool) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return Event{}, false
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return Event{}, false
	}

	var end time.Time
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		if end, err = endProp.DateTime(loc); err != nil {
			return Event{}, false
		}
	} else if durProp := comp.Props.Get(ical.PropDuration); durProp != nil {
		d, err := durProp.Duration()
		if err != nil {
			return Event{}, false
		}
		end = start.Add(d)
	} else if isDateOnly(startProp) {
		end = start.AddDate(0, 0, 1)
	}

	if !start.Before(end) {
		return Event{}, false
	}

	return Event{
		UID:     propValue(comp, ical.PropUID),
		Summary: propValue(comp, ical.PropSummary),
		Start:   start.UTC(),
		End:     end.UTC(),
	}, true
}

func expandRecurring(comp *ical.Component, base Event, rule string, overridden []time.Time, window model.Interval, loc *time.Location) ([]Event, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	dtstart, err := startProp.DateTime(loc)
	if err != nil {
		return nil, err
	}

	opt, err := rrule.StrToROptionInLocation(rule, dtstart.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid RRULE: %w", err)
	}
	opt.Dtstart = dtstart

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid RRULE: %w", err)
	}

	set := &rrule.Set{}
	set.RRule(r)
	for _, t := range multiDates(comp, ical.PropRecurrenceDates, loc) {
		set.RDate(t)
	}
	for _, t := range multiDates(comp, ical.PropExceptionDates, loc) {
		set.ExDate(t)
	}
	for _, t := range overridden {
		set.ExDate(t)
	}

	duration := base.End.Sub(base.Start)
	starts := set.Between(window.Start.Add(-duration), window.End, true)
	if len(starts) > maxInstances {
		starts = starts[:maxInstances]
	}

	events := make([]Event, 0, len(starts))
	for _, s := range starts {
		ev := Event{
			UID:     instanceUID(base.UID, s),
			Summary: base.Summary,
			Start:   s.UTC(),
			End:     s.Add(duration).UTC(),
		}
		if overlaps(ev, window) {
			events = append(events, ev)
		}
	}
	return events, nil
}

// multiDates reads EXDATE/RDATE properties, which may carry comma-separated values.
func multiDates(comp *ical.Component, name string, loc *time.Location) []time.Time {
	var out []time.Time
	for _, prop := range comp.Props.Values(name) {
		for _, value := range strings.Split(prop.Value, ",") {
			single := prop
			single.Value = strings.TrimSpace(value)
			if t, err := single.DateTime(loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

func normalizeTimezones(comp *ical.Component) {
	names := []string{
		ical.PropDateTimeStart,
		ical.PropDateTimeEnd,
		ical.PropRecurrenceID,
		ical.PropExceptionDates,
		ical.PropRecurrenceDates,
	}
	for _, name := range names {
		props := comp.Props[name]
		for i := range props {
			if tzid := props[i].Params.Get(ical.ParamTimezoneID); tzid != "" {
				props[i].Params.Set(ical.ParamTimezoneID, locale.IANAName(tzid))
			}
		}
	}
}

func isBusy(comp *ical.Component) bool {
	if strings.EqualFold(propValue(comp, ical.PropStatus), "CANCELLED") {
		return false
	}
	return !strings.EqualFold(propValue(comp, ical.PropTransparency), "TRANSPARENT")
}

func isDateOnly(prop *ical.Prop) bool {
	return strings.EqualFold(prop.Params.Get("VALUE"), "DATE") || len(prop.Value) == len("20060102")
}

func propValue(comp *ical.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

func instanceUID(uid string, start time.Time) string {
	return uid + "-" + start.UTC().Format(time.RFC3339)
}

func overlaps(ev Event, window model.Interval) bool {
	return ev.Interval().Overlaps(window)
}
