package service

import (
	"context"
	"testing"
	"time"

	"rendezvous/internal/availability/repository"
	"rendezvous/internal/availability/validator"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
)

type fakeBookings struct {
	bookings []model.Booking
}

func (f *fakeBookings) FindConfirmedInRange(_ context.Context, ownerID string, from, to time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f.bookings {
		if b.OwnerID == ownerID && b.Status == model.BookingConfirmed && b.StartTime.Before(to) && from.Before(b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeBusy struct {
	blocks []model.BusyBlock
}

func (f *fakeBusy) FindInRange(_ context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error) {
	var out []model.BusyBlock
	for _, b := range f.blocks {
		if b.OwnerID == ownerID && b.StartTime.Before(to) && from.Before(b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

type serviceFixture struct {
	svc      AvailabilityService
	bookings *fakeBookings
	busy     *fakeBusy
	clock    *clock.Manual
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	log := logger.Nop()
	cfg := &config.Config{Log: log, MaxSlots: 500}
	f := &serviceFixture{
		bookings: &fakeBookings{},
		busy:     &fakeBusy{},
		clock:    clock.NewManual(monday.Add(-24 * time.Hour)),
	}
	f.svc = NewAvailabilityService(
		repository.NewMemoryRuleRepository(),
		repository.NewMemoryEventTypeRepository(),
		f.bookings,
		f.busy,
		validator.NewAvailabilityValidator(log),
		f.clock,
		cfg,
	)
	return f
}

func (f *serviceFixture) seed(t *testing.T) *model.EventType {
	t.Helper()
	ctx := context.Background()
	rule := mondayRule()
	if err := f.svc.CreateRule(ctx, &rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	et := hourEvent()
	if err := f.svc.CreateEventType(ctx, et); err != nil {
		t.Fatalf("CreateEventType() error = %v", err)
	}
	return et
}

func TestAvailabilityService_ComputeAvailableSlots(t *testing.T) {
	f := newServiceFixture(t)
	et := f.seed(t)
	f.bookings.bookings = []model.Booking{
		{ID: "b1", OwnerID: "owner", StartTime: hm(monday, 10, 0), EndTime: hm(monday, 11, 0), Status: model.BookingConfirmed},
	}
	f.busy.blocks = []model.BusyBlock{
		{ID: "x1", OwnerID: "owner", StartTime: hm(monday, 15, 0), EndTime: hm(monday, 17, 0)},
	}

	slots, err := f.svc.ComputeAvailableSlots(context.Background(), "owner", et.ID, monday, monday.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ComputeAvailableSlots() error = %v", err)
	}
	assertStarts(t, slots, "Mon 09:00", "Mon 11:00", "Mon 12:00", "Mon 13:00", "Mon 14:00")
}

func TestAvailabilityService_ComputeAvailableSlotsErrors(t *testing.T) {
	f := newServiceFixture(t)
	et := f.seed(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		ownerID     string
		eventTypeID string
		from, to    time.Time
		code        string
	}{
		{"missing owner", "", et.ID, monday, monday.Add(time.Hour), apperrors.CodeInvalidInput},
		{"inverted range", "owner", et.ID, monday, monday, apperrors.CodeValidation},
		{"range too large", "owner", et.ID, monday, monday.Add(MaxQueryRange + time.Hour), apperrors.CodeValidation},
		{"unknown event type", "owner", "missing", monday, monday.Add(time.Hour), apperrors.CodeNotFound},
		{"foreign event type", "intruder", et.ID, monday, monday.Add(time.Hour), apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ComputeAvailableSlots(ctx, tt.ownerID, tt.eventTypeID, tt.from, tt.to)
			if !apperrors.HasCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestAvailabilityService_IsSlotOffered(t *testing.T) {
	f := newServiceFixture(t)
	et := f.seed(t)
	ctx := context.Background()
	now := f.clock.Now()

	tests := []struct {
		name      string
		candidate model.Interval
		want      bool
	}{
		{"aligned slot", model.Interval{Start: hm(monday, 9, 0), End: hm(monday, 10, 0)}, true},
		{"last slot", model.Interval{Start: hm(monday, 16, 0), End: hm(monday, 17, 0)}, true},
		{"misaligned start", model.Interval{Start: hm(monday, 9, 30), End: hm(monday, 10, 30)}, false},
		{"wrong duration", model.Interval{Start: hm(monday, 9, 0), End: hm(monday, 9, 30)}, false},
		{"outside rule", model.Interval{Start: hm(monday, 18, 0), End: hm(monday, 19, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.IsSlotOffered(ctx, "owner", et, tt.candidate, now)
			if err != nil {
				t.Fatalf("IsSlotOffered() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsSlotOffered() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailabilityService_CreateRuleRejectsInvertedWindow(t *testing.T) {
	f := newServiceFixture(t)
	rule := model.AvailabilityRule{OwnerID: "owner", DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"}

	err := f.svc.CreateRule(context.Background(), &rule)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("CreateRule() error = %v, want validation error", err)
	}

	rules, err := f.svc.ListRules(context.Background(), "owner")
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("rejected rule was stored: %+v", rules)
	}
}

func TestAvailabilityService_DeleteRule(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	rule := mondayRule()
	if err := f.svc.CreateRule(ctx, &rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	if err := f.svc.DeleteRule(ctx, rule.ID); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if err := f.svc.DeleteRule(ctx, rule.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("second DeleteRule() error = %v, want not found", err)
	}
}
