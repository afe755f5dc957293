package service

import (
	"context"
	"errors"
	"time"

	availabilityerrors "rendezvous/internal/availability/errors"
	"rendezvous/internal/availability/repository"
	"rendezvous/internal/availability/validator"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/locale"
	"rendezvous/pkg/model"
	"rendezvous/pkg/sanitizer"
	"rendezvous/pkg/validation"

	"github.com/google/uuid"
)

// MaxQueryRange bounds a single availability query.
const MaxQueryRange = 92 * 24 * time.Hour

// lookaround widens booking reads so exclusion zones and per-day caps see neighbouring local days.
const lookaround = 48 * time.Hour

type BookingReader interface {
	FindConfirmedInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.Booking, error)
}

type BusyReader interface {
	FindInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error)
}

type AvailabilityService interface {
	CreateRule(ctx context.Context, rule *model.AvailabilityRule) error
	ListRules(ctx context.Context, ownerID string) ([]model.AvailabilityRule, error)
	DeleteRule(ctx context.Context, id string) error
	CreateEventType(ctx context.Context, et *model.EventType) error
	GetEventType(ctx context.Context, id string) (*model.EventType, error)
	ListEventTypes(ctx context.Context, ownerID string) ([]model.EventType, error)
	ComputeAvailableSlots(ctx context.Context, ownerID, eventTypeID string, from, to time.Time) ([]model.Slot, error)
	IsSlotOffered(ctx context.Context, ownerID string, et *model.EventType, candidate model.Interval, now time.Time) (bool, error)
}

type availabilityService struct {
	rules      repository.RuleRepository
	eventTypes repository.EventTypeRepository
	bookings   BookingReader
	busy       BusyReader
	validator  *validator.AvailabilityValidator
	calculator *Calculator
	clock      clock.Clock
	cfg        *config.Config
}

func NewAvailabilityService(
	rules repository.RuleRepository,
	eventTypes repository.EventTypeRepository,
	bookings BookingReader,
	busy BusyReader,
	validator *validator.AvailabilityValidator,
	clk clock.Clock,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		rules:      rules,
		eventTypes: eventTypes,
		bookings:   bookings,
		busy:       busy,
		validator:  validator,
		calculator: NewCalculator(cfg.MaxSlots),
		clock:      clk,
		cfg:        cfg,
	}
}

func (s *availabilityService) CreateRule(ctx context.Context, rule *model.AvailabilityRule) error {
	rule.OwnerID = sanitizer.TrimAndNormalize(rule.OwnerID)
	rule.StartTime = sanitizer.TrimAndNormalize(rule.StartTime)
	rule.EndTime = sanitizer.TrimAndNormalize(rule.EndTime)
	rule.TimeZone = locale.IANAName(rule.TimeZone)
	rule.ID = uuid.New().String()

	if err := s.validator.ValidateRule(rule); err != nil {
		s.cfg.Log.Warn("Availability rule validation failed", "owner_id", rule.OwnerID, "error", err)
		return validation.ToAppError("Invalid availability rule", err)
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		s.cfg.Log.Error("Failed to create availability rule", "owner_id", rule.OwnerID, "error", err)
		return apperrors.Internal("Failed to create availability rule", err)
	}

	s.cfg.Log.Info("Availability rule created successfully",
		"id", rule.ID,
		"owner_id", rule.OwnerID,
		"day_of_week", rule.DayOfWeek,
		"time_zone", rule.TimeZone,
	)
	return nil
}

func (s *availabilityService) ListRules(ctx context.Context, ownerID string) ([]model.AvailabilityRule, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner_id cannot be empty")
	}
	rules, err := s.rules.FindByOwner(ctx, ownerID)
	if err != nil {
		s.cfg.Log.Error("Failed to list availability rules", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability rules", err)
	}
	return rules, nil
}

func (s *availabilityService) DeleteRule(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Rule ID cannot be empty")
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		if errors.Is(err, availabilityerrors.ErrRuleNotFound) {
			return apperrors.NotFoundWithID("Availability rule", id)
		}
		s.cfg.Log.Error("Failed to delete availability rule", "id", id, "error", err)
		return apperrors.Internal("Failed to delete availability rule", err)
	}
	s.cfg.Log.Info("Availability rule deleted successfully", "id", id)
	return nil
}

func (s *availabilityService) CreateEventType(ctx context.Context, et *model.EventType) error {
	et.OwnerID = sanitizer.TrimAndNormalize(et.OwnerID)
	et.Name = sanitizer.NormalizeName(et.Name)
	for i := range et.Questions {
		et.Questions[i].Key = sanitizer.NormalizeKey(et.Questions[i].Key)
		et.Questions[i].Label = sanitizer.TrimAndNormalize(et.Questions[i].Label)
		et.Questions[i].Options = sanitizer.NormalizeStringSlice(et.Questions[i].Options, sanitizer.TrimAndNormalize)
	}
	et.ID = uuid.New().String()

	if err := s.validator.ValidateEventType(et); err != nil {
		s.cfg.Log.Warn("Event type validation failed", "owner_id", et.OwnerID, "error", err)
		return validation.ToAppError("Invalid event type", err)
	}

	if err := s.eventTypes.Create(ctx, et); err != nil {
		s.cfg.Log.Error("Failed to create event type", "owner_id", et.OwnerID, "error", err)
		return apperrors.Internal("Failed to create event type", err)
	}

	s.cfg.Log.Info("Event type created successfully",
		"id", et.ID,
		"owner_id", et.OwnerID,
		"duration_min", et.DurationMin,
		"requires_confirmation", et.RequiresConfirmation,
	)
	return nil
}

func (s *availabilityService) GetEventType(ctx context.Context, id string) (*model.EventType, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Event type ID cannot be empty")
	}
	et, err := s.eventTypes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, availabilityerrors.ErrEventTypeNotFound) {
			return nil, apperrors.NotFoundWithID("Event type", id)
		}
		return nil, apperrors.Internal("Failed to retrieve event type", err)
	}
	return et, nil
}

func (s *availabilityService) ListEventTypes(ctx context.Context, ownerID string) ([]model.EventType, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner_id cannot be empty")
	}
	types, err := s.eventTypes.FindByOwner(ctx, ownerID)
	if err != nil {
		s.cfg.Log.Error("Failed to list event types", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve event types", err)
	}
	return types, nil
}

func (s *availabilityService) ComputeAvailableSlots(ctx context.Context, ownerID, eventTypeID string, from, to time.Time) ([]model.Slot, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner_id cannot be empty")
	}
	if !from.Before(to) {
		return nil, apperrors.Validation("Invalid date range", map[string]any{"error": "from must be before to"})
	}
	if to.Sub(from) > MaxQueryRange {
		return nil, apperrors.Validation("Date range too large", map[string]any{"max_days": int(MaxQueryRange.Hours() / 24)})
	}

	et, err := s.GetEventType(ctx, eventTypeID)
	if err != nil {
		return nil, err
	}
	if et.OwnerID != ownerID {
		return nil, apperrors.NotFoundWithID("Event type", eventTypeID)
	}

	now := s.clock.Now()
	slots, err := s.compute(ctx, s.calculator, ownerID, et, now, from, to)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Debug("Computed available slots",
		"owner_id", ownerID,
		"event_type_id", eventTypeID,
		"from", from,
		"to", to,
		"count", len(slots),
	)
	return slots, nil
}

// IsSlotOffered reports whether candidate is exactly one of the slots the calculator would offer
// at now. The whole surrounding local day is evaluated so daily caps apply.
func (s *availabilityService) IsSlotOffered(ctx context.Context, ownerID string, et *model.EventType, candidate model.Interval, now time.Time) (bool, error) {
	slots, err := s.compute(ctx, NewCalculator(0), ownerID, et, now, candidate.Start.Add(-24*time.Hour), candidate.End.Add(24*time.Hour))
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot.Start.Equal(candidate.Start) && slot.End.Equal(candidate.End) {
			return true, nil
		}
	}
	return false, nil
}

func (s *availabilityService) compute(ctx context.Context, calc *Calculator, ownerID string, et *model.EventType, now, from, to time.Time) ([]model.Slot, error) {
	rules, err := s.rules.FindByOwner(ctx, ownerID)
	if err != nil {
		s.cfg.Log.Error("Failed to load availability rules", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to load availability rules", err)
	}

	bookings, err := s.bookings.FindConfirmedInRange(ctx, ownerID, from.Add(-lookaround), to.Add(lookaround))
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}

	busy, err := s.busy.FindInRange(ctx, ownerID, from.Add(-lookaround), to.Add(lookaround))
	if err != nil {
		s.cfg.Log.Error("Failed to load busy blocks", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to load busy blocks", err)
	}

	return calc.ComputeSlots(ownerID, et, rules, bookings, busy, now, from, to)
}
