package service

import (
	"context"
	"errors"
	"sync"

	bookingserrors "rendezvous/internal/bookings/errors"
	"rendezvous/internal/bookings/repository"
	"rendezvous/internal/bookings/validator"
	"rendezvous/internal/events"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/model"
	"rendezvous/pkg/validation"
)

type BookingService interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Search(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int64, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) Search(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int64, error) {
	if err := s.validator.ValidateFilter(&filter); err != nil {
		return nil, 0, validation.ToAppError("Invalid booking search", err)
	}
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = int(config.NormalizeOffset(int64(filter.Offset)))

	var count int64
	var bookings []model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "owner_id", filter.OwnerID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.Search(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to search bookings",
				"owner_id", filter.OwnerID,
				"limit", filter.Limit,
				"offset", filter.Offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to search bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cfg.Log.Debug("Booking search completed",
		"owner_id", filter.OwnerID,
		"count", len(bookings),
		"total_count", count,
	)
	return bookings, count, nil
}

// Cancel frees the booking's interval. Only confirmed bookings can be cancelled.
func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	now := s.clock.Now()
	booking, err := s.repo.Cancel(ctx, id, now)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", id)
		case errors.Is(err, bookingserrors.ErrNotCancellable):
			return nil, apperrors.Conflict("Booking is already cancelled")
		}
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "owner_id", booking.OwnerID)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.BookingCancelled, booking.ID, booking.OwnerID, now, booking))
	return booking, nil
}
