package service

import (
	"context"
	"time"

	"rendezvous/internal/bookings/repository"
	"rendezvous/internal/bookings/validator"
	"rendezvous/internal/conflicts"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/model"
	"rendezvous/pkg/validation"

	"github.com/google/uuid"
)

type BusyReader interface {
	FindInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error)
}

// Committer is the only writer of new bookings. Every commit holds the owner lock and re-checks
// conflicts inside the transaction that inserts the booking.
type Committer struct {
	bookings  repository.BookingRepository
	busy      BusyReader
	locker    *OwnerLocker
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewCommitter(
	bookings repository.BookingRepository,
	busy BusyReader,
	locker *OwnerLocker,
	validator *validator.BookingValidator,
	cfg *config.Config,
) *Committer {
	return &Committer{
		bookings:  bookings,
		busy:      busy,
		locker:    locker,
		validator: validator,
		cfg:       cfg,
	}
}

// Commit inserts booking if its padded interval is still free. within runs in the same
// transaction before the insert; callers use it to compare-and-swap the aggregate that owns the
// booking. A collision returns a CONFLICT error carrying the conflicting ids.
func (c *Committer) Commit(ctx context.Context, booking *model.Booking, padding conflicts.Padding, within func(ctx context.Context) error) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	booking.Status = model.BookingConfirmed
	booking.StartTime = booking.StartTime.UTC()
	booking.EndTime = booking.EndTime.UTC()

	if err := c.validator.Validate(booking); err != nil {
		c.cfg.Log.Warn("Booking validation failed", "owner_id", booking.OwnerID, "error", err)
		return validation.ToAppError("Booking validation failed", err)
	}

	release, err := c.locker.Lock(ctx, booking.OwnerID)
	if err != nil {
		return err
	}
	defer release()

	candidate := booking.Interval()
	from := candidate.Start.Add(-padding.Before)
	to := candidate.End.Add(padding.After)

	err = c.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		existing, err := c.bookings.FindConfirmedInRange(txCtx, booking.OwnerID, from, to)
		if err != nil {
			return apperrors.Internal("Failed to check existing bookings", err)
		}
		busy, err := c.busy.FindInRange(txCtx, booking.OwnerID, from, to)
		if err != nil {
			return apperrors.Internal("Failed to check busy blocks", err)
		}

		if ids := conflicts.FindConflicts(booking.OwnerID, candidate, padding, existing, busy); len(ids) > 0 {
			return apperrors.ConflictWithIDs("Requested time is no longer available", ids)
		}

		if within != nil {
			if err := within(txCtx); err != nil {
				return err
			}
		}

		if err := c.bookings.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			c.cfg.Log.Info("Booking commit rejected by conflict",
				"owner_id", booking.OwnerID,
				"start_time", booking.StartTime,
				"conflicting_ids", apperrors.ConflictingIDs(err),
			)
		} else {
			c.cfg.Log.Error("Failed to commit booking", "owner_id", booking.OwnerID, "error", err)
		}
		return err
	}

	c.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"owner_id", booking.OwnerID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)
	return nil
}
