package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	bookingserrors "rendezvous/internal/bookings/errors"
	"rendezvous/internal/bookings/repository"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/model"

	"github.com/google/uuid"
)

const lockPollInterval = 20 * time.Millisecond

// OwnerLocker serializes booking commits per owner across replicas.
type OwnerLocker struct {
	locks repository.BookingLockRepository
	clock clock.Clock
	cfg   *config.Config
}

func NewOwnerLocker(locks repository.BookingLockRepository, clk clock.Clock, cfg *config.Config) *OwnerLocker {
	return &OwnerLocker{locks: locks, clock: clk, cfg: cfg}
}

func LockID(ownerID string) string {
	return "booking_lock_" + ownerID
}

// Lock waits up to LockWaitTimeout for the owner's lock, then fails with SERVICE_UNAVAILABLE. The returned release func is safe to
// call once the commit is done, whatever its outcome.
func (l *OwnerLocker) Lock(ctx context.Context, ownerID string) (func(), error) {
	holder := uuid.New().String()
	lockID := LockID(ownerID)
	deadline := time.Now().Add(l.cfg.LockWaitTimeout)

	for {
		now := l.clock.Now()
		lock := &model.BookingLock{
			ID:        lockID,
			OwnerID:   ownerID,
			Holder:    holder,
			CreatedAt: now,
			ExpiresAt: now.Add(l.cfg.LockTTL),
		}

		err := l.locks.Acquire(ctx, lock)
		if err == nil {
			return l.releaser(ctx, lockID, holder), nil
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			l.cfg.Log.Error("Failed to acquire booking lock", "owner_id", ownerID, "error", err)
			return nil, apperrors.Internal("Failed to acquire booking lock", err)
		}

		if !time.Now().Add(lockPollInterval).Before(deadline) {
			l.cfg.Log.Warn("Booking lock wait timed out", "owner_id", ownerID, "wait", l.cfg.LockWaitTimeout)
			return nil, apperrors.New(apperrors.CodeUnavailable, "Another booking for this host is being committed, please retry", http.StatusServiceUnavailable)
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperrors.Timeout("Timed out waiting for booking lock")
		case <-timer.C:
		}
	}
}

func (l *OwnerLocker) releaser(ctx context.Context, lockID, holder string) func() {
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.WriteTimeout)
		defer cancel()
		if err := l.locks.Release(releaseCtx, lockID, holder); err != nil {
			l.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", err)
		}
	}
}
