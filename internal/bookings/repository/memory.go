package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "rendezvous/internal/bookings/errors"
	mongotx "rendezvous/pkg/db/mongo"
	"rendezvous/pkg/model"
)

type memoryBookingRepository struct {
	mu        sync.RWMutex
	bookings  map[string]model.Booking
	txManager mongotx.TransactionManager
}

// NewMemoryBookingRepository is a process-local store. Its transactions are passthrough, so
// commits must hold the owner lock.
func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings:  map[string]model.Booking{},
		txManager: mongotx.NewPassthroughTransactionManager(),
	}
}

func (r *memoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	r.bookings[booking.ID] = cloneBooking(*booking)
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	b = cloneBooking(b)
	return &b, nil
}

func (r *memoryBookingRepository) FindConfirmedInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.Booking, error) {
	return r.Search(ctx, model.BookingFilter{OwnerID: ownerID, Status: model.BookingConfirmed, From: from, To: to})
}

func (r *memoryBookingRepository) Search(_ context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	r.mu.RLock()
	matched := []model.Booking{}
	for _, b := range r.bookings {
		if matches(b, filter) {
			matched = append(matched, cloneBooking(b))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartTime.Equal(matched[j].StartTime) {
			return matched[i].StartTime.Before(matched[j].StartTime)
		}
		return matched[i].ID < matched[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []model.Booking{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *memoryBookingRepository) Count(_ context.Context, filter model.BookingFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, b := range r.bookings {
		if matches(b, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memoryBookingRepository) Cancel(_ context.Context, id string, at time.Time) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !b.Status.CanTransitionTo(model.BookingCancelled) {
		return nil, bookingserrors.ErrNotCancellable
	}
	b.Status = model.BookingCancelled
	b.CancelledAt = &at
	r.bookings[id] = b

	out := cloneBooking(b)
	return &out, nil
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func matches(b model.Booking, filter model.BookingFilter) bool {
	if filter.OwnerID != "" && b.OwnerID != filter.OwnerID {
		return false
	}
	if filter.Status != "" && b.Status != filter.Status {
		return false
	}
	if !filter.To.IsZero() && !b.StartTime.Before(filter.To) {
		return false
	}
	if !filter.From.IsZero() && !b.EndTime.After(filter.From) {
		return false
	}
	return true
}

func cloneBooking(b model.Booking) model.Booking {
	if b.Attendees != nil {
		b.Attendees = append([]model.Attendee(nil), b.Attendees...)
	}
	return b
}

type memoryBookingLockRepository struct {
	mu    sync.Mutex
	locks map[string]model.BookingLock
}

func NewMemoryBookingLockRepository() BookingLockRepository {
	return &memoryBookingLockRepository{locks: map[string]model.BookingLock{}}
}

func (r *memoryBookingLockRepository) Acquire(_ context.Context, lock *model.BookingLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.locks[lock.ID]; ok && held.ExpiresAt.After(lock.CreatedAt) {
		return bookingserrors.ErrLockHeld
	}
	r.locks[lock.ID] = *lock
	return nil
}

func (r *memoryBookingLockRepository) Release(_ context.Context, lockID, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.locks[lockID]; ok && held.Holder == holder {
		delete(r.locks, lockID)
	}
	return nil
}
