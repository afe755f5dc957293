package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rendezvous/internal/bookings/repository"
	"rendezvous/internal/bookings/validator"
	"rendezvous/internal/conflicts"
	"rendezvous/internal/events"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
)

var base = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

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

type fixture struct {
	repo      repository.BookingRepository
	locks     repository.BookingLockRepository
	busy      *fakeBusy
	committer *Committer
	service   BookingService
	events    *events.Recorder
	clock     *clock.Manual
	cfg       *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	cfg := &config.Config{
		Log:             log,
		LockTTL:         10 * time.Second,
		LockWaitTimeout: 2 * time.Second,
		WriteTimeout:    time.Second,
		ReadTimeout:     time.Second,
	}
	f := &fixture{
		repo:   repository.NewMemoryBookingRepository(),
		locks:  repository.NewMemoryBookingLockRepository(),
		busy:   &fakeBusy{},
		events: events.NewRecorder(),
		clock:  clock.NewManual(base.Add(-48 * time.Hour)),
		cfg:    cfg,
	}
	v := validator.NewBookingValidator(log)
	f.committer = NewCommitter(f.repo, f.busy, NewOwnerLocker(f.locks, f.clock, cfg), v, cfg)
	f.service = NewBookingService(f.repo, v, f.events, f.clock, cfg)
	return f
}

func newBooking(owner string, start time.Time, d time.Duration) *model.Booking {
	return &model.Booking{
		OwnerID:    owner,
		GuestName:  "Ada",
		GuestEmail: "ada@example.com",
		StartTime:  start,
		EndTime:    start.Add(d),
	}
}

func TestCommitter_Commit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := newBooking("owner", base, time.Hour)
	if err := f.committer.Commit(ctx, first, conflicts.Padding{}, nil); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if first.ID == "" || first.Status != model.BookingConfirmed {
		t.Fatalf("committed booking = %+v", first)
	}

	tests := []struct {
		name     string
		booking  *model.Booking
		padding  conflicts.Padding
		conflict []string
	}{
		{"same slot", newBooking("owner", base, time.Hour), conflicts.Padding{}, []string{first.ID}},
		{"partial overlap", newBooking("owner", base.Add(30*time.Minute), time.Hour), conflicts.Padding{}, []string{first.ID}},
		{"adjacent", newBooking("owner", base.Add(time.Hour), time.Hour), conflicts.Padding{}, nil},
		{"adjacent with buffer", newBooking("owner", base.Add(-time.Hour), time.Hour), conflicts.Padding{After: 15 * time.Minute}, []string{first.ID}},
		{"other owner", newBooking("someone", base, time.Hour), conflicts.Padding{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.committer.Commit(ctx, tt.booking, tt.padding, nil)
			if tt.conflict == nil {
				if err != nil {
					t.Fatalf("Commit() error = %v", err)
				}
				return
			}
			if !apperrors.HasCode(err, apperrors.CodeConflict) {
				t.Fatalf("Commit() error = %v, want conflict", err)
			}
			ids := apperrors.ConflictingIDs(err)
			if len(ids) != len(tt.conflict) || ids[0] != tt.conflict[0] {
				t.Errorf("conflicting ids = %v, want %v", ids, tt.conflict)
			}
		})
	}
}

func TestCommitter_BusyBlockConflict(t *testing.T) {
	f := newFixture(t)
	f.busy.blocks = []model.BusyBlock{{ID: "ext", OwnerID: "owner", StartTime: base, EndTime: base.Add(30 * time.Minute)}}

	err := f.committer.Commit(context.Background(), newBooking("owner", base, time.Hour), conflicts.Padding{}, nil)
	ids := apperrors.ConflictingIDs(err)
	if len(ids) != 1 || ids[0] != "busy:ext" {
		t.Errorf("Commit() error = %v, ids = %v", err, ids)
	}
}

func TestCommitter_WithinFailureSkipsInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := apperrors.Conflict("request already decided")

	err := f.committer.Commit(ctx, newBooking("owner", base, time.Hour), conflicts.Padding{}, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Commit() error = %v, want %v", err, boom)
	}

	count, _ := f.repo.Count(ctx, model.BookingFilter{OwnerID: "owner"})
	if count != 0 {
		t.Errorf("booking inserted despite failed callback, count = %d", count)
	}
}

func TestCommitter_RejectsInvalidBooking(t *testing.T) {
	f := newFixture(t)
	b := newBooking("owner", base, time.Hour)
	b.EndTime = b.StartTime

	err := f.committer.Commit(context.Background(), b, conflicts.Padding{}, nil)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Commit() error = %v, want validation error", err)
	}
}

func TestCommitter_ConcurrentCommitsYieldOneBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.committer.Commit(ctx, newBooking("owner", base, time.Hour), conflicts.Padding{}, nil)
		}(i)
	}
	wg.Wait()

	var ok, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicted != workers-1 {
		t.Errorf("ok = %d, conflicted = %d", ok, conflicted)
	}

	confirmed, _ := f.repo.FindConfirmedInRange(ctx, "owner", base, base.Add(time.Hour))
	if len(confirmed) != 1 {
		t.Errorf("confirmed bookings = %d, want 1", len(confirmed))
	}
}

func TestOwnerLocker_TimesOutWhileHeld(t *testing.T) {
	f := newFixture(t)
	f.cfg.LockWaitTimeout = 50 * time.Millisecond
	locker := NewOwnerLocker(f.locks, f.clock, f.cfg)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "owner")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	if _, err := locker.Lock(ctx, "owner"); !apperrors.HasCode(err, apperrors.CodeUnavailable) {
		t.Errorf("second Lock() error = %v, want unavailable", err)
	}

	other, err := locker.Lock(ctx, "other-owner")
	if err != nil {
		t.Fatalf("Lock() on another owner error = %v", err)
	}
	other()

	release()
	again, err := locker.Lock(ctx, "owner")
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	again()
}

func TestOwnerLocker_TakesOverExpiredLock(t *testing.T) {
	f := newFixture(t)
	f.cfg.LockWaitTimeout = 0
	locker := NewOwnerLocker(f.locks, f.clock, f.cfg)
	ctx := context.Background()

	if _, err := locker.Lock(ctx, "owner"); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	f.clock.Advance(f.cfg.LockTTL + time.Second)

	release, err := locker.Lock(ctx, "owner")
	if err != nil {
		t.Fatalf("Lock() over expired lock error = %v", err)
	}
	release()
}

func TestBookingService_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := newBooking("owner", base, time.Hour)
	if err := f.committer.Commit(ctx, b, conflicts.Padding{}, nil); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	cancelled, err := f.service.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != model.BookingCancelled || cancelled.CancelledAt == nil {
		t.Errorf("cancelled booking = %+v", cancelled)
	}

	if _, err := f.service.Cancel(ctx, b.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second Cancel() error = %v, want conflict", err)
	}
	if _, err := f.service.Cancel(ctx, "missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("Cancel(missing) error = %v, want not found", err)
	}

	if err := f.committer.Commit(ctx, newBooking("owner", base, time.Hour), conflicts.Padding{}, nil); err != nil {
		t.Errorf("slot not freed by cancellation: %v", err)
	}

	types := f.events.Types()
	if len(types) != 1 || types[0] != events.BookingCancelled {
		t.Errorf("events = %v", types)
	}
}

func TestBookingService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := f.committer.Commit(ctx, newBooking("owner", base.Add(time.Duration(i)*time.Hour), time.Hour), conflicts.Padding{}, nil); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
	}

	page, total, err := f.service.Search(ctx, model.BookingFilter{OwnerID: "owner", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("Search() total = %d, page = %d", total, len(page))
	}
	if !page[0].StartTime.Equal(base.Add(time.Hour)) {
		t.Errorf("first result starts at %v", page[0].StartTime)
	}

	windowed, total, err := f.service.Search(ctx, model.BookingFilter{OwnerID: "owner", From: base.Add(90 * time.Minute), To: base.Add(3 * time.Hour)})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(windowed) != 2 {
		t.Errorf("windowed search total = %d, len = %d", total, len(windowed))
	}

	if _, _, err := f.service.Search(ctx, model.BookingFilter{}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Search() without owner error = %v, want validation error", err)
	}
}
