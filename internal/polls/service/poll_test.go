package service

import (
	"context"
	"testing"
	"time"

	bookingrepo "rendezvous/internal/bookings/repository"
	bookings "rendezvous/internal/bookings/service"
	bookingvalidator "rendezvous/internal/bookings/validator"
	busyrepo "rendezvous/internal/busy/repository"
	"rendezvous/internal/events"
	"rendezvous/internal/polls/repository"
	"rendezvous/internal/polls/validator"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
	"rendezvous/pkg/sealer"
)

var start = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      PollService
	repo     repository.PollRepository
	bookings bookingrepo.BookingRepository
	events   *events.Recorder
	clock    *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil)
}

// newFixtureWithRepo lets wrap decorate the poll repository the service sees.
func newFixtureWithRepo(t *testing.T, wrap func(repository.PollRepository) repository.PollRepository) *fixture {
	t.Helper()
	log := logger.Nop()
	cfg := &config.Config{
		Log:             log,
		LockTTL:         10 * time.Second,
		LockWaitTimeout: 2 * time.Second,
	}
	f := &fixture{
		repo:     repository.NewMemoryPollRepository(),
		bookings: bookingrepo.NewMemoryBookingRepository(),
		events:   events.NewRecorder(),
		clock:    clock.NewManual(start.Add(-72 * time.Hour)),
	}
	locker := bookings.NewOwnerLocker(bookingrepo.NewMemoryBookingLockRepository(), f.clock, cfg)
	committer := bookings.NewCommitter(f.bookings, busyrepo.NewMemoryBusyRepository(), locker, bookingvalidator.NewBookingValidator(log), cfg)
	repo := f.repo
	if wrap != nil {
		repo = wrap(repo)
	}
	f.svc = NewPollService(repo, validator.NewPollValidator(log), committer, sealer.NewHasher("participant-secret"), f.events, f.clock, cfg)
	return f
}

// create opens a poll with one-hour slots at 09:00, 11:00 and 14:00.
func (f *fixture) create(t *testing.T, mutate func(p *model.Poll)) *model.PollDetails {
	t.Helper()
	input := &model.PollInput{
		Poll: model.Poll{
			OwnerID:        "owner",
			Title:          "Planning",
			OrganizerName:  "Ada",
			OrganizerEmail: "ada@example.com",
			DurationMin:    60,
			AllowAnonymous: true,
		},
		Slots: []model.PollTimeSlot{
			{StartTime: start.Add(5 * time.Hour), EndTime: start.Add(6 * time.Hour)},
			{StartTime: start, EndTime: start.Add(time.Hour)},
			{StartTime: start.Add(2 * time.Hour), EndTime: start.Add(3 * time.Hour)},
		},
	}
	if mutate != nil {
		mutate(&input.Poll)
	}
	details, err := f.svc.CreatePoll(context.Background(), input)
	if err != nil {
		t.Fatalf("CreatePoll() error = %v", err)
	}
	return details
}

func (f *fixture) vote(t *testing.T, pollID, email string, anonymous bool, slotIDs ...string) *model.PollDetails {
	t.Helper()
	details, err := f.svc.Vote(context.Background(), pollID, &model.Participant{Email: email, Anonymous: anonymous}, slotIDs)
	if err != nil {
		t.Fatalf("Vote(%s) error = %v", email, err)
	}
	return details
}

func counts(details *model.PollDetails) []int {
	out := make([]int, len(details.Slots))
	for i, s := range details.Slots {
		out[i] = s.VoteCount
	}
	return out
}

func assertCounts(t *testing.T, details *model.PollDetails, want ...int) {
	t.Helper()
	got := counts(details)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("vote counts = %v, want %v", got, want)
		}
	}
}

func TestPollService_CreatePoll(t *testing.T) {
	f := newFixture(t)
	details := f.create(t, nil)

	if details.Poll.Status != model.PollActive {
		t.Errorf("status = %s, want active", details.Poll.Status)
	}
	if details.Poll.MaxVotesPerParticipant != 3 {
		t.Errorf("max votes = %d, want the slot count", details.Poll.MaxVotesPerParticipant)
	}
	if !details.Slots[0].StartTime.Equal(start) || !details.Slots[2].StartTime.Equal(start.Add(5*time.Hour)) {
		t.Errorf("slots are not ordered by start: %+v", details.Slots)
	}
	for _, s := range details.Slots {
		if s.PollID != details.Poll.ID || !s.Available || s.ID == "" {
			t.Errorf("slot = %+v", s)
		}
	}
	if types := f.events.Types(); len(types) != 1 || types[0] != events.PollCreated {
		t.Errorf("events = %v", types)
	}
}

func TestPollService_VoteReplacement(t *testing.T) {
	f := newFixture(t)
	details := f.create(t, nil)
	a, b, c := details.Slots[0].ID, details.Slots[1].ID, details.Slots[2].ID

	assertCounts(t, f.vote(t, details.Poll.ID, "bob@example.com", false, a, b), 1, 1, 0)
	assertCounts(t, f.vote(t, details.Poll.ID, "cy@example.com", false, b), 1, 2, 0)

	// Bob changes his mind: both earlier votes go, only c remains.
	got := f.vote(t, details.Poll.ID, "Bob@Example.com", false, c)
	assertCounts(t, got, 0, 1, 1)

	votes, err := f.repo.FindVotes(context.Background(), details.Poll.ID)
	if err != nil {
		t.Fatalf("FindVotes() error = %v", err)
	}
	live := map[string]int{}
	for _, v := range votes {
		live[v.SlotID]++
	}
	for _, s := range got.Slots {
		if live[s.ID] != s.VoteCount {
			t.Errorf("slot %s count = %d, live votes = %d", s.ID, s.VoteCount, live[s.ID])
		}
	}

	assertCounts(t, f.vote(t, details.Poll.ID, "bob@example.com", false), 0, 1, 0)
}

func TestPollService_AnonymousVotes(t *testing.T) {
	f := newFixture(t)
	details := f.create(t, nil)
	a, b := details.Slots[0].ID, details.Slots[1].ID

	f.vote(t, details.Poll.ID, "dee@example.com", true, a)
	got := f.vote(t, details.Poll.ID, "DEE@example.com", true, b)
	assertCounts(t, got, 0, 1, 0)

	votes, err := f.repo.FindVotes(context.Background(), details.Poll.ID)
	if err != nil {
		t.Fatalf("FindVotes() error = %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("votes = %d, want 1", len(votes))
	}
	v := votes[0]
	if v.ParticipantID == "dee@example.com" || v.ParticipantEmail != "" || v.ParticipantName != "" {
		t.Errorf("anonymous vote leaks identity: %+v", v)
	}

	closed := f.create(t, func(p *model.Poll) { p.AllowAnonymous = false })
	_, err = f.svc.Vote(context.Background(), closed.Poll.ID, &model.Participant{Email: "dee@example.com", Anonymous: true}, []string{closed.Slots[0].ID})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Vote() error = %v, want VALIDATION_ERROR", err)
	}
}

func TestPollService_VoteRejects(t *testing.T) {
	f := newFixture(t)
	details := f.create(t, func(p *model.Poll) { p.MaxVotesPerParticipant = 1 })
	other := f.create(t, nil)
	a, b := details.Slots[0].ID, details.Slots[1].ID

	tests := []struct {
		name    string
		pollID  string
		email   string
		slotIDs []string
		code    string
	}{
		{"over the vote limit", details.Poll.ID, "bob@example.com", []string{a, b}, apperrors.CodeValidation},
		{"slot of another poll", details.Poll.ID, "bob@example.com", []string{other.Slots[0].ID}, apperrors.CodeValidation},
		{"bad email", details.Poll.ID, "bob", []string{a}, apperrors.CodeValidation},
		{"unknown poll", "missing", "bob@example.com", []string{a}, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Vote(context.Background(), tt.pollID, &model.Participant{Email: tt.email}, tt.slotIDs)
			if !apperrors.HasCode(err, tt.code) {
				t.Errorf("Vote() error = %v, want %s", err, tt.code)
			}
		})
	}

	if _, err := f.svc.ClosePoll(context.Background(), details.Poll.ID); err != nil {
		t.Fatalf("ClosePoll() error = %v", err)
	}
	_, err := f.svc.Vote(context.Background(), details.Poll.ID, &model.Participant{Email: "bob@example.com"}, []string{a})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("Vote() on closed poll error = %v, want CONFLICT", err)
	}
}

func TestPollService_FinalizeTieBreaksByEarliestStart(t *testing.T) {
	f := newFixture(t)
	details := f.create(t, func(p *model.Poll) { p.Notifications.NotifyOnFinalize = true })
	early, mid, late := details.Slots[0].ID, details.Slots[1].ID, details.Slots[2].ID

	f.vote(t, details.Poll.ID, "a@example.com", false, early, late)
	f.vote(t, details.Poll.ID, "b@example.com", false, late)
	f.vote(t, details.Poll.ID, "c@example.com", false, early, mid)

	booking, err := f.svc.FinalizePoll(context.Background(), details.Poll.ID, "")
	if err != nil {
		t.Fatalf("FinalizePoll() error = %v", err)
	}
	if !booking.StartTime.Equal(start) {
		t.Errorf("booking start = %v, want the earlier tied slot %v", booking.StartTime, start)
	}
	if booking.PollID != details.Poll.ID || booking.Status != model.BookingConfirmed {
		t.Errorf("booking = %+v", booking)
	}
	if len(booking.Attendees) != 2 {
		t.Errorf("attendees = %+v, want the two voters of the winning slot", booking.Attendees)
	}

	got, err := f.svc.GetPoll(context.Background(), details.Poll.ID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if got.Poll.Status != model.PollFinalized || got.Poll.SelectedSlotID != early || got.Poll.BookingID != booking.ID {
		t.Errorf("poll = %+v", got.Poll)
	}

	if _, err := f.svc.FinalizePoll(context.Background(), details.Poll.ID, ""); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second FinalizePoll() error = %v, want CONFLICT", err)
	}

	var finalized bool
	for _, typ := range f.events.Types() {
		if typ == events.PollFinalized {
			finalized = true
		}
	}
	if !finalized {
		t.Errorf("events = %v, want poll.finalized", f.events.Types())
	}
}

func TestPollService_FinalizeWithoutVotes(t *testing.T) {
	f := newFixture(t)
	details := f.create(t, nil)

	if _, err := f.svc.FinalizePoll(context.Background(), details.Poll.ID, ""); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("FinalizePoll() error = %v, want VALIDATION_ERROR", err)
	}
	if _, err := f.svc.FinalizePoll(context.Background(), details.Poll.ID, "nope"); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("FinalizePoll(bad override) error = %v, want VALIDATION_ERROR", err)
	}

	booking, err := f.svc.FinalizePoll(context.Background(), details.Poll.ID, details.Slots[1].ID)
	if err != nil {
		t.Fatalf("FinalizePoll(override) error = %v", err)
	}
	if !booking.StartTime.Equal(details.Slots[1].StartTime) {
		t.Errorf("booking start = %v, want override slot", booking.StartTime)
	}
}

func TestPollService_FinalizeConflictLeavesPollOpen(t *testing.T) {
	f := newFixture(t)
	details := f.create(t, nil)
	f.vote(t, details.Poll.ID, "a@example.com", false, details.Slots[0].ID)

	existing := &model.Booking{
		ID:         "5c0e4bb8-4a4e-4f6a-9a57-7f9a1c0c2f11",
		OwnerID:    "owner",
		GuestName:  "Zed",
		GuestEmail: "zed@example.com",
		StartTime:  start.Add(30 * time.Minute),
		EndTime:    start.Add(90 * time.Minute),
		Status:     model.BookingConfirmed,
	}
	if err := f.bookings.Create(context.Background(), existing); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := f.svc.FinalizePoll(context.Background(), details.Poll.ID, "")
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("FinalizePoll() error = %v, want CONFLICT", err)
	}
	if ids := apperrors.ConflictingIDs(err); len(ids) != 1 || ids[0] != existing.ID {
		t.Errorf("conflicting ids = %v", ids)
	}

	got, err := f.svc.GetPoll(context.Background(), details.Poll.ID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if got.Poll.Status != model.PollActive || got.Poll.SelectedSlotID != "" {
		t.Errorf("poll = %+v, want it untouched", got.Poll)
	}

	if _, err := f.svc.FinalizePoll(context.Background(), details.Poll.ID, details.Slots[2].ID); err != nil {
		t.Errorf("FinalizePoll(free override) error = %v", err)
	}
}

// votesDuringFinalize runs during once, the first time votes are listed after it is armed.
type votesDuringFinalize struct {
	repository.PollRepository
	during func()
}

func (r *votesDuringFinalize) FindVotes(ctx context.Context, pollID string) ([]model.PollVote, error) {
	if during := r.during; during != nil {
		r.during = nil
		during()
	}
	return r.PollRepository.FindVotes(ctx, pollID)
}

func TestPollService_FinalizeRejectsVotesCastMidway(t *testing.T) {
	var hook *votesDuringFinalize
	f := newFixtureWithRepo(t, func(repo repository.PollRepository) repository.PollRepository {
		hook = &votesDuringFinalize{PollRepository: repo}
		return hook
	})
	details := f.create(t, nil)
	pollID := details.Poll.ID
	f.vote(t, pollID, "a@example.com", false, details.Slots[0].ID)

	hook.during = func() {
		f.vote(t, pollID, "b@example.com", false, details.Slots[1].ID)
		f.vote(t, pollID, "c@example.com", false, details.Slots[1].ID)
	}

	_, err := f.svc.FinalizePoll(context.Background(), pollID, "")
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("FinalizePoll() error = %v, want CONFLICT", err)
	}

	got, err := f.svc.GetPoll(context.Background(), pollID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if got.Poll.Status != model.PollActive || got.Poll.SelectedSlotID != "" || got.Poll.BookingID != "" {
		t.Errorf("poll = %+v, want it untouched", got.Poll)
	}
	assertCounts(t, got, 1, 2, 0)

	booking, err := f.svc.FinalizePoll(context.Background(), pollID, "")
	if err != nil {
		t.Fatalf("FinalizePoll(retry) error = %v", err)
	}
	if !booking.StartTime.Equal(details.Slots[1].StartTime) {
		t.Errorf("booking start = %v, want the slot with two votes", booking.StartTime)
	}
	if n := len(f.events.Types()); n == 0 {
		t.Error("expected finalize events to be published")
	}
}

func TestPollService_VoteIdentityModesShareBallot(t *testing.T) {
	tests := []struct {
		name       string
		firstAnon  bool
		secondAnon bool
	}{
		{name: "identified then anonymous", firstAnon: false, secondAnon: true},
		{name: "anonymous then identified", firstAnon: true, secondAnon: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			details := f.create(t, func(p *model.Poll) { p.MaxVotesPerParticipant = 2 })
			pollID := details.Poll.ID

			f.vote(t, pollID, "ana@example.com", tt.firstAnon, details.Slots[0].ID, details.Slots[1].ID)
			got := f.vote(t, pollID, "Ana@Example.com", tt.secondAnon, details.Slots[1].ID, details.Slots[2].ID)
			assertCounts(t, got, 0, 1, 1)

			votes, err := f.repo.FindVotes(context.Background(), pollID)
			if err != nil {
				t.Fatalf("FindVotes() error = %v", err)
			}
			if len(votes) != 2 {
				t.Fatalf("stored votes = %d, want 2", len(votes))
			}
			for _, v := range votes {
				if anonymous := v.ParticipantEmail == ""; anonymous != tt.secondAnon {
					t.Errorf("vote %+v does not come from the latest ballot", v)
				}
			}
		})
	}
}

func TestPollService_CloseAndCloseExpired(t *testing.T) {
	f := newFixture(t)
	deadline := f.clock.Now().Add(time.Hour)
	due := f.create(t, func(p *model.Poll) { p.Deadline = &deadline })
	open := f.create(t, nil)

	f.clock.Advance(90 * time.Minute)

	_, err := f.svc.Vote(context.Background(), due.Poll.ID, &model.Participant{Email: "a@example.com"}, []string{due.Slots[0].ID})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("Vote() past deadline error = %v, want CONFLICT", err)
	}

	n, err := f.svc.CloseExpired(context.Background())
	if err != nil {
		t.Fatalf("CloseExpired() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("closed = %d, want 1", n)
	}

	got, _ := f.svc.GetPoll(context.Background(), due.Poll.ID)
	if got.Poll.Status != model.PollClosed {
		t.Errorf("status = %s, want closed", got.Poll.Status)
	}

	closed, err := f.svc.ClosePoll(context.Background(), open.Poll.ID)
	if err != nil || closed.Status != model.PollClosed {
		t.Fatalf("ClosePoll() = %+v, %v", closed, err)
	}
	if again, err := f.svc.ClosePoll(context.Background(), open.Poll.ID); err != nil || again.Status != model.PollClosed {
		t.Errorf("second ClosePoll() = %+v, %v", again, err)
	}

	// A closed poll can still be finalized by override.
	if _, err := f.svc.FinalizePoll(context.Background(), open.Poll.ID, open.Slots[0].ID); err != nil {
		t.Errorf("FinalizePoll(closed) error = %v", err)
	}
	if _, err := f.svc.ClosePoll(context.Background(), open.Poll.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("ClosePoll(finalized) error = %v, want CONFLICT", err)
	}
}
