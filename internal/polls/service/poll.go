package service

import (
	"context"
	"errors"
	"sort"

	"rendezvous/internal/conflicts"
	"rendezvous/internal/events"
	pollerrors "rendezvous/internal/polls/errors"
	"rendezvous/internal/polls/repository"
	"rendezvous/internal/polls/validator"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/locale"
	"rendezvous/pkg/model"
	"rendezvous/pkg/sanitizer"
	"rendezvous/pkg/validation"

	"github.com/google/uuid"
)

const closeBatchSize = 500

var errPollChanged = errors.New("poll changed during finalization")

type BookingCommitter interface {
	Commit(ctx context.Context, booking *model.Booking, padding conflicts.Padding, within func(ctx context.Context) error) error
}

// ParticipantHasher derives the stable identifier of an anonymous voter.
type ParticipantHasher interface {
	Hash(value string) string
}

type PollService interface {
	CreatePoll(ctx context.Context, input *model.PollInput) (*model.PollDetails, error)
	GetPoll(ctx context.Context, id string) (*model.PollDetails, error)
	Vote(ctx context.Context, pollID string, participant *model.Participant, slotIDs []string) (*model.PollDetails, error)
	ClosePoll(ctx context.Context, id string) (*model.Poll, error)
	FinalizePoll(ctx context.Context, id, overrideSlotID string) (*model.Booking, error)
	CloseExpired(ctx context.Context) (int, error)
}

type pollService struct {
	repo      repository.PollRepository
	validator *validator.PollValidator
	committer BookingCommitter
	hasher    ParticipantHasher
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewPollService(
	repo repository.PollRepository,
	validator *validator.PollValidator,
	committer BookingCommitter,
	hasher ParticipantHasher,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) PollService {
	return &pollService{
		repo:      repo,
		validator: validator,
		committer: committer,
		hasher:    hasher,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *pollService) CreatePoll(ctx context.Context, input *model.PollInput) (*model.PollDetails, error) {
	now := s.clock.Now()
	poll := &input.Poll
	s.sanitizePoll(poll)
	if poll.MaxVotesPerParticipant == 0 {
		poll.MaxVotesPerParticipant = len(input.Slots)
	}

	if err := s.validator.ValidateInput(input, now); err != nil {
		s.cfg.Log.Warn("Poll validation failed", "owner_id", poll.OwnerID, "error", err)
		return nil, validation.ToAppError("Invalid poll", err)
	}

	poll.ID = uuid.New().String()
	poll.Status = model.PollActive
	poll.SelectedSlotID = ""
	poll.BookingID = ""
	poll.CreatedAt = now
	poll.UpdatedAt = now

	slots := make([]model.PollTimeSlot, len(input.Slots))
	for i, in := range input.Slots {
		slots[i] = model.PollTimeSlot{
			ID:        uuid.New().String(),
			PollID:    poll.ID,
			StartTime: in.StartTime.UTC(),
			EndTime:   in.EndTime.UTC(),
			Available: true,
		}
	}
	sortSlots(slots)

	if err := s.repo.Create(ctx, poll, slots); err != nil {
		s.cfg.Log.Error("Failed to create poll", "owner_id", poll.OwnerID, "error", err)
		return nil, apperrors.Internal("Failed to create poll", err)
	}

	s.cfg.Log.Info("Poll created successfully",
		"id", poll.ID,
		"owner_id", poll.OwnerID,
		"slots", len(slots),
		"allow_anonymous", poll.AllowAnonymous,
	)
	details := &model.PollDetails{Poll: poll, Slots: slots}
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.PollCreated, poll.ID, poll.OwnerID, now, details))
	return details, nil
}

func (s *pollService) sanitizePoll(poll *model.Poll) {
	poll.OwnerID = sanitizer.TrimAndNormalize(poll.OwnerID)
	poll.Title = sanitizer.TrimAndNormalize(poll.Title)
	poll.Description = sanitizer.TrimAndNormalize(poll.Description)
	poll.OrganizerName = sanitizer.NormalizeName(poll.OrganizerName)
	poll.OrganizerEmail = sanitizer.NormalizeEmail(poll.OrganizerEmail)
	poll.TimeZone = locale.IANAName(poll.TimeZone)
	if poll.Deadline != nil {
		deadline := poll.Deadline.UTC()
		poll.Deadline = &deadline
	}
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*model.PollDetails, error) {
	poll, err := s.findPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, err := s.repo.FindSlots(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to retrieve poll time slots", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve poll time slots", err)
	}
	return &model.PollDetails{Poll: poll, Slots: slots}, nil
}

// Vote replaces the participant's votes in the poll with slotIDs. An empty list withdraws them.
func (s *pollService) Vote(ctx context.Context, pollID string, participant *model.Participant, slotIDs []string) (*model.PollDetails, error) {
	now := s.clock.Now()
	participant.Name = sanitizer.NormalizeName(participant.Name)
	participant.Email = sanitizer.NormalizeEmail(participant.Email)
	if err := s.validator.ValidateParticipant(participant); err != nil {
		return nil, validation.ToAppError("Invalid participant", err)
	}

	details, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	poll := details.Poll

	if poll.Status != model.PollActive {
		return nil, apperrors.Conflict("Poll is " + string(poll.Status) + " and no longer accepts votes")
	}
	if poll.Deadline != nil && !now.Before(*poll.Deadline) {
		return nil, apperrors.Conflict("Poll deadline has passed")
	}
	if participant.Anonymous && !poll.AllowAnonymous {
		return nil, apperrors.Validation("Poll does not allow anonymous votes", map[string]any{"anonymous": true})
	}

	chosen := sanitizer.NormalizeStringSlice(slotIDs, sanitizer.TrimAndNormalize)
	if len(chosen) > poll.MaxVotesPerParticipant {
		return nil, apperrors.Validation("Too many slots selected", map[string]any{
			"max_votes_per_participant": poll.MaxVotesPerParticipant,
			"selected":                  len(chosen),
		})
	}

	open := make(map[string]bool, len(details.Slots))
	for _, slot := range details.Slots {
		open[slot.ID] = slot.Available
	}

	// One email is one voter whichever way it votes, so a new ballot replaces both identities.
	hashedID := s.hasher.Hash(participant.Email)
	participantID := participant.Email
	name, email := participant.Name, participant.Email
	if participant.Anonymous {
		participantID = hashedID
		name, email = "", ""
	}

	votes := make([]model.PollVote, 0, len(chosen))
	for _, slotID := range chosen {
		available, ok := open[slotID]
		if !ok || !available {
			return nil, apperrors.Validation("Slot is not part of this poll", map[string]any{"slot_id": slotID})
		}
		votes = append(votes, model.PollVote{
			ID:               uuid.New().String(),
			PollID:           pollID,
			SlotID:           slotID,
			ParticipantID:    participantID,
			ParticipantName:  name,
			ParticipantEmail: email,
			CreatedAt:        now,
		})
	}

	if err := s.repo.ReplaceVotes(ctx, pollID, []string{participant.Email, hashedID}, votes); err != nil {
		switch {
		case errors.Is(err, pollerrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Poll", pollID)
		case errors.Is(err, pollerrors.ErrStaleState):
			return nil, apperrors.Conflict("Poll no longer accepts votes")
		}
		s.cfg.Log.Error("Failed to record votes", "poll_id", pollID, "error", err)
		return nil, apperrors.Internal("Failed to record votes", err)
	}

	s.cfg.Log.Info("Poll votes recorded successfully", "poll_id", pollID, "votes", len(votes), "anonymous", participant.Anonymous)

	updated, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Notifications.NotifyOnVote {
		events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.PollVoted, pollID, poll.OwnerID, now, updated))
	}
	return updated, nil
}

// ClosePoll stops voting. Closing a closed poll is a no-op.
func (s *pollService) ClosePoll(ctx context.Context, id string) (*model.Poll, error) {
	now := s.clock.Now()
	poll, err := s.findPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll.Status == model.PollClosed {
		return poll, nil
	}
	if !poll.Status.CanTransitionTo(model.PollClosed) {
		return nil, apperrors.Conflict("Poll is already " + string(poll.Status))
	}

	closed, err := s.repo.Transition(ctx, id, model.PollActive, model.PollClosed, repository.Changes{UpdatedAt: now})
	if errors.Is(err, pollerrors.ErrStaleState) {
		return s.ClosePoll(ctx, id)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to close poll", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to close poll", err)
	}

	s.cfg.Log.Info("Poll closed successfully", "id", id)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.PollClosed, id, closed.OwnerID, now, closed))
	return closed, nil
}

// FinalizePoll books the winning slot for the organizer. overrideSlotID, when set, replaces the
// tally. A conflicting booking leaves the poll as it was.
func (s *pollService) FinalizePoll(ctx context.Context, id, overrideSlotID string) (*model.Booking, error) {
	now := s.clock.Now()
	details, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	poll := details.Poll
	if !poll.Status.CanTransitionTo(model.PollFinalized) {
		return nil, apperrors.Conflict("Poll is already " + string(poll.Status))
	}

	winner, err := selectWinner(details.Slots, sanitizer.TrimAndNormalize(overrideSlotID))
	if err != nil {
		return nil, err
	}

	votes, err := s.repo.FindVotes(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to retrieve poll votes", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve poll votes", err)
	}

	booking := &model.Booking{
		ID:         uuid.New().String(),
		OwnerID:    poll.OwnerID,
		PollID:     poll.ID,
		Title:      poll.Title,
		GuestName:  poll.OrganizerName,
		GuestEmail: poll.OrganizerEmail,
		Attendees:  attendees(votes, winner.ID),
		StartTime:  winner.StartTime,
		EndTime:    winner.EndTime,
		CreatedAt:  now,
	}

	// The tally above is only valid if no vote lands before the status flips.
	revision := poll.VoteRevision
	err = s.committer.Commit(ctx, booking, conflicts.Padding{}, func(txCtx context.Context) error {
		_, err := s.repo.Transition(txCtx, id, poll.Status, model.PollFinalized, repository.Changes{
			SelectedSlotID: winner.ID,
			BookingID:      booking.ID,
			UpdatedAt:      now,
			VoteRevision:   &revision,
		})
		if errors.Is(err, pollerrors.ErrStaleState) {
			return errPollChanged
		}
		return err
	})
	if err != nil {
		if errors.Is(err, errPollChanged) {
			return nil, apperrors.Conflict("Poll changed while finalizing")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to finalize poll", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to finalize poll", err)
	}

	s.cfg.Log.Info("Poll finalized successfully",
		"id", id,
		"selected_slot_id", winner.ID,
		"booking_id", booking.ID,
		"override", overrideSlotID != "",
	)
	if poll.Notifications.NotifyOnFinalize {
		events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.PollFinalized, id, poll.OwnerID, now, booking))
	}
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.BookingConfirmed, booking.ID, booking.OwnerID, now, booking))
	return booking, nil
}

// CloseExpired closes active polls whose deadline passed and returns how many it closed.
func (s *pollService) CloseExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	due, err := s.repo.FindPastDeadline(ctx, now, closeBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to find polls past deadline", "error", err)
		return 0, apperrors.Internal("Failed to find polls past deadline", err)
	}

	closed := 0
	for i := range due {
		poll, err := s.repo.Transition(ctx, due[i].ID, model.PollActive, model.PollClosed, repository.Changes{UpdatedAt: now})
		if errors.Is(err, pollerrors.ErrStaleState) {
			continue
		}
		if err != nil {
			s.cfg.Log.Error("Failed to close poll", "id", due[i].ID, "error", err)
			return closed, apperrors.Internal("Failed to close poll", err)
		}
		closed++
		events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.PollClosed, poll.ID, poll.OwnerID, now, poll))
	}

	if closed > 0 {
		s.cfg.Log.Info("Closed polls past deadline", "count", closed)
	}
	return closed, nil
}

func (s *pollService) findPoll(ctx context.Context, id string) (*model.Poll, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Poll ID cannot be empty")
	}
	poll, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pollerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Poll", id)
		}
		s.cfg.Log.Error("Failed to retrieve poll", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve poll", err)
	}
	return poll, nil
}

// selectWinner picks the slot with the strictly highest vote count, breaking ties by earliest
// start and then slot id.
func selectWinner(slots []model.PollTimeSlot, overrideSlotID string) (*model.PollTimeSlot, error) {
	if overrideSlotID != "" {
		for i := range slots {
			if slots[i].ID == overrideSlotID {
				return &slots[i], nil
			}
		}
		return nil, apperrors.Validation("Override slot is not part of this poll", map[string]any{"slot_id": overrideSlotID})
	}

	var winner *model.PollTimeSlot
	for i := range slots {
		slot := &slots[i]
		if slot.VoteCount == 0 {
			continue
		}
		if winner == nil || beats(slot, winner) {
			winner = slot
		}
	}
	if winner == nil {
		return nil, apperrors.Validation("Poll has no votes; choose a slot explicitly", nil)
	}
	return winner, nil
}

func beats(a, b *model.PollTimeSlot) bool {
	if a.VoteCount != b.VoteCount {
		return a.VoteCount > b.VoteCount
	}
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.ID < b.ID
}

// attendees lists the identified voters of a slot. Anonymous votes carry no contact details.
func attendees(votes []model.PollVote, slotID string) []model.Attendee {
	var out []model.Attendee
	for _, v := range votes {
		if v.SlotID != slotID || v.ParticipantEmail == "" {
			continue
		}
		name := v.ParticipantName
		if name == "" {
			name = v.ParticipantEmail
		}
		out = append(out, model.Attendee{Name: name, Email: v.ParticipantEmail})
	}
	return out
}

func sortSlots(slots []model.PollTimeSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slots[i].ID < slots[j].ID
	})
}
