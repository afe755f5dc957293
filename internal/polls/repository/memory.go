package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	pollerrors "rendezvous/internal/polls/errors"
	mongotx "rendezvous/pkg/db/mongo"
	"rendezvous/pkg/model"
)

// memoryPollRepository keeps polls, slots and votes behind one mutex so a vote replacement and
// its recount are a single step.
type memoryPollRepository struct {
	mu        sync.RWMutex
	polls     map[string]model.Poll
	slots     map[string][]model.PollTimeSlot
	votes     map[string][]model.PollVote
	txManager mongotx.TransactionManager
}

func NewMemoryPollRepository() PollRepository {
	return &memoryPollRepository{
		polls:     map[string]model.Poll{},
		slots:     map[string][]model.PollTimeSlot{},
		votes:     map[string][]model.PollVote{},
		txManager: mongotx.NewPassthroughTransactionManager(),
	}
}

func (r *memoryPollRepository) Create(_ context.Context, poll *model.Poll, slots []model.PollTimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.polls[poll.ID] = clonePoll(*poll)
	r.slots[poll.ID] = append([]model.PollTimeSlot(nil), slots...)
	return nil
}

func (r *memoryPollRepository) FindByID(_ context.Context, id string) (*model.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	poll, ok := r.polls[id]
	if !ok {
		return nil, pollerrors.ErrNotFound
	}
	poll = clonePoll(poll)
	return &poll, nil
}

func (r *memoryPollRepository) FindSlots(_ context.Context, pollID string) ([]model.PollTimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slots := append([]model.PollTimeSlot{}, r.slots[pollID]...)
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slots[i].ID < slots[j].ID
	})
	return slots, nil
}

func (r *memoryPollRepository) FindVotes(_ context.Context, pollID string) ([]model.PollVote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.PollVote{}, r.votes[pollID]...), nil
}

func (r *memoryPollRepository) ReplaceVotes(_ context.Context, pollID string, participantIDs []string, votes []model.PollVote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	poll, ok := r.polls[pollID]
	if !ok {
		return pollerrors.ErrNotFound
	}
	if poll.Status != model.PollActive {
		return pollerrors.ErrStaleState
	}
	poll.VoteRevision++
	r.polls[pollID] = poll

	var previous []model.PollVote
	kept := make([]model.PollVote, 0, len(r.votes[pollID])+len(votes))
	for _, v := range r.votes[pollID] {
		if slices.Contains(participantIDs, v.ParticipantID) {
			previous = append(previous, v)
			continue
		}
		kept = append(kept, v)
	}
	kept = append(kept, votes...)
	r.votes[pollID] = kept

	counts := make(map[string]int, len(kept))
	for _, v := range kept {
		counts[v.SlotID]++
	}
	slots := r.slots[pollID]
	for _, id := range affectedSlots(previous, votes) {
		for i := range slots {
			if slots[i].ID == id {
				slots[i].VoteCount = counts[id]
			}
		}
	}
	return nil
}

func (r *memoryPollRepository) Transition(_ context.Context, id string, from, to model.PollStatus, changes Changes) (*model.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	poll, ok := r.polls[id]
	if !ok {
		return nil, pollerrors.ErrNotFound
	}
	if poll.Status != from {
		return nil, pollerrors.ErrStaleState
	}
	if changes.VoteRevision != nil && poll.VoteRevision != *changes.VoteRevision {
		return nil, pollerrors.ErrStaleState
	}

	poll.Status = to
	poll.UpdatedAt = changes.UpdatedAt
	if changes.SelectedSlotID != "" {
		poll.SelectedSlotID = changes.SelectedSlotID
	}
	if changes.BookingID != "" {
		poll.BookingID = changes.BookingID
	}
	r.polls[id] = poll

	out := clonePoll(poll)
	return &out, nil
}

func (r *memoryPollRepository) FindPastDeadline(_ context.Context, now time.Time, limit int) ([]model.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	polls := []model.Poll{}
	for _, poll := range r.polls {
		if poll.Status == model.PollActive && poll.Deadline != nil && !poll.Deadline.After(now) {
			polls = append(polls, clonePoll(poll))
		}
	}

	sort.Slice(polls, func(i, j int) bool { return polls[i].Deadline.Before(*polls[j].Deadline) })
	if limit > 0 && len(polls) > limit {
		polls = polls[:limit]
	}
	return polls, nil
}

func (r *memoryPollRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func clonePoll(p model.Poll) model.Poll {
	if p.Deadline != nil {
		deadline := *p.Deadline
		p.Deadline = &deadline
	}
	if p.Notifications.ReminderBeforeDeadlineMin != nil {
		reminder := *p.Notifications.ReminderBeforeDeadlineMin
		p.Notifications.ReminderBeforeDeadlineMin = &reminder
	}
	return p
}
