package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pollerrors "rendezvous/internal/polls/errors"
	"rendezvous/pkg/config"
	mongotx "rendezvous/pkg/db/mongo"
	"rendezvous/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName      = "Polls"
	SlotsCollectionName = "Poll_time_slots"
	VotesCollectionName = "Poll_votes"
)

// Changes are the fields a poll status transition may set. Empty values are left untouched.
// A non-nil VoteRevision makes the transition fail with ErrStaleState unless the poll's vote
// revision still equals it.
type Changes struct {
	SelectedSlotID string
	BookingID      string
	UpdatedAt      time.Time
	VoteRevision   *int64
}

type PollRepository interface {
	Create(ctx context.Context, poll *model.Poll, slots []model.PollTimeSlot) error
	FindByID(ctx context.Context, id string) (*model.Poll, error)
	// FindSlots returns the poll's slots ordered by start time, then id.
	FindSlots(ctx context.Context, pollID string) ([]model.PollTimeSlot, error)
	FindVotes(ctx context.Context, pollID string) ([]model.PollVote, error)
	// ReplaceVotes swaps the live votes held under any of participantIDs for votes, recounts every
	// slot either set touches and bumps the poll's vote revision. It fails with ErrStaleState once
	// the poll is no longer active.
	ReplaceVotes(ctx context.Context, pollID string, participantIDs []string, votes []model.PollVote) error
	Transition(ctx context.Context, id string, from, to model.PollStatus, changes Changes) (*model.Poll, error)
	// FindPastDeadline returns active polls whose deadline is at or before now.
	FindPastDeadline(ctx context.Context, now time.Time, limit int) ([]model.Poll, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoPollRepository struct {
	cfg       *config.Config
	polls     *mongo.Collection
	slots     *mongo.Collection
	votes     *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoPollRepository(cfg *config.Config) PollRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPollRepository{
		cfg:       cfg,
		polls:     db.Collection(CollectionName),
		slots:     db.Collection(SlotsCollectionName),
		votes:     db.Collection(VotesCollectionName),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoPollRepository) Create(ctx context.Context, poll *model.Poll, slots []model.PollTimeSlot) error {
	return r.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		ctx, cancel := mongotx.WithTimeout(txCtx, r.cfg.WriteTimeout)
		defer cancel()

		if _, err := r.polls.InsertOne(ctx, poll); err != nil {
			return fmt.Errorf("failed to create poll: %w", err)
		}

		docs := make([]any, len(slots))
		for i := range slots {
			docs[i] = slots[i]
		}
		if _, err := r.slots.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to create poll time slots: %w", err)
		}
		return nil
	})
}

func (r *mongoPollRepository) FindByID(ctx context.Context, id string) (*model.Poll, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var poll model.Poll
	if err := r.polls.FindOne(ctx, bson.M{"_id": id}).Decode(&poll); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pollerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find poll: %w", err)
	}
	return &poll, nil
}

func (r *mongoPollRepository) FindSlots(ctx context.Context, pollID string) ([]model.PollTimeSlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.slots.Find(ctx, bson.M{"poll_id": pollID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find poll time slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []model.PollTimeSlot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode poll time slots: %w", err)
	}
	return slots, nil
}

func (r *mongoPollRepository) FindVotes(ctx context.Context, pollID string) ([]model.PollVote, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.votes.Find(ctx, bson.M{"poll_id": pollID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find poll votes: %w", err)
	}
	defer cursor.Close(ctx)

	votes := []model.PollVote{}
	if err = cursor.All(ctx, &votes); err != nil {
		return nil, fmt.Errorf("failed to decode poll votes: %w", err)
	}
	return votes, nil
}

func (r *mongoPollRepository) ReplaceVotes(ctx context.Context, pollID string, participantIDs []string, votes []model.PollVote) error {
	return r.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		ctx, cancel := mongotx.WithTimeout(txCtx, r.cfg.WriteTimeout)
		defer cancel()

		// Writing the poll document makes a concurrent finalize conflict with this transaction.
		bumped, err := r.polls.UpdateOne(ctx,
			bson.M{"_id": pollID, "status": model.PollActive},
			bson.M{"$inc": bson.M{"vote_revision": 1}},
		)
		if err != nil {
			return fmt.Errorf("failed to bump poll vote revision: %w", err)
		}
		if bumped.MatchedCount == 0 {
			if _, err := r.FindByID(ctx, pollID); err != nil {
				return err
			}
			return pollerrors.ErrStaleState
		}

		owned := bson.M{"poll_id": pollID, "participant_id": bson.M{"$in": participantIDs}}
		cursor, err := r.votes.Find(ctx, owned)
		if err != nil {
			return fmt.Errorf("failed to find participant votes: %w", err)
		}
		var previous []model.PollVote
		if err = cursor.All(ctx, &previous); err != nil {
			return fmt.Errorf("failed to decode participant votes: %w", err)
		}

		if _, err := r.votes.DeleteMany(ctx, owned); err != nil {
			return fmt.Errorf("failed to delete participant votes: %w", err)
		}
		if len(votes) > 0 {
			docs := make([]any, len(votes))
			for i := range votes {
				docs[i] = votes[i]
			}
			if _, err := r.votes.InsertMany(ctx, docs); err != nil {
				return fmt.Errorf("failed to insert participant votes: %w", err)
			}
		}

		for _, slotID := range affectedSlots(previous, votes) {
			count, err := r.votes.CountDocuments(ctx, bson.M{"poll_id": pollID, "slot_id": slotID})
			if err != nil {
				return fmt.Errorf("failed to count votes: %w", err)
			}
			update := bson.M{"$set": bson.M{"vote_count": int(count)}}
			if _, err := r.slots.UpdateOne(ctx, bson.M{"_id": slotID, "poll_id": pollID}, update); err != nil {
				return fmt.Errorf("failed to update vote count: %w", err)
			}
		}
		return nil
	})
}

func (r *mongoPollRepository) Transition(ctx context.Context, id string, from, to model.PollStatus, changes Changes) (*model.Poll, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{"status": to, "updated_at": changes.UpdatedAt}
	if changes.SelectedSlotID != "" {
		set["selected_slot_id"] = changes.SelectedSlotID
	}
	if changes.BookingID != "" {
		set["booking_id"] = changes.BookingID
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	filter := bson.M{"_id": id, "status": from}
	if changes.VoteRevision != nil {
		filter["vote_revision"] = *changes.VoteRevision
	}

	var poll model.Poll
	err := r.polls.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&poll)
	if err == nil {
		return &poll, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update poll: %w", err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, pollerrors.ErrStaleState
}

func (r *mongoPollRepository) FindPastDeadline(ctx context.Context, now time.Time, limit int) ([]model.Poll, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"status": model.PollActive, "deadline": bson.M{"$lte": now}}
	opts := options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.polls.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find polls past deadline: %w", err)
	}
	defer cursor.Close(ctx)

	polls := []model.Poll{}
	if err = cursor.All(ctx, &polls); err != nil {
		return nil, fmt.Errorf("failed to decode polls: %w", err)
	}
	return polls, nil
}

func (r *mongoPollRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// affectedSlots is the union of slot ids in both vote sets, in first-seen order.
func affectedSlots(previous, next []model.PollVote) []string {
	seen := make(map[string]bool, len(previous)+len(next))
	ids := make([]string, 0, len(previous)+len(next))
	for _, set := range [][]model.PollVote{previous, next} {
		for _, v := range set {
			if !seen[v.SlotID] {
				seen[v.SlotID] = true
				ids = append(ids, v.SlotID)
			}
		}
	}
	return ids
}
