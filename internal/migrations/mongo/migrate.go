package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	availabilityrepo "rendezvous/internal/availability/repository"
	bookingrepo "rendezvous/internal/bookings/repository"
	busyrepo "rendezvous/internal/busy/repository"
	"rendezvous/internal/migrations/mongo/validators"
	pollrepo "rendezvous/internal/polls/repository"
	requestrepo "rendezvous/internal/requests/repository"
)

var (
	RulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "day_of_week", Value: 1}}},
	}

	EventTypesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "owner_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "request_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "poll_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	// Abandoned owner locks are reaped by Mongo once expires_at passes.
	BookingLocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}

	BookingRequestsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "confirmation_expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "approval_expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	PollsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	PollTimeSlotsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "poll_id", Value: 1}, {Key: "start_time", Value: 1}}},
	}

	// One live vote per participant and slot.
	PollVotesIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "poll_id", Value: 1},
				{Key: "participant_id", Value: 1},
				{Key: "slot_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "poll_id", Value: 1}, {Key: "slot_id", Value: 1}}},
	}

	BusyBlocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "start_time", Value: 1}, {Key: "end_time", Value: 1}}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running rendezvous Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		availabilityrepo.RulesCollectionName:      {Indexes: RulesIndexes},
		availabilityrepo.EventTypesCollectionName: {Indexes: EventTypesIndexes},
		bookingrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		bookingrepo.LockCollectionName: {Indexes: BookingLocksIndexes},
		requestrepo.CollectionName: {
			Indexes:   BookingRequestsIndexes,
			Validator: validators.BookingRequestValidator,
		},
		pollrepo.CollectionName: {
			Indexes:   PollsIndexes,
			Validator: validators.PollValidator,
		},
		pollrepo.SlotsCollectionName: {
			Indexes:   PollTimeSlotsIndexes,
			Validator: validators.PollTimeSlotValidator,
		},
		pollrepo.VotesCollectionName: {Indexes: PollVotesIndexes},
		busyrepo.CollectionName:      {Indexes: BusyBlocksIndexes},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	fmt.Printf("ℹ️ Collection %s already exists, updating validator if needed\n", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
