package repository

import (
	"context"
	"fmt"
	"time"

	"rendezvous/pkg/config"
	mongotx "rendezvous/pkg/db/mongo"
	"rendezvous/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Busy_blocks"
)

type BusyRepository interface {
	FindInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error)
	// ReplaceForSource swaps every block of (ownerID, source) for blocks in one unit of work.
	ReplaceForSource(ctx context.Context, ownerID, source string, blocks []model.BusyBlock) error
}

type mongoBusyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBusyRepository(cfg *config.Config) BusyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBusyRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBusyRepository) FindInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"owner_id":   ownerID,
		"start_time": bson.M{"$lt": to},
		"end_time":   bson.M{"$gt": from},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find busy blocks: %w", err)
	}
	defer cursor.Close(ctx)

	blocks := []model.BusyBlock{}
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode busy blocks: %w", err)
	}
	return blocks, nil
}

func (r *mongoBusyRepository) ReplaceForSource(ctx context.Context, ownerID, source string, blocks []model.BusyBlock) error {
	return r.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		ctx, cancel := mongotx.WithTimeout(txCtx, r.cfg.WriteTimeout)
		defer cancel()

		if _, err := r.collection.DeleteMany(ctx, bson.M{"owner_id": ownerID, "source": source}); err != nil {
			return fmt.Errorf("failed to clear busy blocks: %w", err)
		}
		if len(blocks) == 0 {
			return nil
		}

		docs := make([]any, len(blocks))
		for i := range blocks {
			docs[i] = blocks[i]
		}
		if _, err := r.collection.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert busy blocks: %w", err)
		}
		return nil
	})
}
