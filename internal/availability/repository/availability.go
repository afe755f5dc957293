package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	availabilityerrors "rendezvous/internal/availability/errors"
	"rendezvous/pkg/config"
	mongotx "rendezvous/pkg/db/mongo"
	"rendezvous/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RulesCollectionName      = "Availability_rules"
	EventTypesCollectionName = "Event_types"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *model.AvailabilityRule) error
	FindByOwner(ctx context.Context, ownerID string) ([]model.AvailabilityRule, error)
	Delete(ctx context.Context, id string) error
}

type EventTypeRepository interface {
	Create(ctx context.Context, et *model.EventType) error
	FindByID(ctx context.Context, id string) (*model.EventType, error)
	FindByOwner(ctx context.Context, ownerID string) ([]model.EventType, error)
}

type mongoRuleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRuleRepository(cfg *config.Config) RuleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRuleRepository{
		cfg:        cfg,
		collection: db.Collection(RulesCollectionName),
	}
}

func (r *mongoRuleRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	rule.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, rule); err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}
	return nil
}

func (r *mongoRuleRepository) FindByOwner(ctx context.Context, ownerID string) ([]model.AvailabilityRule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "day_of_week", Value: 1}, {Key: "start_time", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability rules: %w", err)
	}
	defer cursor.Close(ctx)

	rules := []model.AvailabilityRule{}
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode availability rules: %w", err)
	}
	return rules, nil
}

func (r *mongoRuleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete availability rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return availabilityerrors.ErrRuleNotFound
	}
	return nil
}

type mongoEventTypeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEventTypeRepository(cfg *config.Config) EventTypeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEventTypeRepository{
		cfg:        cfg,
		collection: db.Collection(EventTypesCollectionName),
	}
}

func (r *mongoEventTypeRepository) Create(ctx context.Context, et *model.EventType) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	et.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, et); err != nil {
		return fmt.Errorf("failed to create event type: %w", err)
	}
	return nil
}

func (r *mongoEventTypeRepository) FindByID(ctx context.Context, id string) (*model.EventType, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var et model.EventType
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&et); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrEventTypeNotFound
		}
		return nil, fmt.Errorf("failed to find event type: %w", err)
	}
	return &et, nil
}

func (r *mongoEventTypeRepository) FindByOwner(ctx context.Context, ownerID string) ([]model.EventType, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find event types: %w", err)
	}
	defer cursor.Close(ctx)

	types := []model.EventType{}
	if err = cursor.All(ctx, &types); err != nil {
		return nil, fmt.Errorf("failed to decode event types: %w", err)
	}
	return types, nil
}
