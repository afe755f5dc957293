package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	requesterrors "rendezvous/internal/requests/errors"
	"rendezvous/pkg/config"
	mongotx "rendezvous/pkg/db/mongo"
	"rendezvous/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Booking_requests"
)

// Changes are the fields a status transition may set alongside the new status. Nil and empty
// values are left untouched.
type Changes struct {
	ConfirmationConsumedAt *time.Time
	ApprovalToken          string
	ApprovalExpiresAt      *time.Time
	ApprovalConsumedAt     *time.Time
	DecidedAt              *time.Time
	DeclineReason          string
	ConflictingBookingIDs  []string
	BookingID              string
	UpdatedAt              time.Time
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.BookingRequest) error
	FindByID(ctx context.Context, id string) (*model.BookingRequest, error)
	// Transition moves the request from -> to only if it is still in from. Otherwise it returns
	// ErrStaleState.
	Transition(ctx context.Context, id string, from, to model.RequestStatus, changes Changes) (*model.BookingRequest, error)
	// FindExpired returns pending requests whose current token expired at or before now.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.BookingRequest, error)
}

type mongoRequestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRequestRepository(cfg *config.Config) RequestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRequestRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoRequestRepository) Create(ctx context.Context, req *model.BookingRequest) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to create booking request: %w", err)
	}
	return nil
}

func (r *mongoRequestRepository) FindByID(ctx context.Context, id string) (*model.BookingRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var req model.BookingRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, requesterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking request: %w", err)
	}
	return &req, nil
}

func (r *mongoRequestRepository) Transition(ctx context.Context, id string, from, to model.RequestStatus, changes Changes) (*model.BookingRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": changeSet(to, changes)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req model.BookingRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update booking request: %w", err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, requesterrors.ErrStaleState
}

func (r *mongoRequestRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.BookingRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"status": model.RequestPendingConfirmation, "confirmation_expires_at": bson.M{"$lte": now}},
		{"status": model.RequestPendingHostApproval, "approval_expires_at": bson.M{"$lte": now}},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired booking requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []model.BookingRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode booking requests: %w", err)
	}
	return requests, nil
}

func changeSet(to model.RequestStatus, c Changes) bson.M {
	set := bson.M{"status": to, "updated_at": c.UpdatedAt}
	if c.ConfirmationConsumedAt != nil {
		set["confirmation_consumed_at"] = *c.ConfirmationConsumedAt
	}
	if c.ApprovalToken != "" {
		set["approval_token"] = c.ApprovalToken
	}
	if c.ApprovalExpiresAt != nil {
		set["approval_expires_at"] = *c.ApprovalExpiresAt
	}
	if c.ApprovalConsumedAt != nil {
		set["approval_consumed_at"] = *c.ApprovalConsumedAt
	}
	if c.DecidedAt != nil {
		set["decided_at"] = *c.DecidedAt
	}
	if c.DeclineReason != "" {
		set["decline_reason"] = c.DeclineReason
	}
	if len(c.ConflictingBookingIDs) > 0 {
		set["conflicting_booking_ids"] = c.ConflictingBookingIDs
	}
	if c.BookingID != "" {
		set["booking_id"] = c.BookingID
	}
	return set
}
