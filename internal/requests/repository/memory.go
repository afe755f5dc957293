package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	requesterrors "rendezvous/internal/requests/errors"
	"rendezvous/pkg/model"
)

type memoryRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]model.BookingRequest
}

func NewMemoryRequestRepository() RequestRepository {
	return &memoryRequestRepository{requests: map[string]model.BookingRequest{}}
}

func (r *memoryRequestRepository) Create(_ context.Context, req *model.BookingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r *memoryRequestRepository) FindByID(_ context.Context, id string) (*model.BookingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, requesterrors.ErrNotFound
	}
	req = cloneRequest(req)
	return &req, nil
}

func (r *memoryRequestRepository) Transition(_ context.Context, id string, from, to model.RequestStatus, c Changes) (*model.BookingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, requesterrors.ErrNotFound
	}
	if req.Status != from {
		return nil, requesterrors.ErrStaleState
	}

	req.Status = to
	req.UpdatedAt = c.UpdatedAt
	if c.ConfirmationConsumedAt != nil {
		req.ConfirmationConsumedAt = c.ConfirmationConsumedAt
	}
	if c.ApprovalToken != "" {
		req.ApprovalToken = c.ApprovalToken
	}
	if c.ApprovalExpiresAt != nil {
		req.ApprovalExpiresAt = c.ApprovalExpiresAt
	}
	if c.ApprovalConsumedAt != nil {
		req.ApprovalConsumedAt = c.ApprovalConsumedAt
	}
	if c.DecidedAt != nil {
		req.DecidedAt = c.DecidedAt
	}
	if c.DeclineReason != "" {
		req.DeclineReason = c.DeclineReason
	}
	if len(c.ConflictingBookingIDs) > 0 {
		req.ConflictingBookingIDs = append([]string(nil), c.ConflictingBookingIDs...)
	}
	if c.BookingID != "" {
		req.BookingID = c.BookingID
	}
	r.requests[id] = req

	out := cloneRequest(req)
	return &out, nil
}

func (r *memoryRequestRepository) FindExpired(_ context.Context, now time.Time, limit int) ([]model.BookingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expired := []model.BookingRequest{}
	for _, req := range r.requests {
		switch {
		case req.Status == model.RequestPendingConfirmation && !req.ConfirmationExpiresAt.After(now):
		case req.Status == model.RequestPendingHostApproval && req.ApprovalExpiresAt != nil && !req.ApprovalExpiresAt.After(now):
		default:
			continue
		}
		expired = append(expired, cloneRequest(req))
	}

	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func cloneRequest(req model.BookingRequest) model.BookingRequest {
	if req.Answers != nil {
		answers := make(map[string]string, len(req.Answers))
		for k, v := range req.Answers {
			answers[k] = v
		}
		req.Answers = answers
	}
	if req.ConflictingBookingIDs != nil {
		req.ConflictingBookingIDs = append([]string(nil), req.ConflictingBookingIDs...)
	}
	return req
}
