package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"rendezvous/internal/conflicts"
	"rendezvous/internal/events"
	requesterrors "rendezvous/internal/requests/errors"
	"rendezvous/internal/requests/repository"
	"rendezvous/internal/requests/validator"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/flow"
	"rendezvous/pkg/model"
	"rendezvous/pkg/sanitizer"
	"rendezvous/pkg/sealer"
	"rendezvous/pkg/validation"

	"github.com/google/uuid"
)

const (
	DeclineReasonConflict = "conflict"
	DeclineReasonHost     = "declined by host"

	expireBatchSize = 500
)

// errAlreadyDecided aborts a commit whose request was moved on by a concurrent caller.
var errAlreadyDecided = errors.New("booking request already decided")

type EventTypeProvider interface {
	GetEventType(ctx context.Context, id string) (*model.EventType, error)
	IsSlotOffered(ctx context.Context, ownerID string, et *model.EventType, candidate model.Interval, now time.Time) (bool, error)
}

type BookingReader interface {
	FindConfirmedInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.Booking, error)
}

type BusyReader interface {
	FindInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error)
}

type BookingCommitter interface {
	Commit(ctx context.Context, booking *model.Booking, padding conflicts.Padding, within func(ctx context.Context) error) error
}

type TokenIssuer interface {
	Seal(requestID string, purpose sealer.Purpose) (string, error)
	Open(token string) (string, sealer.Purpose, error)
}

type RequestService interface {
	Submit(ctx context.Context, input *model.BookingRequestInput) (*model.SubmittedRequest, error)
	GetByID(ctx context.Context, id string) (*model.BookingRequest, error)
	Confirm(ctx context.Context, token string) (*model.RequestState, error)
	HostApprove(ctx context.Context, token string) (*model.RequestState, error)
	HostDecline(ctx context.Context, token, reason string) (*model.RequestState, error)
	Cancel(ctx context.Context, id string) (*model.RequestState, error)
	ExpireStale(ctx context.Context) (int, error)
}

type requestService struct {
	repo       repository.RequestRepository
	validator  *validator.RequestValidator
	eventTypes EventTypeProvider
	bookings   BookingReader
	busy       BusyReader
	committer  BookingCommitter
	tokens     TokenIssuer
	publisher  events.Publisher
	clock      clock.Clock
	cfg        *config.Config
	submit     *flow.Flow[submission]
}

type submission struct {
	input     *model.BookingRequestInput
	now       time.Time
	eventType *model.EventType
	candidate model.Interval
	answers   map[string]string
	request   *model.BookingRequest
	token     string
}

func NewRequestService(
	repo repository.RequestRepository,
	validator *validator.RequestValidator,
	eventTypes EventTypeProvider,
	bookings BookingReader,
	busy BusyReader,
	committer BookingCommitter,
	tokens TokenIssuer,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) RequestService {
	s := &requestService{
		repo:       repo,
		validator:  validator,
		eventTypes: eventTypes,
		bookings:   bookings,
		busy:       busy,
		committer:  committer,
		tokens:     tokens,
		publisher:  publisher,
		clock:      clk,
		cfg:        cfg,
	}
	s.submit = flow.New("submit-booking-request",
		flow.NewStep("validate", s.validateSubmission),
		flow.NewStep("load-event-type", s.loadEventType),
		flow.NewStep("check-answers", s.checkAnswers),
		flow.NewStep("check-slot", s.checkSlot),
		flow.NewStep("issue-token", s.issueConfirmationToken),
		flow.NewStep("persist", s.persist),
	)
	return s
}

func (s *requestService) Submit(ctx context.Context, input *model.BookingRequestInput) (*model.SubmittedRequest, error) {
	state := &submission{input: input, now: s.clock.Now()}
	if err := s.submit.Run(ctx, state); err != nil {
		if !apperrors.IsAppError(err) {
			s.cfg.Log.Error("Failed to submit booking request", "owner_id", input.OwnerID, "error", err)
			return nil, apperrors.Internal("Failed to submit booking request", err)
		}
		return nil, err
	}

	req := state.request
	s.cfg.Log.Info("Booking request submitted successfully",
		"id", req.ID,
		"owner_id", req.OwnerID,
		"event_type_id", req.EventTypeID,
		"start_time", req.StartTime,
	)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestSubmitted, req.ID, req.OwnerID, state.now, tokenPayload{
		Request: req,
		Token:   state.token,
	}))

	return &model.SubmittedRequest{Request: req, ConfirmationToken: state.token}, nil
}

// tokenPayload hands a freshly issued token to the notification collaborator.
type tokenPayload struct {
	Request *model.BookingRequest `json:"request"`
	Token   string                `json:"token"`
}

func (s *requestService) validateSubmission(_ context.Context, st *submission) error {
	in := st.input
	in.OwnerID = sanitizer.TrimAndNormalize(in.OwnerID)
	in.EventTypeID = sanitizer.TrimAndNormalize(in.EventTypeID)
	in.GuestName = sanitizer.NormalizeName(in.GuestName)
	in.GuestEmail = sanitizer.NormalizeEmail(in.GuestEmail)
	in.StartTime = in.StartTime.UTC()

	if err := s.validator.ValidateInput(in); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "owner_id", in.OwnerID, "error", err)
		return validation.ToAppError("Invalid booking request", err)
	}
	return nil
}

func (s *requestService) loadEventType(ctx context.Context, st *submission) error {
	et, err := s.eventTypes.GetEventType(ctx, st.input.EventTypeID)
	if err != nil {
		return err
	}
	if et.OwnerID != st.input.OwnerID {
		return apperrors.NotFoundWithID("Event type", st.input.EventTypeID)
	}
	st.eventType = et
	st.candidate = model.NewInterval(st.input.StartTime, st.input.StartTime.Add(et.Duration()))
	return nil
}

func (s *requestService) checkAnswers(_ context.Context, st *submission) error {
	answers, err := s.validator.ValidateAnswers(st.eventType.Questions, st.input.Answers, st.input.PhoneRegion)
	if err != nil {
		return validation.ToAppError("Invalid answers", err)
	}
	st.answers = answers
	return nil
}

// checkSlot reports collisions with their ids first, then rejects times the host never offered.
func (s *requestService) checkSlot(ctx context.Context, st *submission) error {
	ownerID := st.input.OwnerID
	padding := conflicts.PaddingOf(st.eventType)
	from := st.candidate.Start.Add(-padding.Before)
	to := st.candidate.End.Add(padding.After)

	bookings, err := s.bookings.FindConfirmedInRange(ctx, ownerID, from, to)
	if err != nil {
		return apperrors.Internal("Failed to load bookings", err)
	}
	busy, err := s.busy.FindInRange(ctx, ownerID, from, to)
	if err != nil {
		return apperrors.Internal("Failed to load busy blocks", err)
	}
	if ids := conflicts.FindConflicts(ownerID, st.candidate, padding, bookings, busy); len(ids) > 0 {
		return apperrors.ConflictWithIDs("Requested time is no longer available", ids)
	}

	offered, err := s.eventTypes.IsSlotOffered(ctx, ownerID, st.eventType, st.candidate, st.now)
	if err != nil {
		return err
	}
	if !offered {
		return apperrors.Validation("Requested time is not an available slot", map[string]any{
			"start_time": st.candidate.Start.Format(time.RFC3339),
		})
	}
	return nil
}

func (s *requestService) issueConfirmationToken(_ context.Context, st *submission) error {
	id := uuid.New().String()
	token, err := s.tokens.Seal(id, sealer.PurposeConfirmation)
	if err != nil {
		return apperrors.Internal("Failed to issue confirmation token", err)
	}

	in := st.input
	st.token = token
	st.request = &model.BookingRequest{
		ID:                    id,
		OwnerID:               in.OwnerID,
		EventTypeID:           in.EventTypeID,
		GuestName:             in.GuestName,
		GuestEmail:            in.GuestEmail,
		StartTime:             st.candidate.Start,
		EndTime:               st.candidate.End,
		Answers:               st.answers,
		Status:                model.RequestPendingConfirmation,
		ConfirmationToken:     token,
		ConfirmationExpiresAt: st.now.Add(s.cfg.ConfirmationTokenTTL),
		CreatedAt:             st.now,
		UpdatedAt:             st.now,
	}
	return nil
}

func (s *requestService) persist(ctx context.Context, st *submission) error {
	if err := s.repo.Create(ctx, st.request); err != nil {
		return apperrors.Internal("Failed to create booking request", err)
	}
	return nil
}

func (s *requestService) GetByID(ctx context.Context, id string) (*model.BookingRequest, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking request ID cannot be empty")
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, requesterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking request", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking request", err)
	}
	return req, nil
}

// Confirm redeems the guest's confirmation token. Redeeming it again returns the current state
// with AlreadyProcessed set.
func (s *requestService) Confirm(ctx context.Context, token string) (*model.RequestState, error) {
	now := s.clock.Now()
	req, err := s.redeem(ctx, token, sealer.PurposeConfirmation)
	if err != nil {
		return nil, err
	}

	if req.ConfirmationConsumedAt != nil || req.Status != model.RequestPendingConfirmation {
		return s.settled(req, sealer.PurposeConfirmation)
	}
	if !now.Before(req.ConfirmationExpiresAt) {
		return s.expire(ctx, req, sealer.PurposeConfirmation, req.ConfirmationExpiresAt, now)
	}

	et, err := s.eventTypes.GetEventType(ctx, req.EventTypeID)
	if err != nil {
		return nil, err
	}

	if !et.RequiresConfirmation {
		return s.commit(ctx, req, et, now, repository.Changes{ConfirmationConsumedAt: &now})
	}

	approvalToken, err := s.tokens.Seal(req.ID, sealer.PurposeApproval)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue approval token", err)
	}
	approvalExpiresAt := now.Add(s.cfg.ApprovalTokenTTL)

	updated, err := s.repo.Transition(ctx, req.ID, model.RequestPendingConfirmation, model.RequestPendingHostApproval, repository.Changes{
		ConfirmationConsumedAt: &now,
		ApprovalToken:          approvalToken,
		ApprovalExpiresAt:      &approvalExpiresAt,
		UpdatedAt:              now,
	})
	if err != nil {
		return s.afterFailedTransition(ctx, req.ID, err)
	}

	s.cfg.Log.Info("Booking request awaiting host approval", "id", req.ID, "owner_id", req.OwnerID)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestAwaitingApproval, req.ID, req.OwnerID, now, tokenPayload{
		Request: updated,
		Token:   approvalToken,
	}))

	state := model.StateOf(updated, false)
	state.ApprovalToken = approvalToken
	return &state, nil
}

func (s *requestService) HostApprove(ctx context.Context, token string) (*model.RequestState, error) {
	now := s.clock.Now()
	req, err := s.redeem(ctx, token, sealer.PurposeApproval)
	if err != nil {
		return nil, err
	}

	if req.ApprovalConsumedAt != nil || req.Status != model.RequestPendingHostApproval {
		return s.settled(req, sealer.PurposeApproval)
	}
	if req.ApprovalExpiresAt != nil && !now.Before(*req.ApprovalExpiresAt) {
		return s.expire(ctx, req, sealer.PurposeApproval, *req.ApprovalExpiresAt, now)
	}

	et, err := s.eventTypes.GetEventType(ctx, req.EventTypeID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, req, et, now, repository.Changes{ApprovalConsumedAt: &now})
}

func (s *requestService) HostDecline(ctx context.Context, token, reason string) (*model.RequestState, error) {
	now := s.clock.Now()
	req, err := s.redeem(ctx, token, sealer.PurposeApproval)
	if err != nil {
		return nil, err
	}

	if req.ApprovalConsumedAt != nil || req.Status != model.RequestPendingHostApproval {
		return s.settled(req, sealer.PurposeApproval)
	}
	if req.ApprovalExpiresAt != nil && !now.Before(*req.ApprovalExpiresAt) {
		return s.expire(ctx, req, sealer.PurposeApproval, *req.ApprovalExpiresAt, now)
	}

	reason = sanitizer.TrimAndNormalize(reason)
	if reason == "" {
		reason = DeclineReasonHost
	}

	updated, err := s.repo.Transition(ctx, req.ID, model.RequestPendingHostApproval, model.RequestDeclined, repository.Changes{
		ApprovalConsumedAt: &now,
		DecidedAt:          &now,
		DeclineReason:      reason,
		UpdatedAt:          now,
	})
	if err != nil {
		return s.afterFailedTransition(ctx, req.ID, err)
	}

	s.cfg.Log.Info("Booking request declined by host", "id", req.ID, "owner_id", req.OwnerID)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestDeclined, req.ID, req.OwnerID, now, updated))

	state := model.StateOf(updated, false)
	return &state, nil
}

// Cancel withdraws a pending request. Cancelling an already cancelled request is a no-op.
func (s *requestService) Cancel(ctx context.Context, id string) (*model.RequestState, error) {
	now := s.clock.Now()
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status == model.RequestCancelled {
		state := model.StateOf(req, true)
		return &state, nil
	}
	if !req.Status.CanTransitionTo(model.RequestCancelled) {
		return nil, apperrors.Conflict("Booking request is already " + string(req.Status))
	}

	updated, err := s.repo.Transition(ctx, req.ID, req.Status, model.RequestCancelled, repository.Changes{
		DecidedAt: &now,
		UpdatedAt: now,
	})
	if errors.Is(err, requesterrors.ErrStaleState) {
		// Lost a race with a confirmation or another cancel; report whatever won.
		return s.Cancel(ctx, id)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking request", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to cancel booking request", err)
	}

	s.cfg.Log.Info("Booking request cancelled successfully", "id", id, "owner_id", req.OwnerID)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestCancelled, req.ID, req.OwnerID, now, updated))

	state := model.StateOf(updated, false)
	return &state, nil
}

// ExpireStale moves pending requests whose token lapsed to expired and returns how many moved.
func (s *requestService) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	stale, err := s.repo.FindExpired(ctx, now, expireBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to find expired booking requests", "error", err)
		return 0, apperrors.Internal("Failed to find expired booking requests", err)
	}

	expired := 0
	for i := range stale {
		req := &stale[i]
		updated, err := s.repo.Transition(ctx, req.ID, req.Status, model.RequestExpired, repository.Changes{
			DecidedAt: &now,
			UpdatedAt: now,
		})
		if errors.Is(err, requesterrors.ErrStaleState) {
			continue
		}
		if err != nil {
			s.cfg.Log.Error("Failed to expire booking request", "id", req.ID, "error", err)
			return expired, apperrors.Internal("Failed to expire booking request", err)
		}
		expired++
		events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestExpired, updated.ID, updated.OwnerID, now, updated))
	}

	if expired > 0 {
		s.cfg.Log.Info("Expired stale booking requests", "count", expired)
	}
	return expired, nil
}

// redeem resolves a token to its request. Every failure looks like an unknown token.
func (s *requestService) redeem(ctx context.Context, token string, purpose sealer.Purpose) (*model.BookingRequest, error) {
	token = sanitizer.TrimAndNormalize(token)
	if token == "" {
		return nil, apperrors.InvalidInput("Token cannot be empty")
	}

	id, sealedFor, err := s.tokens.Open(token)
	if err != nil || sealedFor != purpose {
		return nil, apperrors.NotFound("Token")
	}

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, requesterrors.ErrNotFound) {
			return nil, apperrors.NotFound("Token")
		}
		return nil, apperrors.Internal("Failed to retrieve booking request", err)
	}

	stored := req.ConfirmationToken
	if purpose == sealer.PurposeApproval {
		stored = req.ApprovalToken
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return nil, apperrors.NotFound("Token")
	}
	return req, nil
}

// settled answers a token that can no longer move its request forward.
func (s *requestService) settled(req *model.BookingRequest, purpose sealer.Purpose) (*model.RequestState, error) {
	consumed := req.ConfirmationConsumedAt
	expiresAt := req.ConfirmationExpiresAt
	if purpose == sealer.PurposeApproval {
		consumed = req.ApprovalConsumedAt
		if req.ApprovalExpiresAt != nil {
			expiresAt = *req.ApprovalExpiresAt
		}
	}
	if req.Status == model.RequestExpired && consumed == nil {
		return nil, apperrors.ExpiredToken(string(purpose), expiresAt)
	}
	state := model.StateOf(req, true)
	return &state, nil
}

func (s *requestService) expire(ctx context.Context, req *model.BookingRequest, purpose sealer.Purpose, expiredAt, now time.Time) (*model.RequestState, error) {
	updated, err := s.repo.Transition(ctx, req.ID, req.Status, model.RequestExpired, repository.Changes{
		DecidedAt: &now,
		UpdatedAt: now,
	})
	if errors.Is(err, requesterrors.ErrStaleState) {
		return s.afterFailedTransition(ctx, req.ID, err)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to expire booking request", "id", req.ID, "error", err)
		return nil, apperrors.Internal("Failed to expire booking request", err)
	}

	s.cfg.Log.Info("Booking request expired on redemption", "id", req.ID, "purpose", purpose)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestExpired, req.ID, req.OwnerID, now, updated))
	return nil, apperrors.ExpiredToken(string(purpose), expiredAt)
}

// commit materializes the booking and confirms the request in one unit. A conflict declines the
// request and is returned to the caller with the conflicting ids.
func (s *requestService) commit(ctx context.Context, req *model.BookingRequest, et *model.EventType, now time.Time, consumed repository.Changes) (*model.RequestState, error) {
	booking := &model.Booking{
		ID:          uuid.New().String(),
		OwnerID:     req.OwnerID,
		EventTypeID: req.EventTypeID,
		RequestID:   req.ID,
		Title:       et.Name,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CreatedAt:   now,
	}

	confirmed := consumed
	confirmed.DecidedAt = &now
	confirmed.BookingID = booking.ID
	confirmed.UpdatedAt = now

	var updated *model.BookingRequest
	err := s.committer.Commit(ctx, booking, conflicts.PaddingOf(et), func(txCtx context.Context) error {
		var err error
		updated, err = s.repo.Transition(txCtx, req.ID, req.Status, model.RequestConfirmed, confirmed)
		if errors.Is(err, requesterrors.ErrStaleState) {
			return errAlreadyDecided
		}
		return err
	})

	switch {
	case err == nil:
		s.cfg.Log.Info("Booking request confirmed successfully", "id", req.ID, "booking_id", booking.ID)
		events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.BookingConfirmed, booking.ID, booking.OwnerID, now, booking))
		events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestConfirmed, req.ID, req.OwnerID, now, updated))
		state := model.StateOf(updated, false)
		return &state, nil

	case errors.Is(err, errAlreadyDecided):
		return s.afterFailedTransition(ctx, req.ID, requesterrors.ErrStaleState)

	case apperrors.HasCode(err, apperrors.CodeConflict) && len(apperrors.ConflictingIDs(err)) > 0:
		return s.decline(ctx, req, now, consumed, err)
	}

	if apperrors.IsAppError(err) {
		return nil, err
	}
	return nil, apperrors.Internal("Failed to confirm booking request", err)
}

func (s *requestService) decline(ctx context.Context, req *model.BookingRequest, now time.Time, consumed repository.Changes, conflict error) (*model.RequestState, error) {
	ids := apperrors.ConflictingIDs(conflict)
	declined := consumed
	declined.DecidedAt = &now
	declined.DeclineReason = DeclineReasonConflict
	declined.ConflictingBookingIDs = ids
	declined.UpdatedAt = now

	updated, err := s.repo.Transition(ctx, req.ID, req.Status, model.RequestDeclined, declined)
	if err != nil {
		return s.afterFailedTransition(ctx, req.ID, err)
	}

	s.cfg.Log.Info("Booking request declined by conflict", "id", req.ID, "conflicting_ids", ids)
	events.Notify(ctx, s.publisher, s.cfg.Log, events.New(events.RequestDeclined, req.ID, req.OwnerID, now, updated))
	return nil, conflict
}

// afterFailedTransition reports the state a concurrent caller left behind.
func (s *requestService) afterFailedTransition(ctx context.Context, id string, err error) (*model.RequestState, error) {
	if !errors.Is(err, requesterrors.ErrStaleState) {
		s.cfg.Log.Error("Failed to update booking request", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update booking request", err)
	}

	current, findErr := s.GetByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	state := model.StateOf(current, true)
	return &state, nil
}
