package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockRequestService struct {
	confirmFunc func(ctx context.Context, token string) (*model.RequestState, error)
	declineFunc func(ctx context.Context, token, reason string) (*model.RequestState, error)
	cancelFunc  func(ctx context.Context, id string) (*model.RequestState, error)
}

func (m *mockRequestService) Submit(ctx context.Context, input *model.BookingRequestInput) (*model.SubmittedRequest, error) {
	return nil, nil
}

func (m *mockRequestService) GetByID(ctx context.Context, id string) (*model.BookingRequest, error) {
	return nil, apperrors.NotFoundWithID("BookingRequest", id)
}

func (m *mockRequestService) Confirm(ctx context.Context, token string) (*model.RequestState, error) {
	return m.confirmFunc(ctx, token)
}

func (m *mockRequestService) HostApprove(ctx context.Context, token string) (*model.RequestState, error) {
	return nil, nil
}

func (m *mockRequestService) HostDecline(ctx context.Context, token, reason string) (*model.RequestState, error) {
	return m.declineFunc(ctx, token, reason)
}

func (m *mockRequestService) Cancel(ctx context.Context, id string) (*model.RequestState, error) {
	return m.cancelFunc(ctx, id)
}

func (m *mockRequestService) ExpireStale(ctx context.Context) (int, error) {
	return 0, nil
}

func newTestRouter(svc *mockRequestService) *httprouter.Router {
	router := httprouter.New()
	NewRequestHandler(svc, logger.Nop()).RegisterRoutes(router)
	return router
}

func TestConfirm(t *testing.T) {
	decided := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		confirm    func(ctx context.Context, token string) (*model.RequestState, error)
		wantStatus int
		wantBody   []string
	}{
		{
			name: "confirmed",
			body: `{"token":"abc"}`,
			confirm: func(ctx context.Context, token string) (*model.RequestState, error) {
				return &model.RequestState{RequestID: "r1", Status: model.RequestConfirmed, BookingID: "b1", DecidedAt: &decided}, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"status":"confirmed"`, `"booking_id":"b1"`},
		},
		{
			name: "awaiting host exposes approval token",
			body: `{"token":"abc"}`,
			confirm: func(ctx context.Context, token string) (*model.RequestState, error) {
				return &model.RequestState{RequestID: "r1", Status: model.RequestPendingHostApproval, ApprovalToken: "host-token"}, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"approval_token":"host-token"`},
		},
		{
			name: "slot taken",
			body: `{"token":"abc"}`,
			confirm: func(ctx context.Context, token string) (*model.RequestState, error) {
				return nil, apperrors.ConflictWithIDs("Requested time is no longer available", []string{"b9"})
			},
			wantStatus: http.StatusConflict,
			wantBody:   []string{`"CONFLICT"`, `"b9"`},
		},
		{
			name: "expired token",
			body: `{"token":"abc"}`,
			confirm: func(ctx context.Context, token string) (*model.RequestState, error) {
				return nil, apperrors.ExpiredToken("Confirmation", decided)
			},
			wantStatus: http.StatusGone,
		},
		{
			name:       "unknown field",
			body:       `{"token":"abc","extra":1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received string
			svc := &mockRequestService{
				confirmFunc: func(ctx context.Context, token string) (*model.RequestState, error) {
					received = token
					return tt.confirm(ctx, token)
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/booking-requests/confirm", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.confirm != nil && received != "abc" {
				t.Errorf("expected token abc to reach the service, got %q", received)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(w.Body.String(), want) {
					t.Errorf("expected body to contain %s, got %s", want, w.Body.String())
				}
			}
		})
	}
}

func TestDeclinePassesReason(t *testing.T) {
	var gotToken, gotReason string
	svc := &mockRequestService{
		declineFunc: func(ctx context.Context, token, reason string) (*model.RequestState, error) {
			gotToken, gotReason = token, reason
			return &model.RequestState{RequestID: "r1", Status: model.RequestDeclined, DeclineReason: reason}, nil
		},
	}

	body := `{"token":"host","reason":"out of office"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking-requests/decline", strings.NewReader(body))
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotToken != "host" || gotReason != "out of office" {
		t.Errorf("unexpected arguments: token=%q reason=%q", gotToken, gotReason)
	}

	var resp struct {
		Data model.RequestState `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Status != model.RequestDeclined || resp.Data.DeclineReason != "out of office" {
		t.Errorf("unexpected state: %+v", resp.Data)
	}
}

func TestCancelUsesPathID(t *testing.T) {
	var gotID string
	svc := &mockRequestService{
		cancelFunc: func(ctx context.Context, id string) (*model.RequestState, error) {
			gotID = id
			return &model.RequestState{RequestID: id, Status: model.RequestCancelled}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking-requests/id/r42/cancel", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != "r42" {
		t.Errorf("expected id r42, got %q", gotID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/booking-requests/id/missing", nil)
	w := httptest.NewRecorder()
	newTestRouter(&mockRequestService{}).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
