package handler

import (
	"net/http"

	"rendezvous/internal/requests/service"
	httputil "rendezvous/pkg/http"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type tokenBody struct {
	Token  string `json:"token"`
	Reason string `json:"reason,omitempty"`
}

// approvalResponse exposes the host approval token, which RequestState keeps out of JSON.
type approvalResponse struct {
	*model.RequestState
	ApprovalToken string `json:"approval_token,omitempty"`
}

type RequestHandler struct {
	service service.RequestService
	log     *logger.Logger
}

func NewRequestHandler(service service.RequestService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		log:     log,
	}
}

func (h *RequestHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.BookingRequestInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Submit", err)
		return
	}

	submitted, err := h.service.Submit(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Submit", err)
		return
	}

	if err := httputil.WriteCreated(w, submitted); err != nil {
		h.log.Error("failed to write created response", "handler", "Submit", "operation", "WriteCreated", "error", err)
	}
}

func (h *RequestHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, req); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body tokenBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	state, err := h.service.Confirm(r.Context(), body.Token)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	resp := approvalResponse{RequestState: state, ApprovalToken: state.ApprovalToken}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body tokenBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	state, err := h.service.HostApprove(r.Context(), body.Token)
	if err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "Approve", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) Decline(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body tokenBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, "Decline", err)
		return
	}

	state, err := h.service.HostDecline(r.Context(), body.Token, body.Reason)
	if err != nil {
		h.writeError(w, "Decline", err)
		return
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "Decline", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	state, err := h.service.Cancel(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/booking-requests", h.Submit)
	router.GET("/api/v1/booking-requests/id/:id", h.GetByID)
	router.POST("/api/v1/booking-requests/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/booking-requests/confirm", h.Confirm)
	router.POST("/api/v1/booking-requests/approve", h.Approve)
	router.POST("/api/v1/booking-requests/decline", h.Decline)
}
