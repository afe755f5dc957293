package handler

import (
	"net/http"

	"rendezvous/internal/polls/service"
	httputil "rendezvous/pkg/http"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type voteBody struct {
	Participant model.Participant `json:"participant"`
	SlotIDs     []string          `json:"slot_ids"`
}

type finalizeBody struct {
	SlotID string `json:"slot_id,omitempty"`
}

type PollHandler struct {
	service service.PollService
	log     *logger.Logger
}

func NewPollHandler(service service.PollService, log *logger.Logger) *PollHandler {
	return &PollHandler{
		service: service,
		log:     log,
	}
}

func (h *PollHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.PollInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	details, err := h.service.CreatePoll(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, details); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PollHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	details, err := h.service.GetPoll(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, details); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body voteBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, "Vote", err)
		return
	}

	details, err := h.service.Vote(r.Context(), ps.ByName("id"), &body.Participant, body.SlotIDs)
	if err != nil {
		h.writeError(w, "Vote", err)
		return
	}

	if err := httputil.WriteSuccess(w, details); err != nil {
		h.log.Error("failed to write success response", "handler", "Vote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PollHandler) Close(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	poll, err := h.service.ClosePoll(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Close", err)
		return
	}

	if err := httputil.WriteSuccess(w, poll); err != nil {
		h.log.Error("failed to write success response", "handler", "Close", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PollHandler) Finalize(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body finalizeBody
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &body); err != nil {
			h.writeError(w, "Finalize", err)
			return
		}
	}

	booking, err := h.service.FinalizePoll(r.Context(), ps.ByName("id"), body.SlotID)
	if err != nil {
		h.writeError(w, "Finalize", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Finalize", "operation", "WriteCreated", "error", err)
	}
}

func (h *PollHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/polls", h.Create)
	router.GET("/api/v1/polls/id/:id", h.GetByID)
	router.POST("/api/v1/polls/id/:id/votes", h.Vote)
	router.POST("/api/v1/polls/id/:id/close", h.Close)
	router.POST("/api/v1/polls/id/:id/finalize", h.Finalize)
}
