package handler

import (
	"net/http"

	"rendezvous/internal/availability/service"
	apperrors "rendezvous/pkg/errors"
	httputil "rendezvous/pkg/http"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

type SlotsResponse struct {
	OwnerID     string       `json:"owner_id"`
	EventTypeID string       `json:"event_type_id"`
	Slots       []model.Slot `json:"slots"`
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) CreateRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var rule model.AvailabilityRule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		h.writeError(w, "CreateRule", err)
		return
	}

	if err := h.service.CreateRule(r.Context(), &rule); err != nil {
		h.writeError(w, "CreateRule", err)
		return
	}

	if err := httputil.WriteCreated(w, rule); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRule", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) ListRules(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rules, err := h.service.ListRules(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		h.writeError(w, "ListRules", err)
		return
	}

	if err := httputil.WriteSuccess(w, rules); err != nil {
		h.log.Error("failed to write success response", "handler", "ListRules", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteRule(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteRule", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) CreateEventType(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var et model.EventType
	if err := httputil.DecodeJSON(r, &et); err != nil {
		h.writeError(w, "CreateEventType", err)
		return
	}

	if err := h.service.CreateEventType(r.Context(), &et); err != nil {
		h.writeError(w, "CreateEventType", err)
		return
	}

	if err := httputil.WriteCreated(w, et); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateEventType", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) GetEventType(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	et, err := h.service.GetEventType(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetEventType", err)
		return
	}

	if err := httputil.WriteSuccess(w, et); err != nil {
		h.log.Error("failed to write success response", "handler", "GetEventType", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) ListEventTypes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	types, err := h.service.ListEventTypes(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		h.writeError(w, "ListEventTypes", err)
		return
	}

	if err := httputil.WriteSuccess(w, types); err != nil {
		h.log.Error("failed to write success response", "handler", "ListEventTypes", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	ownerID := query.Get("owner_id")
	eventTypeID := query.Get("event_type_id")
	if ownerID == "" || eventTypeID == "" {
		h.writeError(w, "GetSlots", apperrors.InvalidInput("owner_id and event_type_id are required"))
		return
	}

	from, err := httputil.ParseTimeParam(r, "from", true)
	if err != nil {
		h.writeError(w, "GetSlots", err)
		return
	}
	to, err := httputil.ParseTimeParam(r, "to", true)
	if err != nil {
		h.writeError(w, "GetSlots", err)
		return
	}

	slots, err := h.service.ComputeAvailableSlots(r.Context(), ownerID, eventTypeID, *from, *to)
	if err != nil {
		h.writeError(w, "GetSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, SlotsResponse{OwnerID: ownerID, EventTypeID: eventTypeID, Slots: slots}); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/rules", h.CreateRule)
	router.GET("/api/v1/rules", h.ListRules)
	router.DELETE("/api/v1/rules/id/:id", h.DeleteRule)

	router.POST("/api/v1/event-types", h.CreateEventType)
	router.GET("/api/v1/event-types", h.ListEventTypes)
	router.GET("/api/v1/event-types/id/:id", h.GetEventType)

	router.GET("/api/v1/availability", h.GetSlots)
}
