package handler

import (
	"net/http"

	"rendezvous/internal/busy/service"
	httputil "rendezvous/pkg/http"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BusyHandler struct {
	service service.BusyService
	log     *logger.Logger
}

func NewBusyHandler(service service.BusyService, log *logger.Logger) *BusyHandler {
	return &BusyHandler{
		service: service,
		log:     log,
	}
}

func (h *BusyHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BusyHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, err := httputil.ParseTimeParam(r, "from", true)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	to, err := httputil.ParseTimeParam(r, "to", true)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	blocks, err := h.service.FindInRange(r.Context(), r.URL.Query().Get("owner_id"), *from, *to)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, blocks); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BusyHandler) Import(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var imp model.FeedImport
	if err := httputil.DecodeJSON(r, &imp); err != nil {
		h.writeError(w, "Import", err)
		return
	}

	result, err := h.service.Import(r.Context(), &imp)
	if err != nil {
		h.writeError(w, "Import", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Import", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BusyHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/busy", h.List)
	router.POST("/api/v1/busy/import", h.Import)
}
