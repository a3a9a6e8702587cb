package handler

import (
	"net/http"

	"slotswap/internal/slots/service"
	httputil "slotswap/pkg/http"
	"slotswap/pkg/identity"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.CreateSlotInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	caller, _ := identity.FromContext(r.Context())
	slot, err := h.service.Create(r.Context(), caller, &input)
	if err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, slot); err != nil {
		h.log.WithContext(r.Context()).Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.SlotStatusUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, r, "SetStatus", err)
		return
	}

	caller, _ := identity.FromContext(r.Context())
	slot, err := h.service.SetStatus(r.Context(), ps.ByName("id"), caller, &update)
	if err != nil {
		h.writeError(w, r, "SetStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.WithContext(r.Context()).Error("failed to write success response", "handler", "SetStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, _ := identity.FromContext(r.Context())
	if err := h.service.Delete(r.Context(), ps.ByName("id"), caller); err != nil {
		h.writeError(w, r, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.WithContext(r.Context()).Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots", h.Create)
	router.PATCH("/api/v1/slots/id/:id/status", h.SetStatus)
	router.DELETE("/api/v1/slots/id/:id", h.Delete)
}
