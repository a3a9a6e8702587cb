package handler

import (
	"net/http"

	"slotswap/internal/swaps/service"
	httputil "slotswap/pkg/http"
	"slotswap/pkg/identity"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SwapHandler struct {
	service service.SwapService
	log     *logger.Logger
}

func NewSwapHandler(service service.SwapService, log *logger.Logger) *SwapHandler {
	return &SwapHandler{
		service: service,
		log:     log,
	}
}

func (h *SwapHandler) Propose(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.ProposeSwapInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, r, "Propose", err)
		return
	}

	caller, _ := identity.FromContext(r.Context())
	req, err := h.service.Propose(r.Context(), caller, &input)
	if err != nil {
		h.writeError(w, r, "Propose", err)
		return
	}

	if err := httputil.WriteCreated(w, req); err != nil {
		h.log.WithContext(r.Context()).Error("failed to write created response", "handler", "Propose", "operation", "WriteCreated", "error", err)
	}
}

func (h *SwapHandler) Respond(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var resp model.SwapResponse
	if err := httputil.DecodeJSON(r, &resp); err != nil {
		h.writeError(w, r, "Respond", err)
		return
	}

	caller, _ := identity.FromContext(r.Context())
	req, err := h.service.Respond(r.Context(), ps.ByName("id"), caller, &resp)
	if err != nil {
		h.writeError(w, r, "Respond", err)
		return
	}

	if err := httputil.WriteSuccess(w, req); err != nil {
		h.log.WithContext(r.Context()).Error("failed to write success response", "handler", "Respond", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SwapHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, _ := identity.FromContext(r.Context())
	req, err := h.service.GetRequest(r.Context(), ps.ByName("id"), caller)
	if err != nil {
		h.writeError(w, r, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, req); err != nil {
		h.log.WithContext(r.Context()).Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SwapHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.WithContext(r.Context()).Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SwapHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/swaps", h.Propose)
	router.GET("/api/v1/swaps/id/:id", h.GetByID)
	router.POST("/api/v1/swaps/id/:id/respond", h.Respond)
}
