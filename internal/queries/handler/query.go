package handler

import (
	"net/http"

	"slotswap/internal/queries/service"
	httputil "slotswap/pkg/http"
	"slotswap/pkg/identity"
	"slotswap/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type QueryHandler struct {
	service service.QueryService
	log     *logger.Logger
}

func NewQueryHandler(service service.QueryService, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		service: service,
		log:     log,
	}
}

func (h *QueryHandler) ListOwnSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, _ := identity.FromContext(r.Context())
	slots, err := h.service.ListOwnSlots(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, "ListOwnSlots", err)
		return
	}
	h.writeList(r, "ListOwnSlots", httputil.WriteList(w, slots))
}

func (h *QueryHandler) ListMarketplace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, _ := identity.FromContext(r.Context())
	listing, err := h.service.ListMarketplace(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, "ListMarketplace", err)
		return
	}
	h.writeList(r, "ListMarketplace", httputil.WriteList(w, listing))
}

func (h *QueryHandler) ListIncoming(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, _ := identity.FromContext(r.Context())
	reqs, err := h.service.ListIncoming(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, "ListIncoming", err)
		return
	}
	h.writeList(r, "ListIncoming", httputil.WriteList(w, reqs))
}

func (h *QueryHandler) ListOutgoing(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, _ := identity.FromContext(r.Context())
	reqs, err := h.service.ListOutgoing(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, "ListOutgoing", err)
		return
	}
	h.writeList(r, "ListOutgoing", httputil.WriteList(w, reqs))
}

func (h *QueryHandler) writeList(r *http.Request, handler string, err error) {
	if err != nil {
		h.log.WithContext(r.Context()).Error("failed to write list response", "handler", handler, "operation", "WriteList", "error", err)
	}
}

func (h *QueryHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.WithContext(r.Context()).Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *QueryHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots", h.ListOwnSlots)
	router.GET("/api/v1/marketplace", h.ListMarketplace)
	router.GET("/api/v1/swaps/incoming", h.ListIncoming)
	router.GET("/api/v1/swaps/outgoing", h.ListOutgoing)
}
