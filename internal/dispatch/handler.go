package dispatch

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warden-ops/warden/internal/authz"
	"github.com/warden-ops/warden/internal/platform/httpx"
	"github.com/warden-ops/warden/internal/session"
)

// Handler wires HTTP endpoints for dispatch tickets.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	guard     authz.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		guard:     guard,
	}
}

// MountRoutes registers dispatch routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermDispatchRead))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermDispatchCreate))
		r.Post("/", h.handleOpen)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermDispatchEdit))
		r.Post("/{id}/assign", h.handleAssign)
		r.Post("/{id}/transition", h.handleTransition)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	status := TicketStatus(r.URL.Query().Get("status"))
	result, err := h.service.List(r.Context(), tenantID, status)
	if err != nil {
		h.logger.Error("list tickets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req OpenTicketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ticket, err := h.service.Open(r.Context(), tenantID, req)
	if err != nil {
		h.logger.Error("open ticket", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	ticket, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		h.respondDomainError(w, "get ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	var req AssignTicketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ticket, err := h.service.Assign(r.Context(), tenantID, id, req)
	if err != nil {
		h.respondDomainError(w, "assign ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ticket, err := h.service.Transition(r.Context(), tenantID, id, req)
	if err != nil {
		h.respondDomainError(w, "transition ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) scopedID(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return "", 0, false
	}
	return tenantID, id, true
}

func (h *Handler) respondDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
