package guards

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

// Handler wires HTTP endpoints for the guard roster.
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

// MountRoutes registers guard routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermGuardRead))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermGuardCreate))
		r.Post("/", h.handleCreate)
	})
	// Check-in authenticates with the guard's own PIN, not a console grant.
	r.Post("/check-in", h.handleCheckIn)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	roster, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list guards", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roster)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req CreateGuardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	guard, err := h.service.Create(r.Context(), tenantID, req)
	if err != nil {
		h.logger.Error("create guard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, guard)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	guard, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get guard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, guard)
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req CheckInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	checkIn, err := h.service.CheckIn(r.Context(), tenantID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidPIN):
			httpx.Problem(w, http.StatusForbidden, "Check-In Rejected", "guard or pin not accepted")
		default:
			h.logger.Error("check in", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, checkIn)
}
