package billing

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

// Handler wires HTTP endpoints for billing items.
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

// MountRoutes registers billing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermBillingRead))
		r.Get("/", h.handleList)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermBillingCreate))
		r.Post("/", h.handleCreate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermBillingDestroy))
		r.Delete("/{id}", h.handleDelete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermBillingExport))
		r.Get("/export", h.handleExport)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID, period, ok := h.scopedPeriod(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListByPeriod(r.Context(), tenantID, period)
	if err != nil {
		h.logger.Error("list billing items", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req CreateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.Create(r.Context(), tenantID, req)
	if err != nil {
		h.logger.Error("create billing item", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.Delete(r.Context(), tenantID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("delete billing item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	tenantID, period, ok := h.scopedPeriod(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListByPeriod(r.Context(), tenantID, period)
	if err != nil {
		h.logger.Error("export billing items", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="billing-`+period+`.csv"`)
	if err := WriteCSV(w, items); err != nil {
		h.logger.Error("write billing csv", slog.Any("error", err))
	}
}

func (h *Handler) scopedPeriod(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return "", "", false
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "period query parameter required")
		return "", "", false
	}
	return tenantID, period, true
}
