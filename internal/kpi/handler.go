package kpi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warden-ops/warden/internal/authz"
	"github.com/warden-ops/warden/internal/platform/httpx"
	"github.com/warden-ops/warden/internal/session"
)

// Handler exposes the dashboard snapshot.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers KPI routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermKPIRead))
		r.Get("/", h.handleSnapshot)
	})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	snapshot, err := h.service.Snapshot(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("kpi snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshot)
}
