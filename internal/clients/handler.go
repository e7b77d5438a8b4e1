package clients

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

// Handler wires HTTP endpoints for client accounts.
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

// MountRoutes registers client routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermClientRead))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermClientCreate))
		r.Post("/", h.handleCreate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermClientEdit))
		r.Patch("/{id}", h.handleUpdate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermClientDestroy))
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	result, err := h.service.List(r.Context(), tenantID, activeOnly)
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID := session.TenantFromContext(r.Context())
	if tenantID == "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req CreateClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	client, err := h.service.Create(r.Context(), tenantID, req)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			httpx.RespondError(w, httpx.ErrDuplicate)
			return
		}
		h.logger.Error("create client", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	client, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		h.respondDomainError(w, "get client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	var req UpdateClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	client, err := h.service.Update(r.Context(), tenantID, id, req)
	if err != nil {
		h.respondDomainError(w, "update client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), tenantID, id); err != nil {
		h.respondDomainError(w, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
