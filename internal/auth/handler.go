// Package auth exposes the sign-in/sign-out endpoints of the console.
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warden-ops/warden/internal/identity"
	"github.com/warden-ops/warden/internal/platform/httpx"
	"github.com/warden-ops/warden/internal/session"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/login/token", h.handleTokenLogin)
	r.Post("/signup", h.handleSignUp)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type tokenLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Name        string `json:"name" validate:"required"`
	CompanyName string `json:"companyName"`
}

type sessionResponse struct {
	Authenticated bool     `json:"authenticated"`
	Email         string   `json:"email,omitempty"`
	Name          string   `json:"name,omitempty"`
	TenantID      string   `json:"tenantId,omitempty"`
	Permissions   []string `json:"permissions"`
	IsAdmin       bool     `json:"isAdmin"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	controller := session.ControllerFromContext(r.Context())
	if controller == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "session missing")
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	err := controller.SignIn(r.Context(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, identity.ErrEmailNotVerified) {
			// Distinct outcome: the UI offers to re-send the verification mail.
			httpx.Problem(w, http.StatusForbidden, "Email Not Verified", "confirm your email address before signing in")
			return
		}
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("sign-in failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Sign-In Failed", "identity service unavailable")
		return
	}

	httpx.JSON(w, http.StatusOK, snapshot(controller))
}

func (h *Handler) handleTokenLogin(w http.ResponseWriter, r *http.Request) {
	controller := session.ControllerFromContext(r.Context())
	if controller == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "session missing")
		return
	}

	var req tokenLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := controller.SignInWithToken(r.Context(), req.Token, nil); err != nil {
		if identity.IsUnauthorized(err) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "token rejected")
			return
		}
		h.logger.Error("token sign-in failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Sign-In Failed", "identity service unavailable")
		return
	}

	httpx.JSON(w, http.StatusOK, snapshot(controller))
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	controller := session.ControllerFromContext(r.Context())
	if controller == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "session missing")
		return
	}

	var req signUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	err := controller.SignUp(r.Context(), identity.SignUpRequest{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			httpx.Problem(w, apiErr.Status, "Sign-Up Failed", apiErr.Message)
			return
		}
		h.logger.Error("sign-up failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Sign-Up Failed", "identity service unavailable")
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	controller := session.ControllerFromContext(r.Context())
	if controller != nil {
		controller.SignOut(r.Context())
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	controller := session.ControllerFromContext(r.Context())
	if controller == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "session missing")
		return
	}
	if err := controller.CheckAuth(r.Context()); err != nil && identity.IsUnauthorized(err) {
		httpx.JSON(w, http.StatusOK, sessionResponse{Authenticated: false, Permissions: []string{}})
		return
	}
	httpx.JSON(w, http.StatusOK, snapshot(controller))
}

func snapshot(controller *session.Controller) sessionResponse {
	state := controller.State()
	resp := sessionResponse{
		Authenticated: state.IsAuthenticated(),
		TenantID:      state.TenantID,
		Permissions:   state.Permissions,
		IsAdmin:       state.IsAdmin,
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	if state.User != nil {
		resp.Email = state.User.Email
		resp.Name = state.User.Name
	}
	return resp
}
