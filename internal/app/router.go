package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/warden-ops/warden/internal/auth"
	"github.com/warden-ops/warden/internal/authz"
	"github.com/warden-ops/warden/internal/billing"
	"github.com/warden-ops/warden/internal/clients"
	"github.com/warden-ops/warden/internal/dispatch"
	"github.com/warden-ops/warden/internal/guards"
	"github.com/warden-ops/warden/internal/kpi"
	"github.com/warden-ops/warden/internal/observability"
	"github.com/warden-ops/warden/internal/session"
	"github.com/warden-ops/warden/internal/sites"
	"github.com/warden-ops/warden/jobs"
)

// NewGuard builds the authorization middleware backed by the request's
// session controller. Hydrate keeps cached facts usable across process
// restarts without a network round trip.
func NewGuard(logger *slog.Logger) authz.Middleware {
	return authz.Middleware{
		Facts: func(ctx context.Context) ([]string, bool, bool) {
			controller := session.ControllerFromContext(ctx)
			if controller == nil {
				return nil, false, false
			}
			state := controller.Hydrate(ctx)
			return state.Permissions, state.IsAdmin, state.IsAuthenticated()
		},
		Strategy: authz.Default,
		Logger:   logger,
	}
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Sessions        *session.Manager
	AuthHandler     *auth.Handler
	ClientsHandler  *clients.Handler
	DispatchHandler *dispatch.Handler
	SitesHandler    *sites.Handler
	GuardsHandler   *guards.Handler
	BillingHandler  *billing.Handler
	KPIHandler      *kpi.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Warden defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	if params.ClientsHandler != nil {
		r.Route("/clients", params.ClientsHandler.MountRoutes)
	}
	if params.DispatchHandler != nil {
		r.Route("/dispatch", params.DispatchHandler.MountRoutes)
	}
	if params.SitesHandler != nil {
		r.Route("/sites", params.SitesHandler.MountRoutes)
	}
	if params.GuardsHandler != nil {
		r.Route("/guards", params.GuardsHandler.MountRoutes)
	}
	if params.BillingHandler != nil {
		r.Route("/billing", params.BillingHandler.MountRoutes)
	}
	if params.KPIHandler != nil {
		r.Route("/kpi", params.KPIHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
