package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/warden-ops/warden/internal/app"
	"github.com/warden-ops/warden/internal/auth"
	"github.com/warden-ops/warden/internal/billing"
	"github.com/warden-ops/warden/internal/clients"
	"github.com/warden-ops/warden/internal/dispatch"
	"github.com/warden-ops/warden/internal/guards"
	"github.com/warden-ops/warden/internal/identity"
	"github.com/warden-ops/warden/internal/kpi"
	"github.com/warden-ops/warden/internal/observability"
	"github.com/warden-ops/warden/internal/platform/cache"
	"github.com/warden-ops/warden/internal/platform/db"
	"github.com/warden-ops/warden/internal/session"
	"github.com/warden-ops/warden/internal/sites"
	"github.com/warden-ops/warden/jobs"
)

// sweepInterval controls how often idle session controllers are evicted.
const sweepInterval = 10 * time.Minute

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, sessions fall back to memory", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	identityClient := identity.NewClient(cfg.IdentityURL)
	sessions := session.NewManager(redisClient, identityClient, logger, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Sweep(ctx); removed > 0 {
					logger.Debug("session sweep", slog.Int("removed", removed))
				}
			}
		}
	}()

	guard := app.NewGuard(logger)
	metrics := observability.NewMetrics()

	clientsRepo := clients.NewRepository(pool)
	clientsHandler := clients.NewHandler(logger, clients.NewService(clientsRepo), guard)

	dispatchRepo := dispatch.NewRepository(pool)
	dispatchHandler := dispatch.NewHandler(logger, dispatch.NewService(dispatchRepo), guard)

	sitesRepo := sites.NewRepository(pool)
	sitesHandler := sites.NewHandler(logger, sites.NewService(sitesRepo), guard)

	guardsRepo := guards.NewRepository(pool)
	guardsHandler := guards.NewHandler(logger, guards.NewService(guardsRepo), guard)

	billingRepo := billing.NewRepository(pool)
	billingHandler := billing.NewHandler(logger, billing.NewService(billingRepo), guard)

	kpiService := kpi.NewService(dispatchRepo, sitesRepo, guardsRepo, redisClient, cfg.KPICacheTTL, logger)
	kpiHandler := kpi.NewHandler(logger, kpiService, guard)

	authHandler := auth.NewHandler(logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Sessions:        sessions,
		AuthHandler:     authHandler,
		ClientsHandler:  clientsHandler,
		DispatchHandler: dispatchHandler,
		SitesHandler:    sitesHandler,
		GuardsHandler:   guardsHandler,
		BillingHandler:  billingHandler,
		KPIHandler:      kpiHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
