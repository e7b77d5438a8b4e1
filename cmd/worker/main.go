package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/warden-ops/warden/internal/app"
	"github.com/warden-ops/warden/internal/clients"
	"github.com/warden-ops/warden/internal/dispatch"
	"github.com/warden-ops/warden/internal/guards"
	"github.com/warden-ops/warden/internal/kpi"
	"github.com/warden-ops/warden/internal/observability"
	"github.com/warden-ops/warden/internal/platform/cache"
	"github.com/warden-ops/warden/internal/platform/db"
	"github.com/warden-ops/warden/internal/sites"
	"github.com/warden-ops/warden/jobs"
)

type kpiRefresher struct {
	service *kpi.Service
}

func (r kpiRefresher) Refresh(ctx context.Context, tenantID string) error {
	_, err := r.service.Refresh(ctx, tenantID)
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	dispatchRepo := dispatch.NewRepository(pool)
	sitesRepo := sites.NewRepository(pool)
	guardsRepo := guards.NewRepository(pool)
	clientsRepo := clients.NewRepository(pool)

	kpiService := kpi.NewService(dispatchRepo, sitesRepo, guardsRepo, redisClient, cfg.KPICacheTTL, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queueClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	kpiTasks := jobs.KPITasks{
		Refresher: kpiRefresher{service: kpiService},
		Tenants:   clientsRepo,
		Enqueuer:  queueClient,
		Logger:    logger,
		Metrics:   metrics,
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskKPIRefresh, Handler: kpiTasks.HandleRefresh},
			{Type: jobs.TaskKPIRefreshAll, Handler: kpiTasks.HandleRefreshAll},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/5 * * * *", Task: jobs.NewKPIRefreshAllTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
