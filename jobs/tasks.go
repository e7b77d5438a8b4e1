package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/warden-ops/warden/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskKPIRefresh recomputes the dashboard snapshot for one tenant.
	TaskKPIRefresh = "kpi:refresh"
	// TaskKPIRefreshAll fans out a refresh for every known tenant.
	TaskKPIRefreshAll = "kpi:refresh_all"
)

// KPIRefreshPayload names the tenant whose snapshot should be rebuilt.
type KPIRefreshPayload struct {
	TenantID string `json:"tenantId"`
}

// Refresher rebuilds a tenant's KPI snapshot, bypassing the cache.
type Refresher interface {
	Refresh(ctx context.Context, tenantID string) error
}

// TenantSource enumerates tenants for fan-out jobs.
type TenantSource interface {
	TenantIDs(ctx context.Context) ([]string, error)
}

// NewKPIRefreshTask constructs a per-tenant refresh task.
func NewKPIRefreshTask(payload KPIRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPIRefresh, data), nil
}

// NewKPIRefreshAllTask constructs the fan-out task used by the scheduler.
func NewKPIRefreshAllTask() *asynq.Task {
	return asynq.NewTask(TaskKPIRefreshAll, nil)
}

// KPITasks bundles the handlers for KPI maintenance jobs.
type KPITasks struct {
	Refresher Refresher
	Tenants   TenantSource
	Enqueuer  Enqueuer
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Enqueuer submits follow-up tasks from within a handler.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// HandleRefresh processes TaskKPIRefresh.
func (t KPITasks) HandleRefresh(ctx context.Context, task *asynq.Task) error {
	var payload KPIRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.TenantID == "" {
		return asynq.SkipRetry
	}
	start := time.Now()
	err := t.Refresher.Refresh(ctx, payload.TenantID)
	t.Metrics.ObserveJob(TaskKPIRefresh, err, time.Since(start))
	if err != nil {
		t.Logger.Error("kpi refresh",
			slog.String("tenant", payload.TenantID),
			slog.Any("error", err))
		return err
	}
	t.Logger.Info("kpi refreshed", slog.String("tenant", payload.TenantID))
	return nil
}

// HandleRefreshAll processes TaskKPIRefreshAll by enqueueing one refresh per
// tenant, so a slow tenant cannot starve the rest.
func (t KPITasks) HandleRefreshAll(ctx context.Context, task *asynq.Task) error {
	start := time.Now()
	tenants, err := t.Tenants.TenantIDs(ctx)
	t.Metrics.ObserveJob(TaskKPIRefreshAll, err, time.Since(start))
	if err != nil {
		t.Logger.Error("kpi refresh fan-out", slog.Any("error", err))
		return err
	}
	for _, tenantID := range tenants {
		refresh, err := NewKPIRefreshTask(KPIRefreshPayload{TenantID: tenantID})
		if err != nil {
			return err
		}
		if _, err := t.Enqueuer.EnqueueContext(ctx, refresh, asynq.Queue(QueueDefault)); err != nil {
			t.Logger.Error("enqueue kpi refresh",
				slog.String("tenant", tenantID),
				slog.Any("error", err))
			return err
		}
	}
	t.Logger.Info("kpi refresh fan-out", slog.Int("tenants", len(tenants)))
	return nil
}
