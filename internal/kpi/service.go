// Package kpi aggregates the console dashboard numbers per tenant.
package kpi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warden-ops/warden/internal/dispatch"
)

// Snapshot is the dashboard summary for one tenant.
type Snapshot struct {
	TenantID       string    `json:"tenantId"`
	OpenTickets    int       `json:"openTickets"`
	OnSiteTickets  int       `json:"onSiteTickets"`
	GuardSlots     int       `json:"guardSlots"`
	ActiveSlots    int       `json:"activeSlots"`
	CheckIns24h    int       `json:"checkIns24h"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// TicketCounter supplies dispatch workload numbers.
type TicketCounter interface {
	CountByStatus(ctx context.Context, tenantID string) (map[dispatch.TicketStatus]int, error)
}

// CoverageSource supplies guard-slot coverage totals.
type CoverageSource interface {
	CoverageTotals(ctx context.Context, tenantID string) (slots int, active int, err error)
}

// CheckInCounter supplies recent check-in counts.
type CheckInCounter interface {
	CheckInsSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}

// Service computes and caches KPI snapshots.
type Service struct {
	tickets  TicketCounter
	coverage CoverageSource
	checkIns CheckInCounter
	cache    *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService constructs a Service. cache may be nil; snapshots are then
// recomputed on every call.
func NewService(tickets TicketCounter, coverage CoverageSource, checkIns CheckInCounter, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		tickets:  tickets,
		coverage: coverage,
		checkIns: checkIns,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

func (s *Service) cacheKey(tenantID string) string {
	return "warden:kpi:" + tenantID
}

// Snapshot returns the tenant's dashboard numbers, serving from cache when
// fresh.
func (s *Service) Snapshot(ctx context.Context, tenantID string) (*Snapshot, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, s.cacheKey(tenantID)).Bytes()
		if err == nil {
			var cached Snapshot
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("kpi cache read", slog.Any("error", err))
		}
	}
	return s.Refresh(ctx, tenantID)
}

// Refresh recomputes the snapshot and rewrites the cache.
func (s *Service) Refresh(ctx context.Context, tenantID string) (*Snapshot, error) {
	counts, err := s.tickets.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("kpi: ticket counts: %w", err)
	}
	slots, active, err := s.coverage.CoverageTotals(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("kpi: coverage: %w", err)
	}
	recent, err := s.checkIns.CheckInsSince(ctx, tenantID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("kpi: check-ins: %w", err)
	}

	snapshot := &Snapshot{
		TenantID:      tenantID,
		OpenTickets:   counts[dispatch.StatusOpen] + counts[dispatch.StatusAssigned],
		OnSiteTickets: counts[dispatch.StatusOnSite],
		GuardSlots:    slots,
		ActiveSlots:   active,
		CheckIns24h:   recent,
		GeneratedAt:   time.Now().UTC(),
	}

	if s.cache != nil {
		if data, err := json.Marshal(snapshot); err == nil {
			if err := s.cache.Set(ctx, s.cacheKey(tenantID), data, s.ttl).Err(); err != nil && s.logger != nil {
				s.logger.Warn("kpi cache write", slog.Any("error", err))
			}
		}
	}
	return snapshot, nil
}
