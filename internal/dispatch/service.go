package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service wraps dispatch ticket business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Open creates a ticket in OPEN state.
func (s *Service) Open(ctx context.Context, tenantID string, req OpenTicketRequest) (*Ticket, error) {
	ticket := Ticket{
		TenantID: tenantID,
		SiteID:   req.SiteID,
		Priority: req.Priority,
		Status:   StatusOpen,
		Summary:  strings.TrimSpace(req.Summary),
		Notes:    strings.TrimSpace(req.Notes),
		OpenedAt: time.Now().UTC(),
	}
	id, err := s.repo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}
	ticket.ID = id
	return &ticket, nil
}

// Assign attaches a guard and moves the ticket to ASSIGNED. The transition
// check runs inside the repository mutation so a concurrent transition
// cannot slip between the read and the write.
func (s *Service) Assign(ctx context.Context, tenantID string, id int64, req AssignTicketRequest) (*Ticket, error) {
	return s.repo.Mutate(ctx, tenantID, id, func(ticket *Ticket) error {
		if !CanTransition(ticket.Status, StatusAssigned) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, ticket.Status, StatusAssigned)
		}
		guardID := req.GuardID
		ticket.GuardID = &guardID
		ticket.Status = StatusAssigned
		return nil
	})
}

// Transition moves a ticket along its lifecycle.
func (s *Service) Transition(ctx context.Context, tenantID string, id int64, req TransitionRequest) (*Ticket, error) {
	return s.repo.Mutate(ctx, tenantID, id, func(ticket *Ticket) error {
		if !CanTransition(ticket.Status, req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, ticket.Status, req.Status)
		}
		ticket.Status = req.Status
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			ticket.Notes = notes
		}
		if req.Status == StatusClosed || req.Status == StatusCanceled {
			now := time.Now().UTC()
			ticket.ClosedAt = &now
		}
		return nil
	})
}

// Get fetches one ticket.
func (s *Service) Get(ctx context.Context, tenantID string, id int64) (*Ticket, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns tickets, optionally filtered by status.
func (s *Service) List(ctx context.Context, tenantID string, status TicketStatus) ([]Ticket, error) {
	return s.repo.List(ctx, tenantID, status)
}

// Workload aggregates ticket counts by status.
func (s *Service) Workload(ctx context.Context, tenantID string) (map[TicketStatus]int, error) {
	return s.repo.CountByStatus(ctx, tenantID)
}
