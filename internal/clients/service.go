package clients

import (
	"context"
	"fmt"
	"strings"
)

// Service wraps client account business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new client account in the tenant.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateClientRequest) (*Client, error) {
	client := Client{
		TenantID:     tenantID,
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:         strings.TrimSpace(req.Name),
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		BillingCity:  strings.TrimSpace(req.BillingCity),
		IsActive:     true,
	}

	id, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, err
	}
	client.ID = id
	return &client, nil
}

// Get fetches one client.
func (s *Service) Get(ctx context.Context, tenantID string, id int64) (*Client, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns the tenant's clients.
func (s *Service) List(ctx context.Context, tenantID string, activeOnly bool) ([]Client, error) {
	return s.repo.List(ctx, tenantID, activeOnly)
}

// Update applies the non-nil fields of req to an existing client.
func (s *Service) Update(ctx context.Context, tenantID string, id int64, req UpdateClientRequest) (*Client, error) {
	existing, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactName != nil {
		existing.ContactName = strings.TrimSpace(*req.ContactName)
	}
	if req.ContactEmail != nil {
		existing.ContactEmail = strings.TrimSpace(*req.ContactEmail)
	}
	if req.ContactPhone != nil {
		existing.ContactPhone = strings.TrimSpace(*req.ContactPhone)
	}
	if req.BillingCity != nil {
		existing.BillingCity = strings.TrimSpace(*req.BillingCity)
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a client account.
func (s *Service) Delete(ctx context.Context, tenantID string, id int64) error {
	return s.repo.Delete(ctx, tenantID, id)
}
