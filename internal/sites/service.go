package sites

import (
	"context"
	"strings"
)

// Service wraps post-site business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new post site.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateSiteRequest) (*Site, error) {
	site := Site{
		TenantID:   tenantID,
		ClientID:   req.ClientID,
		Name:       strings.TrimSpace(req.Name),
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		GuardSlots: req.GuardSlots,
		IsActive:   true,
	}
	id, err := s.repo.Create(ctx, site)
	if err != nil {
		return nil, err
	}
	site.ID = id
	return &site, nil
}

// Get fetches one site.
func (s *Service) Get(ctx context.Context, tenantID string, id int64) (*Site, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns sites, optionally restricted to one client.
func (s *Service) List(ctx context.Context, tenantID string, clientID int64) ([]Site, error) {
	if clientID > 0 {
		return s.repo.ListByClient(ctx, tenantID, clientID)
	}
	return s.repo.List(ctx, tenantID)
}

// Update applies the non-nil fields of req to an existing site.
func (s *Service) Update(ctx context.Context, tenantID string, id int64, req UpdateSiteRequest) (*Site, error) {
	existing, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		existing.Address = strings.TrimSpace(*req.Address)
	}
	if req.City != nil {
		existing.City = strings.TrimSpace(*req.City)
	}
	if req.GuardSlots != nil {
		existing.GuardSlots = *req.GuardSlots
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}
