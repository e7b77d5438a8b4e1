package billing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Service wraps billing business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a billing item after validating the period format.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateItemRequest) (*Item, error) {
	if !periodPattern.MatchString(req.Period) {
		return nil, fmt.Errorf("billing: period must be YYYY-MM, got %q", req.Period)
	}
	item := Item{
		TenantID:    tenantID,
		ClientID:    req.ClientID,
		Period:      req.Period,
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Currency:    strings.ToUpper(req.Currency),
	}
	id, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id
	return &item, nil
}

// ListByPeriod returns items for one period.
func (s *Service) ListByPeriod(ctx context.Context, tenantID, period string) ([]Item, error) {
	if !periodPattern.MatchString(period) {
		return nil, fmt.Errorf("billing: period must be YYYY-MM, got %q", period)
	}
	return s.repo.ListByPeriod(ctx, tenantID, period)
}

// Delete removes a billing item.
func (s *Service) Delete(ctx context.Context, tenantID string, id int64) error {
	return s.repo.Delete(ctx, tenantID, id)
}
