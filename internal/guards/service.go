package guards

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Service wraps roster and check-in business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a guard, storing only a bcrypt hash of the check-in PIN.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateGuardRequest) (*Guard, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	guard := Guard{
		TenantID:    tenantID,
		BadgeNumber: strings.ToUpper(strings.TrimSpace(req.BadgeNumber)),
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		PINHash:     string(hash),
		IsActive:    true,
	}
	id, err := s.repo.Create(ctx, guard)
	if err != nil {
		return nil, err
	}
	guard.ID = id
	guard.PINHash = ""
	return &guard, nil
}

// Get fetches one guard.
func (s *Service) Get(ctx context.Context, tenantID string, id int64) (*Guard, error) {
	guard, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	guard.PINHash = ""
	return guard, nil
}

// List returns the tenant's roster.
func (s *Service) List(ctx context.Context, tenantID string) ([]Guard, error) {
	roster, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range roster {
		roster[i].PINHash = ""
	}
	return roster, nil
}

// CheckIn verifies the guard's PIN and records the arrival at the site.
// A wrong PIN and an inactive guard both report ErrInvalidPIN so callers
// cannot probe the roster.
func (s *Service) CheckIn(ctx context.Context, tenantID string, req CheckInRequest) (*CheckIn, error) {
	guard, err := s.repo.Get(ctx, tenantID, req.GuardID)
	if err != nil {
		return nil, err
	}
	if !guard.IsActive {
		return nil, ErrInvalidPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(guard.PINHash), []byte(req.PIN)); err != nil {
		return nil, ErrInvalidPIN
	}

	checkIn := CheckIn{
		TenantID:  tenantID,
		GuardID:   req.GuardID,
		SiteID:    req.SiteID,
		CheckedAt: time.Now().UTC(),
	}
	id, err := s.repo.RecordCheckIn(ctx, checkIn)
	if err != nil {
		return nil, err
	}
	checkIn.ID = id
	return &checkIn, nil
}
