package session

import "sync"

// Scope is the per-session tenant binding handed to domain handlers. It is
// registered with the controller as a TenantAware collaborator, so by the
// time a sign-in or refresh returns, requests reading the scope already see
// the new tenant.
type Scope struct {
	mu       sync.RWMutex
	tenantID string
}

// NewScope constructs an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// SetTenantID records the active tenant.
func (s *Scope) SetTenantID(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantID = tenantID
}

// TenantID returns the active tenant, or empty when none is selected.
func (s *Scope) TenantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantID
}

var _ TenantAware = (*Scope)(nil)
