// Package guards manages the guard roster and post-site check-ins.
package guards

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the guard does not exist in the active tenant.
	ErrNotFound = errors.New("guards: not found")
	// ErrInvalidPIN indicates a failed check-in PIN verification.
	ErrInvalidPIN = errors.New("guards: invalid check-in pin")
)

// Guard is a member of the roster.
type Guard struct {
	ID          int64
	TenantID    string
	BadgeNumber string
	Name        string
	Phone       string
	PINHash     string `json:"-"`
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CheckIn records a guard arriving at a post site.
type CheckIn struct {
	ID        int64
	TenantID  string
	GuardID   int64
	SiteID    int64
	CheckedAt time.Time
}

// CreateGuardRequest carries the fields accepted on creation.
type CreateGuardRequest struct {
	BadgeNumber string `json:"badgeNumber" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"max=40"`
	PIN         string `json:"pin" validate:"required,len=6,numeric"`
}

// CheckInRequest verifies a guard's PIN at a site.
type CheckInRequest struct {
	GuardID int64  `json:"guardId" validate:"required,gt=0"`
	SiteID  int64  `json:"siteId" validate:"required,gt=0"`
	PIN     string `json:"pin" validate:"required,len=6,numeric"`
}
