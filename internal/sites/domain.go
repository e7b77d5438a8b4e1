// Package sites manages post sites: the client locations guards are posted to.
package sites

import (
	"errors"
	"time"
)

// ErrNotFound indicates the site does not exist in the active tenant.
var ErrNotFound = errors.New("sites: not found")

// Site is a guarded post site.
type Site struct {
	ID         int64
	TenantID   string
	ClientID   int64
	Name       string
	Address    string
	City       string
	GuardSlots int
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateSiteRequest carries the fields accepted on creation.
type CreateSiteRequest struct {
	ClientID   int64  `json:"clientId" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address" validate:"max=300"`
	City       string `json:"city" validate:"max=100"`
	GuardSlots int    `json:"guardSlots" validate:"gte=0,lte=500"`
}

// UpdateSiteRequest carries optional updates; nil fields are untouched.
type UpdateSiteRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=200"`
	Address    *string `json:"address" validate:"omitempty,max=300"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	GuardSlots *int    `json:"guardSlots" validate:"omitempty,gte=0,lte=500"`
	IsActive   *bool   `json:"isActive"`
}
