// Package clients manages the guard company's client accounts.
package clients

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the client does not exist in the active tenant.
	ErrNotFound = errors.New("clients: not found")
	// ErrAlreadyExists indicates a duplicate client code within the tenant.
	ErrAlreadyExists = errors.New("clients: code already exists")
)

// Client is a customer account that contracts guard services.
type Client struct {
	ID            int64
	TenantID      string
	Code          string
	Name          string
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	BillingCity   string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateClientRequest carries the fields accepted on creation.
type CreateClientRequest struct {
	Code         string `json:"code" validate:"required,max=32"`
	Name         string `json:"name" validate:"required,max=200"`
	ContactName  string `json:"contactName" validate:"max=200"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string `json:"contactPhone" validate:"max=40"`
	BillingCity  string `json:"billingCity" validate:"max=100"`
}

// UpdateClientRequest carries optional updates; nil fields are untouched.
type UpdateClientRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=200"`
	ContactName  *string `json:"contactName" validate:"omitempty,max=200"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string `json:"contactPhone" validate:"omitempty,max=40"`
	BillingCity  *string `json:"billingCity" validate:"omitempty,max=100"`
	IsActive     *bool   `json:"isActive"`
}
