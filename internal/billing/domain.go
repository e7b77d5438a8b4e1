// Package billing manages billable line items per client contract.
package billing

import (
	"errors"
	"time"
)

// ErrNotFound indicates the billing item does not exist in the active tenant.
var ErrNotFound = errors.New("billing: not found")

// Item is one billable line: guard hours, equipment, or a one-off fee.
type Item struct {
	ID          int64
	TenantID    string
	ClientID    int64
	Period      string // YYYY-MM
	Description string
	Quantity    float64
	UnitPrice   float64
	Currency    string
	CreatedAt   time.Time
}

// Amount returns the line total.
func (i Item) Amount() float64 {
	return i.Quantity * i.UnitPrice
}

// CreateItemRequest carries the fields accepted on creation.
type CreateItemRequest struct {
	ClientID    int64   `json:"clientId" validate:"required,gt=0"`
	Period      string  `json:"period" validate:"required,len=7"`
	Description string  `json:"description" validate:"required,max=300"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"required,gte=0"`
	Currency    string  `json:"currency" validate:"required,len=3,alpha"`
}
