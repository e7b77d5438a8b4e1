// Package dispatch manages dispatch tickets: incidents and service requests
// routed to guards on post sites.
package dispatch

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the ticket does not exist in the active tenant.
	ErrNotFound = errors.New("dispatch: not found")
	// ErrInvalidStatus indicates a disallowed status transition.
	ErrInvalidStatus = errors.New("dispatch: invalid status transition")
)

// TicketStatus is the lifecycle state of a dispatch ticket.
type TicketStatus string

const (
	StatusOpen     TicketStatus = "OPEN"
	StatusAssigned TicketStatus = "ASSIGNED"
	StatusOnSite   TicketStatus = "ON_SITE"
	StatusClosed   TicketStatus = "CLOSED"
	StatusCanceled TicketStatus = "CANCELED"
)

// transitions lists the allowed next states per status.
var transitions = map[TicketStatus][]TicketStatus{
	StatusOpen:     {StatusAssigned, StatusCanceled},
	StatusAssigned: {StatusOnSite, StatusOpen, StatusCanceled},
	StatusOnSite:   {StatusClosed},
}

// CanTransition reports whether moving from to next is allowed.
func CanTransition(from, next TicketStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Ticket is a dispatch ticket.
type Ticket struct {
	ID         int64
	TenantID   string
	SiteID     int64
	GuardID    *int64
	Priority   int
	Status     TicketStatus
	Summary    string
	Notes      string
	OpenedAt   time.Time
	ClosedAt   *time.Time
	UpdatedAt  time.Time
}

// OpenTicketRequest carries the fields accepted when opening a ticket.
type OpenTicketRequest struct {
	SiteID   int64  `json:"siteId" validate:"required,gt=0"`
	Priority int    `json:"priority" validate:"gte=0,lte=3"`
	Summary  string `json:"summary" validate:"required,max=300"`
	Notes    string `json:"notes" validate:"max=4000"`
}

// AssignTicketRequest assigns a guard to a ticket.
type AssignTicketRequest struct {
	GuardID int64 `json:"guardId" validate:"required,gt=0"`
}

// TransitionRequest moves a ticket to a new status.
type TransitionRequest struct {
	Status TicketStatus `json:"status" validate:"required"`
	Notes  string       `json:"notes" validate:"max=4000"`
}
