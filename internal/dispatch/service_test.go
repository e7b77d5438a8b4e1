package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryTicketRepo struct {
	tickets map[int64]Ticket
	nextID  int64
}

func newMemoryTicketRepo() *memoryTicketRepo {
	return &memoryTicketRepo{tickets: make(map[int64]Ticket)}
}

func (r *memoryTicketRepo) Create(ctx context.Context, ticket Ticket) (int64, error) {
	r.nextID++
	ticket.ID = r.nextID
	r.tickets[ticket.ID] = ticket
	return ticket.ID, nil
}

func (r *memoryTicketRepo) Get(ctx context.Context, tenantID string, id int64) (*Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok || ticket.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (r *memoryTicketRepo) List(ctx context.Context, tenantID string, status TicketStatus) ([]Ticket, error) {
	var out []Ticket
	for _, ticket := range r.tickets {
		if ticket.TenantID != tenantID {
			continue
		}
		if status != "" && ticket.Status != status {
			continue
		}
		out = append(out, ticket)
	}
	return out, nil
}

func (r *memoryTicketRepo) Mutate(ctx context.Context, tenantID string, id int64, fn func(*Ticket) error) (*Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok || ticket.TenantID != tenantID {
		return nil, ErrNotFound
	}
	if err := fn(&ticket); err != nil {
		return nil, err
	}
	r.tickets[id] = ticket
	return &ticket, nil
}

func (r *memoryTicketRepo) CountByStatus(ctx context.Context, tenantID string) (map[TicketStatus]int, error) {
	counts := make(map[TicketStatus]int)
	for _, ticket := range r.tickets {
		if ticket.TenantID == tenantID {
			counts[ticket.Status]++
		}
	}
	return counts, nil
}

func TestTicketLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTicketRepo()
	service := NewService(repo)

	ticket, err := service.Open(ctx, "t1", OpenTicketRequest{SiteID: 4, Priority: 2, Summary: "  alarm triggered  "})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, ticket.Status)
	require.Equal(t, "alarm triggered", ticket.Summary)
	require.False(t, ticket.OpenedAt.IsZero())

	ticket, err = service.Assign(ctx, "t1", ticket.ID, AssignTicketRequest{GuardID: 9})
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, ticket.Status)
	require.NotNil(t, ticket.GuardID)
	require.Equal(t, int64(9), *ticket.GuardID)

	ticket, err = service.Transition(ctx, "t1", ticket.ID, TransitionRequest{Status: StatusOnSite})
	require.NoError(t, err)
	require.Equal(t, StatusOnSite, ticket.Status)

	ticket, err = service.Transition(ctx, "t1", ticket.ID, TransitionRequest{Status: StatusClosed, Notes: "resolved"})
	require.NoError(t, err)
	require.Equal(t, StatusClosed, ticket.Status)
	require.Equal(t, "resolved", ticket.Notes)
	require.NotNil(t, ticket.ClosedAt)
}

func TestTransitionRules(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		allowed  bool
	}{
		{StatusOpen, StatusAssigned, true},
		{StatusOpen, StatusCanceled, true},
		{StatusOpen, StatusClosed, false},
		{StatusOpen, StatusOnSite, false},
		{StatusAssigned, StatusOnSite, true},
		{StatusAssigned, StatusOpen, true},
		{StatusAssigned, StatusCanceled, true},
		{StatusOnSite, StatusClosed, true},
		{StatusOnSite, StatusCanceled, false},
		{StatusClosed, StatusOpen, false},
		{StatusCanceled, StatusAssigned, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTicketRepo()
	service := NewService(repo)

	ticket, err := service.Open(ctx, "t1", OpenTicketRequest{SiteID: 1, Summary: "patrol request"})
	require.NoError(t, err)

	_, err = service.Transition(ctx, "t1", ticket.ID, TransitionRequest{Status: StatusClosed})
	require.ErrorIs(t, err, ErrInvalidStatus)

	// The failed transition must not have touched the stored ticket.
	stored, err := service.Get(ctx, "t1", ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, stored.Status)
}

func TestTicketsAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTicketRepo()
	service := NewService(repo)

	ticket, err := service.Open(ctx, "t1", OpenTicketRequest{SiteID: 1, Summary: "gate damage"})
	require.NoError(t, err)

	_, err = service.Get(ctx, "t2", ticket.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = service.Assign(ctx, "t2", ticket.ID, AssignTicketRequest{GuardID: 3})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWorkload(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTicketRepo()
	service := NewService(repo)

	for i := 0; i < 3; i++ {
		_, err := service.Open(ctx, "t1", OpenTicketRequest{SiteID: 1, Summary: "routine"})
		require.NoError(t, err)
	}
	ticket, err := service.Open(ctx, "t1", OpenTicketRequest{SiteID: 2, Summary: "incident"})
	require.NoError(t, err)
	_, err = service.Assign(ctx, "t1", ticket.ID, AssignTicketRequest{GuardID: 7})
	require.NoError(t, err)

	counts, err := service.Workload(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 3, counts[StatusOpen])
	require.Equal(t, 1, counts[StatusAssigned])
}
