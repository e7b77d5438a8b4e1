package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-ops/warden/internal/platform/db"
)

// Repository defines persistence operations for dispatch tickets.
type Repository interface {
	Create(ctx context.Context, ticket Ticket) (int64, error)
	Get(ctx context.Context, tenantID string, id int64) (*Ticket, error)
	List(ctx context.Context, tenantID string, status TicketStatus) ([]Ticket, error)
	Mutate(ctx context.Context, tenantID string, id int64, fn func(*Ticket) error) (*Ticket, error)
	CountByStatus(ctx context.Context, tenantID string) (map[TicketStatus]int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const ticketColumns = `id, tenant_id, site_id, guard_id, priority, status, summary, notes, opened_at, closed_at, updated_at`

// Create inserts a new ticket in OPEN state.
func (r *PGRepository) Create(ctx context.Context, ticket Ticket) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO dispatch_tickets (tenant_id, site_id, priority, status, summary, notes, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		ticket.TenantID, ticket.SiteID, ticket.Priority, ticket.Status,
		ticket.Summary, ticket.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("dispatch: create: %w", err)
	}
	return id, nil
}

// Get fetches one ticket scoped to the tenant.
func (r *PGRepository) Get(ctx context.Context, tenantID string, id int64) (*Ticket, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM dispatch_tickets WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanTicket(row)
}

// List returns tickets, optionally filtered by status, newest first.
func (r *PGRepository) List(ctx context.Context, tenantID string, status TicketStatus) ([]Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM dispatch_tickets WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY opened_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dispatch: list: %w", err)
	}
	defer rows.Close()

	var result []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// Mutate loads a ticket under a row lock, applies fn and writes the mutable
// fields back, all in one transaction. Status and closed_at change together,
// and concurrent transitions against the same ticket serialize on the lock.
func (r *PGRepository) Mutate(ctx context.Context, tenantID string, id int64, fn func(*Ticket) error) (*Ticket, error) {
	var ticket *Ticket
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+ticketColumns+` FROM dispatch_tickets WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
			tenantID, id)
		t, err := scanTicket(row)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE dispatch_tickets
			SET guard_id = $3, priority = $4, status = $5, notes = $6, closed_at = $7, updated_at = NOW()
			WHERE tenant_id = $1 AND id = $2`,
			t.TenantID, t.ID, t.GuardID, t.Priority,
			t.Status, t.Notes, t.ClosedAt); err != nil {
			return fmt.Errorf("dispatch: update: %w", err)
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// CountByStatus aggregates open workload for the KPI board.
func (r *PGRepository) CountByStatus(ctx context.Context, tenantID string) (map[TicketStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM dispatch_tickets WHERE tenant_id = $1 GROUP BY status`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[TicketStatus]int)
	for rows.Next() {
		var status TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("dispatch: scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.TenantID, &t.SiteID, &t.GuardID, &t.Priority,
		&t.Status, &t.Summary, &t.Notes, &t.OpenedAt, &t.ClosedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("dispatch: scan: %w", err)
	}
	return &t, nil
}

var _ Repository = (*PGRepository)(nil)
