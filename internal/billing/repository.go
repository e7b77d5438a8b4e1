package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for billing items.
type Repository interface {
	Create(ctx context.Context, item Item) (int64, error)
	Get(ctx context.Context, tenantID string, id int64) (*Item, error)
	ListByPeriod(ctx context.Context, tenantID, period string) ([]Item, error)
	Delete(ctx context.Context, tenantID string, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `id, tenant_id, client_id, period, description, quantity, unit_price, currency, created_at`

// Create inserts a billing item.
func (r *PGRepository) Create(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO billing_items (tenant_id, client_id, period, description, quantity, unit_price, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		item.TenantID, item.ClientID, item.Period, item.Description,
		item.Quantity, item.UnitPrice, item.Currency,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("billing: create: %w", err)
	}
	return id, nil
}

// Get fetches one item scoped to the tenant.
func (r *PGRepository) Get(ctx context.Context, tenantID string, id int64) (*Item, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM billing_items WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanItem(row)
}

// ListByPeriod returns the tenant's items for one YYYY-MM period.
func (r *PGRepository) ListByPeriod(ctx context.Context, tenantID, period string) ([]Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM billing_items WHERE tenant_id = $1 AND period = $2 ORDER BY client_id, id`,
		tenantID, period)
	if err != nil {
		return nil, fmt.Errorf("billing: list by period: %w", err)
	}
	defer rows.Close()

	var result []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

// Delete removes an item scoped to the tenant.
func (r *PGRepository) Delete(ctx context.Context, tenantID string, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM billing_items WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("billing: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.TenantID, &i.ClientID, &i.Period, &i.Description,
		&i.Quantity, &i.UnitPrice, &i.Currency, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: scan: %w", err)
	}
	return &i, nil
}

var _ Repository = (*PGRepository)(nil)
