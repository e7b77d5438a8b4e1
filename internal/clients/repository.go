package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for client accounts.
type Repository interface {
	Create(ctx context.Context, client Client) (int64, error)
	Get(ctx context.Context, tenantID string, id int64) (*Client, error)
	List(ctx context.Context, tenantID string, activeOnly bool) ([]Client, error)
	Update(ctx context.Context, client Client) error
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

const clientColumns = `id, tenant_id, code, name, contact_name, contact_email, contact_phone, billing_city, is_active, created_at, updated_at`

// Create inserts a client, mapping unique violations to ErrAlreadyExists.
func (r *PGRepository) Create(ctx context.Context, client Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (tenant_id, code, name, contact_name, contact_email, contact_phone, billing_city, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id`,
		client.TenantID, client.Code, client.Name, client.ContactName,
		client.ContactEmail, client.ContactPhone, client.BillingCity,
	).Scan(&id)
	if err != nil {
		return 0, mapCreateError(err)
	}
	return id, nil
}

// mapCreateError turns a unique violation on the (tenant_id, code) index
// into ErrAlreadyExists.
func mapCreateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return fmt.Errorf("clients: create: %w", err)
}

// Get fetches one client scoped to the tenant.
func (r *PGRepository) Get(ctx context.Context, tenantID string, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanClient(row)
}

// List returns the tenant's clients ordered by name.
func (r *PGRepository) List(ctx context.Context, tenantID string, activeOnly bool) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE tenant_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()

	var result []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *client)
	}
	return result, rows.Err()
}

// TenantIDs lists every tenant that has at least one client on file.
func (r *PGRepository) TenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM clients ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("clients: tenant ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("clients: tenant ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update rewrites the mutable fields of a client.
func (r *PGRepository) Update(ctx context.Context, client Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients
		SET name = $3, contact_name = $4, contact_email = $5, contact_phone = $6,
		    billing_city = $7, is_active = $8, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		client.TenantID, client.ID, client.Name, client.ContactName,
		client.ContactEmail, client.ContactPhone, client.BillingCity, client.IsActive)
	if err != nil {
		return fmt.Errorf("clients: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a client scoped to the tenant.
func (r *PGRepository) Delete(ctx context.Context, tenantID string, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM clients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("clients: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.TenantID, &c.Code, &c.Name, &c.ContactName,
		&c.ContactEmail, &c.ContactPhone, &c.BillingCity, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clients: scan: %w", err)
	}
	return &c, nil
}

var _ Repository = (*PGRepository)(nil)
