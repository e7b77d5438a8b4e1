package sites

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for post sites.
type Repository interface {
	Create(ctx context.Context, site Site) (int64, error)
	Get(ctx context.Context, tenantID string, id int64) (*Site, error)
	ListByClient(ctx context.Context, tenantID string, clientID int64) ([]Site, error)
	List(ctx context.Context, tenantID string) ([]Site, error)
	Update(ctx context.Context, site Site) error
	CoverageTotals(ctx context.Context, tenantID string) (slots int, active int, err error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const siteColumns = `id, tenant_id, client_id, name, address, city, guard_slots, is_active, created_at, updated_at`

// Create inserts a new site.
func (r *PGRepository) Create(ctx context.Context, site Site) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO post_sites (tenant_id, client_id, name, address, city, guard_slots, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id`,
		site.TenantID, site.ClientID, site.Name, site.Address, site.City, site.GuardSlots,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sites: create: %w", err)
	}
	return id, nil
}

// Get fetches one site scoped to the tenant.
func (r *PGRepository) Get(ctx context.Context, tenantID string, id int64) (*Site, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+siteColumns+` FROM post_sites WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanSite(row)
}

// ListByClient returns a client's sites ordered by name.
func (r *PGRepository) ListByClient(ctx context.Context, tenantID string, clientID int64) ([]Site, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+siteColumns+` FROM post_sites WHERE tenant_id = $1 AND client_id = $2 ORDER BY name`,
		tenantID, clientID)
	if err != nil {
		return nil, fmt.Errorf("sites: list by client: %w", err)
	}
	return collectSites(rows)
}

// List returns all the tenant's sites ordered by name.
func (r *PGRepository) List(ctx context.Context, tenantID string) ([]Site, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+siteColumns+` FROM post_sites WHERE tenant_id = $1 ORDER BY name`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("sites: list: %w", err)
	}
	return collectSites(rows)
}

// Update rewrites the mutable fields of a site.
func (r *PGRepository) Update(ctx context.Context, site Site) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE post_sites
		SET name = $3, address = $4, city = $5, guard_slots = $6, is_active = $7, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		site.TenantID, site.ID, site.Name, site.Address, site.City, site.GuardSlots, site.IsActive)
	if err != nil {
		return fmt.Errorf("sites: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CoverageTotals sums guard slots over all sites and over active ones, for the
// KPI board.
func (r *PGRepository) CoverageTotals(ctx context.Context, tenantID string) (int, int, error) {
	var slots, active int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(guard_slots), 0),
		       COALESCE(SUM(guard_slots) FILTER (WHERE is_active), 0)
		FROM post_sites WHERE tenant_id = $1`,
		tenantID).Scan(&slots, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("sites: coverage totals: %w", err)
	}
	return slots, active, nil
}

func collectSites(rows pgx.Rows) ([]Site, error) {
	defer rows.Close()
	var result []Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *site)
	}
	return result, rows.Err()
}

func scanSite(row pgx.Row) (*Site, error) {
	var s Site
	err := row.Scan(&s.ID, &s.TenantID, &s.ClientID, &s.Name, &s.Address,
		&s.City, &s.GuardSlots, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sites: scan: %w", err)
	}
	return &s, nil
}

var _ Repository = (*PGRepository)(nil)
