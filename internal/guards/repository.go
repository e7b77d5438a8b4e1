package guards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for the guard roster.
type Repository interface {
	Create(ctx context.Context, guard Guard) (int64, error)
	Get(ctx context.Context, tenantID string, id int64) (*Guard, error)
	List(ctx context.Context, tenantID string) ([]Guard, error)
	RecordCheckIn(ctx context.Context, checkIn CheckIn) (int64, error)
	CheckInsSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const guardColumns = `id, tenant_id, badge_number, name, phone, pin_hash, is_active, created_at, updated_at`

// Create inserts a new guard.
func (r *PGRepository) Create(ctx context.Context, guard Guard) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO guards (tenant_id, badge_number, name, phone, pin_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id`,
		guard.TenantID, guard.BadgeNumber, guard.Name, guard.Phone, guard.PINHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("guards: create: %w", err)
	}
	return id, nil
}

// Get fetches one guard scoped to the tenant.
func (r *PGRepository) Get(ctx context.Context, tenantID string, id int64) (*Guard, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+guardColumns+` FROM guards WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanGuard(row)
}

// List returns the tenant's roster ordered by name.
func (r *PGRepository) List(ctx context.Context, tenantID string) ([]Guard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+guardColumns+` FROM guards WHERE tenant_id = $1 ORDER BY name`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("guards: list: %w", err)
	}
	defer rows.Close()

	var result []Guard
	for rows.Next() {
		guard, err := scanGuard(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *guard)
	}
	return result, rows.Err()
}

// RecordCheckIn persists a successful check-in.
func (r *PGRepository) RecordCheckIn(ctx context.Context, checkIn CheckIn) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO guard_check_ins (tenant_id, guard_id, site_id, checked_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		checkIn.TenantID, checkIn.GuardID, checkIn.SiteID, checkIn.CheckedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("guards: record check-in: %w", err)
	}
	return id, nil
}

// CheckInsSince counts check-ins after the cutoff, for the KPI board.
func (r *PGRepository) CheckInsSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM guard_check_ins WHERE tenant_id = $1 AND checked_at >= $2`,
		tenantID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("guards: check-ins since: %w", err)
	}
	return count, nil
}

func scanGuard(row pgx.Row) (*Guard, error) {
	var g Guard
	err := row.Scan(&g.ID, &g.TenantID, &g.BadgeNumber, &g.Name, &g.Phone,
		&g.PINHash, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("guards: scan: %w", err)
	}
	return &g, nil
}

var _ Repository = (*PGRepository)(nil)
