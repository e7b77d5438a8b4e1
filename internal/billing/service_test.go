package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryItemRepo struct {
	items  map[int64]Item
	nextID int64
}

func newMemoryItemRepo() *memoryItemRepo {
	return &memoryItemRepo{items: make(map[int64]Item)}
}

func (r *memoryItemRepo) Create(ctx context.Context, item Item) (int64, error) {
	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = item
	return item.ID, nil
}

func (r *memoryItemRepo) Get(ctx context.Context, tenantID string, id int64) (*Item, error) {
	item, ok := r.items[id]
	if !ok || item.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *memoryItemRepo) ListByPeriod(ctx context.Context, tenantID, period string) ([]Item, error) {
	var out []Item
	for _, item := range r.items {
		if item.TenantID == tenantID && item.Period == period {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memoryItemRepo) Delete(ctx context.Context, tenantID string, id int64) error {
	item, ok := r.items[id]
	if !ok || item.TenantID != tenantID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func TestCreateNormalizesItem(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMemoryItemRepo())

	item, err := service.Create(ctx, "t1", CreateItemRequest{
		ClientID:    3,
		Period:      "2026-08",
		Description: "  guard hours  ",
		Quantity:    160,
		UnitPrice:   18.5,
		Currency:    "usd",
	})
	require.NoError(t, err)
	require.Equal(t, "guard hours", item.Description)
	require.Equal(t, "USD", item.Currency)
	require.InDelta(t, 2960.0, item.Amount(), 0.001)
}

func TestCreateRejectsBadPeriod(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMemoryItemRepo())

	for _, period := range []string{"2026-13", "2026-00", "202608", "26-08", "2026-8"} {
		_, err := service.Create(ctx, "t1", CreateItemRequest{
			ClientID: 3, Period: period, Description: "x", Quantity: 1, UnitPrice: 1, Currency: "USD",
		})
		require.Error(t, err, "period %s", period)
	}
}

func TestListByPeriodValidatesPeriod(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMemoryItemRepo())

	_, err := service.ListByPeriod(ctx, "t1", "august")
	require.Error(t, err)
}

func TestDeleteIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryItemRepo()
	service := NewService(repo)

	item, err := service.Create(ctx, "t1", CreateItemRequest{
		ClientID: 3, Period: "2026-08", Description: "x", Quantity: 1, UnitPrice: 1, Currency: "USD",
	})
	require.NoError(t, err)

	require.ErrorIs(t, service.Delete(ctx, "t2", item.ID), ErrNotFound)
	require.NoError(t, service.Delete(ctx, "t1", item.ID))
}
