package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "github.com/warden-ops/warden/testing"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "sess-1", time.Hour, slog.Default()), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	require.Equal(t, CredentialRecord{}, store.Record(ctx))

	store.SetToken(ctx, "tok-1")
	store.SetTenantID(ctx, "t1")
	store.SetSnapshot(ctx, []string{"clientRead", "siteRead"}, true)

	record := store.Record(ctx)
	require.Equal(t, "tok-1", record.Token)
	require.Equal(t, "t1", record.TenantID)
	require.Equal(t, []string{"clientRead", "siteRead"}, record.Permissions)
	require.True(t, record.IsAdmin)
}

func TestRedisStorePartialWritesPreserveRecord(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	store.SetToken(ctx, "tok-1")
	store.SetSnapshot(ctx, []string{"clientRead"}, false)
	store.SetTenantID(ctx, "t2")

	record := store.Record(ctx)
	require.Equal(t, "tok-1", record.Token)
	require.Equal(t, "t2", record.TenantID)
	require.Equal(t, []string{"clientRead"}, record.Permissions)
}

func TestRedisStoreClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	store.SetToken(ctx, "tok-1")
	store.SetTenantID(ctx, "t1")
	store.Clear(ctx)

	require.Equal(t, CredentialRecord{}, store.Record(ctx))
}

func TestRedisStoreDegradesWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	store.SetToken(ctx, "tok-1")
	mr.Close()

	// Storage loss must never surface as an error, only as an absent record.
	require.NotPanics(t, func() {
		store.SetToken(ctx, "tok-2")
		store.SetTenantID(ctx, "t1")
		store.SetSnapshot(ctx, []string{"x"}, true)
		store.Clear(ctx)
		require.Equal(t, CredentialRecord{}, store.Record(ctx))
	})
}

func TestRedisStoreCorruptRecordReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, mr.Set("warden:cred:sess-1", "{not json"))
	require.Equal(t, CredentialRecord{}, store.Record(ctx))
}

func TestRedisStoreExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	store.SetToken(ctx, "tok-1")
	mr.FastForward(2 * time.Hour)

	require.Equal(t, CredentialRecord{}, store.Record(ctx))
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.SetSnapshot(ctx, []string{"a"}, false)
	record := store.Record(ctx)
	record.Permissions[0] = "mutated"

	require.Equal(t, []string{"a"}, store.Record(ctx).Permissions)
}
