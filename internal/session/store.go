// Package session owns the console's authorization facts: who the user is,
// which tenant is active, and which permissions the identity service granted.
// Everything cached here is a convenience layer, never an authority.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CredentialRecord is the persisted cache: the bearer token, the active
// tenant, and the last known permission snapshot. It exists to avoid a
// permission flash between console boot and the first profile fetch, and is
// always superseded by a non-empty network result.
type CredentialRecord struct {
	Token       string   `json:"token"`
	TenantID    string   `json:"tenant_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	IsAdmin     bool     `json:"is_admin,omitempty"`
}

// CredentialStore persists the credential record. Implementations must never
// surface storage failures: losing this cache costs a permission flash, not
// correctness, so every operation degrades to absent/no-op instead.
type CredentialStore interface {
	Record(ctx context.Context) CredentialRecord
	SetToken(ctx context.Context, token string)
	SetTenantID(ctx context.Context, tenantID string)
	SetSnapshot(ctx context.Context, permissions []string, isAdmin bool)
	Clear(ctx context.Context)
}

// RedisStore keeps one credential record per console session in Redis.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore constructs a store bound to one console session id.
func NewRedisStore(client *redis.Client, sessionID string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		key:    "warden:cred:" + sessionID,
		ttl:    ttl,
		logger: logger,
	}
}

// Record loads the current record, or a zero record when absent or on any
// storage failure.
func (s *RedisStore) Record(ctx context.Context) CredentialRecord {
	var record CredentialRecord
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.warn("credential read", err)
		}
		return record
	}
	if err := json.Unmarshal(data, &record); err != nil {
		s.warn("credential decode", err)
		return CredentialRecord{}
	}
	return record
}

// SetToken stores the bearer token, preserving the rest of the record.
func (s *RedisStore) SetToken(ctx context.Context, token string) {
	record := s.Record(ctx)
	record.Token = token
	s.write(ctx, record)
}

// SetTenantID stores the active tenant id, preserving the rest of the record.
func (s *RedisStore) SetTenantID(ctx context.Context, tenantID string) {
	record := s.Record(ctx)
	record.TenantID = tenantID
	s.write(ctx, record)
}

// SetSnapshot stores the cached permission set and admin flag.
func (s *RedisStore) SetSnapshot(ctx context.Context, permissions []string, isAdmin bool) {
	record := s.Record(ctx)
	record.Permissions = permissions
	record.IsAdmin = isAdmin
	s.write(ctx, record)
}

// Clear removes the whole record. Token, tenant and snapshot always go
// together; a partial clear would leave a misleading cache behind.
func (s *RedisStore) Clear(ctx context.Context) {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.warn("credential clear", err)
	}
}

func (s *RedisStore) write(ctx context.Context, record CredentialRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		s.warn("credential encode", err)
		return
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		s.warn("credential write", err)
	}
}

func (s *RedisStore) warn(op string, err error) {
	if s.logger != nil {
		s.logger.Warn("session store degraded", slog.String("op", op), slog.Any("error", err))
	}
}

// MemoryStore is an in-process CredentialStore used in tests and as a
// fallback when Redis is not configured.
type MemoryStore struct {
	mu     sync.Mutex
	record CredentialRecord
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record returns a copy of the current record.
func (s *MemoryStore) Record(ctx context.Context) CredentialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.record
	record.Permissions = append([]string(nil), s.record.Permissions...)
	return record
}

// SetToken stores the bearer token.
func (s *MemoryStore) SetToken(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Token = token
}

// SetTenantID stores the active tenant id.
func (s *MemoryStore) SetTenantID(ctx context.Context, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.TenantID = tenantID
}

// SetSnapshot stores the cached permission set and admin flag.
func (s *MemoryStore) SetSnapshot(ctx context.Context, permissions []string, isAdmin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Permissions = append([]string(nil), permissions...)
	s.record.IsAdmin = isAdmin
}

// Clear resets the record.
func (s *MemoryStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = CredentialRecord{}
}

var (
	_ CredentialStore = (*RedisStore)(nil)
	_ CredentialStore = (*MemoryStore)(nil)
)
