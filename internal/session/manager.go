package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/warden-ops/warden/internal/identity"
)

// Entry bundles the controller and tenant scope for one console session.
type Entry struct {
	Controller *Controller
	Scope      *Scope

	lastSeen time.Time
}

// Manager resolves the per-cookie session controller. There is one logical
// session per browsing context; the manager keeps its controller alive across
// requests and rebuilds it from the Redis credential cache after a restart.
type Manager struct {
	client     *redis.Client
	api        identity.API
	logger     *slog.Logger
	cookieName string
	ttl        time.Duration
	secure     bool

	mu      sync.Mutex
	entries map[string]*Entry
}

// NewManager constructs a Manager.
func NewManager(client *redis.Client, api identity.API, logger *slog.Logger, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		client:     client,
		api:        api,
		logger:     logger,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		entries:    make(map[string]*Entry),
	}
}

// Load returns the session entry for the request, creating a fresh session
// when the cookie is missing or unknown. The returned id must be written back
// via WriteCookie.
func (m *Manager) Load(r *http.Request) (*Entry, string) {
	id := ""
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		id = cookie.Value
	}
	if id == "" {
		id = m.newSessionID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[id]; ok {
		entry.lastSeen = time.Now()
		return entry, id
	}

	entry := m.newEntry(id)
	m.entries[id] = entry
	return entry, id
}

// WriteCookie sets the session cookie on the response.
func (m *Manager) WriteCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(m.ttl),
	})
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Sweep drops controllers idle for longer than the session TTL. The Redis
// credential records expire on their own; this only frees process memory.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) newEntry(id string) *Entry {
	var store CredentialStore
	if m.client != nil {
		store = NewRedisStore(m.client, id, m.ttl, m.logger)
	} else {
		store = NewMemoryStore()
	}

	scope := NewScope()
	controller := NewController(m.api, store, m.logger)
	controller.Register(scope)

	return &Entry{
		Controller: controller,
		Scope:      scope,
		lastSeen:   time.Now(),
	}
}

func (m *Manager) newSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	// uuid only fails when the platform's entropy source does; fall back to
	// a time-based id rather than refusing the session.
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(time.Now().Format(time.RFC3339Nano))).String()
}
