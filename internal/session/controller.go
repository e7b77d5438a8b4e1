package session

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/warden-ops/warden/internal/authz"
	"github.com/warden-ops/warden/internal/identity"
)

// TenantAware is implemented by collaborators that scope their work to the
// active tenant. The controller pushes the tenant id to every registered
// collaborator synchronously during sign-in and refresh, before permissions
// are extracted, so a request issued immediately afterwards already carries
// the right scope.
type TenantAware interface {
	SetTenantID(tenantID string)
}

// State is the observable session snapshot the rest of the console trusts.
type State struct {
	User        *identity.RawProfile
	TenantID    string
	Permissions []string
	IsAdmin     bool
	HasToken    bool
	Loading     bool
	Err         error
}

// IsAuthenticated reports whether a user is signed in. A cached token counts:
// the console operates optimistically on cached facts until the identity
// service says otherwise.
func (s State) IsAuthenticated() bool { return s.User != nil || s.HasToken }

// Controller orchestrates sign-in, boot re-authentication and sign-out for
// one console session, and owns the merge policy that keeps cached facts from
// regressing on empty network results.
type Controller struct {
	api      identity.API
	store    CredentialStore
	strategy authz.Strategy
	logger   *slog.Logger

	mu            sync.Mutex
	state         State
	generation    uint64
	collaborators []TenantAware

	fetch singleflight.Group
}

// NewController constructs a controller over the given identity API and
// credential store.
func NewController(api identity.API, store CredentialStore, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:      api,
		store:    store,
		strategy: authz.Default,
		logger:   logger,
	}
}

// Register adds tenant-aware collaborators. Not safe to call concurrently
// with sign-in; wire collaborators during session setup.
func (c *Controller) Register(collaborators ...TenantAware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collaborators = append(c.collaborators, collaborators...)
}

// State returns a snapshot of the current session facts.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.state
	state.Permissions = append([]string(nil), c.state.Permissions...)
	return state
}

// HasPermission reports whether the requested permission key is satisfied by
// the current session facts.
func (c *Controller) HasPermission(key string) bool {
	state := c.State()
	return c.strategy.Has(state.Permissions, state.IsAdmin, key)
}

// HasAny reports whether any of the requested keys is satisfied.
func (c *Controller) HasAny(keys ...string) bool {
	state := c.State()
	return c.strategy.HasAny(state.Permissions, state.IsAdmin, keys)
}

// Hydrate loads cached facts without touching the network, so a request
// arriving after a process restart sees its last-known-good permissions
// immediately. A full CheckAuth replaces these facts once it runs.
func (c *Controller) Hydrate(ctx context.Context) State {
	c.mu.Lock()
	hydrated := c.state.User != nil || c.state.HasToken
	c.mu.Unlock()
	if hydrated {
		return c.State()
	}

	record := c.store.Record(ctx)
	if record.Token == "" {
		return c.State()
	}

	c.mu.Lock()
	c.state.TenantID = record.TenantID
	c.state.Permissions = append([]string(nil), record.Permissions...)
	c.state.IsAdmin = record.IsAdmin
	c.state.HasToken = true
	c.mu.Unlock()

	if record.TenantID != "" {
		c.propagateTenant(record.TenantID)
	}
	return c.State()
}

// CheckAuth re-establishes the session on console boot. With no cached token
// it settles unauthenticated immediately. Otherwise it hydrates facts from
// the credential cache first (no permission flash), then fetches the live
// profile and applies the merge policy. Only a 401 destroys local state; any
// other failure leaves the cached facts working.
func (c *Controller) CheckAuth(ctx context.Context) error {
	record := c.store.Record(ctx)
	if record.Token == "" {
		c.mu.Lock()
		c.state = State{}
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.state.TenantID = record.TenantID
	c.state.Permissions = append([]string(nil), record.Permissions...)
	c.state.IsAdmin = record.IsAdmin
	c.state.HasToken = true
	c.state.Loading = true
	c.state.Err = nil
	generation := c.nextGenerationLocked()
	c.mu.Unlock()

	if record.TenantID != "" {
		c.propagateTenant(record.TenantID)
	}

	profile, err := c.fetchProfile(ctx, record.Token)
	if err != nil {
		return c.handleFetchFailure(ctx, generation, err)
	}
	c.applyProfile(ctx, generation, profile, false)
	return nil
}

// SignIn exchanges credentials for a token and settles the session. An
// unverified email surfaces as identity.ErrEmailNotVerified so callers can
// offer to re-send the verification mail.
func (c *Controller) SignIn(ctx context.Context, creds identity.Credentials) error {
	result, err := c.api.SignIn(ctx, creds)
	if err != nil {
		c.setError(err)
		return err
	}
	return c.establish(ctx, result.Token, result.User)
}

// SignInWithToken settles the session from an externally supplied token, for
// example an OAuth redirect callback. userData may be nil, in which case the
// profile is fetched.
func (c *Controller) SignInWithToken(ctx context.Context, token string, userData *identity.RawProfile) error {
	return c.establish(ctx, token, userData)
}

// SignUp delegates registration to the identity service. It never mutates
// session state; the user still signs in afterwards.
func (c *Controller) SignUp(ctx context.Context, req identity.SignUpRequest) error {
	return c.api.SignUp(ctx, req)
}

// SignOut invalidates the token remotely on a best-effort basis, then
// unconditionally clears every local trace of the session. Sign-out always
// succeeds locally.
func (c *Controller) SignOut(ctx context.Context) {
	record := c.store.Record(ctx)
	if record.Token != "" {
		if err := c.api.SignOut(ctx, record.Token); err != nil {
			c.logger.Warn("remote sign-out failed", slog.Any("error", err))
		}
	}

	c.store.Clear(ctx)

	c.mu.Lock()
	c.state = State{}
	c.nextGenerationLocked()
	c.mu.Unlock()

	c.propagateTenant("")
}

// establish persists the token, resolves and propagates the tenant, then
// extracts and merges permission facts. Tenant propagation happens before
// extraction because tenant-entry selection is keyed off the stored tenant.
func (c *Controller) establish(ctx context.Context, token string, user *identity.RawProfile) error {
	if user.Sparse() {
		profile, err := c.api.Profile(ctx, token)
		if err != nil {
			if identity.IsUnauthorized(err) {
				c.invalidate(ctx, err)
				return err
			}
			c.logger.Warn("profile hydrate failed", slog.Any("error", err))
		} else {
			user = profile
		}
	}
	if user == nil {
		// Token accepted but no profile reachable; keep the token so the next
		// boot can retry, and stay on whatever facts are cached.
		c.store.SetToken(ctx, token)
		c.mu.Lock()
		c.state.Loading = false
		c.mu.Unlock()
		return nil
	}

	c.store.SetToken(ctx, token)

	c.mu.Lock()
	generation := c.nextGenerationLocked()
	c.state.Loading = true
	c.state.Err = nil
	c.mu.Unlock()

	c.applyProfile(ctx, generation, user, true)
	return nil
}

// applyProfile commits a fetched profile unless a newer operation has already
// settled. persistAlways forces the snapshot write that sign-in requires;
// background refreshes only persist non-empty results.
func (c *Controller) applyProfile(ctx context.Context, generation uint64, profile *identity.RawProfile, persistAlways bool) {
	record := c.store.Record(ctx)

	tenantID := record.TenantID
	if tenantID == "" {
		tenantID = profile.DefaultTenantID()
	}

	// Re-verify the generation before touching the store or collaborators:
	// a fetch that resolves after sign-out must not re-persist its tenant
	// into the just-cleared credential cache.
	c.mu.Lock()
	stale := generation != c.generation
	c.mu.Unlock()
	if stale {
		return
	}

	if tenantID != "" {
		c.store.SetTenantID(ctx, tenantID)
	}
	c.propagateTenant(tenantID)

	facts := identity.ExtractPermissions(profile, tenantID)

	c.mu.Lock()
	if generation != c.generation {
		// A newer sign-in or sign-out has already settled; drop this result.
		c.mu.Unlock()
		return
	}

	permissions := facts.Permissions
	if len(permissions) == 0 && len(c.state.Permissions) > 0 {
		// An empty result from a tenant-unaware endpoint must not erase
		// previously cached tenant-scoped permissions.
		permissions = c.state.Permissions
	}
	isAdmin := facts.IsAdmin || c.state.IsAdmin

	c.state.User = profile
	c.state.TenantID = tenantID
	c.state.Permissions = permissions
	c.state.IsAdmin = isAdmin
	c.state.Loading = false
	c.state.Err = nil
	c.mu.Unlock()

	if persistAlways || len(facts.Permissions) > 0 {
		c.store.SetSnapshot(ctx, permissions, isAdmin)
	}
}

// handleFetchFailure applies the failure taxonomy: a 401 is authoritative and
// destroys local state, everything else is swallowed so the console keeps
// working on last-known-good facts.
func (c *Controller) handleFetchFailure(ctx context.Context, generation uint64, err error) error {
	if identity.IsUnauthorized(err) {
		c.mu.Lock()
		stale := generation != c.generation
		c.mu.Unlock()
		if !stale {
			c.invalidate(ctx, err)
		}
		return err
	}

	c.logger.Warn("profile refresh failed, keeping cached facts", slog.Any("error", err))
	c.mu.Lock()
	if generation == c.generation {
		c.state.Loading = false
	}
	c.mu.Unlock()
	return nil
}

// invalidate clears the session after an authoritative unauthorized signal.
func (c *Controller) invalidate(ctx context.Context, err error) {
	c.store.Clear(ctx)
	c.mu.Lock()
	c.state = State{Err: err}
	c.nextGenerationLocked()
	c.mu.Unlock()
	c.propagateTenant("")
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.state.Err = err
	c.state.Loading = false
	c.mu.Unlock()
}

// fetchProfile dedupes concurrent profile fetches for the same token.
func (c *Controller) fetchProfile(ctx context.Context, token string) (*identity.RawProfile, error) {
	value, err, _ := c.fetch.Do(token, func() (any, error) {
		return c.api.Profile(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return value.(*identity.RawProfile), nil
}

func (c *Controller) propagateTenant(tenantID string) {
	c.mu.Lock()
	collaborators := append([]TenantAware(nil), c.collaborators...)
	c.mu.Unlock()
	for _, collaborator := range collaborators {
		collaborator.SetTenantID(tenantID)
	}
}

// nextGenerationLocked bumps the settle counter; callers hold c.mu.
func (c *Controller) nextGenerationLocked() uint64 {
	c.generation++
	return c.generation
}
