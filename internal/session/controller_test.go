package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/warden-ops/warden/internal/identity"
	_ "github.com/warden-ops/warden/testing"
)

type fakeAPI struct {
	signIn  func(ctx context.Context, creds identity.Credentials) (*identity.SignInResult, error)
	signUp  func(ctx context.Context, req identity.SignUpRequest) error
	profile func(ctx context.Context, token string) (*identity.RawProfile, error)
	signOut func(ctx context.Context, token string) error
}

func (f *fakeAPI) SignIn(ctx context.Context, creds identity.Credentials) (*identity.SignInResult, error) {
	return f.signIn(ctx, creds)
}

func (f *fakeAPI) SignUp(ctx context.Context, req identity.SignUpRequest) error {
	if f.signUp == nil {
		return nil
	}
	return f.signUp(ctx, req)
}

func (f *fakeAPI) Profile(ctx context.Context, token string) (*identity.RawProfile, error) {
	return f.profile(ctx, token)
}

func (f *fakeAPI) SignOut(ctx context.Context, token string) error {
	if f.signOut == nil {
		return nil
	}
	return f.signOut(ctx, token)
}

// recordingScope captures every tenant propagation in order.
type recordingScope struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingScope) SetTenantID(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, tenantID)
}

func (r *recordingScope) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func profileFromJSON(t *testing.T, payload string) *identity.RawProfile {
	t.Helper()
	var profile identity.RawProfile
	require.NoError(t, json.Unmarshal([]byte(payload), &profile))
	return &profile
}

func unauthorized() error {
	return &identity.APIError{Status: http.StatusUnauthorized}
}

func TestSignInSettlesSessionAndPersists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user := profileFromJSON(t, `{
		"id": "u1",
		"tenants": [{"tenantId": "T1", "permissions": ["clientRead", "clientEdit"]}]
	}`)
	api := &fakeAPI{
		signIn: func(ctx context.Context, creds identity.Credentials) (*identity.SignInResult, error) {
			return &identity.SignInResult{Token: "tok-1", User: user}, nil
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.SignIn(ctx, identity.Credentials{Email: "a@b.c", Password: "x"}))

	state := controller.State()
	require.True(t, state.IsAuthenticated())
	require.False(t, state.Loading)
	require.Equal(t, "T1", state.TenantID)
	require.Equal(t, []string{"clientRead", "clientEdit"}, state.Permissions)

	record := store.Record(ctx)
	require.Equal(t, "tok-1", record.Token)
	require.Equal(t, "T1", record.TenantID)
	require.Equal(t, []string{"clientRead", "clientEdit"}, record.Permissions)
}

func TestSignInPropagatesTenantBeforeExtraction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user := profileFromJSON(t, `{
		"tenants": [
			{"tenantId": "T1", "permissions": ["fromT1"]},
			{"tenantId": "T2", "permissions": ["fromT2"]}
		]
	}`)
	api := &fakeAPI{
		signIn: func(ctx context.Context, creds identity.Credentials) (*identity.SignInResult, error) {
			return &identity.SignInResult{Token: "tok-1", User: user}, nil
		},
	}

	scope := &recordingScope{}
	controller := NewController(api, store, slog.Default())
	controller.Register(scope)

	require.NoError(t, controller.SignIn(ctx, identity.Credentials{}))

	// The collaborator saw T1, and extraction used the tenant-scoped source,
	// which only happens when the tenant was settled first.
	require.Equal(t, []string{"T1"}, scope.Calls())
	require.Equal(t, []string{"fromT1"}, controller.State().Permissions)
}

func TestSignInRespectsAlreadyCachedTenant(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetTenantID(ctx, "T2")
	user := profileFromJSON(t, `{
		"tenants": [
			{"tenantId": "T1", "permissions": ["fromT1"]},
			{"tenantId": "T2", "permissions": ["fromT2"]}
		]
	}`)
	api := &fakeAPI{
		signIn: func(ctx context.Context, creds identity.Credentials) (*identity.SignInResult, error) {
			return &identity.SignInResult{Token: "tok-1", User: user}, nil
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.SignIn(ctx, identity.Credentials{}))

	require.Equal(t, "T2", controller.State().TenantID)
	require.Equal(t, []string{"fromT2"}, controller.State().Permissions)
}

func TestSignInSparseSummaryTriggersProfileFetch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	full := profileFromJSON(t, `{"tenants": [{"tenantId": "T1", "permissions": ["clientRead"]}]}`)
	var profileCalls int
	api := &fakeAPI{
		signIn: func(ctx context.Context, creds identity.Credentials) (*identity.SignInResult, error) {
			sparse := profileFromJSON(t, `{"id": "u1", "email": "a@b.c"}`)
			return &identity.SignInResult{Token: "tok-1", User: sparse}, nil
		},
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			profileCalls++
			require.Equal(t, "tok-1", token)
			return full, nil
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.SignIn(ctx, identity.Credentials{}))

	require.Equal(t, 1, profileCalls)
	require.Equal(t, []string{"clientRead"}, controller.State().Permissions)
}

func TestSignInEmailNotVerified(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{
		signIn: func(ctx context.Context, creds identity.Credentials) (*identity.SignInResult, error) {
			return nil, identity.ErrEmailNotVerified
		},
	}

	controller := NewController(api, NewMemoryStore(), slog.Default())
	err := controller.SignIn(ctx, identity.Credentials{})
	require.ErrorIs(t, err, identity.ErrEmailNotVerified)
	require.False(t, controller.State().IsAuthenticated())
}

func TestCheckAuthWithoutTokenSettlesUnauthenticated(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			t.Fatal("profile must not be fetched without a token")
			return nil, nil
		},
	}

	controller := NewController(api, NewMemoryStore(), slog.Default())
	require.NoError(t, controller.CheckAuth(ctx))
	require.False(t, controller.State().IsAuthenticated())
}

func TestCheckAuthHydratesFromCacheThenRefreshes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetTenantID(ctx, "T1")
	store.SetSnapshot(ctx, []string{"cachedRead"}, false)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			return profileFromJSON(t, `{"tenants": [{"tenantId": "T1", "permissions": ["freshRead", "freshEdit"]}]}`), nil
		},
	}

	scope := &recordingScope{}
	controller := NewController(api, store, slog.Default())
	controller.Register(scope)

	require.NoError(t, controller.CheckAuth(ctx))

	state := controller.State()
	require.True(t, state.IsAuthenticated())
	require.Equal(t, []string{"freshRead", "freshEdit"}, state.Permissions)
	// Cached tenant propagated during hydration, again after the fetch.
	require.Equal(t, []string{"T1", "T1"}, scope.Calls())
}

func TestMergeNeverRegressesOnEmptyResult(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetSnapshot(ctx, []string{"clientRead"}, true)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			// Tenant-unaware endpoint: no permissions, no roles.
			return profileFromJSON(t, `{"id": "u1", "permissions": []}`), nil
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.CheckAuth(ctx))

	state := controller.State()
	require.Equal(t, []string{"clientRead"}, state.Permissions)
	require.True(t, state.IsAdmin)
}

func TestMergeAdoptsNonEmptyResult(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetSnapshot(ctx, []string{"oldRead"}, false)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			return profileFromJSON(t, `{"permissions": ["newRead"]}`), nil
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.CheckAuth(ctx))

	require.Equal(t, []string{"newRead"}, controller.State().Permissions)
	require.Equal(t, []string{"newRead"}, store.Record(ctx).Permissions)
}

func TestCheckAuthUnauthorizedClearsSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-stale")
	store.SetSnapshot(ctx, []string{"clientRead"}, true)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			return nil, unauthorized()
		},
	}

	scope := &recordingScope{}
	controller := NewController(api, store, slog.Default())
	controller.Register(scope)

	err := controller.CheckAuth(ctx)
	require.True(t, identity.IsUnauthorized(err))

	state := controller.State()
	require.False(t, state.IsAuthenticated())
	require.Empty(t, state.Permissions)
	require.False(t, state.IsAdmin)
	require.Equal(t, CredentialRecord{}, store.Record(ctx))
	require.Equal(t, "", scope.Calls()[len(scope.Calls())-1])
}

func TestCheckAuthForbiddenKeepsCachedFacts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetTenantID(ctx, "T1")
	store.SetSnapshot(ctx, []string{"clientRead"}, true)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			return nil, &identity.APIError{Status: http.StatusForbidden}
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.CheckAuth(ctx))

	state := controller.State()
	require.True(t, state.IsAuthenticated())
	require.False(t, state.Loading)
	require.Equal(t, []string{"clientRead"}, state.Permissions)
	require.True(t, state.IsAdmin)
	require.Equal(t, "tok-1", store.Record(ctx).Token)
}

func TestCheckAuthTransportFailureKeepsCachedFacts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetSnapshot(ctx, []string{"clientRead"}, false)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			return nil, errors.New("connection refused")
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.CheckAuth(ctx))
	require.Equal(t, []string{"clientRead"}, controller.State().Permissions)
	require.Equal(t, "tok-1", store.Record(ctx).Token)
}

func TestSignOutClearsEverythingEvenWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetTenantID(ctx, "T1")
	store.SetSnapshot(ctx, []string{"clientRead"}, true)

	api := &fakeAPI{
		signOut: func(ctx context.Context, token string) error {
			return errors.New("identity service down")
		},
	}

	scope := &recordingScope{}
	controller := NewController(api, store, slog.Default())
	controller.Register(scope)
	controller.Hydrate(ctx)

	controller.SignOut(ctx)

	state := controller.State()
	require.False(t, state.IsAuthenticated())
	require.Nil(t, state.User)
	require.Equal(t, "", state.TenantID)
	require.Empty(t, state.Permissions)
	require.False(t, state.IsAdmin)
	require.Equal(t, CredentialRecord{}, store.Record(ctx))
	require.Equal(t, "", scope.Calls()[len(scope.Calls())-1])
}

func TestStaleFetchResultIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")

	fetchStarted := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			close(fetchStarted)
			<-release
			return profileFromJSON(t, `{"tenants": [{"tenantId": "T9", "permissions": ["lateRead"]}]}`), nil
		},
	}

	scope := &recordingScope{}
	controller := NewController(api, store, slog.Default())
	controller.Register(scope)

	done := make(chan error, 1)
	go func() { done <- controller.CheckAuth(ctx) }()

	<-fetchStarted
	controller.SignOut(ctx)
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("checkAuth did not return")
	}

	// The sign-out settled after the fetch started, so the late result must
	// not resurrect the session, re-persist its tenant into the cleared
	// store, or push that tenant to collaborators.
	state := controller.State()
	require.False(t, state.IsAuthenticated())
	require.Empty(t, state.Permissions)
	require.Equal(t, CredentialRecord{}, store.Record(ctx))
	calls := scope.Calls()
	require.NotEmpty(t, calls)
	require.Equal(t, "", calls[len(calls)-1])
	require.NotContains(t, calls, "T9")
}

func TestSignInWithTokenFetchesProfileWhenUserMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			require.Equal(t, "tok-ext", token)
			return profileFromJSON(t, `{"tenants": [{"tenantId": "T1", "permissions": ["clientRead"]}]}`), nil
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.SignInWithToken(ctx, "tok-ext", nil))

	state := controller.State()
	require.True(t, state.IsAuthenticated())
	require.Equal(t, "T1", state.TenantID)
	require.Equal(t, "tok-ext", store.Record(ctx).Token)
}

func TestSignInWithTokenKeepsTokenWhenProfileUnreachable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			return nil, errors.New("connection refused")
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.SignInWithToken(ctx, "tok-ext", nil))

	// The token survives so the next boot can retry the profile fetch.
	require.Equal(t, "tok-ext", store.Record(ctx).Token)
	require.False(t, controller.State().Loading)
}

func TestSignUpDoesNotMutateSession(t *testing.T) {
	ctx := context.Background()
	var registered identity.SignUpRequest
	api := &fakeAPI{
		signUp: func(ctx context.Context, req identity.SignUpRequest) error {
			registered = req
			return nil
		},
	}

	controller := NewController(api, NewMemoryStore(), slog.Default())
	require.NoError(t, controller.SignUp(ctx, identity.SignUpRequest{Email: "new@warden.example"}))
	require.Equal(t, "new@warden.example", registered.Email)
	require.False(t, controller.State().IsAuthenticated())
}

func TestHydrateLoadsCachedFactsWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetTenantID(ctx, "T1")
	store.SetSnapshot(ctx, []string{"clientRead"}, true)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			t.Fatal("hydrate must not touch the network")
			return nil, nil
		},
	}

	scope := &recordingScope{}
	controller := NewController(api, store, slog.Default())
	controller.Register(scope)

	state := controller.Hydrate(ctx)
	require.True(t, state.IsAuthenticated())
	require.Equal(t, "T1", state.TenantID)
	require.Equal(t, []string{"clientRead"}, state.Permissions)
	require.True(t, state.IsAdmin)
	require.Equal(t, []string{"T1"}, scope.Calls())

	// A second hydrate is a no-op on the already-settled state.
	controller.Hydrate(ctx)
	require.Equal(t, []string{"T1"}, scope.Calls())
}

func TestHasPermissionDelegatesToStrategy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetToken(ctx, "tok-1")
	store.SetSnapshot(ctx, []string{"clientEdit"}, false)

	api := &fakeAPI{
		profile: func(ctx context.Context, token string) (*identity.RawProfile, error) {
			return profileFromJSON(t, `{"permissions": ["clientEdit"]}`), nil
		},
	}

	controller := NewController(api, store, slog.Default())
	require.NoError(t, controller.CheckAuth(ctx))

	require.True(t, controller.HasPermission("clientEdit"))
	require.True(t, controller.HasPermission("clientAccountEdit"))
	require.False(t, controller.HasPermission("billingDestroy"))
	require.True(t, controller.HasAny("billingDestroy", "clientEdit"))
}
