package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/warden-ops/warden/testing"
)

func TestClientSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ops@warden.example", body["email"])

		_, _ = w.Write([]byte(`{"token": "tok-1", "user": {"id": "u1", "permissions": ["clientRead"]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.SignIn(context.Background(), Credentials{Email: "ops@warden.example", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "tok-1", result.Token)
	require.NotNil(t, result.User)
	require.False(t, result.User.Sparse())
}

func TestClientSignInMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user": {"id": "u1"}}`))
	}))
	defer srv.Close()

	_, err := client(srv).SignIn(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestClientSignInUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "bad credentials"}`))
	}))
	defer srv.Close()

	_, err := client(srv).SignIn(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.True(t, IsUnauthorized(err))
}

func TestClientSignInEmailNotVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code": "email_not_verified"}`))
	}))
	defer srv.Close()

	_, err := client(srv).SignIn(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.ErrorIs(t, err, ErrEmailNotVerified)
	require.False(t, IsUnauthorized(err))
}

func TestClientProfileSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/profile", r.URL.Path)
		require.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id": 3, "tenants": [{"tenantId": "t1"}]}`))
	}))
	defer srv.Close()

	profile, err := client(srv).Profile(context.Background(), "tok-9")
	require.NoError(t, err)
	require.Equal(t, FlexID("3"), profile.ID)
	require.Equal(t, "t1", profile.DefaultTenantID())
}

func TestClientProfileExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := client(srv).Profile(context.Background(), "tok-stale")
	require.True(t, IsUnauthorized(err))
}

func TestClientServerErrorIsNotUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "boom"}`))
	}))
	defer srv.Close()

	_, err := client(srv).Profile(context.Background(), "tok-1")
	require.Error(t, err)
	require.False(t, IsUnauthorized(err))
}

func TestClientSignOut(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, "/v1/auth/logout", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, client(srv).SignOut(context.Background(), "tok-1"))
	require.True(t, called)
}

func client(srv *httptest.Server) *Client {
	return NewClient(srv.URL)
}
