package authz

import (
	"context"
	"log/slog"
	"net/http"
)

// FactsFunc resolves the current request's authorization facts: the granted
// permission set, the admin flag, and whether the caller is authenticated at
// all.
type FactsFunc func(ctx context.Context) (granted []string, isAdmin bool, authenticated bool)

// Middleware guards routes with permission checks backed by session facts.
type Middleware struct {
	Facts    FactsFunc
	Strategy Strategy
	Logger   *slog.Logger
}

// RequireAny ensures the caller holds at least one of the given permission
// keys. Unauthenticated callers get 401; authenticated callers without a
// matching grant get 403.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	strategy := m.Strategy
	if strategy == nil {
		strategy = Default
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, isAdmin, authenticated := m.Facts(r.Context())
			if !authenticated {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if strategy.HasAny(granted, isAdmin, perms) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("permission denied",
					slog.String("path", r.URL.Path),
					slog.Any("required", perms))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
