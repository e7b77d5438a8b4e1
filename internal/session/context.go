package session

import "context"

type entryContextKey struct{}

// ContextWithEntry stores the session entry in context.
func ContextWithEntry(ctx context.Context, entry *Entry) context.Context {
	return context.WithValue(ctx, entryContextKey{}, entry)
}

// EntryFromContext extracts the session entry from context, or nil.
func EntryFromContext(ctx context.Context) *Entry {
	entry, _ := ctx.Value(entryContextKey{}).(*Entry)
	return entry
}

// ControllerFromContext extracts the session controller, or nil.
func ControllerFromContext(ctx context.Context) *Controller {
	if entry := EntryFromContext(ctx); entry != nil {
		return entry.Controller
	}
	return nil
}

// TenantFromContext returns the active tenant id for the request, or empty.
func TenantFromContext(ctx context.Context) string {
	if entry := EntryFromContext(ctx); entry != nil {
		return entry.Scope.TenantID()
	}
	return ""
}
