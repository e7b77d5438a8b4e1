// Package authz decides whether a UI permission key is satisfied by the
// permission strings granted upstream.
package authz

import "strings"

// actionSuffixes is the action vocabulary recognized at the end of a
// permission key, e.g. "clientAccountEdit" splits into ("clientAccount",
// "Edit"). Order matters only for deterministic splitting.
var actionSuffixes = []string{
	"Import",
	"Create",
	"Edit",
	"Destroy",
	"Read",
	"Autocomplete",
	"Export",
	"Restore",
	"Archive",
}

// Strategy answers permission checks against a granted set. It exists so the
// alias heuristic below can later be swapped for an exact backend-driven map
// without touching call sites.
type Strategy interface {
	Has(granted []string, isAdmin bool, requested string) bool
	HasAny(granted []string, isAdmin bool, requested []string) bool
}

// AliasMatcher is the default strategy: admin bypass, then exact match, then
// a two-directional substring alias that tolerates resource-name drift
// between UI keys and backend grants (requesting "clientAccountEdit" against
// a granted "clientEdit", or the other way around). The substring heuristic
// can produce false positives when unrelated resources share an action and a
// short common prefix; that is a known, accepted property.
type AliasMatcher struct{}

// Default is the strategy used by the session layer.
var Default Strategy = AliasMatcher{}

// Has reports whether requested is satisfied by the granted set.
func (AliasMatcher) Has(granted []string, isAdmin bool, requested string) bool {
	if isAdmin {
		return true
	}
	if len(granted) == 0 || requested == "" {
		return false
	}
	for _, g := range granted {
		if g == requested {
			return true
		}
	}
	return aliasMatch(granted, requested)
}

// HasAny reports whether any of the requested keys is satisfied.
func (m AliasMatcher) HasAny(granted []string, isAdmin bool, requested []string) bool {
	if isAdmin {
		return true
	}
	for _, key := range requested {
		if m.Has(granted, false, key) {
			return true
		}
	}
	return false
}

// aliasMatch splits the requested key into (resource, action) and accepts a
// grant when it carries the same action and the resource names overlap as
// substrings in either direction.
func aliasMatch(granted []string, requested string) bool {
	resource, action, ok := splitAction(requested)
	if !ok {
		return false
	}
	actionNorm := capitalize(action)
	lowerResource := strings.ToLower(resource)
	lowerRequested := strings.ToLower(requested)

	for _, g := range granted {
		if !strings.HasSuffix(g, actionNorm) {
			continue
		}
		lowerGrant := strings.ToLower(g)
		if lowerResource == "" || strings.Contains(lowerGrant, lowerResource) {
			return true
		}
		// Compare against the grant's resource portion, so a broad grant like
		// "clientEdit" still covers a narrower "clientAccountEdit" request.
		grantResource := lowerGrant[:len(lowerGrant)-len(actionNorm)]
		if strings.Contains(lowerRequested, grantResource) {
			return true
		}
	}
	return false
}

// splitAction matches one of the action suffixes case-insensitively at the
// end of the key. No recognized suffix means no alias is possible.
func splitAction(key string) (resource, action string, ok bool) {
	lower := strings.ToLower(key)
	for _, suffix := range actionSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			cut := len(key) - len(suffix)
			return key[:cut], key[cut:], true
		}
	}
	return "", "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
