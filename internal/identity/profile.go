package identity

import (
	"encoding/json"
	"strings"
)

// The identity service has grown several profile shapes over time:
// permissions and roles show up at the user level, inside a tenant entry, or
// nested under a role object, and each of those can be a string array, an
// object array, a comma-separated string, a JSON-encoded string, or a flags
// map. Everything below decodes those shapes without ever failing; an
// unrecognized shape is simply an absent source.

// FlexID accepts string or numeric JSON identifiers.
type FlexID string

// UnmarshalJSON never fails; unsupported shapes yield an empty ID.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	*f = ""
	return nil
}

// PermissionValue is one possible source of granted permissions.
type PermissionValue struct {
	values  []string
	present bool
}

type permObject struct {
	Permission string `json:"permission"`
	Name       string `json:"name"`
	Key        string `json:"key"`
}

func (o permObject) value() string {
	if o.Permission != "" {
		return o.Permission
	}
	if o.Name != "" {
		return o.Name
	}
	return o.Key
}

// UnmarshalJSON decodes any of the known permission shapes and never fails.
func (v *PermissionValue) UnmarshalJSON(data []byte) error {
	v.values = nil
	v.present = false

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var strs []string
	if err := json.Unmarshal(data, &strs); err == nil {
		v.values = cleanStrings(strs)
		v.present = true
		return nil
	}

	var objs []permObject
	if err := json.Unmarshal(data, &objs); err == nil {
		v.values = permObjectValues(objs)
		v.present = true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.values = parsePermissionString(s)
		v.present = true
		return nil
	}

	var flags map[string]json.RawMessage
	if err := json.Unmarshal(data, &flags); err == nil {
		for key := range flags {
			if key = strings.TrimSpace(key); key != "" {
				v.values = append(v.values, key)
			}
		}
		v.present = true
		return nil
	}

	return nil
}

// Present reports whether the source existed in the payload at all. A present
// empty list still wins the source-priority race.
func (v PermissionValue) Present() bool { return v.present }

// Values returns the normalized permission names.
func (v PermissionValue) Values() []string { return v.values }

// parsePermissionString tries a JSON-encoded array first, then falls back to
// a comma-separated list.
func parsePermissionString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var strs []string
		if err := json.Unmarshal([]byte(s), &strs); err == nil {
			return cleanStrings(strs)
		}
		var objs []permObject
		if err := json.Unmarshal([]byte(s), &objs); err == nil {
			return permObjectValues(objs)
		}
	}
	parts := strings.Split(s, ",")
	return cleanStrings(parts)
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func permObjectValues(objs []permObject) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		if v := strings.TrimSpace(o.value()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RoleValue is a role source: a string, a list of strings or objects, or a
// single role object that may itself carry a permissions list.
type RoleValue struct {
	names       []string
	permissions PermissionValue
	present     bool
}

type roleObject struct {
	Name        string          `json:"name"`
	Key         string          `json:"key"`
	Slug        string          `json:"slug"`
	ID          FlexID          `json:"id"`
	Permissions PermissionValue `json:"permissions"`
}

func (o roleObject) value() string {
	for _, candidate := range []string{o.Name, o.Key, o.Slug, string(o.ID)} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return ""
}

// UnmarshalJSON decodes any of the known role shapes and never fails.
func (v *RoleValue) UnmarshalJSON(data []byte) error {
	v.names = nil
	v.permissions = PermissionValue{}
	v.present = false

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			v.names = []string{s}
		}
		v.present = true
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err == nil {
		for _, raw := range raws {
			var name string
			if err := json.Unmarshal(raw, &name); err == nil {
				if name = strings.TrimSpace(name); name != "" {
					v.names = append(v.names, name)
				}
				continue
			}
			var obj roleObject
			if err := json.Unmarshal(raw, &obj); err == nil {
				if name := obj.value(); name != "" {
					v.names = append(v.names, name)
				}
			}
		}
		v.present = true
		return nil
	}

	var obj roleObject
	if err := json.Unmarshal(data, &obj); err == nil {
		if name := obj.value(); name != "" {
			v.names = []string{name}
		}
		v.permissions = obj.Permissions
		v.present = true
		return nil
	}

	return nil
}

// Present reports whether the source existed in the payload.
func (v RoleValue) Present() bool { return v.present }

// Names returns the normalized role names.
func (v RoleValue) Names() []string { return v.names }

// TenantRef is the nested tenant object inside a tenant entry.
type TenantRef struct {
	ID       FlexID `json:"id"`
	TenantID FlexID `json:"tenantId"`
}

// TenantEntry is one tenant membership in the raw profile.
type TenantEntry struct {
	ID          FlexID          `json:"id"`
	TenantID    FlexID          `json:"tenantId"`
	Tenant      *TenantRef      `json:"tenant"`
	Permissions PermissionValue `json:"permissions"`
	Perms       PermissionValue `json:"perms"`
	Roles       RoleValue       `json:"roles"`
}

// Matches reports whether the entry belongs to the given tenant id, comparing
// the entry's own identifiers and the nested tenant object's.
func (e TenantEntry) Matches(tenantID string) bool {
	if tenantID == "" {
		return false
	}
	if string(e.TenantID) == tenantID || string(e.ID) == tenantID {
		return true
	}
	if e.Tenant != nil {
		return string(e.Tenant.TenantID) == tenantID || string(e.Tenant.ID) == tenantID
	}
	return false
}

// RawProfile is the untrusted profile payload from the identity service.
type RawProfile struct {
	ID            FlexID          `json:"id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	EmailVerified bool            `json:"emailVerified"`
	Tenants       []TenantEntry   `json:"tenants"`
	Permissions   PermissionValue `json:"permissions"`
	Perms         PermissionValue `json:"perms"`
	Role          RoleValue       `json:"role"`
	Roles         RoleValue       `json:"roles"`
}

// Sparse reports whether the profile is an incomplete summary: no tenant list
// and no permission or role source. Sign-in re-fetches the full profile when
// the token exchange only returned a sparse summary.
func (p *RawProfile) Sparse() bool {
	if p == nil {
		return true
	}
	if len(p.Tenants) > 0 {
		return false
	}
	return !p.Permissions.Present() && !p.Perms.Present() &&
		!p.Role.Present() && !p.Roles.Present()
}

// DefaultTenantID returns the first tenant identifier in the profile, if any.
func (p *RawProfile) DefaultTenantID() string {
	if p == nil || len(p.Tenants) == 0 {
		return ""
	}
	entry := p.Tenants[0]
	if id := string(entry.TenantID); id != "" {
		return id
	}
	if entry.Tenant != nil {
		if id := string(entry.Tenant.TenantID); id != "" {
			return id
		}
		if id := string(entry.Tenant.ID); id != "" {
			return id
		}
	}
	return string(entry.ID)
}

// Facts is the canonical authorization view derived from a raw profile.
type Facts struct {
	Permissions []string
	IsAdmin     bool
}

// ExtractPermissions reduces a raw profile to {permissions, isAdmin} for the
// active tenant. It is total: any unexpected shape degrades to empty facts.
func ExtractPermissions(profile *RawProfile, tenantID string) Facts {
	if profile == nil {
		return Facts{}
	}

	entry := selectTenantEntry(profile.Tenants, tenantID)

	var source PermissionValue
	switch {
	case entry != nil && entry.Permissions.Present():
		source = entry.Permissions
	case entry != nil && entry.Perms.Present():
		source = entry.Perms
	case profile.Permissions.Present():
		source = profile.Permissions
	case profile.Perms.Present():
		source = profile.Perms
	case profile.Role.Present() && profile.Role.permissions.Present():
		source = profile.Role.permissions
	case profile.Roles.Present() && profile.Roles.permissions.Present():
		source = profile.Roles.permissions
	}

	var roles []string
	switch {
	case entry != nil && entry.Roles.Present():
		roles = entry.Roles.Names()
	case profile.Roles.Present():
		roles = profile.Roles.Names()
	case profile.Role.Present():
		roles = profile.Role.Names()
	}

	return Facts{
		Permissions: dedupe(source.Values()),
		IsAdmin:     hasAdminRole(roles),
	}
}

// selectTenantEntry picks the entry matching tenantID, falling back to the
// first entry when nothing matches or no tenant is active.
func selectTenantEntry(tenants []TenantEntry, tenantID string) *TenantEntry {
	if len(tenants) == 0 {
		return nil
	}
	if tenantID != "" {
		for i := range tenants {
			if tenants[i].Matches(tenantID) {
				return &tenants[i]
			}
		}
	}
	return &tenants[0]
}

func hasAdminRole(roles []string) bool {
	for _, role := range roles {
		if strings.TrimSpace(role) == "admin" {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
