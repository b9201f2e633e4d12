package domain

import "strings"

// Role is a session role, one of the four permission levels. Roles form a
// totally ordered lattice: admin > manager > power_user > user.
type Role int

const (
	RoleUnknown Role = iota
	RoleUser
	RolePowerUser
	RoleManager
	RoleAdmin
)

var roleStrings = map[Role]string{
	RoleUser:      "resource_user",
	RolePowerUser: "resource_power_user",
	RoleManager:   "resource_manager",
	RoleAdmin:     "resource_admin",
}

var roleFromString = func() map[string]Role {
	m := make(map[string]Role, len(roleStrings))
	for r, s := range roleStrings {
		m[s] = r
	}
	return m
}()

func (r Role) String() string {
	if s, ok := roleStrings[r]; ok {
		return s
	}
	return "unknown"
}

// Level returns the role's position in the permission lattice; higher is
// more privileged. RoleUnknown sorts below every known role.
func (r Role) Level() int { return int(r) }

// Satisfies reports whether r's level is at least required's level,
// implementing invariant 9 (role hierarchy) from the testable properties.
func (r Role) Satisfies(required Role) bool { return r.Level() >= required.Level() }

// ParseRole parses a single role string, returning RoleUnknown (not an
// error) for anything unrecognized: callers iterating a roles list must
// ignore unknown entries rather than fail the whole list, per §4.5.3.
func ParseRole(s string) Role {
	if r, ok := roleFromString[s]; ok {
		return r
	}
	return RoleUnknown
}

// MaxRole returns the highest-level role among candidates that parses to a
// known Role; unknowns are ignored. Returns RoleUnknown if candidates is
// empty or contains no recognized role.
func MaxRole(candidates []string) Role {
	best := RoleUnknown
	for _, c := range candidates {
		if r := ParseRole(c); r > best {
			best = r
		}
	}
	return best
}

// Scope is a tagged totally-ordered scope, used both for opaque-token
// scopes (scope_token_*) and exchanged user scopes (scope_user_*). The tag
// distinguishes the two families so a token-scope string can never be
// confused with a user-scope string despite sharing a lattice shape.
type Scope struct {
	level int
	tag   string
}

const (
	tagToken = "token"
	tagUser  = "user"
)

var tokenScopeStrings = map[int]string{
	1: "scope_token_user",
	2: "scope_token_power_user",
	3: "scope_token_manager",
	4: "scope_token_admin",
}

var userScopeStrings = map[int]string{
	1: "scope_user_user",
	2: "scope_user_power_user",
	3: "scope_user_manager",
	4: "scope_user_admin",
}

// Level returns the scope's position in the 4-level lattice.
func (s Scope) Level() int { return s.level }

// Tag reports which scope family s belongs to ("token" or "user").
func (s Scope) Tag() string { return s.tag }

func (s Scope) String() string {
	table := tokenScopeStrings
	if s.tag == tagUser {
		table = userScopeStrings
	}
	if str, ok := table[s.level]; ok {
		return str
	}
	return ""
}

// Satisfies reports whether s's level is at least required's level. Scopes
// of different tags are still comparable by level, matching spec §3's
// statement that a single permission-level mapping collapses all three
// enumerations into one lattice.
func (s Scope) Satisfies(required Scope) bool { return s.level >= required.level }

func parseScope(s string, table map[int]string, tag string) (Scope, bool) {
	for level, str := range table {
		if str == s {
			return Scope{level: level, tag: tag}, true
		}
	}
	return Scope{}, false
}

// ParseTokenScope parses a single scope_token_* string.
func ParseTokenScope(s string) (Scope, bool) { return parseScope(s, tokenScopeStrings, tagToken) }

// ParseUserScope parses a single scope_user_* string.
func ParseUserScope(s string) (Scope, bool) { return parseScope(s, userScopeStrings, tagUser) }

// MaxScope parses a space-separated scope claim string and returns the
// highest-level scope recognized in the given family. ok is false if no
// scope in the list is recognized.
func MaxScope(scopeClaim string, table map[int]string, tag string) (Scope, bool) {
	best := Scope{tag: tag}
	found := false
	for _, field := range strings.Fields(scopeClaim) {
		if sc, ok := parseScope(field, table, tag); ok && sc.level > best.level {
			best = sc
			found = true
		}
	}
	return best, found
}

// MaxTokenScope parses the given space-separated scope claim against the
// scope_token_* family.
func MaxTokenScope(scopeClaim string) (Scope, bool) {
	return MaxScope(scopeClaim, tokenScopeStrings, tagToken)
}

// MaxUserScope parses the given space-separated scope claim against the
// scope_user_* family.
func MaxUserScope(scopeClaim string) (Scope, bool) {
	return MaxScope(scopeClaim, userScopeStrings, tagUser)
}

const toolsetScopePrefix = "scope_toolset-"

// ToolsetScopes extracts every scope token in scopeClaim matching
// ^scope_toolset- and joins them space-separated, preserving original
// order. Returns "" if none match.
func ToolsetScopes(scopeClaim string) string {
	var out []string
	for _, field := range strings.Fields(scopeClaim) {
		if strings.HasPrefix(field, toolsetScopePrefix) {
			out = append(out, field)
		}
	}
	return strings.Join(out, " ")
}
