package domain

import "time"

// Claims is the parsed payload of a signed identity JWT, per spec §3.
type Claims struct {
	Subject          string
	TokenID          string // jti
	Issuer           string
	Audience         []string
	ExpiresAt        time.Time
	IssuedAt         time.Time
	AuthorizedParty  string // azp
	PreferredUsername string
	Email            string
	Scope            string // space-separated
	ResourceAccess   map[string]ResourceAccessEntry
}

// ResourceAccessEntry is one entry of claims.resource_access, keyed by
// client id.
type ResourceAccessEntry struct {
	Roles []string
}

// RolesFor returns the roles list for the given client id, or nil if the
// client has no resource_access entry — callers treat this as "no role"
// rather than an error, per §4.5.3.
func (c Claims) RolesFor(clientID string) []string {
	if entry, ok := c.ResourceAccess[clientID]; ok {
		return entry.Roles
	}
	return nil
}

// Expired reports whether the claims' exp is at or before now.
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
