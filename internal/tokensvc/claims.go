package tokensvc

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// claimsFromMap decodes jwt.MapClaims into domain.Claims, tolerating
// missing optional fields (preferred_username, email, azp, resource_access)
// per spec §3's claims table.
func claimsFromMap(m jwt.MapClaims) (domain.Claims, error) {
	c := domain.Claims{
		Subject:           stringClaim(m, "sub"),
		TokenID:           stringClaim(m, "jti"),
		Issuer:            stringClaim(m, "iss"),
		AuthorizedParty:   stringClaim(m, "azp"),
		PreferredUsername: stringClaim(m, "preferred_username"),
		Email:             stringClaim(m, "email"),
		Scope:             stringClaim(m, "scope"),
	}

	if aud, err := m.GetAudience(); err == nil {
		c.Audience = aud
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := m.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}

	if raw, ok := m["resource_access"]; ok {
		c.ResourceAccess = parseResourceAccess(raw)
	}
	return c, nil
}

func stringClaim(m jwt.MapClaims, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func parseResourceAccess(raw any) map[string]domain.ResourceAccessEntry {
	asMap, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]domain.ResourceAccessEntry, len(asMap))
	for clientID, v := range asMap {
		entryMap, ok := v.(map[string]any)
		if !ok {
			continue
		}
		rolesRaw, ok := entryMap["roles"].([]any)
		if !ok {
			continue
		}
		roles := make([]string, 0, len(rolesRaw))
		for _, r := range rolesRaw {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		out[clientID] = domain.ResourceAccessEntry{Roles: roles}
	}
	return out
}
