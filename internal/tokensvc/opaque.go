package tokensvc

import (
	"context"
	"regexp"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// opaqueTokenPattern matches a whole opaque API token: "bodhiapp_"
// followed by one or more base64url characters. The length of that
// base64url part is not checked. Lookup uses only the first 16 characters
// of the token (see tokenPrefix), then compares the full token's hash.
var opaqueTokenPattern = regexp.MustCompile(`^bodhiapp_[A-Za-z0-9_-]+$`)

// isOpaqueToken classifies token per spec §4.5.1 step 1: tokens matching
// the bodhiapp_ opaque-token shape are looked up by prefix+hash; anything
// else is treated as a JWT.
func isOpaqueToken(token string) bool {
	return opaqueTokenPattern.MatchString(token)
}

// validateOpaqueToken implements spec §4.5.1's opaque-token branch: look
// up the stored row by the token's fixed-length prefix, then compare the
// full token's hash in constant time against the stored hash. A
// prefix-only match with a mismatched hash, or a row in inactive status,
// are both InvalidToken/TokenInactive per spec's error table — the repo
// never reveals which of "prefix not found" vs "hash mismatch" occurred.
func (s *Service) validateOpaqueToken(ctx context.Context, token string) (domain.ApiToken, error) {
	prefix := tokenPrefix(token)
	row, err := s.repo.GetApiTokenByPrefix(ctx, prefix)
	if err != nil {
		return domain.ApiToken{}, domain.New(domain.KindInvalidToken, "unknown token")
	}

	hash := crypto.SHA256Hex([]byte(token))
	if !crypto.ConstantTimeEqualHex(hash, row.TokenHash) {
		return domain.ApiToken{}, domain.New(domain.KindInvalidToken, "token hash mismatch")
	}
	if row.Status != domain.TokenStatusActive {
		return domain.ApiToken{}, domain.New(domain.KindTokenInactive, "token is inactive")
	}
	return row, nil
}

func tokenPrefix(token string) string {
	const prefixLen = 16
	if len(token) <= prefixLen {
		return token
	}
	return token[:prefixLen]
}
