// Package login implements C7: the three-handler OAuth login orchestration
// (initiate, callback, logout). It never touches cookies directly — the
// session is a domain.Session handed in by the caller's router layer.
//
// Grounded on original_source/crates/routes_app/src/routes_login.rs for
// flow order and the resource-admin promotion branch, redesigned per
// spec.md to return JSON bodies (200/201) instead of the original's 302
// redirects — see SPEC_FULL.md's REDESIGN FLAGS. PKCE/state generation
// follows stacklok-toolhive/pkg/auth/oauth/pkce.go's byte-length and
// encoding choices.
package login

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// randomB64URL returns a base64url-no-padding string decoding n random
// bytes. Callers pass the byte count, not the desired string length: n
// bytes encode to ceil(4n/3) characters, so 24 bytes give the 32-character
// state and 32 bytes the 43-character PKCE verifier.
func randomB64URL(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// generatePKCE returns (verifier, challenge) per RFC 7636 S256.
func generatePKCE() (verifier, challenge string, err error) {
	verifier, err = randomB64URL(32) // 32 bytes -> 43-char base64url string
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

// generateState returns a 32-character base64url string (24 random
// bytes), matching spec §4.7 step 2's literal random_b64url(32).
func generateState() (string, error) {
	return randomB64URL(24)
}
