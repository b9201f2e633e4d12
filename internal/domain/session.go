package domain

import "context"

// Recognized session record keys, per spec §3.
const (
	SessionKeyAccessToken  = "access_token"
	SessionKeyRefreshToken = "refresh_token"
	SessionKeyUserID       = "user_id"
	SessionKeyOAuthState   = "oauth_state"
	SessionKeyPKCEVerifier = "pkce_verifier"
	SessionKeyCallbackURL  = "callback_url"
)

// Session is the external session-store collaborator (spec §9): a
// key-value map identified by an opaque cookie id. The core only ever
// calls Get/Insert/Remove/Delete — schema, expiry sweeping, and locking
// are the store's concern.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Insert(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Delete(ctx context.Context) error
}
