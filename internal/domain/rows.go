package domain

import "time"

// EncryptedField is the (ciphertext, salt, nonce) triple every encrypted
// column is stored as. A zero-value EncryptedField (empty Ciphertext)
// represents SQL NULL — "no value stored" — and must never be passed to
// decrypt.
type EncryptedField struct {
	Ciphertext []byte
	Salt       []byte
	Nonce      []byte
}

// IsSet reports whether this field has a stored value.
func (f EncryptedField) IsSet() bool { return len(f.Ciphertext) > 0 }

// TokenStatus is an opaque API token's activation state.
type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusInactive TokenStatus = "inactive"
)

// ApiToken is the opaque API token row of spec §3. The raw token is never
// stored; only TokenPrefix and TokenHash.
type ApiToken struct {
	ID          string
	UserID      string
	Name        string
	TokenPrefix string // first 16 chars of the raw token, "bodhiapp_" + 7
	TokenHash   string // hex sha256 of the raw token
	Scopes      string // single scope string
	Status      TokenStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApiModelAlias is the external-model alias row (C9), supplementing spec
// §3 per SPEC_FULL.md.
type ApiModelAlias struct {
	ID        string
	Alias     string
	ApiFormat string
	BaseURL   string
	Models    []string
	Prefix    string // optional, globally unique among non-null prefixes
	ApiKey    EncryptedField
}

// ApiKeyUpdate is the three-way sum type for updating an alias's API key:
// Keep leaves the encrypted columns untouched; anything else is a Set
// (Value == nil clears the key, Value != nil replaces it).
type ApiKeyUpdate struct {
	Keep  bool
	Value *string
}

// RegistrationType distinguishes statically configured OAuth clients from
// ones registered dynamically via RFC 7591.
type RegistrationType string

const (
	RegistrationStatic  RegistrationType = "static"
	RegistrationDynamic RegistrationType = "dynamic"
)

// OAuthConfig is the per-MCP-server, admin-owned OAuth config row.
type OAuthConfig struct {
	ID                       string
	McpServerID              string
	ClientID                 string
	ClientSecret             EncryptedField
	AuthorizationEndpoint    string
	TokenEndpoint            string
	RegistrationEndpoint     string
	RegistrationAccessToken  EncryptedField
	Scopes                   string
	TokenEndpointAuthMethod  string
	RegistrationType         RegistrationType
	ClientIDIssuedAt         time.Time
}

// OAuthToken is the per-user, per-config OAuth token row. At most one live
// row exists per (ConfigID, UserID) — invariant 6.
type OAuthToken struct {
	ID            string
	ConfigID      string
	UserID        string
	AccessToken   EncryptedField
	RefreshToken  EncryptedField
	ScopesGranted string
	ExpiresAt     time.Time
	UpdatedAt     time.Time
}

// AppRegInfo is the process-wide app registration record (spec §3),
// required for any outbound call to the identity provider.
type AppRegInfo struct {
	ClientID     string
	ClientSecret string
}
