// Package credstore implements C2: the credential repository. It
// persists encrypted credentials and OAuth config/token rows and exposes
// decryption helpers.
//
// Grounded on stacklok-toolhive/pkg/authserver/storage's pluggable storage
// interface pattern, generalized to a relational store per spec's
// "storage engine (a relational database) is external" non-goal: the core
// consumes this Repository interface, and SQLStore is the in-tree
// reference implementation over github.com/jmoiron/sqlx (grounded on
// docker-mcp-gateway/go.mod) against modernc.org/sqlite (a pure-Go driver
// already an indirect dependency of the teacher).
package credstore

import (
	"context"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// Page is a simple offset-based page request for list_api_tokens.
type Page struct {
	Page    int
	PerPage int
}

// Repository is C2's full surface, per spec §4.2.
type Repository interface {
	// API tokens.
	CreateApiToken(ctx context.Context, row domain.ApiToken) (domain.ApiToken, error)
	UpdateApiToken(ctx context.Context, userID string, row domain.ApiToken) (domain.ApiToken, error)
	ListApiTokens(ctx context.Context, userID string, page Page) ([]domain.ApiToken, int, error)
	GetApiTokenByID(ctx context.Context, userID, id string) (domain.ApiToken, error)
	GetApiTokenByPrefix(ctx context.Context, prefix string) (domain.ApiToken, error)

	// External-model aliases (C9).
	CreateApiModelAlias(ctx context.Context, alias domain.ApiModelAlias, apiKey *string) (domain.ApiModelAlias, error)
	UpdateApiModelAlias(ctx context.Context, id string, alias domain.ApiModelAlias, update domain.ApiKeyUpdate) (domain.ApiModelAlias, error)
	GetApiModelAlias(ctx context.Context, id string) (domain.ApiModelAlias, error)
	ListApiModelAliases(ctx context.Context) ([]domain.ApiModelAlias, error)
	DeleteApiModelAlias(ctx context.Context, id string) error
	GetApiKeyForAlias(ctx context.Context, id string) (string, bool, error)

	// App registration info (process-wide singleton, spec §3/§4.7).
	SetAppRegInfo(ctx context.Context, clientID, clientSecret string) error
	GetAppRegInfo(ctx context.Context) (domain.AppRegInfo, error)

	// OAuth config.
	CreateOAuthConfig(ctx context.Context, row domain.OAuthConfig, clientSecret *string) (domain.OAuthConfig, error)
	GetOAuthConfig(ctx context.Context, id string) (domain.OAuthConfig, error)
	GetOAuthConfigByMcpServer(ctx context.Context, mcpServerID string) (domain.OAuthConfig, error)
	GetDecryptedClientSecret(ctx context.Context, configID string) (string, bool, error)

	// OAuth tokens.
	StoreOAuthToken(ctx context.Context, configID, userID, accessToken string, refreshToken *string, scopesGranted string, expiresAt int64) (domain.OAuthToken, error)
	GetOAuthToken(ctx context.Context, configID, userID string) (domain.OAuthToken, error)
	GetOAuthTokenByID(ctx context.Context, tokenID string) (domain.OAuthToken, error)
	GetDecryptedAccessToken(ctx context.Context, tokenID string) (string, error)
	GetDecryptedRefreshToken(ctx context.Context, tokenID string) (string, bool, error)
	GetDecryptedOAuthBearer(ctx context.Context, tokenID string) (headerName, headerValue string, ok bool, err error)
	GetDecryptedAuthHeader(ctx context.Context, headerID string) (headerName, headerValue string, ok bool, err error)
	DeleteOAuthTokensByConfigAndUser(ctx context.Context, configID, userID string) error
	UpdateOAuthTokenAfterRefresh(ctx context.Context, tokenID, accessToken string, refreshToken *string, expiresAt int64) error

	// EncryptionKey exposes the master key for callers that must
	// re-encrypt (the refresh paths in C8).
	EncryptionKey() []byte
}

// rowNotFound is the canonical RowNotFound error, surfaced per spec §4.2
// whenever a scoped lookup (user_id mismatch on update, unknown id) fails.
func rowNotFound(what string) error {
	return domain.New(domain.KindRowNotFound, what+" not found")
}

// prefixExists is surfaced when an alias.prefix uniqueness violation is
// detected (spec §4.2).
func prefixExists(prefix string) error {
	return domain.New(domain.KindPrefixExists, "prefix already exists: "+prefix)
}
