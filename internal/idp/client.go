// Package idp implements C4: a typed wrapper over the external OAuth 2.1 /
// OIDC identity provider's wire protocol (client registration, auth-code
// exchange, refresh, token exchange, admin-promotion, access-request).
// The identity provider itself is out of scope — this package only
// speaks its wire protocol, per spec §1's explicit non-goal.
//
// Grounded on stacklok-toolhive/pkg/auth/tokenexchange/exchange.go (form
// building, HTTP Basic client auth, redacting request/response structs)
// and pkg/auth/oauth/dynamic_registration.go (RFC 7591 shapes).
package idp

import (
	"fmt"
	"net/http"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

const (
	maxResponseBodySize = 1 << 20

	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"
	grantTypeTokenExchange     = "urn:ietf:params:oauth:grant-type:token-exchange" //nolint:gosec // URN identifier, not a credential
	tokenTypeAccessToken       = "urn:ietf:params:oauth:token-type:access_token"   //nolint:gosec // URN identifier, not a credential
)

// Client is C4's entry point. One Client is constructed per identity
// provider realm (authorization/token/registration endpoints and the
// admin API base all share a realm).
type Client struct {
	httpClient             *http.Client
	authorizationEndpoint   string
	tokenEndpoint           string
	registrationEndpoint    string
	adminAPIBase            string // provider-specific admin API base, for make_resource_admin/request_access
}

// Config configures a Client.
type Config struct {
	HTTPClient            *http.Client
	AuthorizationEndpoint string
	TokenEndpoint         string
	RegistrationEndpoint  string
	AdminAPIBase          string
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		httpClient:            client,
		authorizationEndpoint: cfg.AuthorizationEndpoint,
		tokenEndpoint:         cfg.TokenEndpoint,
		registrationEndpoint:  cfg.RegistrationEndpoint,
		adminAPIBase:          cfg.AdminAPIBase,
	}
}

// TokenPair is the (access_token, refresh_token) result of a grant that
// always returns both.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshResult is the result of a refresh_token grant, where the
// provider may omit a new refresh token (spec §4.4).
type RefreshResult struct {
	AccessToken     string
	NewRefreshToken string // empty if the provider did not issue one
}

// ExchangeResult is the result of an RFC 8693 token exchange, where the
// provider may omit a refresh token entirely.
type ExchangeResult struct {
	AccessToken  string
	RefreshToken string // empty if none returned
}

func apiError(statusCode int, body []byte) error {
	if oauthErr := parseOAuthError(statusCode, body); oauthErr != nil {
		return domain.New(domain.KindAuthServiceAPIError, oauthErr.String())
	}
	return domain.New(domain.KindAuthServiceAPIError, fmt.Sprintf("identity provider returned status %d", statusCode))
}
