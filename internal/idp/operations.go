package idp

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// ExchangeAuthCode performs the authorization_code grant (spec §4.4). The
// provider must return a refresh token; its absence is a protocol error
// since the session-refresh path (§4.5.2) depends on one being present.
func (c *Client) ExchangeAuthCode(ctx context.Context, clientID, clientSecret, redirectURI, code, pkceVerifier string) (TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", grantTypeAuthorizationCode)
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)
	data.Set("redirect_uri", redirectURI)
	data.Set("code", code)
	data.Set("code_verifier", pkceVerifier)

	body, status, err := c.postForm(ctx, c.tokenEndpoint, data)
	if err != nil {
		return TokenPair{}, domain.Wrap(domain.KindAuthServiceAPIError, "auth code exchange", err)
	}
	if status < 200 || status >= 300 {
		return TokenPair{}, apiError(status, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return TokenPair{}, domain.Wrap(domain.KindTokenExchangeError, "decode token response", err)
	}
	if tr.AccessToken == "" {
		return TokenPair{}, domain.New(domain.KindTokenExchangeError, "empty access_token")
	}
	if tr.RefreshToken == "" {
		return TokenPair{}, domain.New(domain.KindTokenExchangeError, "provider did not return a refresh token for the authorization_code grant")
	}
	return TokenPair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}, nil
}

// RefreshToken performs the refresh_token grant. The provider may omit a
// new refresh token; callers reuse the old one in that case (spec §4.4,
// §4.5.2 step 4).
func (c *Client) RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (RefreshResult, error) {
	data := url.Values{}
	data.Set("grant_type", grantTypeRefreshToken)
	data.Set("client_id", clientID)
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}
	data.Set("refresh_token", refreshToken)

	body, status, err := c.postForm(ctx, c.tokenEndpoint, data)
	if err != nil {
		return RefreshResult{}, domain.Wrap(domain.KindAuthServiceAPIError, "refresh", err)
	}
	if status < 200 || status >= 300 {
		return RefreshResult{}, apiError(status, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return RefreshResult{}, domain.Wrap(domain.KindTokenExchangeError, "decode refresh response", err)
	}
	if tr.AccessToken == "" {
		return RefreshResult{}, domain.New(domain.KindTokenExchangeError, "empty access_token")
	}
	return RefreshResult{AccessToken: tr.AccessToken, NewRefreshToken: tr.RefreshToken}, nil
}

// ExchangeToken performs an RFC 8693 token exchange (spec §4.4).
func (c *Client) ExchangeToken(ctx context.Context, clientID, clientSecret, subjectToken, requestedTokenType string, scopes []string) (ExchangeResult, error) {
	return c.exchange(ctx, clientID, clientSecret, subjectToken, requestedTokenType, "", scopes)
}

// ExchangeAppToken performs an RFC 8693 token exchange with
// audience = clientID, per spec §4.4.
func (c *Client) ExchangeAppToken(ctx context.Context, clientID, clientSecret, subjectToken string, scopes []string) (ExchangeResult, error) {
	return c.exchange(ctx, clientID, clientSecret, subjectToken, tokenTypeAccessToken, clientID, scopes)
}

func (c *Client) exchange(ctx context.Context, clientID, clientSecret, subjectToken, requestedTokenType, audience string, scopes []string) (ExchangeResult, error) {
	if requestedTokenType == "" {
		requestedTokenType = tokenTypeAccessToken
	}
	data := url.Values{}
	data.Set("grant_type", grantTypeTokenExchange)
	data.Set("subject_token", subjectToken)
	data.Set("subject_token_type", tokenTypeAccessToken)
	data.Set("requested_token_type", requestedTokenType)
	if audience != "" {
		data.Set("audience", audience)
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}
	data.Set("client_id", clientID)
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}

	body, status, err := c.postForm(ctx, c.tokenEndpoint, data)
	if err != nil {
		return ExchangeResult{}, domain.Wrap(domain.KindAuthServiceAPIError, "token exchange", err)
	}
	if status < 200 || status >= 300 {
		return ExchangeResult{}, apiError(status, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return ExchangeResult{}, domain.Wrap(domain.KindTokenExchangeError, "decode exchange response", err)
	}
	if tr.AccessToken == "" {
		return ExchangeResult{}, domain.New(domain.KindTokenExchangeError, "empty access_token")
	}
	return ExchangeResult{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}, nil
}

// MakeResourceAdmin calls the provider's admin API to promote email to
// resource admin, using a client-credentials token obtained from
// clientID/clientSecret (spec §4.4, §4.7.7).
func (c *Client) MakeResourceAdmin(ctx context.Context, clientID, clientSecret, email string) error {
	token, err := c.clientCredentialsToken(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}

	endpoint := c.adminAPIBase + "/make-resource-admin"
	payload, _ := json.Marshal(map[string]string{"username": email})
	req, err := newAuthenticatedJSONRequest(ctx, endpoint, payload, token)
	if err != nil {
		return domain.Wrap(domain.KindAuthServiceAPIError, "build make_resource_admin request", err)
	}

	body, status, err := c.doJSON(req)
	if err != nil {
		return domain.Wrap(domain.KindAuthServiceAPIError, "make_resource_admin", err)
	}
	if status < 200 || status >= 300 {
		return apiError(status, body)
	}
	return nil
}

// RequestAccess asks the provider to grant the current app client a scope
// on appClientID's resource, returning the granted scope name (spec §4.4).
func (c *Client) RequestAccess(ctx context.Context, clientID, clientSecret, appClientID string) (string, error) {
	token, err := c.clientCredentialsToken(ctx, clientID, clientSecret)
	if err != nil {
		return "", err
	}

	endpoint := c.adminAPIBase + "/request-access"
	payload, _ := json.Marshal(map[string]string{"app_client_id": appClientID})
	req, err := newAuthenticatedJSONRequest(ctx, endpoint, payload, token)
	if err != nil {
		return "", domain.Wrap(domain.KindAuthServiceAPIError, "build request_access request", err)
	}

	body, status, err := c.doJSON(req)
	if err != nil {
		return "", domain.Wrap(domain.KindAuthServiceAPIError, "request_access", err)
	}
	if status < 200 || status >= 300 {
		return "", apiError(status, body)
	}

	var out struct {
		Scope string `json:"scope"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", domain.Wrap(domain.KindTokenExchangeError, "decode request_access response", err)
	}
	if out.Scope == "" {
		return "", domain.New(domain.KindTokenExchangeError, "empty scope in request_access response")
	}
	return out.Scope, nil
}

// clientCredentialsToken obtains a client_credentials grant token for use
// against the provider's admin API, via golang.org/x/oauth2/clientcredentials
// rather than a hand-rolled form POST — the grant has no state this
// package needs to own (no refresh token, no PKCE), so the stdlib-style
// oauth2.TokenSource fits without fighting its caching assumptions.
func (c *Client) clientCredentialsToken(ctx context.Context, clientID, clientSecret string) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenEndpoint,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", domain.Wrap(domain.KindAuthServiceAPIError, "client_credentials", err)
	}
	if tok.AccessToken == "" {
		return "", domain.New(domain.KindTokenExchangeError, "empty access_token")
	}
	return tok.AccessToken, nil
}
