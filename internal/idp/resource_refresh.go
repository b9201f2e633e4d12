package idp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// ResourceRefreshResult is the result of a refresh_token grant scoped to a
// specific downstream resource (spec §4.8 step 5).
type ResourceRefreshResult struct {
	AccessToken  string
	RefreshToken string // empty if the provider did not issue a new one
	ExpiresIn    int    // seconds; 0 if the provider omitted it
}

// RefreshForResource performs a refresh_token grant against tokenEndpoint
// on behalf of resource. Unlike Client.RefreshToken, this is not bound to
// one Client's realm: C8's refresh coordinator talks to whichever
// token_endpoint the owning OAuthConfig row names, which varies per
// downstream MCP server.
func RefreshForResource(ctx context.Context, httpClient *http.Client, tokenEndpoint, clientID, clientSecret, refreshToken, resource string) (ResourceRefreshResult, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	data := url.Values{}
	data.Set("grant_type", grantTypeRefreshToken)
	data.Set("client_id", clientID)
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}
	data.Set("refresh_token", refreshToken)
	if resource != "" {
		data.Set("resource", resource)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return ResourceRefreshResult{}, domain.Wrap(domain.KindOAuthRefreshFailed, "build refresh request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return ResourceRefreshResult{}, domain.Wrap(domain.KindOAuthRefreshFailed, "refresh request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return ResourceRefreshResult{}, domain.Wrap(domain.KindOAuthRefreshFailed, "read refresh response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ResourceRefreshResult{}, domain.New(domain.KindOAuthRefreshFailed, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return ResourceRefreshResult{}, domain.Wrap(domain.KindOAuthRefreshFailed, "decode refresh response", err)
	}
	if tr.AccessToken == "" {
		return ResourceRefreshResult{}, domain.New(domain.KindOAuthRefreshFailed, "empty access_token in refresh response")
	}
	return ResourceRefreshResult{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken, ExpiresIn: tr.ExpiresIn}, nil
}
