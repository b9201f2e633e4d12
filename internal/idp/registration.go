package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// registrationRequest is the RFC 7591 dynamic client registration
// request, grounded on pkg/auth/oauth/dynamic_registration.go.
type registrationRequest struct {
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

type scopeList []string

func (s *scopeList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		str = strings.TrimSpace(str)
		if str == "" {
			*s = nil
			return nil
		}
		*s = strings.Fields(str)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}
	return domain.New(domain.KindTokenExchangeError, "invalid scope format in registration response")
}

type registrationResponse struct {
	ClientID                string    `json:"client_id"`
	ClientSecret            string    `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64     `json:"client_id_issued_at,omitempty"`
	RegistrationAccessToken string    `json:"registration_access_token,omitempty"`
	RegistrationClientURI   string    `json:"registration_client_uri,omitempty"`
	Scope                   scopeList `json:"scope,omitempty"`
}

// RegisterClient performs RFC 7591 dynamic client registration against
// c.registrationEndpoint and returns the resulting AppRegInfo. name and
// description identify this application to the provider; redirectURIs is
// the set of callback URLs the provider will accept.
func (c *Client) RegisterClient(ctx context.Context, name, description string, redirectURIs []string) (domain.AppRegInfo, error) {
	if err := validateRegistrationEndpoint(c.registrationEndpoint); err != nil {
		return domain.AppRegInfo{}, domain.Wrap(domain.KindAppRegInfoMissing, "registration endpoint", err)
	}

	reqBody := registrationRequest{
		ClientName:              name,
		RedirectURIs:            redirectURIs,
		TokenEndpointAuthMethod: "client_secret_post",
		GrantTypes:              []string{grantTypeAuthorizationCode, grantTypeRefreshToken},
		ResponseTypes:           []string{"code"},
	}
	if description != "" {
		reqBody.Scope = description
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return domain.AppRegInfo{}, domain.Wrap(domain.KindAuthServiceAPIError, "encode registration request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.registrationEndpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.AppRegInfo{}, domain.Wrap(domain.KindAuthServiceAPIError, "build registration request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.doJSON(req)
	if err != nil {
		return domain.AppRegInfo{}, domain.Wrap(domain.KindAuthServiceAPIError, "registration request", err)
	}
	if status < 200 || status >= 300 {
		return domain.AppRegInfo{}, apiError(status, body)
	}

	var resp registrationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.AppRegInfo{}, domain.Wrap(domain.KindTokenExchangeError, "decode registration response", err)
	}
	if resp.ClientID == "" {
		return domain.AppRegInfo{}, domain.New(domain.KindTokenExchangeError, "empty client_id in registration response")
	}
	return domain.AppRegInfo{ClientID: resp.ClientID, ClientSecret: resp.ClientSecret}, nil
}

// validateRegistrationEndpoint enforces HTTPS except for localhost
// development endpoints, per RFC 7591's security considerations and
// pkg/auth/oauth/dynamic_registration.go's validateRegistrationEndpoint.
func validateRegistrationEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && !isLocalhost(u.Host) {
		return domain.New(domain.KindBadRequest, "registration endpoint must use HTTPS: "+endpoint)
	}
	return nil
}

func isLocalhost(host string) bool {
	h := host
	if idx := strings.LastIndex(h, ":"); idx >= 0 {
		h = h[:idx]
	}
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}
