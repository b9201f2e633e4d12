// Package refresh implements C8: the OAuth refresh coordinator shared by
// every MCP connection that carries a stored OAuth token. It serializes
// refreshes per token_id so that two concurrent requests for the same
// expiring token never both hit the identity provider (spec §8 invariant
// 5), and returns a ready-to-use Authorization header either way.
//
// Grounded on spec §3's "Refresh lock registry" description and §4.8's
// eight-step get_or_refresh algorithm. The lock registry is new — no
// teacher or pack file implements a bounded, refcount-aware mutex pool —
// built over github.com/hashicorp/golang-lru (already in go.mod, unused
// until now). The outbound refresh call is additionally wrapped in
// golang.org/x/sync/singleflight (also already in go.mod, unused until
// now), keyed on the same string as the lock. Because the per-key mutex
// is held across that call, two calls for one key never overlap, so
// singleflight never shares a result between them; a waiter that gets the
// lock after a refresh finds the fresh token when it re-reads the row.
package refresh

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/idp"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
)

// expiryMargin is the 60-second lookahead from spec §4.8 step 3: a token
// still technically valid for under a minute is treated as expired so a
// downstream call doesn't race the real expiry.
const expiryMargin = 60 * time.Second

// Coordinator is C8's get_or_refresh surface.
type Coordinator struct {
	repo       credstore.Repository
	httpClient *http.Client
	namespace  string
	log        logging.Logger

	registry *lockRegistry
	sf       singleflight.Group
}

// New builds a Coordinator. namespace prefixes every lock registry key
// (spec §3: "{namespace}:{token_id}"), letting unrelated token spaces
// share one process-wide registry without key collisions.
func New(repo credstore.Repository, httpClient *http.Client, namespace string, log logging.Logger) *Coordinator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Coordinator{
		repo:       repo,
		httpClient: httpClient,
		namespace:  namespace,
		log:        log,
		registry:   newLockRegistry(defaultRegistrySize),
	}
}

// GetOrRefresh implements spec §4.8's get_or_refresh(token_id). It returns
// a ready-to-use (header name, header value) pair, refreshing the
// underlying OAuth token first if it is at or past its 60-second expiry
// margin.
func (c *Coordinator) GetOrRefresh(ctx context.Context, tokenID string) (string, string, error) {
	key := c.namespace + ":" + tokenID
	release := c.registry.acquire(key)
	defer release()

	token, err := c.repo.GetOAuthTokenByID(ctx, tokenID)
	if err != nil {
		return "", "", err
	}

	if token.ExpiresAt.Add(-expiryMargin).After(time.Now()) {
		name, value, ok, err := c.repo.GetDecryptedOAuthBearer(ctx, tokenID)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return "", "", domain.New(domain.KindOAuthTokenExpired, "oauth token not found")
		}
		return name, value, nil
	}

	if !token.RefreshToken.IsSet() {
		return "", "", domain.New(domain.KindOAuthTokenExpired, "access token expired and no refresh token is stored")
	}

	refreshTok, ok, err := c.repo.GetDecryptedRefreshToken(ctx, tokenID)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", domain.New(domain.KindOAuthTokenExpired, "access token expired and no refresh token is stored")
	}

	cfg, err := c.repo.GetOAuthConfig(ctx, token.ConfigID)
	if err != nil {
		return "", "", err
	}
	clientSecret, _, err := c.repo.GetDecryptedClientSecret(ctx, token.ConfigID)
	if err != nil {
		return "", "", err
	}

	// resource is the downstream MCP server's own identifier: the domain
	// model carries no separate mcp_server_url field, so McpServerID
	// stands in for spec §4.8 step 5's resource parameter (see DESIGN.md).
	resource := cfg.McpServerID

	v, err, _ := c.sf.Do(key, func() (any, error) {
		return idp.RefreshForResource(ctx, c.httpClient, cfg.TokenEndpoint, cfg.ClientID, clientSecret, refreshTok, resource)
	})
	if err != nil {
		return "", "", err
	}
	result := v.(idp.ResourceRefreshResult)

	var newRefresh *string
	if result.RefreshToken != "" {
		newRefresh = &result.RefreshToken
	}
	expiresAt := token.ExpiresAt
	if result.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	}
	if err := c.repo.UpdateOAuthTokenAfterRefresh(ctx, tokenID, result.AccessToken, newRefresh, expiresAt.Unix()); err != nil {
		return "", "", err
	}

	c.log.Info(ctx, "refreshed oauth token", "token_id", tokenID, "config_id", token.ConfigID)

	name, value, ok, err := c.repo.GetDecryptedOAuthBearer(ctx, tokenID)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", domain.New(domain.KindOAuthTokenExpired, "oauth token not found after refresh")
	}
	return name, value, nil
}
