package refresh_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/refresh"
)

func newTestRepo(t *testing.T) credstore.Repository {
	t.Helper()
	master := crypto.MasterKey("0123456789abcdef0123456789abcdef")
	store, err := credstore.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", master, logging.Noop(), uuid.NewString)
	require.NoError(t, err)
	return store
}

func seedToken(t *testing.T, repo credstore.Repository, tokenEndpoint string, expiresAt time.Time, withRefresh bool) string {
	t.Helper()
	ctx := context.Background()
	secret := "mcp-client-secret"
	cfg, err := repo.CreateOAuthConfig(ctx, domain.OAuthConfig{
		McpServerID:   "mcp-server-1",
		ClientID:      "mcp-client",
		TokenEndpoint: tokenEndpoint,
		Scopes:        "mcp.read",
	}, &secret)
	require.NoError(t, err)

	var refreshToken *string
	if withRefresh {
		v := "refresh-1"
		refreshToken = &v
	}
	tok, err := repo.StoreOAuthToken(ctx, cfg.ID, "user-1", "access-1", refreshToken, "mcp.read", expiresAt.Unix())
	require.NoError(t, err)
	return tok.ID
}

func TestGetOrRefreshReturnsCurrentTokenWhenStillFresh(t *testing.T) {
	repo := newTestRepo(t)
	tokenID := seedToken(t, repo, "http://unused.invalid", time.Now().Add(time.Hour), true)

	c := refresh.New(repo, http.DefaultClient, "mcp", logging.Noop())
	name, value, err := c.GetOrRefresh(context.Background(), tokenID)
	require.NoError(t, err)
	assert.Equal(t, "Authorization", name)
	assert.Equal(t, "Bearer access-1", value)
}

func TestGetOrRefreshFailsWhenExpiredWithNoRefreshToken(t *testing.T) {
	repo := newTestRepo(t)
	tokenID := seedToken(t, repo, "http://unused.invalid", time.Now().Add(-time.Hour), false)

	c := refresh.New(repo, http.DefaultClient, "mcp", logging.Noop())
	_, _, err := c.GetOrRefresh(context.Background(), tokenID)
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.KindOAuthTokenExpired))
}

func TestGetOrRefreshExchangesExpiredTokenAndPersistsResult(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = r.ParseForm()
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "refresh-1", r.FormValue("refresh_token"))
		assert.Equal(t, "mcp-server-1", r.FormValue("resource"))
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","expires_in":3600}`))
	}))
	defer srv.Close()

	repo := newTestRepo(t)
	tokenID := seedToken(t, repo, srv.URL, time.Now().Add(-time.Minute), true)

	c := refresh.New(repo, http.DefaultClient, "mcp", logging.Noop())
	name, value, err := c.GetOrRefresh(context.Background(), tokenID)
	require.NoError(t, err)
	assert.Equal(t, "Authorization", name)
	assert.Equal(t, "Bearer access-2", value)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	updated, err := repo.GetOAuthTokenByID(context.Background(), tokenID)
	require.NoError(t, err)
	assert.True(t, updated.ExpiresAt.After(time.Now().Add(time.Hour-time.Minute)))
}

// TestGetOrRefreshSerializesConcurrentCallersForSameToken verifies spec §8
// invariant 5: for any token_id, at most one in-flight refresh call to the
// identity provider may originate from this process at any instant.
func TestGetOrRefreshSerializesConcurrentCallersForSameToken(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","expires_in":3600}`))
	}))
	defer srv.Close()

	repo := newTestRepo(t)
	tokenID := seedToken(t, repo, srv.URL, time.Now().Add(-time.Minute), true)

	c := refresh.New(repo, http.DefaultClient, "mcp", logging.Noop())

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrRefresh(context.Background(), tokenID)
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "only one goroutine should reach the identity provider for a shared token_id")
}
