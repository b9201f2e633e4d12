package credstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
)

func newTestStore(t *testing.T) *credstore.SQLStore {
	t.Helper()
	counter := 0
	store, err := credstore.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared", crypto.MasterKey("01234567890123456789012345678901"), logging.Noop(), func() string {
		counter++
		return "id-" + string(rune('a'+counter))
	})
	require.NoError(t, err)
	return store
}

func TestApiTokenUpdateMismatchedUserIsRowNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateApiToken(ctx, domain.ApiToken{
		UserID: "user-1", Name: "ci", TokenPrefix: "bodhiapp_aaaaaaa", TokenHash: "hash", Scopes: "scope_token_user", Status: domain.TokenStatusActive,
	})
	require.NoError(t, err)

	_, err = store.UpdateApiToken(ctx, "user-2", domain.ApiToken{ID: created.ID, Name: "renamed", Scopes: created.Scopes, Status: created.Status})
	assert.True(t, domain.Is(err, domain.KindRowNotFound))
}

func TestOAuthTokenSingletonPerConfigUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	refresh1 := "refresh-1"
	_, err := store.StoreOAuthToken(ctx, "config-1", "user-1", "access-1", &refresh1, "scope_user_user", 1000)
	require.NoError(t, err)

	refresh2 := "refresh-2"
	second, err := store.StoreOAuthToken(ctx, "config-1", "user-1", "access-2", &refresh2, "scope_user_user", 2000)
	require.NoError(t, err)

	got, err := store.GetOAuthToken(ctx, "config-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID, "only the latest row should exist")

	token, err := store.GetDecryptedAccessToken(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
}

func TestAliasPrefixUniqueness(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateApiModelAlias(ctx, domain.ApiModelAlias{Alias: "gpt", ApiFormat: "openai", BaseURL: "https://api.openai.com", Prefix: "oai/"}, nil)
	require.NoError(t, err)

	_, err = store.CreateApiModelAlias(ctx, domain.ApiModelAlias{Alias: "gpt-2", ApiFormat: "openai", BaseURL: "https://api.openai.com", Prefix: "oai/"}, nil)
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.KindPrefixExists))
}

func TestAliasApiKeyUpdateKeepDoesNotTouchCiphertext(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	key := "sk-original"
	alias, err := store.CreateApiModelAlias(ctx, domain.ApiModelAlias{Alias: "gpt", ApiFormat: "openai", BaseURL: "https://api.openai.com"}, &key)
	require.NoError(t, err)

	updated, err := store.UpdateApiModelAlias(ctx, alias.ID, domain.ApiModelAlias{Alias: "gpt-renamed", ApiFormat: "openai", BaseURL: alias.BaseURL}, domain.ApiKeyUpdate{Keep: true})
	require.NoError(t, err)

	gotKey, ok, err := store.GetApiKeyForAlias(ctx, updated.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, key, gotKey)
}
