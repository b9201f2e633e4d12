package tokensvc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/exchangecache"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/tokensvc"
	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) credstore.Repository {
	t.Helper()
	master := crypto.MasterKey("0123456789abcdef0123456789abcdef")
	store, err := credstore.Open("sqlite", "file::memory:?cache=shared&_pragma=foreign_keys(1)", master, logging.Noop(), uuid.NewString)
	require.NoError(t, err)
	return store
}

func newTestCache(t *testing.T) *exchangecache.Cache {
	t.Helper()
	c, err := exchangecache.New()
	require.NoError(t, err)
	return c
}

func TestValidateOpaqueBearerRejectsWrongToken(t *testing.T) {
	repo := newTestRepo(t)
	raw := "bodhiapp_" + "abcdefghijklmnopqrstuvwxyz0123456789ABCDEF"
	hash := crypto.SHA256Hex([]byte(raw))
	_, err := repo.CreateApiToken(context.Background(), domain.ApiToken{
		ID:          uuid.NewString(),
		UserID:      "user-1",
		Name:        "t1",
		TokenPrefix: raw[:16],
		TokenHash:   hash,
		Scopes:      "scope_token_user",
		Status:      domain.TokenStatusActive,
	})
	require.NoError(t, err)

	svc := tokensvc.New(tokensvc.Config{Repo: repo, Cache: newTestCache(t), Log: logging.Noop()})

	_, err = svc.ValidateBearer(context.Background(), "Bearer "+raw+"x")
	assert.Error(t, err, "a token sharing a prefix but differing in suffix must not authenticate")

	p, err := svc.ValidateBearer(context.Background(), "Bearer "+raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.Subject)
	assert.True(t, p.HasTokenScope)
	assert.Equal(t, domain.RoleUser, domain.Role(p.TokenScope.Level()))
}

func TestValidateBearerRejectsMissingPrefix(t *testing.T) {
	svc := tokensvc.New(tokensvc.Config{Cache: newTestCache(t), Log: logging.Noop()})
	_, err := svc.ValidateBearer(context.Background(), "garbage")
	assert.Error(t, err)
}

func TestValidateOpaqueBearerInactiveToken(t *testing.T) {
	repo := newTestRepo(t)
	raw := "bodhiapp_" + "inactive0000000000000000000000000000000"
	hash := crypto.SHA256Hex([]byte(raw))
	_, err := repo.CreateApiToken(context.Background(), domain.ApiToken{
		ID:          uuid.NewString(),
		UserID:      "user-2",
		Name:        "t2",
		TokenPrefix: raw[:16],
		TokenHash:   hash,
		Scopes:      "scope_token_user",
		Status:      domain.TokenStatusInactive,
	})
	require.NoError(t, err)

	svc := tokensvc.New(tokensvc.Config{Repo: repo, Cache: newTestCache(t), Log: logging.Noop()})
	_, err = svc.ValidateBearer(context.Background(), "Bearer "+raw)
	require.Error(t, err)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindTokenInactive, de.Kind)
}
