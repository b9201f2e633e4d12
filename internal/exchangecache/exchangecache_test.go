package exchangecache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/exchangecache"
)

func TestGetSetRoundTrip(t *testing.T) {
	c, err := exchangecache.New()
	require.NoError(t, err)

	key := exchangecache.ExchangeAccessTokenKey("jti-1")
	hash := crypto.SHA256Hex([]byte("original-jwt"))
	c.SetBoundToHash(key, "exchanged-token", hash)

	v, ok := c.GetBoundToHash(key, hash)
	assert.True(t, ok)
	assert.Equal(t, "exchanged-token", v)
}

func TestBindingRejectsMismatchedHash(t *testing.T) {
	c, err := exchangecache.New()
	require.NoError(t, err)

	key := exchangecache.ExchangeAccessTokenKey("jti-1")
	c.SetBoundToHash(key, "exchanged-token", crypto.SHA256Hex([]byte("token-a")))

	_, ok := c.GetBoundToHash(key, crypto.SHA256Hex([]byte("token-b")))
	assert.False(t, ok, "a different inbound token must not be able to reuse a cached entry for the same token_id")
}

func TestRemove(t *testing.T) {
	c, err := exchangecache.New()
	require.NoError(t, err)

	key := exchangecache.ExchangeAccessTokenKey("jti-1")
	hash := crypto.SHA256Hex([]byte("original-jwt"))
	c.SetBoundToHash(key, "exchanged-token", hash)
	c.Remove(key)

	_, ok := c.GetBoundToHash(key, hash)
	assert.False(t, ok)
}
