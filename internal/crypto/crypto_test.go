package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := crypto.MasterKey("01234567890123456789012345678901")
	plaintext := "sk-super-secret-api-key"

	ct, salt, nonce, err := crypto.Encrypt(key, []byte(plaintext))
	require.NoError(t, err)
	assert.NotEmpty(t, ct)
	assert.Len(t, salt, crypto.SaltSize)
	assert.Len(t, nonce, crypto.NonceSize)

	got, err := crypto.Decrypt(key, ct, salt, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, string(got))
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	key := crypto.MasterKey("01234567890123456789012345678901")
	other := crypto.MasterKey("98765432109876543210987654321098")

	ct, salt, nonce, err := crypto.Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	_, err = crypto.Decrypt(other, ct, salt, nonce)
	assert.Error(t, err)
}

func TestEncryptionIsNondeterministic(t *testing.T) {
	key := crypto.MasterKey("01234567890123456789012345678901")
	ct1, salt1, nonce1, err := crypto.Encrypt(key, []byte("same plaintext"))
	require.NoError(t, err)
	ct2, salt2, nonce2, err := crypto.Encrypt(key, []byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2, "each call must draw a fresh salt")
	assert.NotEqual(t, nonce1, nonce2, "each call must draw a fresh nonce")
	assert.NotEqual(t, ct1, ct2)
}

func TestFieldRoundTrip(t *testing.T) {
	key := crypto.MasterKey("01234567890123456789012345678901")
	field, err := crypto.EncryptField(key, "hello world")
	require.NoError(t, err)
	assert.True(t, field.IsSet())

	got, err := crypto.DecryptField(key, field)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestDecryptUnsetFieldFails(t *testing.T) {
	key := crypto.MasterKey("01234567890123456789012345678901")
	_, err := crypto.DecryptField(key, domain.EncryptedField{})
	assert.Error(t, err)
}

func TestSHA256Hex(t *testing.T) {
	got := crypto.SHA256Hex([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
	assert.Len(t, got, 64)
}

func TestConstantTimeEqualHex(t *testing.T) {
	a := crypto.SHA256Hex([]byte("token-one"))
	b := crypto.SHA256Hex([]byte("token-one"))
	c := crypto.SHA256Hex([]byte("token-two"))

	assert.True(t, crypto.ConstantTimeEqualHex(a, b))
	assert.False(t, crypto.ConstantTimeEqualHex(a, c))
	assert.False(t, crypto.ConstantTimeEqualHex(a, "short"))
}
