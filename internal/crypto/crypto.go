// Package crypto implements C1: authenticated symmetric encryption and
// SHA-256 digests for token fingerprints.
//
// Grounded on YaoApp-yao/crypto/aes.go (AES-256-GCM with explicit nonce
// and additional-data support), generalized here to generate a fresh
// random salt and nonce per call and derive the per-row subkey from the
// master key via HKDF, per spec §4.1. Constant-time comparison is
// grounded on docker-mcp-gateway/pkg/gateway/auth.go's token-store check.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

const (
	// SaltSize is the minimum salt length, per spec §4.1 ("salt >= 16 bytes").
	SaltSize = 16
	// NonceSize is sized to the AEAD construction (12 bytes for GCM).
	NonceSize = 12
	keySize   = 32 // AES-256
)

// MasterKey is the process-wide immutable key loaded once at startup from
// a secure secret store (spec §4.1). Rotating it invalidates every stored
// credential, since subkeys are derived from it.
type MasterKey []byte

// deriveSubkey derives a deterministic 32-byte AES-256 key from
// (master, salt) via HKDF-SHA256. Deterministic given the same inputs, as
// spec §4.1 requires.
func deriveSubkey(master MasterKey, salt []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, master, salt, []byte("bodhiapp-credential-field"))
	subkey := make([]byte, keySize)
	if _, err := io.ReadFull(kdf, subkey); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return subkey, nil
}

// Encrypt generates a fresh random salt and nonce, derives a subkey from
// master and the salt, and AEAD-encrypts plaintext. The returned
// ciphertext includes the authentication tag (crypto/cipher's GCM Seal
// appends it).
func Encrypt(master MasterKey, plaintext []byte) (ciphertext, salt, nonce []byte, err error) {
	salt = make([]byte, SaltSize)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, nil, domain.Wrap(domain.KindEncryptionError, "generate salt", err)
	}
	nonce = make([]byte, NonceSize)
	if _, err = rand.Read(nonce); err != nil {
		return nil, nil, nil, domain.Wrap(domain.KindEncryptionError, "generate nonce", err)
	}

	subkey, err := deriveSubkey(master, salt)
	if err != nil {
		return nil, nil, nil, domain.Wrap(domain.KindEncryptionError, "derive subkey", err)
	}

	gcm, err := newGCM(subkey)
	if err != nil {
		return nil, nil, nil, domain.Wrap(domain.KindEncryptionError, "new gcm", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, salt, nonce, nil
}

// Decrypt derives the subkey from master and salt and opens ciphertext
// with nonce. It fails closed: any authentication tag mismatch surfaces as
// domain.KindEncryptionError and no partial plaintext is ever returned.
func Decrypt(master MasterKey, ciphertext, salt, nonce []byte) ([]byte, error) {
	subkey, err := deriveSubkey(master, salt)
	if err != nil {
		return nil, domain.Wrap(domain.KindEncryptionError, "derive subkey", err)
	}

	gcm, err := newGCM(subkey)
	if err != nil {
		return nil, domain.Wrap(domain.KindEncryptionError, "new gcm", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.Wrap(domain.KindEncryptionError, "authentication tag mismatch", err)
	}
	return plaintext, nil
}

// EncryptField is the EncryptedField-returning convenience wrapper used
// throughout C2.
func EncryptField(master MasterKey, plaintext string) (domain.EncryptedField, error) {
	ct, salt, nonce, err := Encrypt(master, []byte(plaintext))
	if err != nil {
		return domain.EncryptedField{}, err
	}
	return domain.EncryptedField{Ciphertext: ct, Salt: salt, Nonce: nonce}, nil
}

// DecryptField decrypts an EncryptedField. Callers must check f.IsSet()
// first; decrypting an unset field is a programmer error, not a runtime
// one, and returns domain.KindEncryptionError.
func DecryptField(master MasterKey, f domain.EncryptedField) (string, error) {
	if !f.IsSet() {
		return "", domain.New(domain.KindEncryptionError, "field not set")
	}
	pt, err := Decrypt(master, f.Ciphertext, f.Salt, f.Nonce)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("key length must be %d", keySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SHA256Hex returns the hex-lowercase SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqualHex compares two hex digest strings in constant time,
// per spec §9's "Observable timing" note: the opaque-token hash comparison
// must not leak timing information about how many leading bytes match.
func ConstantTimeEqualHex(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
