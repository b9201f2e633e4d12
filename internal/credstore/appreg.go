package credstore

import (
	"context"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// appRegInfoRow is the single process-wide row holding the app's OAuth
// client credentials (spec §3's "App registration info"), persisted
// encrypted the same way oauth_configs.client_secret is.
type appRegInfoRow struct {
	ClientID     string `db:"client_id"`
	SecretCipher []byte `db:"client_secret_ciphertext"`
	SecretSalt   []byte `db:"client_secret_salt"`
	SecretNonce  []byte `db:"client_secret_nonce"`
}

// SetAppRegInfo persists the app's client_id/client_secret, overwriting
// any previously stored row (there is at most one).
func (s *SQLStore) SetAppRegInfo(ctx context.Context, clientID, clientSecret string) error {
	field, err := crypto.EncryptField(s.master, clientSecret)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_reg_info (id, client_id, client_secret_ciphertext, client_secret_salt, client_secret_nonce)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret_ciphertext = excluded.client_secret_ciphertext,
			client_secret_salt = excluded.client_secret_salt,
			client_secret_nonce = excluded.client_secret_nonce`,
		clientID, field.Ciphertext, field.Salt, field.Nonce)
	if err != nil {
		return s.mapDBError(err, "app_reg_info")
	}
	return nil
}

// GetAppRegInfo returns the stored app registration info, or
// AppRegInfoMissing if the app hasn't registered yet (spec §4.7's
// AppRegInfoMissing kind).
func (s *SQLStore) GetAppRegInfo(ctx context.Context) (domain.AppRegInfo, error) {
	var r appRegInfoRow
	err := s.db.GetContext(ctx, &r, `
		SELECT client_id, client_secret_ciphertext, client_secret_salt, client_secret_nonce
		FROM app_reg_info WHERE id = 1`)
	if err != nil {
		return domain.AppRegInfo{}, domain.Wrap(domain.KindAppRegInfoMissing, "app registration info not found", err)
	}
	secret, err := crypto.DecryptField(s.master, domain.EncryptedField{
		Ciphertext: r.SecretCipher, Salt: r.SecretSalt, Nonce: r.SecretNonce,
	})
	if err != nil {
		return domain.AppRegInfo{}, err
	}
	return domain.AppRegInfo{ClientID: r.ClientID, ClientSecret: secret}, nil
}
