package credstore

import (
	"context"
	"database/sql"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

type oauthTokenRow struct {
	ID            string `db:"id"`
	ConfigID      string `db:"config_id"`
	UserID        string `db:"user_id"`
	AccessCipher  []byte `db:"access_token_ciphertext"`
	AccessSalt    []byte `db:"access_token_salt"`
	AccessNonce   []byte `db:"access_token_nonce"`
	RefreshCipher []byte `db:"refresh_token_ciphertext"`
	RefreshSalt   []byte `db:"refresh_token_salt"`
	RefreshNonce  []byte `db:"refresh_token_nonce"`
	ScopesGranted string `db:"scopes_granted"`
	ExpiresAt     int64  `db:"expires_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (r oauthTokenRow) toDomain() domain.OAuthToken {
	t := domain.OAuthToken{
		ID:            r.ID,
		ConfigID:      r.ConfigID,
		UserID:        r.UserID,
		AccessToken:   domain.EncryptedField{Ciphertext: r.AccessCipher, Salt: r.AccessSalt, Nonce: r.AccessNonce},
		ScopesGranted: r.ScopesGranted,
		ExpiresAt:     unixToTime(r.ExpiresAt),
		UpdatedAt:     unixToTime(r.UpdatedAt),
	}
	if len(r.RefreshCipher) > 0 {
		t.RefreshToken = domain.EncryptedField{Ciphertext: r.RefreshCipher, Salt: r.RefreshSalt, Nonce: r.RefreshNonce}
	}
	return t
}

// StoreOAuthToken inserts a new OAuth token row, first deleting any prior
// row for (configID, userID) — this guarantees invariant 6 ("per-(config,
// user) token singleton"): exactly one row exists after the call returns.
func (s *SQLStore) StoreOAuthToken(ctx context.Context, configID, userID, accessToken string, refreshToken *string, scopesGranted string, expiresAt int64) (domain.OAuthToken, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.OAuthToken{}, s.mapDBError(err, "oauth_token")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE config_id = ? AND user_id = ?`, configID, userID); err != nil {
		return domain.OAuthToken{}, s.mapDBError(err, "oauth_token")
	}

	accessField, err := crypto.EncryptField(s.master, accessToken)
	if err != nil {
		return domain.OAuthToken{}, err
	}
	var refreshCipher, refreshSalt, refreshNonce []byte
	if refreshToken != nil {
		refreshField, err := crypto.EncryptField(s.master, *refreshToken)
		if err != nil {
			return domain.OAuthToken{}, err
		}
		refreshCipher, refreshSalt, refreshNonce = refreshField.Ciphertext, refreshField.Salt, refreshField.Nonce
	}

	id := s.newID()
	ts := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO oauth_tokens (
			id, config_id, user_id, access_token_ciphertext, access_token_salt, access_token_nonce,
			refresh_token_ciphertext, refresh_token_salt, refresh_token_nonce,
			scopes_granted, expires_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, configID, userID, accessField.Ciphertext, accessField.Salt, accessField.Nonce,
		refreshCipher, refreshSalt, refreshNonce, scopesGranted, expiresAt, ts)
	if err != nil {
		return domain.OAuthToken{}, s.mapDBError(err, "oauth_token")
	}
	if err := tx.Commit(); err != nil {
		return domain.OAuthToken{}, s.mapDBError(err, "oauth_token")
	}
	return s.GetOAuthToken(ctx, configID, userID)
}

func (s *SQLStore) GetOAuthToken(ctx context.Context, configID, userID string) (domain.OAuthToken, error) {
	var r oauthTokenRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, config_id, user_id, access_token_ciphertext, access_token_salt, access_token_nonce,
		       refresh_token_ciphertext, refresh_token_salt, refresh_token_nonce,
		       scopes_granted, expires_at, updated_at
		FROM oauth_tokens WHERE config_id = ? AND user_id = ?`, configID, userID)
	if err != nil {
		return domain.OAuthToken{}, s.mapDBError(err, "oauth_token")
	}
	return r.toDomain(), nil
}

// GetOAuthTokenByID fetches a token row by its own id, used by C8's
// refresh coordinator which is keyed on token_id rather than
// (config_id, user_id).
func (s *SQLStore) GetOAuthTokenByID(ctx context.Context, tokenID string) (domain.OAuthToken, error) {
	return s.getOAuthTokenByID(ctx, tokenID)
}

func (s *SQLStore) getOAuthTokenByID(ctx context.Context, tokenID string) (domain.OAuthToken, error) {
	var r oauthTokenRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, config_id, user_id, access_token_ciphertext, access_token_salt, access_token_nonce,
		       refresh_token_ciphertext, refresh_token_salt, refresh_token_nonce,
		       scopes_granted, expires_at, updated_at
		FROM oauth_tokens WHERE id = ?`, tokenID)
	if err != nil {
		return domain.OAuthToken{}, s.mapDBError(err, "oauth_token")
	}
	return r.toDomain(), nil
}

func (s *SQLStore) GetDecryptedAccessToken(ctx context.Context, tokenID string) (string, error) {
	t, err := s.getOAuthTokenByID(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return crypto.DecryptField(s.master, t.AccessToken)
}

func (s *SQLStore) GetDecryptedRefreshToken(ctx context.Context, tokenID string) (string, bool, error) {
	t, err := s.getOAuthTokenByID(ctx, tokenID)
	if err != nil {
		return "", false, err
	}
	if !t.RefreshToken.IsSet() {
		return "", false, nil
	}
	v, err := crypto.DecryptField(s.master, t.RefreshToken)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// GetDecryptedOAuthBearer decrypts the access token and returns it as a
// ready-to-use ("Authorization", "Bearer <token>") header pair.
func (s *SQLStore) GetDecryptedOAuthBearer(ctx context.Context, tokenID string) (string, string, bool, error) {
	token, err := s.GetDecryptedAccessToken(ctx, tokenID)
	if err != nil {
		if domain.Is(err, domain.KindRowNotFound) {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	return "Authorization", "Bearer " + token, true, nil
}

// GetDecryptedAuthHeader decrypts a stored MCP auth header row from the
// mcp_auth_headers table (value held as its own ciphertext/salt/nonce
// columns) and returns it as a (name, value) pair. The header name itself
// is not encrypted.
func (s *SQLStore) GetDecryptedAuthHeader(ctx context.Context, headerID string) (string, string, bool, error) {
	var name string
	var cipher, salt, nonce []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT name, value_ciphertext, value_salt, value_nonce FROM mcp_auth_headers WHERE id = ?`, headerID).
		Scan(&name, &cipher, &salt, &nonce)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", "", false, nil
		}
		return "", "", false, s.mapDBError(err, "mcp_auth_header")
	}
	value, err := crypto.Decrypt(s.master, cipher, salt, nonce)
	if err != nil {
		return "", "", false, err
	}
	return name, string(value), true, nil
}

func (s *SQLStore) DeleteOAuthTokensByConfigAndUser(ctx context.Context, configID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE config_id = ? AND user_id = ?`, configID, userID)
	return s.mapDBError(err, "oauth_token")
}

// UpdateOAuthTokenAfterRefresh atomically re-encrypts and updates an
// existing OAuth token row in place (used by C8 after a successful
// refresh round trip — spec §4.8 step 7).
func (s *SQLStore) UpdateOAuthTokenAfterRefresh(ctx context.Context, tokenID, accessToken string, refreshToken *string, expiresAt int64) error {
	accessField, err := crypto.EncryptField(s.master, accessToken)
	if err != nil {
		return err
	}
	if refreshToken == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE oauth_tokens
			SET access_token_ciphertext = ?, access_token_salt = ?, access_token_nonce = ?,
			    expires_at = ?, updated_at = ?
			WHERE id = ?`,
			accessField.Ciphertext, accessField.Salt, accessField.Nonce, expiresAt, now(), tokenID)
		return s.mapDBError(err, "oauth_token")
	}
	refreshField, err := crypto.EncryptField(s.master, *refreshToken)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE oauth_tokens
		SET access_token_ciphertext = ?, access_token_salt = ?, access_token_nonce = ?,
		    refresh_token_ciphertext = ?, refresh_token_salt = ?, refresh_token_nonce = ?,
		    expires_at = ?, updated_at = ?
		WHERE id = ?`,
		accessField.Ciphertext, accessField.Salt, accessField.Nonce,
		refreshField.Ciphertext, refreshField.Salt, refreshField.Nonce,
		expiresAt, now(), tokenID)
	return s.mapDBError(err, "oauth_token")
}
