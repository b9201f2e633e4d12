package credstore

import (
	"context"
	"database/sql"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

type oauthConfigRow struct {
	ID                      string         `db:"id"`
	McpServerID             string         `db:"mcp_server_id"`
	ClientID                string         `db:"client_id"`
	SecretCipher            []byte         `db:"client_secret_ciphertext"`
	SecretSalt              []byte         `db:"client_secret_salt"`
	SecretNonce             []byte         `db:"client_secret_nonce"`
	AuthorizationEndpoint   string         `db:"authorization_endpoint"`
	TokenEndpoint           string         `db:"token_endpoint"`
	RegistrationEndpoint    sql.NullString `db:"registration_endpoint"`
	RATCipher               []byte         `db:"registration_access_token_ciphertext"`
	RATSalt                 []byte         `db:"registration_access_token_salt"`
	RATNonce                []byte         `db:"registration_access_token_nonce"`
	Scopes                  string         `db:"scopes"`
	TokenEndpointAuthMethod string         `db:"token_endpoint_auth_method"`
	RegistrationType        string         `db:"registration_type"`
	ClientIDIssuedAt        int64          `db:"client_id_issued_at"`
}

func (r oauthConfigRow) toDomain() domain.OAuthConfig {
	c := domain.OAuthConfig{
		ID:                      r.ID,
		McpServerID:             r.McpServerID,
		ClientID:                r.ClientID,
		AuthorizationEndpoint:   r.AuthorizationEndpoint,
		TokenEndpoint:           r.TokenEndpoint,
		Scopes:                  r.Scopes,
		TokenEndpointAuthMethod: r.TokenEndpointAuthMethod,
		RegistrationType:        domain.RegistrationType(r.RegistrationType),
		ClientIDIssuedAt:        unixToTime(r.ClientIDIssuedAt),
	}
	if r.RegistrationEndpoint.Valid {
		c.RegistrationEndpoint = r.RegistrationEndpoint.String
	}
	if len(r.SecretCipher) > 0 {
		c.ClientSecret = domain.EncryptedField{Ciphertext: r.SecretCipher, Salt: r.SecretSalt, Nonce: r.SecretNonce}
	}
	if len(r.RATCipher) > 0 {
		c.RegistrationAccessToken = domain.EncryptedField{Ciphertext: r.RATCipher, Salt: r.RATSalt, Nonce: r.RATNonce}
	}
	return c
}

func (s *SQLStore) CreateOAuthConfig(ctx context.Context, row domain.OAuthConfig, clientSecret *string) (domain.OAuthConfig, error) {
	if row.ID == "" {
		row.ID = s.newID()
	}
	var cipher, salt, nonce []byte
	if clientSecret != nil {
		field, err := crypto.EncryptField(s.master, *clientSecret)
		if err != nil {
			return domain.OAuthConfig{}, err
		}
		cipher, salt, nonce = field.Ciphertext, field.Salt, field.Nonce
	}
	var ratCipher, ratSalt, ratNonce []byte
	if row.RegistrationAccessToken.IsSet() {
		ratCipher, ratSalt, ratNonce = row.RegistrationAccessToken.Ciphertext, row.RegistrationAccessToken.Salt, row.RegistrationAccessToken.Nonce
	}
	var regEndpoint any
	if row.RegistrationEndpoint != "" {
		regEndpoint = row.RegistrationEndpoint
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_configs (
			id, mcp_server_id, client_id, client_secret_ciphertext, client_secret_salt, client_secret_nonce,
			authorization_endpoint, token_endpoint, registration_endpoint,
			registration_access_token_ciphertext, registration_access_token_salt, registration_access_token_nonce,
			scopes, token_endpoint_auth_method, registration_type, client_id_issued_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.McpServerID, row.ClientID, cipher, salt, nonce,
		row.AuthorizationEndpoint, row.TokenEndpoint, regEndpoint,
		ratCipher, ratSalt, ratNonce,
		row.Scopes, row.TokenEndpointAuthMethod, string(row.RegistrationType), now())
	if err != nil {
		return domain.OAuthConfig{}, s.mapDBError(err, "oauth_config")
	}
	return s.GetOAuthConfig(ctx, row.ID)
}

func (s *SQLStore) GetOAuthConfig(ctx context.Context, id string) (domain.OAuthConfig, error) {
	var r oauthConfigRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, mcp_server_id, client_id, client_secret_ciphertext, client_secret_salt, client_secret_nonce,
		       authorization_endpoint, token_endpoint, registration_endpoint,
		       registration_access_token_ciphertext, registration_access_token_salt, registration_access_token_nonce,
		       scopes, token_endpoint_auth_method, registration_type, client_id_issued_at
		FROM oauth_configs WHERE id = ?`, id)
	if err != nil {
		return domain.OAuthConfig{}, s.mapDBError(err, "oauth_config")
	}
	return r.toDomain(), nil
}

func (s *SQLStore) GetOAuthConfigByMcpServer(ctx context.Context, mcpServerID string) (domain.OAuthConfig, error) {
	var r oauthConfigRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, mcp_server_id, client_id, client_secret_ciphertext, client_secret_salt, client_secret_nonce,
		       authorization_endpoint, token_endpoint, registration_endpoint,
		       registration_access_token_ciphertext, registration_access_token_salt, registration_access_token_nonce,
		       scopes, token_endpoint_auth_method, registration_type, client_id_issued_at
		FROM oauth_configs WHERE mcp_server_id = ?`, mcpServerID)
	if err != nil {
		return domain.OAuthConfig{}, s.mapDBError(err, "oauth_config")
	}
	return r.toDomain(), nil
}

func (s *SQLStore) GetDecryptedClientSecret(ctx context.Context, configID string) (string, bool, error) {
	cfg, err := s.GetOAuthConfig(ctx, configID)
	if err != nil {
		return "", false, err
	}
	if !cfg.ClientSecret.IsSet() {
		return "", false, nil
	}
	secret, err := crypto.DecryptField(s.master, cfg.ClientSecret)
	if err != nil {
		return "", false, err
	}
	return secret, true, nil
}
