package credstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

type aliasRow struct {
	ID         string         `db:"id"`
	Alias      string         `db:"alias"`
	ApiFormat  string         `db:"api_format"`
	BaseURL    string         `db:"base_url"`
	Models     string         `db:"models"`
	Prefix     sql.NullString `db:"prefix"`
	KeyCipher  []byte         `db:"api_key_ciphertext"`
	KeySalt    []byte         `db:"api_key_salt"`
	KeyNonce   []byte         `db:"api_key_nonce"`
}

func (r aliasRow) toDomain() domain.ApiModelAlias {
	a := domain.ApiModelAlias{
		ID:        r.ID,
		Alias:     r.Alias,
		ApiFormat: r.ApiFormat,
		BaseURL:   r.BaseURL,
		Models:    splitModels(r.Models),
	}
	if r.Prefix.Valid {
		a.Prefix = r.Prefix.String
	}
	if len(r.KeyCipher) > 0 {
		a.ApiKey = domain.EncryptedField{Ciphertext: r.KeyCipher, Salt: r.KeySalt, Nonce: r.KeyNonce}
	}
	return a
}

func splitModels(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinModels(m []string) string { return strings.Join(m, ",") }

func (s *SQLStore) CreateApiModelAlias(ctx context.Context, alias domain.ApiModelAlias, apiKey *string) (domain.ApiModelAlias, error) {
	if alias.ID == "" {
		alias.ID = s.newID()
	}
	var cipher, salt, nonce []byte
	if apiKey != nil {
		field, err := crypto.EncryptField(s.master, *apiKey)
		if err != nil {
			return domain.ApiModelAlias{}, err
		}
		cipher, salt, nonce = field.Ciphertext, field.Salt, field.Nonce
	}
	var prefix any
	if alias.Prefix != "" {
		prefix = alias.Prefix
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_model_aliases (id, alias, api_format, base_url, models, prefix, api_key_ciphertext, api_key_salt, api_key_nonce)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alias.ID, alias.Alias, alias.ApiFormat, alias.BaseURL, joinModels(alias.Models), prefix, cipher, salt, nonce)
	if err != nil {
		return domain.ApiModelAlias{}, s.mapDBError(err, "api_model_alias")
	}
	return s.GetApiModelAlias(ctx, alias.ID)
}

// UpdateApiModelAlias applies update to the alias's encrypted api_key
// column per the three-way ApiKeyUpdate sum type (spec §4.2): Keep leaves
// the encrypted columns untouched, Set(nil) clears them, Set(&v)
// re-encrypts with a fresh salt and nonce.
func (s *SQLStore) UpdateApiModelAlias(ctx context.Context, id string, alias domain.ApiModelAlias, update domain.ApiKeyUpdate) (domain.ApiModelAlias, error) {
	var prefix any
	if alias.Prefix != "" {
		prefix = alias.Prefix
	}

	if update.Keep {
		_, err := s.db.ExecContext(ctx, `
			UPDATE api_model_aliases SET alias = ?, api_format = ?, base_url = ?, models = ?, prefix = ?
			WHERE id = ?`,
			alias.Alias, alias.ApiFormat, alias.BaseURL, joinModels(alias.Models), prefix, id)
		if err != nil {
			return domain.ApiModelAlias{}, s.mapDBError(err, "api_model_alias")
		}
		return s.GetApiModelAlias(ctx, id)
	}

	var cipher, salt, nonce []byte
	if update.Value != nil {
		field, err := crypto.EncryptField(s.master, *update.Value)
		if err != nil {
			return domain.ApiModelAlias{}, err
		}
		cipher, salt, nonce = field.Ciphertext, field.Salt, field.Nonce
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE api_model_aliases
		SET alias = ?, api_format = ?, base_url = ?, models = ?, prefix = ?,
		    api_key_ciphertext = ?, api_key_salt = ?, api_key_nonce = ?
		WHERE id = ?`,
		alias.Alias, alias.ApiFormat, alias.BaseURL, joinModels(alias.Models), prefix, cipher, salt, nonce, id)
	if err != nil {
		return domain.ApiModelAlias{}, s.mapDBError(err, "api_model_alias")
	}
	return s.GetApiModelAlias(ctx, id)
}

func (s *SQLStore) GetApiModelAlias(ctx context.Context, id string) (domain.ApiModelAlias, error) {
	var r aliasRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, alias, api_format, base_url, models, prefix, api_key_ciphertext, api_key_salt, api_key_nonce
		FROM api_model_aliases WHERE id = ?`, id)
	if err != nil {
		return domain.ApiModelAlias{}, s.mapDBError(err, "api_model_alias")
	}
	return r.toDomain(), nil
}

func (s *SQLStore) ListApiModelAliases(ctx context.Context) ([]domain.ApiModelAlias, error) {
	var rows []aliasRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, alias, api_format, base_url, models, prefix, api_key_ciphertext, api_key_salt, api_key_nonce
		FROM api_model_aliases ORDER BY alias`)
	if err != nil {
		return nil, s.mapDBError(err, "api_model_alias")
	}
	out := make([]domain.ApiModelAlias, 0, len(rows))
	for _, r := range rows {
		// toDomain has no failure path: every stored row is returned,
		// and nothing is validated, logged or skipped here.
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *SQLStore) DeleteApiModelAlias(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM api_model_aliases WHERE id = ?`, id)
	return s.mapDBError(err, "api_model_alias")
}

// GetApiKeyForAlias decrypts and returns the alias's stored API key. ok is
// false if the alias has no stored key (caller falls back to a
// caller-supplied key — see C9's resolve_api_key).
func (s *SQLStore) GetApiKeyForAlias(ctx context.Context, id string) (string, bool, error) {
	alias, err := s.GetApiModelAlias(ctx, id)
	if err != nil {
		return "", false, err
	}
	if !alias.ApiKey.IsSet() {
		return "", false, nil
	}
	key, err := crypto.DecryptField(s.master, alias.ApiKey)
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}
