package credstore

import (
	"context"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

type apiTokenRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Name        string `db:"name"`
	TokenPrefix string `db:"token_prefix"`
	TokenHash   string `db:"token_hash"`
	Scopes      string `db:"scopes"`
	Status      string `db:"status"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r apiTokenRow) toDomain() domain.ApiToken {
	return domain.ApiToken{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		TokenPrefix: r.TokenPrefix,
		TokenHash:   r.TokenHash,
		Scopes:      r.Scopes,
		Status:      domain.TokenStatus(r.Status),
		CreatedAt:   unixToTime(r.CreatedAt),
		UpdatedAt:   unixToTime(r.UpdatedAt),
	}
}

func (s *SQLStore) CreateApiToken(ctx context.Context, row domain.ApiToken) (domain.ApiToken, error) {
	if row.ID == "" {
		row.ID = s.newID()
	}
	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, user_id, name, token_prefix, token_hash, scopes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.Name, row.TokenPrefix, row.TokenHash, row.Scopes, string(row.Status), ts, ts)
	if err != nil {
		return domain.ApiToken{}, s.mapDBError(err, "api_token")
	}
	row.CreatedAt, row.UpdatedAt = unixToTime(ts), unixToTime(ts)
	return row, nil
}

func (s *SQLStore) UpdateApiToken(ctx context.Context, userID string, row domain.ApiToken) (domain.ApiToken, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_tokens SET name = ?, scopes = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		row.Name, row.Scopes, string(row.Status), ts, row.ID, userID)
	if err != nil {
		return domain.ApiToken{}, s.mapDBError(err, "api_token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ApiToken{}, s.mapDBError(err, "api_token")
	}
	if n == 0 {
		// mismatched user_id on update, or unknown id: both surface as
		// RowNotFound per spec §4.2.
		return domain.ApiToken{}, rowNotFound("api_token")
	}
	return s.GetApiTokenByID(ctx, userID, row.ID)
}

func (s *SQLStore) ListApiTokens(ctx context.Context, userID string, page Page) ([]domain.ApiToken, int, error) {
	if page.PerPage <= 0 {
		page.PerPage = 20
	}
	if page.Page <= 0 {
		page.Page = 1
	}
	offset := (page.Page - 1) * page.PerPage

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM api_tokens WHERE user_id = ?`, userID); err != nil {
		return nil, 0, s.mapDBError(err, "api_token")
	}

	var rows []apiTokenRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, token_prefix, token_hash, scopes, status, created_at, updated_at
		FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID, page.PerPage, offset)
	if err != nil {
		return nil, 0, s.mapDBError(err, "api_token")
	}

	out := make([]domain.ApiToken, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, total, nil
}

func (s *SQLStore) GetApiTokenByID(ctx context.Context, userID, id string) (domain.ApiToken, error) {
	var r apiTokenRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, user_id, name, token_prefix, token_hash, scopes, status, created_at, updated_at
		FROM api_tokens WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return domain.ApiToken{}, s.mapDBError(err, "api_token")
	}
	return r.toDomain(), nil
}

// GetApiTokenByPrefix looks up by token_prefix only, unscoped by user_id —
// this is the lookup the auth hot path (§4.5.1) uses, since the caller
// does not yet know which user the token belongs to.
func (s *SQLStore) GetApiTokenByPrefix(ctx context.Context, prefix string) (domain.ApiToken, error) {
	var r apiTokenRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, user_id, name, token_prefix, token_hash, scopes, status, created_at, updated_at
		FROM api_tokens WHERE token_prefix = ?`, prefix)
	if err != nil {
		return domain.ApiToken{}, s.mapDBError(err, "api_token")
	}
	return r.toDomain(), nil
}
