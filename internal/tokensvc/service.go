package tokensvc

import (
	"context"
	"strings"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/exchangecache"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/idp"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
)

// Config configures a Service.
type Config struct {
	Repo        credstore.Repository
	Cache       *exchangecache.Cache
	IDP         *idp.Client
	Log         logging.Logger
	Verifier    *jwtVerifier // nil only in tests that exercise opaque tokens exclusively
	ClientID    string
	ClientSecret string
}

// Service is C5, the token service: it validates bearer headers and
// session tokens, drives exchange/refresh through C4, and extracts
// roles/scopes for the auth middleware (C6) to enforce.
type Service struct {
	repo         credstore.Repository
	cache        *exchangecache.Cache
	idpClient    *idp.Client
	log          logging.Logger
	verifier     *jwtVerifier
	clientID     string
	clientSecret string
}

// New builds a Service from cfg.
func New(cfg Config) *Service {
	return &Service{
		repo:         cfg.Repo,
		cache:        cfg.Cache,
		idpClient:    cfg.IDP,
		log:          cfg.Log,
		verifier:     cfg.Verifier,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// Principal is the normalized result of bearer/session validation,
// carrying whatever an auth middleware needs to authorize a request
// (spec §4.5.3).
type Principal struct {
	Subject       string
	Username      string
	Azp           string
	TokenID       string
	Role          domain.Role
	TokenScope    domain.Scope // zero value if this principal came from a session rather than an opaque token
	UserScope     domain.Scope
	HasTokenScope bool
	HasUserScope  bool
	ToolsetScopes string
	AccessToken   string // the exchanged/validated bearer to forward upstream, if any
}

// VerifyAccessToken validates a raw JWT access token and returns its
// claims, with no opaque-token handling and no exchange-cache lookup.
// Used by C7 (login orchestration) to extract the post-exchange email and
// to fast-path an already-authenticated Initiate call.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (domain.Claims, error) {
	if s.verifier == nil {
		return domain.Claims{}, domain.New(domain.KindInvalidToken, "jwt verifier not configured")
	}
	return s.verifier.Verify(ctx, token)
}

// ClientID returns the app client id this Service authenticates against,
// used by callers that need to look up resource_access entries outside
// ValidateBearer/ValidateSession.
func (s *Service) ClientID() string { return s.clientID }

// ValidateBearer implements spec §4.5.1: classify, validate, exchange (on
// JWT cache miss), and return a Principal. header is the raw
// "Authorization" header value including the "Bearer " prefix.
func (s *Service) ValidateBearer(ctx context.Context, header string) (Principal, error) {
	token, err := stripBearerPrefix(header)
	if err != nil {
		return Principal{}, err
	}

	if isOpaqueToken(token) {
		return s.validateOpaqueBearer(ctx, token)
	}
	return s.validateJWTBearer(ctx, token)
}

func stripBearerPrefix(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", domain.New(domain.KindAuthHeaderNotFound, "missing Bearer prefix")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", domain.New(domain.KindAuthHeaderNotFound, "empty bearer token")
	}
	return token, nil
}

// validateOpaqueBearer implements the opaque-token half of §4.5.1: the
// token's own Scopes field IS the principal's token scope directly, with
// no exchange or cache involved.
func (s *Service) validateOpaqueBearer(ctx context.Context, token string) (Principal, error) {
	row, err := s.validateOpaqueToken(ctx, token)
	if err != nil {
		return Principal{}, err
	}

	p := Principal{Subject: row.UserID, TokenID: row.ID, AccessToken: token}
	if sc, ok := domain.ParseTokenScope(row.Scopes); ok {
		p.TokenScope = sc
		p.HasTokenScope = true
	}
	p.ToolsetScopes = domain.ToolsetScopes(row.Scopes)
	return p, nil
}

// validateJWTBearer implements the signed-JWT half of §4.5.1: decode with
// issuer validation (audience deliberately skipped, step 4), check the
// exchange cache keyed by token_id bound to a hash of the raw token, and
// on miss perform an RFC 8693 exchange via C4 and populate the cache.
func (s *Service) validateJWTBearer(ctx context.Context, token string) (Principal, error) {
	if s.verifier == nil {
		return Principal{}, domain.New(domain.KindInvalidToken, "jwt verifier not configured")
	}
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if claims.TokenID == "" {
		return Principal{}, domain.New(domain.KindInvalidToken, "token missing jti")
	}

	tokenHash := crypto.SHA256Hex([]byte(token))
	cacheKey := exchangecache.ExchangeAccessTokenKey(claims.TokenID)

	exchanged, hit := s.cache.GetBoundToHash(cacheKey, tokenHash)
	if !hit {
		result, err := s.idpClient.ExchangeAppToken(ctx, s.clientID, s.clientSecret, token, nil)
		if err != nil {
			return Principal{}, err
		}
		exchanged = result.AccessToken
		s.cache.SetBoundToHash(cacheKey, exchanged, tokenHash)
		if result.RefreshToken != "" {
			s.cache.Set(exchangecache.ExchangeRefreshTokenKey(claims.TokenID), result.RefreshToken)
		}
	}

	p := Principal{
		Subject:       claims.Subject,
		Azp:           claims.AuthorizedParty,
		TokenID:       claims.TokenID,
		AccessToken:   exchanged,
		ToolsetScopes: domain.ToolsetScopes(claims.Scope),
	}
	if sc, ok := domain.MaxUserScope(claims.Scope); ok {
		p.UserScope = sc
		p.HasUserScope = true
	}
	p.Role = domain.MaxRole(claims.RolesFor(s.clientID))
	return p, nil
}

// ValidateSession implements spec §4.5.2: given the access/refresh tokens
// currently stored in the session, return a usable access token, the
// refresh token to keep, and the access token's claims (callers derive
// roles from them), refreshing via C4 if the access token has expired. This path is
// NOT serialized by any single-flight lock — concurrent requests for the
// same session may each trigger a refresh; §9's design note accepts the
// resulting duplicate-refresh race as acceptable since identity providers
// tolerate refresh-token reuse within a short window.
func (s *Service) ValidateSession(ctx context.Context, accessToken, refreshToken string) (accessOut, refreshOut string, claimsOut domain.Claims, err error) {
	if s.verifier == nil {
		return "", "", domain.Claims{}, domain.New(domain.KindInvalidToken, "jwt verifier not configured")
	}
	claims, verifyErr := s.verifier.Verify(ctx, accessToken)
	if verifyErr == nil {
		return accessToken, refreshToken, claims, nil
	}

	if refreshToken == "" {
		return "", "", domain.Claims{}, domain.New(domain.KindRefreshTokenNotFound, "session has no refresh token")
	}

	result, refreshErr := s.idpClient.RefreshToken(ctx, s.clientID, s.clientSecret, refreshToken)
	if refreshErr != nil {
		return "", "", domain.Claims{}, refreshErr
	}

	newRefresh := result.NewRefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	newClaims, err := s.verifier.Verify(ctx, result.AccessToken)
	if err != nil {
		return "", "", domain.Claims{}, err
	}
	return result.AccessToken, newRefresh, newClaims, nil
}
