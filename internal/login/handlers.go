package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/idp"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/settings"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/tokensvc"
)

// loginScopes is the fixed OIDC scope set requested at initiate time,
// alphabetically sorted in the URL for deterministic tests (spec §4.7
// step 4).
var loginScopes = func() []string {
	s := []string{"openid", "email", "profile", "roles"}
	sort.Strings(s)
	return s
}()

// Handlers is C7: the login/callback/logout HTTP handlers. It never
// touches cookies directly — Sessions resolves the domain.Session
// collaborator for the inbound request.
type Handlers struct {
	Repo      credstore.Repository
	IDP       *idp.Client
	Verifier  Verifier
	Lifecycle domain.LifecycleStore
	Sessions  func(*http.Request) domain.Session
	Settings  settings.Settings
	Log       logging.Logger
}

// Verifier is the narrow slice of tokensvc.Service that C7 needs: turning
// a raw access token into claims, to extract the post-exchange email and
// (when already authenticated) check for a fast-path initiate.
type Verifier interface {
	VerifyAccessToken(ctx context.Context, token string) (domain.Claims, error)
}

var _ Verifier = (*tokensvc.Service)(nil)

type locationResponse struct {
	Location string `json:"location"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	if de, ok := err.(*domain.Error); ok {
		status = de.Kind.HTTPStatus()
		message = string(de.Kind)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// Initiate implements spec §4.7's "Initiate" handler.
func (h *Handlers) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := h.Sessions(r)

	if loc, ok := h.fastPathHome(ctx, session); ok {
		writeJSON(w, http.StatusOK, locationResponse{Location: loc})
		return
	}

	regInfo, err := h.Repo.GetAppRegInfo(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	state, err := generateState()
	if err != nil {
		writeDomainError(w, domain.Wrap(domain.KindAuthServiceAPIError, "generate state", err))
		return
	}
	verifier, challenge, err := generatePKCE()
	if err != nil {
		writeDomainError(w, domain.Wrap(domain.KindAuthServiceAPIError, "generate pkce", err))
		return
	}
	callbackURL := resolveCallbackURL(h.Settings, r)

	if err := session.Insert(ctx, domain.SessionKeyOAuthState, state); err != nil {
		writeDomainError(w, domain.Wrap(domain.KindSessionInfoNotFound, "store oauth_state", err))
		return
	}
	if err := session.Insert(ctx, domain.SessionKeyPKCEVerifier, verifier); err != nil {
		writeDomainError(w, domain.Wrap(domain.KindSessionInfoNotFound, "store pkce_verifier", err))
		return
	}
	if err := session.Insert(ctx, domain.SessionKeyCallbackURL, callbackURL); err != nil {
		writeDomainError(w, domain.Wrap(domain.KindSessionInfoNotFound, "store callback_url", err))
		return
	}

	authURL := buildAuthorizationURL(h.Settings, regInfo.ClientID, callbackURL, state, challenge)
	writeJSON(w, http.StatusCreated, locationResponse{Location: authURL})
}

// fastPathHome implements spec §4.7 step 1: if the session already
// carries a non-expired access token, skip the OAuth dance entirely.
func (h *Handlers) fastPathHome(ctx context.Context, session domain.Session) (string, bool) {
	accessToken, ok, err := session.Get(ctx, domain.SessionKeyAccessToken)
	if err != nil || !ok || accessToken == "" {
		return "", false
	}
	if _, err := h.Verifier.VerifyAccessToken(ctx, accessToken); err != nil {
		return "", false
	}
	return frontendURL(h.Settings) + "/ui/chat", true
}

// buildAuthorizationURL implements spec §4.7 step 4. The query string is
// built field-by-field (not via url.Values, whose Encode sorts keys
// alphabetically) so the parameter order matches the documented shape in
// spec §6; only the scope list's internal ordering is alphabetical.
func buildAuthorizationURL(s settings.Settings, clientID, callbackURL, state, challenge string) string {
	authEndpoint := s.AuthURL + "/realms/" + s.AuthRealm + "/protocol/openid-connect/auth"
	q := []string{
		"response_type=code",
		"client_id=" + url.QueryEscape(clientID),
		"redirect_uri=" + url.QueryEscape(callbackURL),
		"state=" + url.QueryEscape(state),
		"code_challenge=" + url.QueryEscape(challenge),
		"code_challenge_method=S256",
		"scope=" + url.QueryEscape(strings.Join(loginScopes, " ")),
	}
	return authEndpoint + "?" + strings.Join(q, "&")
}
