package authmw

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/tokensvc"
)

// SessionFunc resolves the domain.Session collaborator for an inbound
// request (e.g. from its session cookie). The core never touches cookies
// directly — it only ever calls the four Session methods, per spec §9.
type SessionFunc func(r *http.Request) domain.Session

// Middleware is C6: it wraps an http.Handler with the strict or optional
// authentication entry point.
type Middleware struct {
	Token     *tokensvc.Service
	Lifecycle domain.LifecycleStore
	Sessions  SessionFunc
	Log       logging.Logger
}

// Strict returns the auth_required middleware: it produces 401/403 on
// any classification or validation failure (spec §4.6).
func (m *Middleware) Strict(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scrubReservedHeaders(r.Header)

		if m.Lifecycle.Current() == domain.LifecycleSetup {
			writeError(w, domain.New(domain.KindAppStatusInvalid, "application is in setup"))
			return
		}

		p, err := m.authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		injectHeaders(r, p)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Optional returns the inject_auth_info middleware: it never fails on
// missing auth, and on a session-path auth-class error it clears the
// session's auth keys so the next request can re-login cleanly (spec
// §4.6).
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scrubReservedHeaders(r.Header)

		p, err := m.authenticate(r)
		if err != nil {
			if r.Header.Get("Authorization") == "" && domain.ClearsSession(err) {
				m.clearSessionAuthKeys(r)
			}
			next.ServeHTTP(w, r)
			return
		}
		injectHeaders(r, p)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// authenticate runs the shared classification: bearer header first, then
// same-origin session, per spec §4.6 steps 3-5.
func (m *Middleware) authenticate(r *http.Request) (tokensvc.Principal, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return m.Token.ValidateBearer(r.Context(), header)
	}

	if !evaluateSameOrigin(r) {
		return tokensvc.Principal{}, domain.New(domain.KindInvalidAccess, "cross-origin request without bearer auth")
	}

	session := m.Sessions(r)
	accessToken, ok, err := session.Get(r.Context(), domain.SessionKeyAccessToken)
	if err != nil {
		return tokensvc.Principal{}, domain.Wrap(domain.KindSessionInfoNotFound, "read session", err)
	}
	if !ok {
		return tokensvc.Principal{}, domain.New(domain.KindTokenNotFound, "no session access token")
	}
	refreshToken, _, _ := session.Get(r.Context(), domain.SessionKeyRefreshToken)

	newAccess, newRefresh, claims, err := m.Token.ValidateSession(r.Context(), accessToken, refreshToken)
	if err != nil {
		return tokensvc.Principal{}, err
	}
	if newAccess != accessToken {
		if err := session.Insert(r.Context(), domain.SessionKeyAccessToken, newAccess); err != nil {
			m.Log.Warn(r.Context(), "session update: store refreshed access token failed", "error", err)
		}
	}
	if newRefresh != refreshToken && newRefresh != "" {
		if err := session.Insert(r.Context(), domain.SessionKeyRefreshToken, newRefresh); err != nil {
			m.Log.Warn(r.Context(), "session update: store refreshed refresh token failed", "error", err)
		}
	}

	return tokensvc.Principal{
		Subject:     claims.Subject,
		Username:    claims.PreferredUsername,
		Role:        domain.MaxRole(claims.RolesFor(m.Token.ClientID())),
		AccessToken: newAccess,
	}, nil
}

func (m *Middleware) clearSessionAuthKeys(r *http.Request) {
	session := m.Sessions(r)
	_ = session.Remove(r.Context(), domain.SessionKeyAccessToken)
	_ = session.Remove(r.Context(), domain.SessionKeyRefreshToken)
}

// injectHeaders sets the canonical X-BodhiApp-* headers on the inbound
// request, per spec §4.6 steps 3-4 and §6's header table.
func injectHeaders(r *http.Request, p tokensvc.Principal) {
	if p.AccessToken != "" {
		r.Header.Set(HeaderToken, p.AccessToken)
	}
	if p.HasTokenScope {
		r.Header.Set(HeaderScope, p.TokenScope.String())
	}
	if p.HasUserScope {
		r.Header.Set(HeaderScope, p.UserScope.String())
	}
	if p.Role != domain.RoleUnknown {
		r.Header.Set(HeaderRole, p.Role.String())
	}
	if p.Subject != "" {
		r.Header.Set(HeaderUserID, p.Subject)
	}
	if p.Username != "" {
		r.Header.Set(HeaderUsername, p.Username)
	}
	if p.Azp != "" {
		r.Header.Set(HeaderAzp, p.Azp)
	}
	if p.ToolsetScopes != "" {
		r.Header.Set(HeaderToolScopes, p.ToolsetScopes)
	}
}

// errorResponse is the JSON body written on a strict-middleware failure.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps err to the status table in spec §4.6 and writes a JSON
// body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	message := "authentication_error"

	var de *domain.Error
	if errors.As(err, &de) {
		status = de.Kind.HTTPStatus()
		message = string(de.Kind)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
