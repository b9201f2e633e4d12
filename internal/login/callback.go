package login

import (
	"net/http"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// Callback implements spec §4.7's "Callback" handler.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Lifecycle.Current() == domain.LifecycleSetup {
		writeDomainError(w, domain.New(domain.KindAppStatusInvalid, "application is in setup"))
		return
	}
	resourceAdminPending := h.Lifecycle.Current() == domain.LifecycleResourceAdmin

	session := h.Sessions(r)
	storedState, okState, err := session.Get(ctx, domain.SessionKeyOAuthState)
	if err != nil || !okState {
		writeDomainError(w, domain.New(domain.KindSessionInfoNotFound, "login info not found in session, are cookies enabled?"))
		return
	}
	pkceVerifier, okVerifier, err := session.Get(ctx, domain.SessionKeyPKCEVerifier)
	if err != nil || !okVerifier {
		writeDomainError(w, domain.New(domain.KindSessionInfoNotFound, "login info not found in session, are cookies enabled?"))
		return
	}
	callbackURL, okCallback, err := session.Get(ctx, domain.SessionKeyCallbackURL)
	if err != nil || !okCallback {
		writeDomainError(w, domain.New(domain.KindSessionInfoNotFound, "login info not found in session, are cookies enabled?"))
		return
	}

	if err := r.ParseForm(); err != nil {
		writeDomainError(w, domain.New(domain.KindBadRequest, "malformed callback request"))
		return
	}
	receivedState := r.FormValue("state")
	code := r.FormValue("code")
	if receivedState == "" {
		writeDomainError(w, domain.New(domain.KindBadRequest, "missing state parameter"))
		return
	}
	if code == "" {
		writeDomainError(w, domain.New(domain.KindBadRequest, "missing code parameter"))
		return
	}
	if receivedState != storedState {
		writeDomainError(w, domain.New(domain.KindStateDigestMismatch, "state parameter in callback does not match with the one sent in login request"))
		return
	}

	regInfo, err := h.Repo.GetAppRegInfo(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	pair, err := h.IDP.ExchangeAuthCode(ctx, regInfo.ClientID, regInfo.ClientSecret, callbackURL, code, pkceVerifier)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	_ = session.Remove(ctx, domain.SessionKeyOAuthState)
	_ = session.Remove(ctx, domain.SessionKeyPKCEVerifier)

	accessToken, refreshToken := pair.AccessToken, pair.RefreshToken

	claims, err := h.Verifier.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	email := claims.Email

	location := frontendURL(h.Settings) + "/ui/chat"
	if resourceAdminPending {
		if err := h.IDP.MakeResourceAdmin(ctx, regInfo.ClientID, regInfo.ClientSecret, email); err != nil {
			writeDomainError(w, err)
			return
		}
		if err := h.Lifecycle.ConfirmResourceAdmin(); err != nil {
			writeDomainError(w, domain.Wrap(domain.KindAppStatusInvalid, "confirm resource admin", err))
			return
		}
		refreshed, err := h.IDP.RefreshToken(ctx, regInfo.ClientID, regInfo.ClientSecret, refreshToken)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		accessToken = refreshed.AccessToken
		if refreshed.NewRefreshToken != "" {
			refreshToken = refreshed.NewRefreshToken
		}
		location = frontendURL(h.Settings) + "/ui/setup/download-models"
	}

	if err := session.Insert(ctx, domain.SessionKeyAccessToken, accessToken); err != nil {
		writeDomainError(w, domain.Wrap(domain.KindSessionInfoNotFound, "store access_token", err))
		return
	}
	if err := session.Insert(ctx, domain.SessionKeyRefreshToken, refreshToken); err != nil {
		writeDomainError(w, domain.Wrap(domain.KindSessionInfoNotFound, "store refresh_token", err))
		return
	}

	writeJSON(w, http.StatusOK, locationResponse{Location: location})
}
