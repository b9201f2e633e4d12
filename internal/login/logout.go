package login

import "net/http"

// Logout implements spec §4.7's "Logout" handler. It deliberately returns
// 200, not 302 — XHR clients must not auto-follow a redirect; they route
// via the response body instead.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.Sessions(r)
	if err := session.Delete(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{Location: frontendURL(h.Settings) + "/ui/login"})
}
