package login

import (
	"fmt"
	"net/http"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/settings"
)

// callbackPath is fixed, per spec §4.7 step 3.
const callbackPath = "/ui/auth/callback"

// resolveCallbackURL computes the fully-qualified OAuth callback URL. If
// the configured public host is the loopback sentinel, the request's Host
// header is used instead so the browser is returned to a reachable
// address (spec §4.7 step 3).
func resolveCallbackURL(s settings.Settings, r *http.Request) string {
	if s.IsLoopbackSentinel() {
		return fmt.Sprintf("%s://%s%s", s.Scheme, r.Host, callbackPath)
	}
	return fmt.Sprintf("%s://%s:%s%s", s.PublicScheme, s.PublicHost, s.PublicPort, callbackPath)
}

// frontendURL is the base URL the UI is served from, used to build the
// location bodies this package's handlers return.
func frontendURL(s settings.Settings) string {
	return fmt.Sprintf("%s://%s:%s", s.PublicScheme, s.PublicHost, s.PublicPort)
}
