package authmw

import (
	"net/http"
	"strings"
)

// isLoopbackHost reports whether host (a Host header value, possibly
// "host:port") names localhost, per spec §4.6's "Host is localhost:*"
// clause.
func isLoopbackHost(host string) bool {
	h := host
	if idx := strings.LastIndex(h, ":"); idx >= 0 {
		h = h[:idx]
	}
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}

// evaluateSameOrigin implements spec §4.6's same-origin policy: true iff
// the Host is not a loopback address (non-local deployments trust their
// edge proxy), or the Host is loopback AND Sec-Fetch-Site is
// "same-origin". This is a defense against a cross-site form post
// replaying a session cookie on a developer's machine; it is not a CSRF
// token substitute for state-changing endpoints.
func evaluateSameOrigin(r *http.Request) bool {
	if !isLoopbackHost(r.Host) {
		return true
	}
	return r.Header.Get("Sec-Fetch-Site") == "same-origin"
}
