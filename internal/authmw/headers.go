package authmw

import (
	"net/http"
	"strings"
)

// Canonical X-BodhiApp-* headers the middleware injects, per spec §4.6
// and §6.
const (
	HeaderToken       = "X-BodhiApp-Token"
	HeaderScope       = "X-BodhiApp-Scope"
	HeaderRole        = "X-BodhiApp-Role"
	HeaderUsername    = "X-BodhiApp-Username"
	HeaderUserID      = "X-BodhiApp-User-Id"
	HeaderAzp         = "X-BodhiApp-Azp"
	HeaderToolScopes  = "X-BodhiApp-Tool-Scopes"
	reservedPrefix    = "x-bodhiapp-" // compared case-insensitively
)

// scrubReservedHeaders removes every header whose name starts with the
// reserved X-BodhiApp- prefix (case-insensitive), per spec §4.6 step 1:
// "callers must not be able to pre-populate identity headers." This must
// run before any classification or validation.
func scrubReservedHeaders(h http.Header) {
	for name := range h {
		if strings.HasPrefix(strings.ToLower(name), reservedPrefix) {
			h.Del(name)
		}
	}
}
