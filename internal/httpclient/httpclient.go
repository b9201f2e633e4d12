// Package httpclient builds the shared *http.Client used for every
// outbound call to the identity provider, grounded on the call-site shape
// of stacklok-toolhive's pkg/networking.NewHttpClientBuilder (referenced
// throughout pkg/auth/token/validator.go and pkg/auth/oauth/config.go).
// The networking package's own source is not present in the retrieval
// pack (it is outside the auth-adjacent slice that was curated), so the
// builder here is reconstructed from its call sites rather than imported.
package httpclient

import (
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// appVersionHeader is the non-standard header every OAuth request carries
// (spec §4.4, §6): "x-bodhi-app-version".
const appVersionHeader = "x-bodhi-app-version"

type versionRoundTripper struct {
	next    http.RoundTripper
	version string
}

func (v *versionRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(appVersionHeader, v.version)
	return v.next.RoundTrip(req)
}

// New builds an *http.Client with a bounded timeout that stamps every
// request with the x-bodhi-app-version header, for use by C4's identity
// provider client.
func New(appVersion string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &versionRoundTripper{
			next:    http.DefaultTransport,
			version: appVersion,
		},
	}
}
