// Package authmw implements C6: the auth middleware. It terminates the
// three authentication modes classified by C5, scrubs spoofed internal
// headers, and injects the canonical X-BodhiApp-* identity headers.
//
// Grounded on stacklok-toolhive/pkg/auth/context.go's typed
// context-key pattern (WithIdentity/IdentityFromContext) and
// pkg/auth/idptokenswap/middleware.go's func(http.Handler) http.Handler
// shape, generalized to the spec's header-injection contract rather than
// an in-context Identity struct.
package authmw

import (
	"context"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/tokensvc"
)

type principalContextKey struct{}

// WithPrincipal stores p in ctx, mirroring the teacher's WithIdentity.
func WithPrincipal(ctx context.Context, p tokensvc.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext retrieves the Principal injected by this
// middleware, if any.
func PrincipalFromContext(ctx context.Context) (tokensvc.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(tokensvc.Principal)
	return p, ok
}
