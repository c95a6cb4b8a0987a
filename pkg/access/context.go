package access

import (
	"context"

	"github.com/troopbase/troopbase/pkg/contextkeys"
)

// ContextWithPrincipal attaches a principal to the context. Used by the
// session middleware; handlers should read it back with PrincipalFromContext.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextkeys.PrincipalKey, p)
}

// PrincipalFromContext returns the principal attached by the session
// middleware, or nil when the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	return p
}
