package shared

import "context"

// Principal is the authenticated identity carried by a verified access token.
type Principal struct {
	UserID int64
	Email  string
	// Roles is the role-code snapshot embedded at token issuance time.
	Roles []string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
