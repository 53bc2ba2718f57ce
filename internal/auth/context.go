package auth

import "context"

type ctxKey string

const principalKey ctxKey = "portal.principal"

// Principal identifies the authenticated patient of a request.
type Principal struct {
	UserID   string
	Email    string
	Name     string
	Language string
	Token    string
}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}
