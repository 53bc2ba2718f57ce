package careapi

import "context"

type ctxKey string

const tokenKey ctxKey = "careapi.token"

// WithToken stores the patient's bearer token for outgoing care API calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext extracts the bearer token if present.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}
