package identity

import "context"

type userContextKey struct{}
type tokenContextKey struct{}

// ContextWithUser attaches the resolved identity to the context.
func ContextWithUser(ctx context.Context, user *UserRecord) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the resolved identity from the context.
func UserFromContext(ctx context.Context) (*UserRecord, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(userContextKey{}).(*UserRecord)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithToken stores the raw auth token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the auth token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
