package permissions

import "context"

type setContextKey struct{}

// ContextWithSet attaches the evaluated permission set to the context.
func ContextWithSet(ctx context.Context, set Set) context.Context {
	return context.WithValue(ctx, setContextKey{}, &set)
}

// SetFromContext extracts the permission set evaluated for this request.
func SetFromContext(ctx context.Context) (Set, bool) {
	if ctx == nil {
		return Set{}, false
	}
	v, ok := ctx.Value(setContextKey{}).(*Set)
	if !ok || v == nil {
		return Set{}, false
	}
	return *v, true
}
