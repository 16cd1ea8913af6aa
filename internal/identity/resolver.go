package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"agora.events/internal/obs"
	"agora.events/internal/tasks"
)

// Resolver turns an opaque token into a user identity: cache first, core
// service on a miss, then a fire-and-forget cache refresh.
type Resolver struct {
	provider Provider
	cache    Cache
	runner   tasks.Runner

	cachingEnabled bool
	now            func() time.Time
}

// ResolverOption configures Resolver behavior.
type ResolverOption func(*Resolver)

// WithCache attaches a token cache. Without one every resolution goes to the
// core service.
func WithCache(cache Cache) ResolverOption {
	return func(r *Resolver) { r.cache = cache }
}

// WithCaching toggles populating the cache after successful remote lookups.
// Reads still happen when a cache is attached.
func WithCaching(enabled bool) ResolverOption {
	return func(r *Resolver) { r.cachingEnabled = enabled }
}

// WithRunner overrides the background executor for cache writes.
func WithRunner(runner tasks.Runner) ResolverOption {
	return func(r *Resolver) {
		if runner != nil {
			r.runner = runner
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewResolver constructs a resolver backed by the given provider.
func NewResolver(provider Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider:       provider,
		runner:         tasks.NewBackground(10 * time.Second),
		cachingEnabled: true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces the identity for a token or exactly one of
// ErrMissingToken, ErrAccessDenied, ErrUpstreamUnavailable.
//
// A cache hit returns immediately with no freshness check. A cache read
// error counts as a miss. After a successful remote lookup the cache write
// is scheduled in the background; the caller never waits on it and never
// observes its failure.
func (r *Resolver) Resolve(ctx context.Context, token string) (*UserRecord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	if r.cache != nil {
		entry, err := r.cache.FindByToken(ctx, token)
		switch {
		case err == nil && entry != nil && entry.User != nil:
			obs.IdentityCacheLookup("hit")
			return entry.User, nil
		case err == nil || errors.Is(err, ErrNotFound):
			obs.IdentityCacheLookup("miss")
		default:
			// Treated exactly like a miss; the cache is an optimization.
			obs.IdentityCacheLookup("error")
			obs.Log("warn", "identity cache lookup failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	user, err := r.provider.Lookup(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccessDenied):
			obs.IdentityRemoteCall("denied")
		default:
			obs.IdentityRemoteCall("error")
		}
		return nil, err
	}
	obs.IdentityRemoteCall("ok")

	if r.cachingEnabled && r.cache != nil {
		snapshot := user.Clone()
		entry := &CachedIdentity{
			Token:     token,
			ForeignID: snapshot.ID,
			User:      snapshot,
			CachedAt:  r.now().UTC(),
		}
		r.runner.Go("identity-cache-write", func(ctx context.Context) error {
			return r.cache.ReplaceByForeignID(ctx, entry.ForeignID, entry)
		})
	}

	return user, nil
}
