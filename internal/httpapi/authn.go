package httpapi

import (
	"net/http"

	"agora.events/internal/events"
	"agora.events/internal/identity"
	"agora.events/internal/permissions"
)

// publicPaths are served without a token.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// withAuth resolves the X-Auth-Token header into a user record before any
// handler runs. Requests without a token are rejected up front; nothing past
// this middleware executes for them.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get(identity.TokenHeader)
		user, err := a.resolver.Resolve(r.Context(), token)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		ctx := identity.ContextWithUser(r.Context(), user)
		ctx = identity.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// eventHandler receives the resolved event together with the permission set
// the evaluator computed for the caller and this event.
type eventHandler func(w http.ResponseWriter, r *http.Request, ev *events.Event, set permissions.Set)

// withEvent loads the event named by the path segment, evaluates the caller's
// permissions against it and hands both to the handler. The chain is strictly
// sequential: a missing event stops before any permission logic runs.
func (a *API) withEvent(idOrSlug string, next eventHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := identity.UserFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Access denied")
			return
		}
		ev, err := a.events.Find(r.Context(), idOrSlug)
		if err != nil {
			handleEventError(w, r, err)
			return
		}
		set := a.eval.Evaluate(user, ev)
		ctx := permissions.ContextWithSet(r.Context(), set)
		next(w, r.WithContext(ctx), ev, set)
	}
}
