package identity

import "errors"

var (
	// ErrMissingToken means the request carried no auth token at all. No
	// collaborator is contacted in that case.
	ErrMissingToken = errors.New("identity: no auth token provided")

	// ErrAccessDenied means the core service explicitly rejected the token.
	ErrAccessDenied = errors.New("identity: access denied")

	// ErrUpstreamUnavailable means the core service could not be reached.
	ErrUpstreamUnavailable = errors.New("identity: core unavailable")

	// ErrNotFound is returned by caches when no entry exists for a token.
	ErrNotFound = errors.New("identity: not cached")
)
