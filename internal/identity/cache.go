package identity

import (
	"context"
	"sync"
)

// Cache is the durable token-to-identity store consumed by the resolver. The
// resolver never assumes the cache is present or consistent; every code path
// must work with a cache that only ever misses.
type Cache interface {
	// FindByToken returns the cached identity for a token, or ErrNotFound.
	FindByToken(ctx context.Context, token string) (*CachedIdentity, error)

	// ReplaceByForeignID removes every entry with the given foreign id and
	// inserts the new one. Best-effort remove-then-insert; not required to
	// survive a crash between the two steps.
	ReplaceByForeignID(ctx context.Context, foreignID int64, entry *CachedIdentity) error
}

// MemoryCache is an in-process Cache used in tests and when no database is
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	byToken map[string]*CachedIdentity
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{byToken: make(map[string]*CachedIdentity)}
}

func (c *MemoryCache) FindByToken(ctx context.Context, token string) (*CachedIdentity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	out := *entry
	out.User = entry.User.Clone()
	return &out, nil
}

func (c *MemoryCache) ReplaceByForeignID(ctx context.Context, foreignID int64, entry *CachedIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token, existing := range c.byToken {
		if existing.ForeignID == foreignID {
			delete(c.byToken, token)
		}
	}
	stored := *entry
	stored.User = entry.User.Clone()
	c.byToken[entry.Token] = &stored
	return nil
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byToken)
}
