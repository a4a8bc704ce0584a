// Package cache holds the federation-token cache. It is an explicit,
// injectable component rather than package-level state: every entry has a
// bounded lifetime and callers invalidate entries when the owning identity is
// unlinked or deleted.
package cache

import (
	"sync"
	"time"
)

// TokenCache caches federation-scoped access tokens keyed by identity id.
type TokenCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	token     string
	expiresAt time.Time
}

// NewTokenCache creates a TokenCache whose entries live for ttl.
func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Put stores the token for the identity, replacing any previous entry and
// restarting its lifetime.
func (c *TokenCache) Put(identityID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[identityID] = entry{
		token:     token,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Get returns the cached token for the identity. Expired entries are dropped
// on lookup.
func (c *TokenCache) Get(identityID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[identityID]
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(c.now()) {
		delete(c.entries, identityID)
		return "", false
	}

	return e.token, true
}

// Invalidate removes the identity's entry, if any.
func (c *TokenCache) Invalidate(identityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, identityID)
}
