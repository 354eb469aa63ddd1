package revocation

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore memoizes positive revocation lookups in front of another Store.
//
// A revoked id stays revoked until the token expires, and expired tokens never
// reach the revocation check, so a cached positive can't go stale in a way that
// admits anything. Negatives are always forwarded: a logout on another instance
// must take effect on the next request.
type CachedStore struct {
	next  Store
	cache *expirable.LRU[string, struct{}]
}

// NewCachedStore wraps next with an LRU of at most size entries, each kept for ttl.
func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	if size <= 0 {
		size = 4096
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedStore{
		next:  next,
		cache: expirable.NewLRU[string, struct{}](size, nil, ttl),
	}
}

func (c *CachedStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if _, ok := c.cache.Get(tokenID); ok {
		return true, nil
	}
	revoked, err := c.next.IsRevoked(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if revoked {
		c.cache.Add(tokenID, struct{}{})
	}
	return revoked, nil
}

// Revoke writes through and caches the positive only after the backend accepted it.
func (c *CachedStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.next.Revoke(ctx, tokenID, ttl); err != nil {
		return err
	}
	c.cache.Add(tokenID, struct{}{})
	return nil
}

// Ping delegates to the wrapped store when it supports liveness checks.
func (c *CachedStore) Ping(ctx context.Context) (time.Duration, error) {
	if p, ok := c.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return 0, nil
}

// Len reports the number of cached positives.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
