package direct

import (
	"context"
	"sync"
	"time"
)

// expirySkew refreshes a token slightly before the provider would reject it.
const expirySkew = 60 * time.Second

// TokenCache holds one access token for the life of the process. It is filled
// lazily and refilled once the expiry passes. Concurrent misses may each fetch a
// token; the last one written wins.
type TokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

type FetchFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

func (c *TokenCache) Get(ctx context.Context, fetch FetchFunc) (string, error) {
	c.mu.RLock()
	token, expiresAt := c.token, c.expiresAt
	c.mu.RUnlock()

	if token != "" && c.now().Before(expiresAt) {
		return token, nil
	}

	token, ttl, err := fetch(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = token
	c.expiresAt = c.now().Add(ttl - expirySkew)
	c.mu.Unlock()
	return token, nil
}

// Invalidate drops the token, e.g. after the provider answered 401.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}
