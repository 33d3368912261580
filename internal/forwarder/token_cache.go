package forwarder

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// tokenCache holds one backend bearer token. Concurrent misses share a single
// exchange call.
type tokenCache struct {
	mu      sync.RWMutex
	token   string
	expires time.Time

	ttl   time.Duration
	group singleflight.Group
	fetch func(ctx context.Context) (string, error)
	now   func() time.Time
}

func newTokenCache(ttl time.Duration, fetch func(ctx context.Context) (string, error)) *tokenCache {
	return &tokenCache{ttl: ttl, fetch: fetch, now: time.Now}
}

func (c *tokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.now().Before(c.expires) {
		return "", false
	}
	return c.token, true
}

func (c *tokenCache) Get(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		tok, err := c.fetch(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.token = tok
		c.expires = c.now().Add(c.ttl)
		c.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops token if it is still the cached one.
func (c *tokenCache) Invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
		c.expires = time.Time{}
	}
}
